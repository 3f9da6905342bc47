package registry

import (
	"strconv"
	"strings"
)

var linkPrefixes = []string{"https://t.me/", "http://t.me/", "t.me/"}

// CandidateKeys expands user input naming a channel ("@news", "news",
// "https://t.me/news", "-1001234") into the stored key forms it may match,
// most specific first. Blank input or an empty link yields nil.
func CandidateKeys(input string) []string {
	text := strings.TrimSpace(input)
	if text == "" {
		return nil
	}
	if last, ok := linkSegment(text); ok {
		if last == "" {
			return nil
		}
		text = last
	} else if strings.HasPrefix(text, "@") {
		return dedupe(text, strings.TrimPrefix(text, "@"))
	}
	if n, ok := numeric(text); ok {
		return dedupe(text, strconv.FormatInt(n, 10))
	}
	return dedupe("@"+text, text)
}

// LookupArg is the argument for a platform chat lookup of input: an @handle
// or a numeric id. It is empty when input names nothing.
func LookupArg(input string) string {
	text := strings.TrimSpace(input)
	if last, ok := linkSegment(text); ok {
		text = last
	}
	switch {
	case text == "":
		return ""
	case strings.HasPrefix(text, "@"):
		return text
	}
	if _, ok := numeric(text); ok {
		return text
	}
	return "@" + text
}

// ChatKeys lists every key form a resolved chat may have been stored under:
// its id, its handle with and without "@", and the id with the "-100"
// supergroup prefix toggled.
func ChatKeys(id int64, username string) []string {
	cid := strconv.FormatInt(id, 10)
	keys := []string{cid}
	if u := strings.TrimPrefix(strings.TrimSpace(username), "@"); u != "" {
		keys = append(keys, "@"+u, u)
	}
	if strings.HasPrefix(cid, "-100") {
		keys = append(keys, cid[4:], strings.TrimPrefix(cid, "-"))
	} else {
		keys = append(keys, "-100"+cid, "-"+cid)
	}
	return dedupe(keys...)
}

// CanonicalKey is the key a chat is registered under: its @handle when it
// has one, otherwise its numeric id.
func CanonicalKey(id int64, username string) string {
	if u := strings.TrimPrefix(strings.TrimSpace(username), "@"); u != "" {
		return "@" + u
	}
	return strconv.FormatInt(id, 10)
}

// linkSegment returns the last path segment of a t.me link.
func linkSegment(text string) (string, bool) {
	for _, p := range linkPrefixes {
		if rest, ok := strings.CutPrefix(text, p); ok {
			rest, _, _ = strings.Cut(rest, "?")
			rest = strings.TrimRight(rest, "/")
			if i := strings.LastIndex(rest, "/"); i >= 0 {
				rest = rest[i+1:]
			}
			return rest, true
		}
	}
	return "", false
}

func numeric(s string) (int64, bool) {
	digits := strings.TrimPrefix(s, "-")
	if digits == "" || strings.TrimLeft(digits, "0123456789") != "" {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	return n, err == nil
}

func dedupe(keys ...string) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
