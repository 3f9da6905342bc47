package callbacks

import (
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Sep joins payload fields.
const Sep = ":"

// Join encodes ids as a payload.
func Join(ids ...int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, Sep)
}

// PayloadInt64 parses the payload as one id.
func PayloadInt64(c tele.Context) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(Payload(c)), 10, 64)
}

// PayloadInt64s parses a payload built by Join into exactly n ids.
func PayloadInt64s(c tele.Context, n int) ([]int64, error) {
	p := Payload(c)
	parts := strings.Split(p, Sep)
	if p == "" || len(parts) != n {
		return nil, fmt.Errorf("callbacks: payload %q: want %d ids", p, n)
	}
	out := make([]int64, n)
	for i, s := range parts {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("callbacks: payload %q: %w", p, err)
		}
		out[i] = v
	}
	return out, nil
}

// PayloadIDFlag parses payloads of the form "<id>:<0|1>".
func PayloadIDFlag(c tele.Context) (int64, bool, error) {
	v, err := PayloadInt64s(c, 2)
	if err != nil {
		return 0, false, err
	}
	return v[0], v[1] != 0, nil
}
