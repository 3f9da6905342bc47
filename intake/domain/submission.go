package domain

import (
	"fmt"
	"time"
)

// ContentKind is the media type of a submission.
type ContentKind string

const (
	KindText     ContentKind = "text"
	KindPhoto    ContentKind = "photo"
	KindVideo    ContentKind = "video"
	KindDocument ContentKind = "document"
)

// Valid reports whether k is one of the supported kinds.
func (k ContentKind) Valid() bool {
	switch k {
	case KindText, KindPhoto, KindVideo, KindDocument:
		return true
	}
	return false
}

// IsMedia reports whether k carries a file.
func (k ContentKind) IsMedia() bool {
	return k == KindPhoto || k == KindVideo || k == KindDocument
}

// Origin points at the message the author sent, so moderators can see it forwarded.
type Origin struct {
	ChatID    int64 `json:"chat_id"`
	MessageID int   `json:"message_id"`
}

// Content describes what was submitted. Text doubles as the caption for media.
type Content struct {
	Kind ContentKind
	Text string
	// MediaRef is the transport file reference for media kinds.
	MediaRef string
	// Size is the file size in bytes; 0 when unknown or not media.
	Size   int64
	Origin *Origin
}

// Status is a submission lifecycle state.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
	// StatusPublished is reached only after a successful channel dispatch.
	StatusPublished Status = "published"
)

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return s == StatusPublished || s == StatusRejected
}

// CanTransition reports whether from -> to is a legal lifecycle move.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusAccepted || to == StatusRejected
	case StatusAccepted:
		return to == StatusPublished
	}
	return false
}

// Submission is one piece of content proposed to a channel.
type Submission struct {
	ID        int64
	AuthorID  int64
	Content   Content
	Anonymous bool
	ChannelID int64
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Label is the short human reference used in messages, e.g. "#12".
func (s Submission) Label() string {
	return fmt.Sprintf("#%d", s.ID)
}

// Action names a moderation decision recorded in the action log.
type Action string

const (
	ActionAccept Action = "accept"
	ActionReject Action = "reject"
	ActionReply  Action = "reply"
	// ActionDispatchFailed records a failed channel dispatch after acceptance.
	ActionDispatchFailed Action = "dispatch_failed"
)

// ActionLogEntry is one append-only audit record.
type ActionLogEntry struct {
	ID           int64     `db:"id"`
	SubmissionID int64     `db:"submission_id"`
	ModeratorID  int64     `db:"moderator_id"`
	Action       Action    `db:"action"`
	Note         string    `db:"note"`
	CreatedAt    time.Time `db:"created_at"`
}

// Stats is an operator summary of stored data.
type Stats struct {
	Channels    int
	Moderators  int
	Bans        int
	Submissions map[Status]int
}
