package logger

import "strings"

// Component names used across the bot. Keep them stable: dashboards filter on them.
const (
	CompApp          = "app"
	CompDB           = "db"
	CompMigrate      = "db.migrate"
	CompRedis        = "redis"
	CompTG           = "tg"
	CompTGWire       = "tg.wire"
	CompSender       = "tg.sender"
	CompRegistry     = "intake.registry"
	CompBans         = "intake.bans"
	CompSubmission   = "intake.submission"
	CompActionLog    = "intake.actionlog"
	CompConversation = "intake.conversation"
	CompFanout       = "intake.fanout"
	CompDispatch     = "intake.dispatch"
	CompMetrics      = "metrics"
)

const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

// statusValues maps accepted spellings of the status field to their canonical form.
var statusValues = map[string]string{
	"ok":           "ok",
	"success":      "ok",
	"fail":         "fail",
	"failed":       "fail",
	"error":        "fail",
	"skip":         "skip",
	"retry":        "retry",
	"rate_limited": "rate_limited",
	"forbidden":    "forbidden",
	"cancelled":    "cancelled",
	"canceled":     "cancelled",
}

var outcomeValues = map[string]struct{}{
	"ok":           {},
	"fail":         {},
	"cancelled":    {},
	"rate_limited": {},
	"rejected":     {},
}

func canonicalLevel(level string) string {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return LevelDebug
	case "", "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	}
	return strings.ToUpper(level)
}

func canonicalStatus(status string) string {
	key := strings.ToLower(strings.TrimSpace(status))
	if v, ok := statusValues[key]; ok {
		return v
	}
	return key
}

func validOutcome(outcome string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(outcome))
	_, ok := outcomeValues[key]
	return key, ok
}

var defaultKeyOrder = []string{
	"ts",
	"level",
	"component",
	"event",
	"status",
	"rid",
	"rid_full",
	"ts_unix_nano",
	"update_id",
	"user_id",
	"chat_id",
	"chat_type",
	"handler",
	"op",
	"cb_key",
	"outcome",
	"duration_ms",
	"messages",
	"kb",
	"channel_id",
	"channel_key",
	"submission_id",
	"author_id",
	"moderator_id",
	"from_status",
	"to_status",
	"action",
	"step",
	"kind",
	"anonymous",
	"recipients",
	"delivered",
	"remaining_ms",
	"count",
	"payload",
	"username",
	"mode",
	"listen",
	"public_url",
	"db",
	"host",
	"port",
	"err",
	"err_code",
	"cause",
	"attempts",
	"backoff_ms",
}
