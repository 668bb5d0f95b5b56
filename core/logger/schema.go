package logger

import "strings"

const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
	LevelFatal = "FATAL"
)

var allowedLevels = map[string]string{
	"debug":   LevelDebug,
	"info":    LevelInfo,
	"warn":    LevelWarn,
	"warning": LevelWarn,
	"error":   LevelError,
	"fatal":   LevelFatal,
}

var allowedStatus = map[string]struct{}{
	"ok":           {},
	"error":        {},
	"fail":         {},
	"skip":         {},
	"retry":        {},
	"rate_limited": {},
	"cancelled":    {},
}

// Conversation outcomes share the outcome field with transport outcomes.
var allowedOutcome = map[string]struct{}{
	"ok":           {},
	"fail":         {},
	"cancelled":    {},
	"rate_limited": {},
	"ignored":      {},
	"validation":   {},
	"ineligible":   {},
	"partial":      {},
}

func normalizeLevel(level string) string {
	if level == "" {
		return LevelInfo
	}
	if mapped, ok := allowedLevels[strings.ToLower(level)]; ok {
		return mapped
	}
	return strings.ToUpper(level)
}

func normalizeEnum(allowed map[string]struct{}, v string) (string, bool) {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return "", false
	}
	_, ok := allowed[v]
	return v, ok
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
	"handler",
	"route",
	"state",
	"next_state",
	"outcome",
	"duration_ms",
	"messages",
	"kb",
	"event_id",
	"registration_id",
	"target_table",
	"target_id",
	"new_status",
	"amount",
	"count",
	"page",
	"pages",
	"mode",
	"listen",
	"public_url",
	"http_code",
	"db",
	"host",
	"port",
	"file",
	"size",
	"err",
	"err_code",
	"cause",
	"retryable",
	"attempts",
	"backoff_ms",
	"titles",
}
