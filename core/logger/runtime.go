package logger

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode"
)

type contextKey string

const (
	ctxRID      contextKey = "rid"
	ctxUpdateID contextKey = "update_id"
	ctxUserID   contextKey = "user_id"
	ctxChatID   contextKey = "chat_id"
	ctxLogger   contextKey = "logger"
	ctxHandler  contextKey = "handler"
	ctxState    contextKey = "state"
)

// WithLogger stores log in ctx.
func WithLogger(ctx context.Context, log *slog.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if log == nil {
		return ctx
	}
	return context.WithValue(ctx, ctxLogger, log)
}

// FromContext extracts the logger from ctx or returns the global one.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return L
	}
	if l, ok := ctx.Value(ctxLogger).(*slog.Logger); ok {
		return l
	}
	return L
}

// WithRID attaches a request correlation id.
func WithRID(ctx context.Context, rid string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxRID, rid)
}

// RIDFrom extracts the correlation id.
func RIDFrom(ctx context.Context) string {
	return stringValue(ctx, ctxRID)
}

// WithUpdateMeta attaches update, user and chat identifiers.
func WithUpdateMeta(ctx context.Context, updateID int, userID, chatID int64) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxUpdateID, updateID)
	ctx = context.WithValue(ctx, ctxUserID, userID)
	ctx = context.WithValue(ctx, ctxChatID, chatID)
	return ctx
}

// WithUser attaches only the user identifier, for work that does not start
// from a platform update.
func WithUser(ctx context.Context, userID int64) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUserID, userID)
}

// WithHandler stores the handler name.
func WithHandler(ctx context.Context, handler string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if handler == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxHandler, handler)
}

// HandlerFrom returns the handler name.
func HandlerFrom(ctx context.Context) string {
	return stringValue(ctx, ctxHandler)
}

// WithState stores the conversation state a record was produced in.
func WithState(ctx context.Context, state string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if state == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxState, state)
}

// StateFrom returns the conversation state.
func StateFrom(ctx context.Context) string {
	return stringValue(ctx, ctxState)
}

// UserIDFrom extracts the user id.
func UserIDFrom(ctx context.Context) int64 {
	return int64Value(ctx, ctxUserID)
}

// ChatIDFrom extracts the chat id.
func ChatIDFrom(ctx context.Context) int64 {
	return int64Value(ctx, ctxChatID)
}

// UpdateIDFrom extracts the update id.
func UpdateIDFrom(ctx context.Context) int {
	return int(int64Value(ctx, ctxUpdateID))
}

func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	s, _ := ctx.Value(key).(string)
	return s
}

func int64Value(ctx context.Context, key contextKey) int64 {
	if ctx == nil {
		return 0
	}
	switch id := ctx.Value(key).(type) {
	case int64:
		return id
	case int:
		return int64(id)
	}
	return 0
}

// Sanitize drops control and format runes except tab and newline.
func Sanitize(s string) string {
	if s == "" {
		return s
	}
	b := strings.Builder{}
	b.Grow(len(s))
	for _, r := range s {
		if r == '\n' || r == '\t' {
			b.WriteRune(r)
			continue
		}
		if unicode.IsControl(r) || unicode.Is(unicode.Cf, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SanitizeLimit applies Sanitize and caps the result at max runes.
func SanitizeLimit(s string, max int) string {
	if max <= 0 {
		return ""
	}
	r := []rune(Sanitize(s))
	if len(r) <= max {
		return string(r)
	}
	return string(r[:max])
}

// BuildRID returns updateID:chatID:userID.
func BuildRID(updateID int, chatID, userID int64) string {
	return fmt.Sprintf("%d:%d:%d", updateID, chatID, userID)
}

// CompactRID rewrites a three-part numeric RID in dotted base36. Other input
// is returned unchanged.
func CompactRID(rid string) string {
	rid = strings.TrimSpace(rid)
	if rid == "" {
		return ""
	}
	parts := strings.Split(rid, ":")
	if len(parts) != 3 {
		return rid
	}
	compact := make([]string, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return rid
		}
		compact = append(compact, strconv.FormatInt(n, 36))
	}
	return strings.Join(compact, ".")
}
