package router

import (
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/m3rciful/assocbot/core/logger"
	tghelpers "github.com/m3rciful/assocbot/core/telegram/helpers"
	"github.com/m3rciful/assocbot/internal/conversation"

	tele "gopkg.in/telebot.v4"
)

func logHandlerSummary(c tele.Context, handlerName string, start time.Time, res conversation.Result, err error) {
	ctx := tghelpers.WithHandler(c, handlerName)

	status := "ok"
	if err != nil {
		status = "fail"
	}
	outcome := res.Outcome
	if outcome == "" {
		outcome = status
	}

	attrs := []slog.Attr{
		slog.String("status", status),
		slog.String("handler", handlerName),
		slog.String("outcome", outcome),
		slog.Int("messages", res.Replies),
		slog.Int64("duration_ms", logger.RoundMS(time.Since(start)).Milliseconds()),
	}
	if res.Route != "" {
		attrs = append(attrs, slog.String("route", logger.SanitizeLimit(res.Route, 64)))
	}
	if res.State != res.Next {
		attrs = append(attrs,
			slog.String("state_from", string(res.State)),
			slog.String("state_to", string(res.Next)),
		)
	}
	level := slog.LevelInfo
	if err != nil {
		level = slog.LevelError
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_code", deriveErrorCode(err)),
		)
	}
	logger.LogEvent(ctx, logger.Component(logger.CompTG), level, "handler.handled", attrs...)
}

func normalizeHandlerName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "unknown"
	}
	name = strings.TrimPrefix(name, "/")
	name = strings.ReplaceAll(name, " ", "_")
	return strings.ToLower(name)
}

func deriveErrorCode(err error) string {
	if err == nil {
		return ""
	}
	type coder interface{ Code() string }
	var c coder
	if errors.As(err, &c) {
		if code := strings.TrimSpace(c.Code()); code != "" {
			return strings.ToUpper(strings.ReplaceAll(code, " ", "_"))
		}
	}
	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t != nil && t.Name() != "" {
		return strings.ToUpper(t.Name())
	}
	return "UNKNOWN_ERROR"
}
