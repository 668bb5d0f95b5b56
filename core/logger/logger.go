package logger

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/m3rciful/assocbot/core/buildinfo"
	coreconfig "github.com/m3rciful/assocbot/core/config"
)

var (
	initOnce   sync.Once
	shutdownMu sync.Mutex
	shutdowned bool

	logWriter  *asyncWriter
	logClosers []io.Closer

	levelVar slog.LevelVar

	debugSampler  = newEventSampler(1, 50)
	traceOverride bool

	// L is the base logger.
	L *slog.Logger

	// DB logs database connection and query events.
	DB *slog.Logger
	// MIG logs schema migrations.
	MIG *slog.Logger
)

// Component names used across the bot.
const (
	CompApp   = "app"
	CompTG    = "tg"
	CompDB    = "db"
	CompConv  = "conv"
	CompReg   = "reg"
	CompMod   = "mod"
	CompWatch = "watch"
	CompHTTP  = "http"
)

// InitLogger configures the global structured logger. Only the first call
// has effect.
func InitLogger(cfg *coreconfig.Config) error {
	initOnce.Do(func() {
		levelVar.Set(selectLevel(cfg))
		num, den := parseDebugSample(cfg)
		debugSampler.Set(num, den)
		traceOverride = detectTraceFlag()

		outputs, errOutputs, closers := buildOutputs(cfg)
		logClosers = closers
		logWriter = newLeveledWriter(outputs, errOutputs, 64*1024)

		handler := newStructuredHandler(handlerConfig{
			level:    &levelVar,
			writer:   logWriter,
			format:   selectFormat(cfg),
			keyOrder: selectKeyOrder(cfg),
		})

		L = slog.New(handler)
		slog.SetDefault(L)

		DB = L.With("component", CompDB)
		MIG = L.With("component", "db.migrate")

		logStartup(cfg)
	})
	return nil
}

func logStartup(cfg *coreconfig.Config) {
	attrs := []slog.Attr{
		slog.String("component", CompApp),
		slog.String("event", "startup"),
		slog.String("go_version", runtime.Version()),
		slog.String("build", buildinfo.String()),
		slog.String("cfg_profile", selectProfile(cfg)),
	}
	L.LogAttrs(context.Background(), slog.LevelInfo, "startup", attrs...)
}

// Shutdown flushes buffered output and closes file sinks.
func Shutdown() error {
	shutdownMu.Lock()
	defer shutdownMu.Unlock()
	if shutdowned {
		return nil
	}
	shutdowned = true

	var errs []error
	if logWriter != nil {
		if err := logWriter.Flush(); err != nil {
			errs = append(errs, err)
		}
		if err := logWriter.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, c := range logClosers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Stats returns writer counters, zero before InitLogger.
func Stats() WriterStats {
	if logWriter == nil {
		return WriterStats{}
	}
	return logWriter.Stats()
}

func selectFormat(cfg *coreconfig.Config) logFormat {
	if cfg == nil {
		return formatJSON
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Logging.Format)) {
	case "kv", "text", "pretty":
		return formatKV
	case "json":
		return formatJSON
	}
	switch strings.ToLower(cfg.Logging.Profile) {
	case "debug", "dev":
		return formatKV
	}
	return formatJSON
}

func selectKeyOrder(cfg *coreconfig.Config) []string {
	if cfg == nil {
		return append([]string(nil), defaultKeyOrder...)
	}
	raw := strings.TrimSpace(cfg.Logging.KeysOrder)
	if raw == "" || raw == "default" {
		return append([]string(nil), defaultKeyOrder...)
	}
	var order []string
	for _, p := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			order = append(order, trimmed)
		}
	}
	if len(order) == 0 {
		return append([]string(nil), defaultKeyOrder...)
	}
	return order
}

func selectLevel(cfg *coreconfig.Config) slog.Level {
	if cfg == nil {
		return slog.LevelInfo
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Logging.Level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// buildOutputs opens the bot log and the errors-only log under Logging.Dir.
// Files that cannot be opened are reported on stderr and skipped.
func buildOutputs(cfg *coreconfig.Config) (all, errs []io.Writer, closers []io.Closer) {
	all = []io.Writer{os.Stdout}
	if cfg == nil {
		return all, nil, nil
	}
	dir := strings.TrimSpace(cfg.Logging.Dir)
	if dir == "" {
		return all, nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Printf("logger: failed to create log dir %s: %v", dir, err)
		return all, nil, nil
	}
	open := func(name string) io.WriteCloser {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil
		}
		path := filepath.Join(dir, name)
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.Printf("logger: failed to open log file %s: %v", path, err)
			return nil
		}
		closers = append(closers, f)
		return f
	}
	if f := open(cfg.Logging.BotFile); f != nil {
		all = append(all, f)
	}
	if f := open(cfg.Logging.ErrorsFile); f != nil {
		errs = append(errs, f)
	}
	return all, errs, closers
}

func selectProfile(cfg *coreconfig.Config) string {
	if cfg == nil {
		return ""
	}
	if profile := strings.TrimSpace(cfg.Logging.Profile); profile != "" {
		return strings.ToLower(profile)
	}
	return "prod"
}

// LogEvent logs attrs with an explicit event attribute.
func LogEvent(ctx context.Context, logg *slog.Logger, level slog.Level, event string, attrs ...slog.Attr) {
	if logg == nil {
		logg = FromContext(ctx)
	}
	if logg == nil {
		return
	}
	if event != "" {
		attrs = append([]slog.Attr{slog.String("event", event)}, attrs...)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	logg.LogAttrs(ctx, level, "", attrs...)
}

// Component returns a logger scoped to name.
func Component(name string) *slog.Logger {
	if L == nil {
		return nil
	}
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return L
	}
	return L.With("component", trimmed)
}

// Event logs with the component resolved from name.
func Event(ctx context.Context, component string, level slog.Level, event string, attrs ...slog.Attr) {
	logg := FromContext(ctx)
	if logg == nil {
		return
	}
	if c := strings.TrimSpace(component); c != "" {
		logg = logg.With("component", c)
	}
	LogEvent(ctx, logg, level, event, attrs...)
}

// Debug logs a sampled debug event.
func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	if !ShouldSampleDebug(event) {
		return
	}
	Event(ctx, component, slog.LevelDebug, event, attrs...)
}

// Info logs an info event.
func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelInfo, event, attrs...)
}

// Warn logs a warn event.
func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelWarn, event, attrs...)
}

// Error logs an error event.
func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelError, event, attrs...)
}

func parseDebugSample(cfg *coreconfig.Config) (int, int) {
	if cfg == nil || strings.TrimSpace(cfg.Logging.DebugSample) == "" {
		return 1, 50
	}
	num, den := parseRatioSpec(cfg.Logging.DebugSample)
	if num <= 0 || den <= 0 {
		// "0" or garbage disables sampling
		return 0, 0
	}
	return num, den
}

func detectTraceFlag() bool {
	return isTruthy(os.Getenv("TRACE")) || isTruthy(os.Getenv("LOG_TRACE"))
}

func isTruthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// ShouldSampleDebug reports whether the next debug record of event passes.
// TRACE=1 lets everything through.
func ShouldSampleDebug(event string) bool {
	if traceOverride {
		return true
	}
	return debugSampler.Allow(event)
}
