package logger

import (
	"bufio"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
)

type sink struct {
	w   *bufio.Writer
	min slog.Level
}

type record struct {
	level slog.Level
	line  []byte
}

// asyncWriter fans log lines out to sinks on a background goroutine. Each
// sink has its own minimum level so an errors-only file can share the queue.
type asyncWriter struct {
	queue    chan record
	flushReq chan chan error
	done     chan struct{}
	once     sync.Once
	sinks    []sink
	sinkMu   sync.Mutex
	writeErr error

	lines   atomic.Uint64
	blocked atomic.Uint64
}

// WriterStats reports counters of the shared async writer.
type WriterStats struct {
	Lines   uint64 `json:"lines"`
	Blocked uint64 `json:"blocked"`
}

func newAsyncWriter(writers []io.Writer, bufSize int) *asyncWriter {
	return newLeveledWriter(writers, nil, bufSize)
}

// newLeveledWriter builds a writer where writers accept every level and
// errWriters accept only slog.LevelError and above.
func newLeveledWriter(writers, errWriters []io.Writer, bufSize int) *asyncWriter {
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	sinks := make([]sink, 0, len(writers)+len(errWriters))
	for _, w := range writers {
		if w != nil {
			sinks = append(sinks, sink{w: bufio.NewWriterSize(w, bufSize), min: slog.LevelDebug})
		}
	}
	for _, w := range errWriters {
		if w != nil {
			sinks = append(sinks, sink{w: bufio.NewWriterSize(w, bufSize), min: slog.LevelError})
		}
	}
	aw := &asyncWriter{
		queue:    make(chan record, 256),
		flushReq: make(chan chan error),
		done:     make(chan struct{}),
		sinks:    sinks,
	}
	go aw.loop()
	return aw
}

func (w *asyncWriter) loop() {
	for {
		select {
		case rec, ok := <-w.queue:
			if !ok {
				w.flushAll()
				close(w.done)
				return
			}
			if len(rec.line) == 0 {
				continue
			}
			if err := w.writeAll(rec); err != nil {
				w.setErr(err)
			}
		case ack := <-w.flushReq:
			ack <- w.flushAll()
		}
	}
}

// Write enqueues an INFO line.
func (w *asyncWriter) Write(p []byte) error {
	return w.WriteLevel(slog.LevelInfo, p)
}

// WriteLevel enqueues p for every sink that accepts level.
func (w *asyncWriter) WriteLevel(level slog.Level, p []byte) error {
	if err := w.getErr(); err != nil {
		return err
	}
	if len(p) == 0 {
		return nil
	}
	rec := record{level: level, line: append([]byte(nil), p...)}
	w.lines.Add(1)
	select {
	case w.queue <- rec:
	default:
		// queue full: block rather than drop
		w.blocked.Add(1)
		w.queue <- rec
	}
	return nil
}

// Flush waits until buffered lines reach every sink.
func (w *asyncWriter) Flush() error {
	if err := w.getErr(); err != nil {
		return err
	}
	ack := make(chan error, 1)
	w.flushReq <- ack
	return <-ack
}

// Close drains the queue and reports the first write error.
func (w *asyncWriter) Close() error {
	w.once.Do(func() {
		close(w.queue)
	})
	<-w.done
	return w.getErr()
}

func (w *asyncWriter) Stats() WriterStats {
	return WriterStats{Lines: w.lines.Load(), Blocked: w.blocked.Load()}
}

func (w *asyncWriter) writeAll(rec record) error {
	w.sinkMu.Lock()
	defer w.sinkMu.Unlock()
	for _, s := range w.sinks {
		if rec.level < s.min {
			continue
		}
		if _, err := s.w.Write(rec.line); err != nil {
			return err
		}
		if err := s.w.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func (w *asyncWriter) flushAll() error {
	w.sinkMu.Lock()
	defer w.sinkMu.Unlock()
	var errs []error
	for _, s := range w.sinks {
		if err := s.w.Flush(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (w *asyncWriter) getErr() error {
	w.sinkMu.Lock()
	defer w.sinkMu.Unlock()
	return w.writeErr
}

func (w *asyncWriter) setErr(err error) {
	if err == nil {
		return
	}
	w.sinkMu.Lock()
	defer w.sinkMu.Unlock()
	if w.writeErr == nil {
		w.writeErr = err
	}
}
