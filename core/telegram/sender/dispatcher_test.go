package sender

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"
)

func TestDoRetriesTransientErrors(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 2, RetryBackoff: time.Millisecond})
	defer d.Close()

	calls := 0
	err := d.Do(context.Background(), "send_text", "sendMessage", func() error {
		calls++
		if calls < 3 {
			return &net.OpError{Op: "dial", Err: errors.New("refused")}
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Fatalf("Do = %v after %d calls", err, calls)
	}
	if d.ErrorCount() != 0 {
		t.Fatalf("error count = %d", d.ErrorCount())
	}
}

func TestDoReturnsPermanentError(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 3, RetryBackoff: time.Millisecond})
	defer d.Close()

	boom := errors.New("bad request (400)")
	calls := 0
	err := d.Do(context.Background(), "send_text", "sendMessage", func() error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) || calls != 1 {
		t.Fatalf("Do = %v after %d calls", err, calls)
	}
	if d.ErrorCount() != 1 {
		t.Fatalf("error count = %d", d.ErrorCount())
	}
	if err := d.Do(context.Background(), "x", "", nil); err == nil {
		t.Fatalf("nil run must fail")
	}
}

func TestEnqueueRunsAndCloses(t *testing.T) {
	d := NewDispatcher(Options{Workers: 2, QueueSize: 4})
	var ran atomic.Int32
	for i := 0; i < 3; i++ {
		if err := d.Enqueue(context.Background(), "send_text", "", func() error {
			ran.Add(1)
			return nil
		}); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}
	d.Close()
	if ran.Load() != 3 {
		t.Fatalf("ran = %d", ran.Load())
	}
	if err := d.Enqueue(context.Background(), "late", "", func() error { return nil }); !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("expected ErrQueueClosed, got %v", err)
	}
}

func TestSanitizeAndClassify(t *testing.T) {
	msg := sanitizeErrorMessage(errors.New("post https://api.telegram.org/bot123:ABC-def/sendMessage failed"))
	if msg != "post https://api.telegram.org/bot<redacted>/sendMessage failed" {
		t.Fatalf("token not redacted: %s", msg)
	}
	if kind := classifyError(errors.New("Forbidden (403)")); kind != "http_4xx" {
		t.Fatalf("kind = %s", kind)
	}
	if kind := classifyError(context.DeadlineExceeded); kind != "timeout" {
		t.Fatalf("kind = %s", kind)
	}
}
