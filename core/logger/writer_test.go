package logger

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"testing"
	"time"
)

type gateWriter struct {
	mu   sync.Mutex
	gate chan struct{}
	buf  bytes.Buffer
}

func (g *gateWriter) Write(p []byte) (int, error) {
	<-g.gate
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.buf.Write(p)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestAsyncWriterPreservesOrder(t *testing.T) {
	var a, b bytes.Buffer
	w := newAsyncWriter([]io.Writer{&a, nil, &b}, 16)
	for _, line := range []string{"one\n", "two\n", "three\n"} {
		if err := w.Write([]byte(line)); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	for _, got := range []string{a.String(), b.String()} {
		if got != "one\ntwo\nthree\n" {
			t.Fatalf("sink got %q", got)
		}
	}
	if w.Dropped() != 0 {
		t.Fatalf("dropped = %d", w.Dropped())
	}
}

func TestAsyncWriterDropsWhenQueueStaysFull(t *testing.T) {
	sink := &gateWriter{gate: make(chan struct{})}
	w := newAsyncWriter([]io.Writer{sink}, 16)

	// One line is held by the blocked sink, the rest fill the queue.
	for i := 0; i < writerQueueSize+1; i++ {
		_ = w.Write([]byte("x"))
	}
	_ = w.Write([]byte("overflow"))
	if w.Dropped() == 0 {
		t.Fatalf("expected a dropped line")
	}

	close(sink.gate)
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestAsyncWriterDoesNotWaitOnSlowSink(t *testing.T) {
	sink := &gateWriter{gate: make(chan struct{})}
	w := newAsyncWriter([]io.Writer{sink}, 16)
	defer func() {
		close(sink.gate)
		_ = w.Close()
	}()

	_ = w.Write([]byte("held\n"))
	done := make(chan error, 1)
	go func() { done <- w.Write([]byte("next\n")) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("write: %v", err)
		}
	case <-time.After(10 * enqueueWait):
		t.Fatal("Write stalled behind a blocked sink")
	}
}

func TestAsyncWriterReportsSinkError(t *testing.T) {
	w := newAsyncWriter([]io.Writer{failingWriter{}}, 16)
	_ = w.Write([]byte("line"))
	if err := w.Close(); err == nil {
		t.Fatalf("expected sink error on close")
	}
	if err := w.Write([]byte("again")); err == nil {
		t.Fatalf("expected write after failure to error")
	}
	if err := w.Flush(); err == nil {
		t.Fatalf("expected flush after failure to error")
	}
}

func TestNilWriterDroppedIsZero(t *testing.T) {
	var w *asyncWriter
	if w.Dropped() != 0 {
		t.Fatalf("nil writer should report zero")
	}
}
