package logger

import (
	"bufio"
	"errors"
	"io"
	"sync"
)

// asyncWriter moves log output off the caller goroutine. A single loop owns
// the sinks; Flush and Close are serialized through it.
type asyncWriter struct {
	lines   chan []byte
	flushes chan chan error
	done    chan struct{}
	close   sync.Once

	mu    sync.Mutex
	err   error
	sinks []*bufio.Writer

	gate   sync.RWMutex
	closed bool
}

var errWriterClosed = errors.New("logger: writer closed")

func newAsyncWriter(writers []io.Writer, bufSize int) *asyncWriter {
	if bufSize <= 0 {
		bufSize = 64 << 10
	}
	w := &asyncWriter{
		lines:   make(chan []byte, 512),
		flushes: make(chan chan error),
		done:    make(chan struct{}),
	}
	for _, out := range writers {
		if out != nil {
			w.sinks = append(w.sinks, bufio.NewWriterSize(out, bufSize))
		}
	}
	go w.run()
	return w
}

func (w *asyncWriter) run() {
	defer close(w.done)
	for {
		select {
		case line, ok := <-w.lines:
			if !ok {
				w.remember(w.flushSinks())
				return
			}
			w.remember(w.writeLine(line))
		case ack := <-w.flushes:
			// Lines queued before the flush request must reach the sinks first.
			open := w.drain()
			ack <- w.flushSinks()
			if !open {
				return
			}
		}
	}
}

// Write copies p and queues it. It blocks only when the queue is full.
func (w *asyncWriter) Write(p []byte) error {
	if err := w.failure(); err != nil {
		return err
	}
	if len(p) == 0 {
		return nil
	}
	w.gate.RLock()
	defer w.gate.RUnlock()
	if w.closed {
		return errWriterClosed
	}
	w.lines <- append([]byte(nil), p...)
	return nil
}

// Flush drains pending lines into the sinks.
func (w *asyncWriter) Flush() error {
	ack := make(chan error, 1)
	select {
	case w.flushes <- ack:
		return errors.Join(<-ack, w.failure())
	case <-w.done:
		return w.failure()
	}
}

// Close stops the loop after draining the queue.
func (w *asyncWriter) Close() error {
	w.close.Do(func() {
		w.gate.Lock()
		w.closed = true
		close(w.lines)
		w.gate.Unlock()
	})
	<-w.done
	return w.failure()
}

// drain writes every queued line and reports whether the queue is still open.
func (w *asyncWriter) drain() bool {
	for {
		select {
		case line, ok := <-w.lines:
			if !ok {
				return false
			}
			w.remember(w.writeLine(line))
		default:
			return true
		}
	}
}

func (w *asyncWriter) writeLine(p []byte) error {
	for _, s := range w.sinks {
		if _, err := s.Write(p); err != nil {
			return err
		}
		if err := s.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func (w *asyncWriter) flushSinks() error {
	var errs []error
	for _, s := range w.sinks {
		errs = append(errs, s.Flush())
	}
	return errors.Join(errs...)
}

func (w *asyncWriter) remember(err error) {
	if err == nil {
		return
	}
	w.mu.Lock()
	if w.err == nil {
		w.err = err
	}
	w.mu.Unlock()
}

func (w *asyncWriter) failure() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}
