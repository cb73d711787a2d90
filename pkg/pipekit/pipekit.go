// Package pipekit contains the byte channel port that the streaming envelope codec consumes and produces.
//
// The channel is a single-consumer contract:
// a Reader yields the currently available bytes without blocking longer than necessary,
// and the caller explicitly declares how much of it got consumed,
// so unconsumed bytes are preserved for the next read.
package pipekit

import (
	"context"
	"io"
	"sync"

	"go.llib.dev/pagekit/pkg/errorkit"
)

const (
	// ErrCompleted is returned when writing to an already completed Writer.
	ErrCompleted errorkit.Error = "pipekit: writer is already completed"
)

// ReadResult is the outcome of a single Reader.Read call.
type ReadResult struct {
	// Bytes is the currently unconsumed byte window.
	// It is only valid until the next Advance call on the Reader.
	Bytes []byte
	// IsCompleted reports that no more bytes will ever arrive beyond Bytes.
	IsCompleted bool
}

// Reader is the consuming end of a byte channel.
//
// Reader is a single-consumer contract, concurrent Read calls are a usage error.
type Reader interface {
	// Read returns the unconsumed byte window.
	// It blocks until bytes beyond the examined watermark arrive,
	// the channel completes, or the context gets cancelled.
	Read(ctx context.Context) (ReadResult, error)
	// Advance declares how many bytes of the last read window got consumed,
	// and how far the window got examined.
	// Bytes before the examined watermark won't wake up a blocked Read on their own.
	// consumed <= examined <= len(window) must hold.
	Advance(consumed, examined int)
}

// Writer is the producing end of a byte channel.
type Writer interface {
	Write(ctx context.Context, p []byte) error
	Flush(ctx context.Context) error
	// Complete signals that no more bytes will be written.
	// A non nil error marks the channel as failed,
	// which the reading side observes as a read error.
	Complete(err error) error
}

// NewPipe creates an in-memory byte channel.
// The returned Pipe implements both Reader and Writer.
func NewPipe() *Pipe {
	return &Pipe{notify: make(chan struct{}, 1)}
}

// Pipe is an in-memory single-consumer byte channel.
type Pipe struct {
	mu        sync.Mutex
	notify    chan struct{}
	buf       []byte
	examined  int
	completed bool
	failure   error
}

var (
	_ Reader = (*Pipe)(nil)
	_ Writer = (*Pipe)(nil)
)

func (p *Pipe) Write(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.completed {
		return ErrCompleted
	}
	p.buf = append(p.buf, data...)
	p.wakeup()
	return nil
}

func (p *Pipe) Flush(ctx context.Context) error { return ctx.Err() }

func (p *Pipe) Complete(err error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.completed {
		return nil
	}
	p.completed = true
	p.failure = err
	p.wakeup()
	return nil
}

func (p *Pipe) Read(ctx context.Context) (ReadResult, error) {
	for {
		p.mu.Lock()
		if p.failure != nil {
			err := p.failure
			p.mu.Unlock()
			return ReadResult{}, err
		}
		if len(p.buf) > p.examined || p.completed {
			res := ReadResult{Bytes: p.buf, IsCompleted: p.completed}
			p.mu.Unlock()
			return res, nil
		}
		p.mu.Unlock()
		select {
		case <-ctx.Done():
			return ReadResult{}, ctx.Err()
		case <-p.notify:
		}
	}
}

func (p *Pipe) Advance(consumed, examined int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	consumed = clamp(consumed, 0, len(p.buf))
	examined = clamp(examined, consumed, len(p.buf))
	// compaction: the consumed prefix is shifted out so retained memory stays bounded
	p.buf = append(p.buf[:0], p.buf[consumed:]...)
	p.examined = examined - consumed
}

func (p *Pipe) wakeup() {
	select {
	case p.notify <- struct{}{}:
	default:
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// DefaultBufferSize is the initial read chunk size of the io.Reader adapter.
const DefaultBufferSize = 4096

// FromReader adapts an io.Reader into the byte channel Reader contract.
//
// The adapter owns a growable read buffer for the duration of the decode pass:
// the chunk size starts at DefaultBufferSize and doubles whenever a read fills it fully.
// The underlying io.Reader is not owned and won't be closed by the adapter.
func FromReader(r io.Reader) Reader {
	return &ioReader{src: r, chunk: make([]byte, DefaultBufferSize)}
}

type ioReader struct {
	src      io.Reader
	chunk    []byte
	buf      []byte
	examined int

	pending   chan ioReadOutcome
	completed bool
	failure   error
}

type ioReadOutcome struct {
	n   int
	err error
}

func (c *ioReader) Read(ctx context.Context) (ReadResult, error) {
	for {
		if c.failure != nil {
			return ReadResult{}, c.failure
		}
		if len(c.buf) > c.examined || c.completed {
			return ReadResult{Bytes: c.buf, IsCompleted: c.completed}, nil
		}
		if c.pending == nil {
			c.pending = make(chan ioReadOutcome, 1)
			go func(dst []byte, out chan<- ioReadOutcome) {
				n, err := c.src.Read(dst)
				out <- ioReadOutcome{n: n, err: err}
			}(c.chunk, c.pending)
		}
		select {
		case <-ctx.Done():
			// the in-flight read is kept, its result is picked up by the next Read call
			return ReadResult{}, ctx.Err()
		case out := <-c.pending:
			c.pending = nil
			if out.n > 0 {
				c.buf = append(c.buf, c.chunk[:out.n]...)
			}
			if out.n == len(c.chunk) {
				c.chunk = make([]byte, len(c.chunk)*2)
			}
			switch {
			case out.err == io.EOF:
				c.completed = true
			case out.err != nil:
				c.failure = out.err
			}
		}
	}
}

func (c *ioReader) Advance(consumed, examined int) {
	consumed = clamp(consumed, 0, len(c.buf))
	examined = clamp(examined, consumed, len(c.buf))
	c.buf = append(c.buf[:0], c.buf[consumed:]...)
	c.examined = examined - consumed
}

// FromWriter adapts an io.Writer into the byte channel Writer contract.
//
// The underlying io.Writer is not owned by the adapter;
// Complete flushes but intentionally does not close it.
func FromWriter(w io.Writer) Writer {
	return &ioWriter{dst: w}
}

type ioWriter struct {
	dst       io.Writer
	completed bool
}

func (c *ioWriter) Write(ctx context.Context, p []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.completed {
		return ErrCompleted
	}
	_, err := c.dst.Write(p)
	return err
}

func (c *ioWriter) Flush(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if f, ok := c.dst.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

func (c *ioWriter) Complete(err error) error {
	if c.completed {
		return nil
	}
	c.completed = true
	return c.Flush(context.Background())
}
