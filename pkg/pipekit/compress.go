package pipekit

import (
	"context"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"

	"go.llib.dev/pagekit/pkg/errorkit"
)

const ErrUnknownCompression errorkit.Error = "pipekit: unknown compression"

// Compression identifies an opt-in transport compression of a byte channel.
type Compression string

const (
	NoCompression Compression = ""
	Zstd          Compression = "zstd"
	S2            Compression = "s2"
	Gzip          Compression = "gzip"
)

func (c Compression) Validate() error {
	switch c {
	case NoCompression, Zstd, S2, Gzip:
		return nil
	default:
		return ErrUnknownCompression.F("%q", string(c))
	}
}

// CompressWriter wraps a byte channel Writer so that everything written to it
// gets compressed with the given algorithm before reaching the underlying channel.
// Complete closes the compression stream and then completes the underlying channel.
func CompressWriter(w Writer, alg Compression) (Writer, error) {
	if alg == NoCompression {
		return w, nil
	}
	if err := alg.Validate(); err != nil {
		return nil, err
	}
	iow := &channelIOWriter{out: w, ctx: context.Background()}
	var (
		zw  io.WriteCloser
		err error
	)
	switch alg {
	case Zstd:
		zw, err = zstd.NewWriter(iow)
	case S2:
		zw = s2.NewWriter(iow)
	case Gzip:
		zw = gzip.NewWriter(iow)
	}
	if err != nil {
		return nil, err
	}
	return &compressedWriter{out: w, iow: iow, zw: zw}, nil
}

type compressedWriter struct {
	out Writer
	iow *channelIOWriter
	zw  io.WriteCloser
}

func (w *compressedWriter) Write(ctx context.Context, p []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.iow.ctx = ctx
	_, err := w.zw.Write(p)
	return err
}

func (w *compressedWriter) Flush(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.iow.ctx = ctx
	if f, ok := w.zw.(interface{ Flush() error }); ok {
		if err := f.Flush(); err != nil {
			return err
		}
	}
	return w.out.Flush(ctx)
}

func (w *compressedWriter) Complete(err error) error {
	w.iow.ctx = context.Background()
	cErr := w.zw.Close()
	return errorkit.Merge(cErr, w.out.Complete(err))
}

// channelIOWriter adapts a byte channel Writer into an io.Writer for the compression streams.
type channelIOWriter struct {
	out Writer
	ctx context.Context
}

func (w *channelIOWriter) Write(p []byte) (int, error) {
	if err := w.out.Write(w.ctx, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// CompressReader wraps a byte channel Reader whose content got compressed with
// the given algorithm, and exposes the decompressed bytes as a byte channel Reader again.
func CompressReader(r Reader, alg Compression) (Reader, error) {
	if alg == NoCompression {
		return r, nil
	}
	if err := alg.Validate(); err != nil {
		return nil, err
	}
	ior := &channelIOReader{in: r}
	var src io.Reader
	switch alg {
	case Zstd:
		zr, err := zstd.NewReader(ior)
		if err != nil {
			return nil, err
		}
		src = zr.IOReadCloser()
	case S2:
		src = s2.NewReader(ior)
	case Gzip:
		// the gzip header is only read when the first bytes are requested,
		// so construction stays lazy for not-yet-filled channels
		src = &lazyGzipReader{src: ior}
	}
	return FromReader(src), nil
}

type lazyGzipReader struct {
	src io.Reader
	zr  *gzip.Reader
}

func (r *lazyGzipReader) Read(p []byte) (int, error) {
	if r.zr == nil {
		zr, err := gzip.NewReader(r.src)
		if err != nil {
			return 0, err
		}
		r.zr = zr
	}
	return r.zr.Read(p)
}

// channelIOReader adapts a byte channel Reader into an io.Reader for the decompression streams.
type channelIOReader struct {
	in Reader
}

func (r *channelIOReader) Read(p []byte) (int, error) {
	res, err := r.in.Read(context.Background())
	if err != nil {
		return 0, err
	}
	if len(res.Bytes) == 0 {
		if res.IsCompleted {
			return 0, io.EOF
		}
		return 0, nil
	}
	n := copy(p, res.Bytes)
	r.in.Advance(n, n)
	return n, nil
}
