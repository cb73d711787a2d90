package pagedjson

import (
	"context"
	"encoding/json"

	"go.llib.dev/pagekit/pkg/pageiter"
	"go.llib.dev/pagekit/pkg/pagination"
	"go.llib.dev/pagekit/pkg/pipekit"
	"go.llib.dev/pagekit/port/option"
)

// Encode writes a paged sequence onto a byte channel as a single envelope.
//
// The pagination member is written first, then the items stream out one by one
// with a flush after each, so a consumer on the other end of the channel can
// begin decoding before the producer finished.
//
// The channel is not completed by Encode, closing rights stay with the caller,
// which allows writing compressed trailers or further envelopes after it.
func Encode[T any](ctx context.Context, out pipekit.Writer, s *pageiter.Sequence[T], opts ...Option) error {
	conf := option.ToConfig(opts)
	if conf.BufferedTotal {
		return encodeBuffered(ctx, out, s, conf)
	}
	p, err := s.Pagination(ctx)
	if err != nil {
		return err
	}
	if err := writeHeader(ctx, out, p); err != nil {
		return err
	}
	first := true
	for v, err := range s.Iter(ctx) {
		if err != nil {
			return err
		}
		data, err := conf.Codec.Marshal(v)
		if err != nil {
			return err
		}
		if err := writeItem(ctx, out, data, first); err != nil {
			return err
		}
		first = false
	}
	return writeFooter(ctx, out)
}

// encodeBuffered enumerates the sequence up front,
// which lets an unknown total count be finalised from the observed length
// at the price of holding every marshalled item in memory.
func encodeBuffered[T any](ctx context.Context, out pipekit.Writer, s *pageiter.Sequence[T], conf Config) error {
	var items [][]byte
	for v, err := range s.Iter(ctx) {
		if err != nil {
			return err
		}
		data, err := conf.Codec.Marshal(v)
		if err != nil {
			return err
		}
		items = append(items, data)
	}
	p, err := s.Pagination(ctx)
	if err != nil {
		return err
	}
	if !p.TotalCount.Known {
		p.TotalCount = pagination.TotalOf(uint64(len(items)))
	}
	if err := writeHeader(ctx, out, p); err != nil {
		return err
	}
	for i, data := range items {
		if err := writeItem(ctx, out, data, i == 0); err != nil {
			return err
		}
	}
	return writeFooter(ctx, out)
}

func writeHeader(ctx context.Context, out pipekit.Writer, p pagination.Pagination) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	head := make([]byte, 0, len(data)+32)
	head = append(head, `{"`...)
	head = append(head, paginationField...)
	head = append(head, `":`...)
	head = append(head, data...)
	head = append(head, `,"`...)
	head = append(head, itemsField...)
	head = append(head, `":[`...)
	if err := write(ctx, out, head); err != nil {
		return err
	}
	return flush(ctx, out)
}

func writeItem(ctx context.Context, out pipekit.Writer, data []byte, first bool) error {
	if !first {
		if err := write(ctx, out, []byte{','}); err != nil {
			return err
		}
	}
	if err := write(ctx, out, data); err != nil {
		return err
	}
	return flush(ctx, out)
}

func writeFooter(ctx context.Context, out pipekit.Writer) error {
	if err := write(ctx, out, []byte("]}")); err != nil {
		return err
	}
	return flush(ctx, out)
}

func write(ctx context.Context, out pipekit.Writer, p []byte) error {
	if err := out.Write(ctx, p); err != nil {
		return ErrChannel.Wrap(err)
	}
	return nil
}

func flush(ctx context.Context, out pipekit.Writer) error {
	if err := out.Flush(ctx); err != nil {
		return ErrChannel.Wrap(err)
	}
	return nil
}
