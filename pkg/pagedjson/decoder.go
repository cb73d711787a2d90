package pagedjson

import (
	"context"
	"encoding/json"
	"errors"
	"iter"
	"sync"

	"github.com/sirupsen/logrus"

	"go.llib.dev/pagekit/pkg/pageiter"
	"go.llib.dev/pagekit/pkg/pagination"
	"go.llib.dev/pagekit/pkg/pipekit"
	"go.llib.dev/pagekit/port/codec"
	"go.llib.dev/pagekit/port/option"
)

// Decode wraps a byte channel into a paged sequence.
//
// The envelope is parsed incrementally: items stream out one at a time,
// and the pagination member is extracted eagerly the moment it is encountered,
// so sequences decoded from a pagination-first envelope can answer the
// pagination accessor without touching the item array.
//
// The byte channel is a single-consumer source,
// so the returned sequence supports one effective enumeration pass:
// later passes over the exhausted channel yield an empty sequence.
// The channel itself is not owned by the decoder, the caller keeps closing rights.
func Decode[T any](in pipekit.Reader, opts ...Option) *pageiter.Sequence[T] {
	conf := option.ToConfig(opts)
	d := &decoder[T]{in: in, codec: conf.Codec, log: conf.Logger}
	seq := pageiter.FromSeqFunc(
		func(ctx context.Context) iter.Seq2[T, error] { return d.items(ctx) },
		pageiter.WithPaginationFunc(d.pagination),
	)
	d.resolve = seq.ResolvePagination
	return seq
}

type phase int

const (
	phaseHeader phase = iota // expecting the envelope object to open
	phaseKey                 // expecting a member key or the envelope object to close
	phaseMemberSep           // expecting "," before the next member or the envelope object to close
	phaseItems               // inside the item array, expecting an element or the array to close
	phaseItemSep             // inside the item array, expecting "," or the array to close
	phaseDone                // envelope closed, expecting only whitespace until channel completion
)

// scanState is the resumable position of the envelope scan.
// It is copied before every parse attempt and only committed after the attempt
// consumed a complete unit, so an attempt that ran out of bytes rolls back for free.
type scanState struct {
	phase phase
}

type decoder[T any] struct {
	in      pipekit.Reader
	codec   codec.Codec
	log     logrus.FieldLogger
	resolve func(pagination.Pagination)

	// mu serialises the two pullers of the envelope scan:
	// the item enumeration and the pagination computation.
	mu      sync.Mutex
	st      scanState
	err     error
	done    bool
	queued  []T
	pag     pagination.Pagination
	pagSeen bool
}

// items returns the streamed item array elements as a single-use sequence.
func (d *decoder[T]) items(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for {
			v, ok, err := d.next(ctx)
			if err != nil {
				var zero T
				yield(zero, err)
				return
			}
			if !ok {
				return
			}
			if !yield(v, nil) {
				return
			}
		}
	}
}

func (d *decoder[T]) next(ctx context.Context) (T, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pull(ctx, true)
}

// pagination drives the envelope scan until the pagination member is found
// or the channel completes.
// Items encountered on the way are queued for the enumeration,
// which is the documented cost of an items-before-pagination producer.
func (d *decoder[T]) pagination(ctx context.Context) (pagination.Pagination, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, _, err := d.pull(ctx, false); err != nil {
		return pagination.Empty(), err
	}
	if d.pagSeen {
		return d.pag, nil
	}
	// the channel completed without a pagination member, the sentinel is the answer
	return pagination.Empty(), nil
}

// pull makes progress on the envelope scan until it can answer its caller:
// an item for the enumeration (forItems), or the pagination member otherwise.
func (d *decoder[T]) pull(ctx context.Context, forItems bool) (T, bool, error) {
	var zero T
	for {
		if forItems && len(d.queued) > 0 {
			v := d.queued[0]
			d.queued = d.queued[1:]
			return v, true, nil
		}
		if d.err != nil {
			return zero, false, d.err
		}
		if d.done || (!forItems && d.pagSeen) {
			return zero, false, nil
		}
		res, err := d.in.Read(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				// cancellation is not sticky, the pass stays resumable
				return zero, false, err
			}
			d.err = ErrChannel.Wrap(err)
			return zero, false, d.err
		}
		v, got, consumed, err := d.step(res.Bytes, res.IsCompleted)
		if errors.Is(err, errShortBuffer) {
			d.in.Advance(0, len(res.Bytes))
			continue
		}
		if err != nil {
			d.err = err
			return zero, false, d.err
		}
		// compaction of the consumed bytes happens before the item is yielded,
		// which keeps retained memory bounded by a single item plus the unread window
		d.in.Advance(consumed, consumed)
		if got {
			if forItems {
				return v, true, nil
			}
			d.queued = append(d.queued, v)
		}
	}
}

// step consumes at most one complete unit of the envelope from the byte window.
//
// When the window ends mid-unit and the channel is not yet complete,
// errShortBuffer is returned and no state is committed,
// so the same unit is re-attempted once more bytes arrived.
func (d *decoder[T]) step(win []byte, final bool) (item T, got bool, consumed int, _ error) {
	var zero T
	st := d.st
	pos := skipSpace(win, 0)
	switch st.phase {
	case phaseHeader:
		if pos >= len(win) {
			if final {
				// an entirely empty channel decodes as an empty envelope
				d.done = true
				return zero, false, pos, nil
			}
			return d.short(final)
		}
		if win[pos] != '{' {
			return zero, false, 0, ErrMalformed.F("expected the envelope object to open, got %q", win[pos])
		}
		st.phase = phaseKey
		d.st = st
		return zero, false, pos + 1, nil

	case phaseKey:
		if pos >= len(win) {
			return d.short(final)
		}
		if win[pos] == '}' {
			st.phase = phaseDone
			d.st = st
			return zero, false, pos + 1, nil
		}
		if win[pos] != '"' {
			return zero, false, 0, ErrMalformed.F("expected a member key, got %q", win[pos])
		}
		keyEnd, err := scanString(win, pos, final)
		if err != nil {
			return zero, false, 0, err
		}
		var key string
		if err := json.Unmarshal(win[pos:keyEnd], &key); err != nil {
			return zero, false, 0, ErrMalformed.Wrap(err)
		}
		sep := skipSpace(win, keyEnd)
		if sep >= len(win) {
			return d.short(final)
		}
		if win[sep] != ':' {
			return zero, false, 0, ErrMalformed.F("expected %q after member key %q", ":", key)
		}
		switch key {
		case itemsField:
			open := skipSpace(win, sep+1)
			if open >= len(win) {
				return d.short(final)
			}
			if win[open] != '[' {
				return zero, false, 0, ErrMalformed.F("expected an array for the %q member", itemsField)
			}
			st.phase = phaseItems
			d.st = st
			return zero, false, open + 1, nil
		case paginationField:
			end, err := scanValue(win, sep+1, final)
			if err != nil {
				return zero, false, 0, err
			}
			var p pagination.Pagination
			if err := json.Unmarshal(win[sep+1:end], &p); err != nil {
				return zero, false, 0, ErrMalformed.Wrap(err)
			}
			d.pag = p
			d.pagSeen = true
			if d.resolve != nil {
				d.resolve(p)
			}
			st.phase = phaseMemberSep
			d.st = st
			return zero, false, end, nil
		default:
			// any other envelope member is structurally ignored
			end, err := scanValue(win, sep+1, final)
			if err != nil {
				return zero, false, 0, err
			}
			st.phase = phaseMemberSep
			d.st = st
			return zero, false, end, nil
		}

	case phaseMemberSep:
		if pos >= len(win) {
			return d.short(final)
		}
		switch win[pos] {
		case ',':
			st.phase = phaseKey
		case '}':
			st.phase = phaseDone
		default:
			return zero, false, 0, ErrMalformed.F("expected %q or %q in the envelope object, got %q", ",", "}", win[pos])
		}
		d.st = st
		return zero, false, pos + 1, nil

	case phaseItems:
		if pos >= len(win) {
			return d.short(final)
		}
		if win[pos] == ']' {
			st.phase = phaseMemberSep
			d.st = st
			return zero, false, pos + 1, nil
		}
		end, err := scanValue(win, pos, final)
		if err != nil {
			return zero, false, 0, err
		}
		st.phase = phaseItemSep
		var v T
		if err := d.codec.Unmarshal(win[pos:end], &v); err != nil {
			if !json.Valid(win[pos:end]) {
				return zero, false, 0, ErrMalformed.Wrap(err)
			}
			// valid JSON that doesn't match the expected item shape is skipped,
			// the consumer may observe fewer items than the producer wrote
			if d.log != nil {
				d.log.WithError(err).Warn("pagedjson: skipped an item that does not match the expected shape")
			}
			d.st = st
			return zero, false, end, nil
		}
		d.st = st
		return v, true, end, nil

	case phaseItemSep:
		if pos >= len(win) {
			return d.short(final)
		}
		switch win[pos] {
		case ',':
			st.phase = phaseItems
		case ']':
			st.phase = phaseMemberSep
		default:
			return zero, false, 0, ErrMalformed.F("expected %q or %q in the item array, got %q", ",", "]", win[pos])
		}
		d.st = st
		return zero, false, pos + 1, nil

	case phaseDone:
		if pos < len(win) {
			return zero, false, 0, ErrMalformed.F("unexpected trailing data after the envelope")
		}
		if final {
			// the channel is marked consumed exactly once
			d.done = true
		}
		return zero, false, pos, nil

	default:
		return zero, false, 0, ErrMalformed.F("invalid decoder state")
	}
}

func (d *decoder[T]) short(final bool) (T, bool, int, error) {
	var zero T
	if final {
		return zero, false, 0, ErrMalformed.F("unexpected end of input")
	}
	return zero, false, 0, errShortBuffer
}
