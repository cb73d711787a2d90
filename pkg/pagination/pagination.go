// Package pagination contains the pagination record of a paged sequence,
// and the bookkeeping strategies that maintain it while items are being consumed.
package pagination

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
)

// Pagination describes the page related metadata of an item collection.
//
// The zero value is the "empty" sentinel, meaning the metadata is not (yet) known.
// Pagination has value semantics, bookkeeping produces new values instead of mutating in place.
type Pagination struct {
	// PageSize is the size of a single page. Zero means unknown or not paginated.
	PageSize uint
	// CurrentPage is the 1-based index of the current page. Zero means unknown.
	CurrentPage uint
	// ContinuationToken is an opaque token the caller can supply on the next request.
	// An empty string means no token.
	ContinuationToken string
	// TotalCount is the total number of items in the collection, when known.
	TotalCount Total
}

// Empty returns the empty sentinel Pagination value.
func Empty() Pagination { return Pagination{} }

// IsZero reports whether the Pagination is the empty sentinel value.
func (p Pagination) IsZero() bool { return p == Pagination{} }

// Equal reports whether two pagination values are structurally equal.
func (p Pagination) Equal(oth Pagination) bool { return p == oth }

// Total is an optional total item count.
type Total struct {
	Count uint64
	Known bool
}

// TotalOf returns a known Total value.
func TotalOf(n uint64) Total { return Total{Count: n, Known: true} }

// Int returns the total count clamped into the int32 range.
// Counts that exceed math.MaxInt32 are clamped, not wrapped.
// An unknown total reports zero.
func (t Total) Int() int {
	if !t.Known {
		return 0
	}
	if t.Count > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(t.Count)
}

func (t Total) MarshalJSON() ([]byte, error) {
	if !t.Known {
		return []byte("null"), nil
	}
	return json.Marshal(t.Count)
}

func (t *Total) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*t = Total{}
		return nil
	}
	var n uint64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*t = TotalOf(n)
	return nil
}

// MarshalJSON emits the wire representation of the pagination record.
// The field order is part of the wire contract.
func (p Pagination) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, `{"PageSize":%d,"CurrentPage":%d,"ContinuationToken":`, p.PageSize, p.CurrentPage)
	if p.ContinuationToken == "" {
		buf.WriteString("null")
	} else {
		token, err := json.Marshal(p.ContinuationToken)
		if err != nil {
			return nil, err
		}
		buf.Write(token)
	}
	buf.WriteString(`,"TotalCount":`)
	total, err := p.TotalCount.MarshalJSON()
	if err != nil {
		return nil, err
	}
	buf.Write(total)
	buf.WriteString("}")
	return buf.Bytes(), nil
}

func (p *Pagination) UnmarshalJSON(data []byte) error {
	var dto struct {
		PageSize          uint    `json:"PageSize"`
		CurrentPage       uint    `json:"CurrentPage"`
		ContinuationToken *string `json:"ContinuationToken"`
		TotalCount        Total   `json:"TotalCount"`
	}
	if err := json.Unmarshal(data, &dto); err != nil {
		return err
	}
	*p = Pagination{
		PageSize:    dto.PageSize,
		CurrentPage: dto.CurrentPage,
		TotalCount:  dto.TotalCount,
	}
	if dto.ContinuationToken != nil {
		p.ContinuationToken = *dto.ContinuationToken
	}
	return nil
}

// FromOffsetLimit synthesises a Pagination value from a query-like source
// that exposes its own offset, limit and total count.
// A negative total is interpreted as unknown.
func FromOffsetLimit(offset, limit int, total int64) Pagination {
	var p Pagination
	if limit > 0 {
		p.PageSize = uint(limit)
		if offset >= 0 {
			p.CurrentPage = uint(offset/limit) + 1
		}
	}
	if total >= 0 {
		p.TotalCount = TotalOf(uint64(total))
	}
	return p
}

var tokenEncoding = base64.RawURLEncoding

// EncodeToken encodes raw continuation cursor data into an opaque token string.
func EncodeToken(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	return tokenEncoding.EncodeToString(raw)
}

// DecodeToken decodes an opaque continuation token back into its raw cursor data.
func DecodeToken(token string) ([]byte, error) {
	if token == "" {
		return nil, nil
	}
	return tokenEncoding.DecodeString(token)
}
