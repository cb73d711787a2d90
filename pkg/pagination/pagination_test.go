package pagination_test

import (
	"encoding/json"
	"math"
	"testing"

	"go.llib.dev/pagekit/pkg/pagination"
	"go.llib.dev/testcase/assert"
	"go.llib.dev/testcase/random"
)

var rnd = random.New(random.CryptoSeed{})

func TestPagination_zeroValue(t *testing.T) {
	var p pagination.Pagination
	assert.True(t, p.IsZero())
	assert.Equal(t, pagination.Empty(), p)
	assert.False(t, p.TotalCount.Known)
	assert.Empty(t, p.ContinuationToken)
}

func TestPagination_Equal(t *testing.T) {
	a := pagination.Pagination{PageSize: 5, CurrentPage: 2, TotalCount: pagination.TotalOf(23)}
	b := a
	assert.True(t, a.Equal(b))
	b.CurrentPage++
	assert.False(t, a.Equal(b))
}

func TestTotal_Int_clamping(t *testing.T) {
	t.Run("unknown total reports zero", func(t *testing.T) {
		var total pagination.Total
		assert.Equal(t, 0, total.Int())
	})

	t.Run("representable value is returned as-is", func(t *testing.T) {
		n := rnd.IntBetween(0, math.MaxInt32)
		assert.Equal(t, n, pagination.TotalOf(uint64(n)).Int())
	})

	t.Run("value above the int32 maximum is clamped, not wrapped", func(t *testing.T) {
		total := pagination.TotalOf(uint64(math.MaxInt32) + 100)
		assert.Equal(t, math.MaxInt32, total.Int())
	})
}

func TestPagination_JSON(t *testing.T) {
	t.Run("known values keep the wire field order", func(t *testing.T) {
		p := pagination.Pagination{
			PageSize:          10,
			CurrentPage:       3,
			ContinuationToken: "tkn",
			TotalCount:        pagination.TotalOf(42),
		}
		data, err := json.Marshal(p)
		assert.NoError(t, err)
		assert.Equal(t, `{"PageSize":10,"CurrentPage":3,"ContinuationToken":"tkn","TotalCount":42}`, string(data))
	})

	t.Run("unknown values serialise as null", func(t *testing.T) {
		data, err := json.Marshal(pagination.Empty())
		assert.NoError(t, err)
		assert.Equal(t, `{"PageSize":0,"CurrentPage":0,"ContinuationToken":null,"TotalCount":null}`, string(data))
	})

	t.Run("round-trip", func(t *testing.T) {
		exp := pagination.Pagination{
			PageSize:          uint(rnd.IntBetween(1, 100)),
			CurrentPage:       uint(rnd.IntBetween(1, 100)),
			ContinuationToken: rnd.StringNWithCharset(8, random.CharsetAlpha()),
			TotalCount:        pagination.TotalOf(uint64(rnd.IntBetween(0, 10000))),
		}
		data, err := json.Marshal(exp)
		assert.NoError(t, err)
		var got pagination.Pagination
		assert.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, exp, got)
	})

	t.Run("null token and total parse back into the zero forms", func(t *testing.T) {
		var got pagination.Pagination
		assert.NoError(t, json.Unmarshal([]byte(`{"PageSize":1,"CurrentPage":1,"ContinuationToken":null,"TotalCount":null}`), &got))
		assert.Empty(t, got.ContinuationToken)
		assert.False(t, got.TotalCount.Known)
	})
}

func TestAdvance(t *testing.T) {
	t.Run("no strategy leaves the input unchanged", func(t *testing.T) {
		p := pagination.Pagination{PageSize: 5, CurrentPage: 2, TotalCount: pagination.TotalOf(23)}
		for i := 1; i <= 3; i++ {
			p = pagination.Advance(p, pagination.NoStrategy, i, false)
		}
		p = pagination.Advance(p, pagination.NoStrategy, 4, true)
		assert.Equal(t, pagination.Pagination{PageSize: 5, CurrentPage: 2, TotalCount: pagination.TotalOf(23)}, p)
	})

	t.Run("per-item sets the current page to the item index", func(t *testing.T) {
		var p pagination.Pagination
		n := rnd.IntBetween(3, 10)
		for i := 1; i <= n; i++ {
			p = pagination.Advance(p, pagination.PerItem, i, false)
			assert.Equal(t, uint(i), p.CurrentPage)
		}
	})

	t.Run("per-item finalises an unknown total on end of sequence", func(t *testing.T) {
		var p pagination.Pagination
		n := rnd.IntBetween(0, 10)
		for i := 1; i <= n; i++ {
			p = pagination.Advance(p, pagination.PerItem, i, false)
		}
		p = pagination.Advance(p, pagination.PerItem, n+1, true)
		assert.Equal(t, pagination.TotalOf(uint64(n)), p.TotalCount)
	})

	t.Run("per-item keeps an already known total on end of sequence", func(t *testing.T) {
		p := pagination.Pagination{TotalCount: pagination.TotalOf(23)}
		p = pagination.Advance(p, pagination.PerItem, 4, true)
		assert.Equal(t, pagination.TotalOf(23), p.TotalCount)
	})

	t.Run("per-page derives the page from the index and page size", func(t *testing.T) {
		pageSize := rnd.IntBetween(1, 10)
		p := pagination.Pagination{PageSize: uint(pageSize)}
		for i := 1; i <= pageSize*3; i++ {
			p = pagination.Advance(p, pagination.PerPage, i, false)
			assert.Equal(t, uint((i-1)/pageSize+1), p.CurrentPage)
		}
	})

	t.Run("per-page with zero page size is a no-op", func(t *testing.T) {
		p := pagination.Pagination{CurrentPage: 7}
		for i := 1; i <= 3; i++ {
			p = pagination.Advance(p, pagination.PerPage, i, false)
		}
		assert.Equal(t, uint(7), p.CurrentPage)
	})

	t.Run("example scenario", func(t *testing.T) {
		// pagination {page_size:5, current_page:2, total_count:23} with items [A,B,C]
		input := pagination.Pagination{PageSize: 5, CurrentPage: 2, TotalCount: pagination.TotalOf(23)}

		p := input
		for i := 1; i <= 3; i++ {
			p = pagination.Advance(p, pagination.NoStrategy, i, false)
		}
		p = pagination.Advance(p, pagination.NoStrategy, 4, true)
		assert.Equal(t, input, p)

		p = input
		for i := 1; i <= 3; i++ {
			p = pagination.Advance(p, pagination.PerPage, i, false)
		}
		assert.Equal(t, uint(1), p.CurrentPage)
	})
}

func TestStrategy(t *testing.T) {
	t.Run("Validate", func(t *testing.T) {
		assert.NoError(t, pagination.NoStrategy.Validate())
		assert.NoError(t, pagination.PerItem.Validate())
		assert.NoError(t, pagination.PerPage.Validate())
		assert.ErrorIs(t, pagination.Strategy(42).Validate(), pagination.ErrInvalidStrategy)
	})

	t.Run("String", func(t *testing.T) {
		assert.Equal(t, "none", pagination.NoStrategy.String())
		assert.Equal(t, "per-item", pagination.PerItem.String())
		assert.Equal(t, "per-page", pagination.PerPage.String())
	})
}

func TestFromOffsetLimit(t *testing.T) {
	t.Run("offset and limit derive the page", func(t *testing.T) {
		p := pagination.FromOffsetLimit(20, 10, 95)
		assert.Equal(t, pagination.Pagination{PageSize: 10, CurrentPage: 3, TotalCount: pagination.TotalOf(95)}, p)
	})

	t.Run("negative total means unknown", func(t *testing.T) {
		p := pagination.FromOffsetLimit(0, 10, -1)
		assert.False(t, p.TotalCount.Known)
	})

	t.Run("zero limit yields no page information", func(t *testing.T) {
		p := pagination.FromOffsetLimit(20, 0, 95)
		assert.Equal(t, uint(0), p.PageSize)
		assert.Equal(t, uint(0), p.CurrentPage)
	})
}

func TestToken(t *testing.T) {
	t.Run("round-trip", func(t *testing.T) {
		raw := []byte(rnd.String())
		token := pagination.EncodeToken(raw)
		got, err := pagination.DecodeToken(token)
		assert.NoError(t, err)
		assert.Equal(t, raw, got)
	})

	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, pagination.EncodeToken(nil))
		got, err := pagination.DecodeToken("")
		assert.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("token is URL safe", func(t *testing.T) {
		token := pagination.EncodeToken([]byte{0xff, 0xfe, 0xfd})
		assert.NotContain(t, token, "+")
		assert.NotContain(t, token, "/")
		assert.NotContain(t, token, "=")
	})
}
