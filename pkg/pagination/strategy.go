package pagination

import (
	"go.llib.dev/pagekit/pkg/errorkit"
)

const ErrInvalidStrategy errorkit.Error = "invalid pagination strategy"

// Strategy governs how the running Pagination value is derived while items are being pulled.
type Strategy int

const (
	// NoStrategy leaves the pagination value untouched during enumeration.
	NoStrategy Strategy = iota
	// PerItem treats every item as its own page,
	// and finalises the total count on exhaustion when it was unknown.
	PerItem
	// PerPage derives the current page from the item index and the page size.
	PerPage
)

func (s Strategy) String() string {
	switch s {
	case NoStrategy:
		return "none"
	case PerItem:
		return "per-item"
	case PerPage:
		return "per-page"
	default:
		return "invalid"
	}
}

func (s Strategy) Validate() error {
	switch s {
	case NoStrategy, PerItem, PerPage:
		return nil
	default:
		return ErrInvalidStrategy.F("%d", int(s))
	}
}

// Advance maps the current pagination value to the next one for a given enumeration step.
//
// itemIndex is the 1-based index of the item being produced.
// When endOfSeq is true, no item was produced and itemIndex is one past the last produced item.
func Advance(current Pagination, s Strategy, itemIndex int, endOfSeq bool) Pagination {
	switch s {
	case PerItem:
		if endOfSeq {
			if !current.TotalCount.Known {
				current.TotalCount = TotalOf(uint64(itemIndex - 1))
			}
			return current
		}
		current.CurrentPage = uint(itemIndex)
		return current
	case PerPage:
		if endOfSeq {
			return current
		}
		// a zero page size makes page derivation a documented no-op
		if current.PageSize > 0 {
			current.CurrentPage = uint((itemIndex-1)/int(current.PageSize)) + 1
		}
		return current
	default:
		return current
	}
}
