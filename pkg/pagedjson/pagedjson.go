// Package pagedjson implements the paginated streaming envelope codec.
//
// The wire envelope is a UTF-8 JSON object with two weighted members:
//
//	{"pagination": {"PageSize": 5, "CurrentPage": 2, "ContinuationToken": null, "TotalCount": 23}, "items": [ ... ]}
//
// Producers always emit the pagination member first,
// which lets consumers learn the pagination cheaply without reading the item array.
// Consumers tolerate any member order, they only lose that fast path.
// Unknown top-level members are structurally ignored.
//
// Decoding streams the item array one element at a time over a byte channel,
// retaining at most a single item plus the unread window in memory,
// independent of the total payload size.
package pagedjson

import (
	"encoding/json"

	"github.com/sirupsen/logrus"

	"go.llib.dev/pagekit/pkg/errorkit"
	"go.llib.dev/pagekit/port/codec"
	"go.llib.dev/pagekit/port/option"
)

const (
	// ErrMalformed is returned when the top-level structure of the envelope is not valid JSON.
	ErrMalformed errorkit.Error = "pagedjson: malformed envelope"
	// ErrChannel is returned when reading or writing the byte channel fails.
	// Channel failures are fatal for the current pass, they are not retried internally.
	ErrChannel errorkit.Error = "pagedjson: byte channel failure"
)

const (
	paginationField = "pagination"
	itemsField      = "items"
)

// JSON is the default item codec of the envelope, based on encoding/json.
type JSON struct{}

var _ codec.Codec = JSON{}

func (JSON) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (JSON) Unmarshal(data []byte, ptr any) error { return json.Unmarshal(data, ptr) }

// Config contains the optional behaviours of the envelope codec.
type Config struct {
	// Codec converts a single item to/from its JSON object representation.
	// Defaults to JSON.
	Codec codec.Codec
	// Logger, when set, receives a log line for every item that got skipped
	// because its bytes did not match the expected item shape.
	Logger logrus.FieldLogger
	// BufferedTotal makes the encoder drain and buffer the item sequence upfront
	// to finalise an unknown total count before the envelope is written.
	// This is an explicit trade-off for small payloads, not the default path.
	BufferedTotal bool
}

func (c *Config) Init() {
	c.Codec = JSON{}
}

type Option = option.Option[Config]

// WithCodec sets the item codec of the envelope.
func WithCodec(c codec.Codec) Option {
	return option.Func[Config](func(conf *Config) { conf.Codec = c })
}

// WithLogger makes skipped item conversions visible through the given logger.
func WithLogger(l logrus.FieldLogger) Option {
	return option.Func[Config](func(conf *Config) { conf.Logger = l })
}

// BufferedTotal opts the encoder into counting the items upfront
// when the pagination has no known total count.
func BufferedTotal() Option {
	return option.Func[Config](func(conf *Config) { conf.BufferedTotal = true })
}
