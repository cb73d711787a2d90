package pagedjson

import (
	"testing"

	"go.llib.dev/testcase/assert"
)

func TestScanValue(t *testing.T) {
	scan := func(raw string, final bool) (int, error) {
		return scanValue([]byte(raw), 0, final)
	}

	t.Run("complete values", func(t *testing.T) {
		for raw, end := range map[string]int{
			`"hello"`:           7,
			`"esc\"aped"`:       11,
			`{"a":{"b":[1,2]}}`: 17,
			`[1,[2,[3]]]`:       11,
			`["br]acket"]`:      12,
			`true`:              4,
			`false`:             5,
			`null`:              4,
			`"str" tail`:        5,
			`{"a":1} tail`:      7,
			`42,`:               2,
			`-3.14e2]`:          7,
		} {
			got, err := scan(raw, false)
			assert.NoError(t, err, assert.MessageF("input: %s", raw))
			assert.Equal(t, end, got, assert.MessageF("input: %s", raw))
		}
	})

	t.Run("incomplete values await more bytes", func(t *testing.T) {
		for _, raw := range []string{
			`"unterminated`,
			`"esc\`,
			`{"a":`,
			`[1,2`,
			`tru`,
			`nul`,
			`42`,
			`-3.14`,
			``,
			`   `,
		} {
			_, err := scan(raw, false)
			assert.ErrorIs(t, err, errShortBuffer, assert.MessageF("input: %s", raw))
		}
	})

	t.Run("incomplete values at the end of input are malformed", func(t *testing.T) {
		for _, raw := range []string{
			`"unterminated`,
			`{"a":`,
			`[1,2`,
			`tru`,
			``,
		} {
			_, err := scan(raw, true)
			assert.ErrorIs(t, err, ErrMalformed, assert.MessageF("input: %s", raw))
		}
	})

	t.Run("number at the end of input is complete", func(t *testing.T) {
		end, err := scan(`42`, true)
		assert.NoError(t, err)
		assert.Equal(t, 2, end)
	})

	t.Run("invalid leading character", func(t *testing.T) {
		_, err := scan(`@`, false)
		assert.ErrorIs(t, err, ErrMalformed)
	})
}
