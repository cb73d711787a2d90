// Package errorkit contains the error handling conventions of pagekit.
//
// The main use-case is declaring exported sentinel errors as constants:
//
//	const ErrMalformed errorkit.Error = "malformed envelope"
package errorkit

import (
	"errors"
	"fmt"
	"strings"
)

// Error is an error implementation that allows error values to be declared with the `const` keyword.
type Error string

func (err Error) Error() string { return string(err) }

// Wrap bundles another error value together with this Error,
// and returns an error value that matches both of them with errors.Is / errors.As.
func (err Error) Wrap(oth error) error {
	if oth == nil {
		return err
	}
	return wrapped{Owner: err, Cause: oth}
}

// F formats an error value that wraps this Error.
func (err Error) F(format string, a ...any) error { return err.Wrap(fmt.Errorf(format, a...)) }

type wrapped struct {
	Owner Error
	Cause error
}

func (w wrapped) Error() string {
	return fmt.Sprintf("[%s] %s", string(w.Owner), w.Cause.Error())
}

func (w wrapped) As(target any) bool {
	return errors.As(w.Owner, target) || errors.As(w.Cause, target)
}

func (w wrapped) Is(target error) bool {
	return errors.Is(w.Owner, target) || errors.Is(w.Cause, target)
}

func (w wrapped) Unwrap() error { return w.Cause }

// Merge combines all given non nil error values into a single error value.
// If no non nil error is given, nil is returned.
// If only a single non nil error value is given, that error value is returned.
func Merge(errs ...error) error {
	var kept []error
	for _, err := range errs {
		if err != nil {
			kept = append(kept, err)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	default:
		return multiError(kept)
	}
}

// Finish is a helper function meant to be used from a deferred context.
//
// Usage:
//
//	defer errorkit.Finish(&returnError, cursor.Close)
func Finish(returnErr *error, blk func() error) {
	*returnErr = Merge(*returnErr, blk())
}

type multiError []error

func (errs multiError) Error() string {
	var msgs []string
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "\n")
}

func (errs multiError) As(target any) bool {
	for _, err := range errs {
		if errors.As(err, target) {
			return true
		}
	}
	return false
}

func (errs multiError) Is(target error) bool {
	for _, err := range errs {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
