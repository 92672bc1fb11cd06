// The errors package provides additional error primitives.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

func New(text string) error {
	return errors.New(text)
}

// Errors is a list of errors.
type Errors []error

// Errors formats the list by separating each message with a newline. Each
// produced line, including lines within messages, is prefixed with a tab.
func (errs Errors) Error() string {
	switch len(errs) {
	case 0:
		return "no errors"
	case 1:
		return errs[0].Error()
	default:
		var buf strings.Builder
		buf.WriteString("multiple errors:")
		for _, err := range errs {
			buf.WriteString("\n\t")
			msg := err.Error()
			msg = strings.ReplaceAll(msg, "\n", "\n\t")
			buf.WriteString(msg)
		}
		return buf.String()
	}
}

// Unwrap returns the list itself, so the standard errors.Is and errors.As
// consider each error in it.
func (errs Errors) Unwrap() []error {
	return errs
}

// Append returns errs with each err appended to it. Arguments that are nil are
// skipped.
func (errs Errors) Append(err ...error) Errors {
	for _, err := range err {
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// Return prepares errs to be returned by a function by returning nil if errs is
// empty.
func (errs Errors) Return() error {
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Union receives a number of errors and combines them into one Errors. Any errs
// that are Errors are concatenated directly. Returns nil if all errs are nil or
// empty.
func Union(errs ...error) error {
	var e Errors
	for _, err := range errs {
		switch err := err.(type) {
		case nil:
			continue
		case Errors:
			for _, err := range err {
				if err != nil {
					e = append(e, err)
				}
			}
		default:
			e = append(e, err)
		}
	}
	return e.Return()
}

// Misuse represents a violated caller contract. It is produced by Assert and
// recovered values can be inspected with errors.As.
type Misuse struct {
	Reason string
}

func (err Misuse) Error() string {
	return "misuse: " + err.Reason
}

// Assert panics with a Misuse describing the violated contract when cond is
// false. It guards arguments whose validity is the caller's responsibility,
// as opposed to malformed input data, which is reported as a regular error.
func Assert(cond bool, reason string) {
	if !cond {
		panic(Misuse{Reason: reason})
	}
}

// Assertf is like Assert with a formatted reason.
func Assertf(cond bool, format string, args ...interface{}) {
	if !cond {
		panic(Misuse{Reason: fmt.Sprintf(format, args...)})
	}
}
