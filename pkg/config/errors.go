package config

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrAllSkipped is returned when the skip list removes every selected object.
	ErrAllSkipped = errors.New("all objects are skipped")

	// ErrNoObjects is returned when the pull list matches no catalog object.
	ErrNoObjects = errors.New("no objects selected")
)

// Failure is one configuration violation attributed to a property.
type Failure struct {
	Property string
	Message  string
	Err      error
}

// Error implements the error interface.
func (f Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Property, f.Message, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Property, f.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (f Failure) Unwrap() error {
	return f.Err
}

// Failures collects every violation found by a validation pass.
type Failures []Failure

// Error implements the error interface.
func (fs Failures) Error() string {
	msgs := make([]string, len(fs))
	for i, f := range fs {
		msgs[i] = f.Error()
	}
	return fmt.Sprintf("%d configuration failure(s): %s", len(fs), strings.Join(msgs, "; "))
}

// Unwrap exposes each failure to errors.Is/As.
func (fs Failures) Unwrap() []error {
	errs := make([]error, len(fs))
	for i, f := range fs {
		errs[i] = f
	}
	return errs
}

// Err returns nil when there are no failures.
func (fs Failures) Err() error {
	if len(fs) == 0 {
		return nil
	}
	return fs
}

// Properties lists the offending property of each failure, in order.
func (fs Failures) Properties() []string {
	props := make([]string, len(fs))
	for i, f := range fs {
		props[i] = f.Property
	}
	return props
}

// Has reports whether any failure is attributed to property.
func (fs Failures) Has(property string) bool {
	for _, f := range fs {
		if f.Property == property {
			return true
		}
	}
	return false
}

func (fs *Failures) add(property, format string, args ...any) {
	*fs = append(*fs, Failure{Property: property, Message: fmt.Sprintf(format, args...)})
}

func (fs *Failures) wrap(property, message string, err error) {
	*fs = append(*fs, Failure{Property: property, Message: message, Err: err})
}
