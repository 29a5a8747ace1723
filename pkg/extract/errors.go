package extract

import (
	"errors"
	"fmt"
	"strings"

	"github.com/prashantcloudsufi/zendesk/pkg/mapper"
	"github.com/prashantcloudsufi/zendesk/pkg/split"
)

// SplitError is the unrecoverable failure of one split.
type SplitError struct {
	Split split.Split

	// Page is the page being fetched or mapped, 0 before the first request.
	Page int

	Err error
}

// Error implements the error interface.
func (e *SplitError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "split %s/%s", e.Split.Subdomain, e.Split.ObjectType)
	if e.Page > 0 {
		fmt.Fprintf(&b, " page %d", e.Page)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *SplitError) Unwrap() error {
	return e.Err
}

// Field returns the offending field of a schema violation, or "".
func (e *SplitError) Field() string {
	var fe *mapper.FieldError
	if errors.As(e.Err, &fe) {
		return fe.Field
	}
	return ""
}
