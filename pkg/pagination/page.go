package pagination

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	gojson "github.com/goccy/go-json"

	"github.com/prashantcloudsufi/zendesk/pkg/catalog"
	"github.com/prashantcloudsufi/zendesk/pkg/split"
)

var (
	// ErrProtocol is returned when a response does not have the expected shape.
	ErrProtocol = errors.New("unexpected response")

	// ErrCursorStuck is returned when the API hands back the cursor it was given.
	ErrCursorStuck = errors.New("cursor did not advance")

	// ErrConsumed is returned when a page sequence is iterated a second time.
	ErrConsumed = errors.New("page sequence already consumed")
)

// Page is one decoded response of a split.
type Page struct {
	// Number is 1-based.
	Number int

	// Items are the raw records in response order. Numbers are kept as
	// json.Number so that integer precision survives decoding.
	Items []map[string]any

	// NextCursor locates the following page. It is empty on the last page.
	NextCursor string

	// RetryAfter is the last server-requested delay honored while fetching
	// this page, or 0 when the page was not throttled.
	RetryAfter time.Duration

	Attempts  int
	Throttles int
}

// Terminal reports whether p is the last page of its split.
func (p *Page) Terminal() bool {
	return p.NextCursor == ""
}

// Filter holds the request parameters derived from a split.
type Filter struct {
	StartDate *time.Time
	EndDate   *time.Time
	Score     string
	PageSize  int

	// Params are static parameters of the object type.
	Params map[string]string
}

// FilterFor builds the filter of sp. Dates and score are only carried when the
// object type accepts them.
func FilterFor(sp split.Split, desc catalog.Descriptor, pageSize int) Filter {
	f := Filter{PageSize: pageSize, Params: desc.Params}
	if desc.DateFilter {
		f.StartDate = sp.StartDate
		f.EndDate = sp.EndDate
	}
	if desc.ScoreFilter {
		f.Score = sp.Score
	}
	return f
}

func (f Filter) base() url.Values {
	q := url.Values{}
	q.Set("per_page", strconv.Itoa(f.PageSize))
	for k, v := range f.Params {
		q.Set(k, v)
	}
	return q
}

func (f Filter) addDates(q url.Values) {
	if f.StartDate != nil {
		q.Set("start_time", strconv.FormatInt(f.StartDate.Unix(), 10))
	}
	if f.EndDate != nil {
		q.Set("end_time", strconv.FormatInt(f.EndDate.Unix(), 10))
	}
}

// body is the decoded envelope of a response.
type body struct {
	items       []map[string]any
	afterCursor string
	endOfStream bool
}

// Style is a pagination scheme: how to build the request for a page and how
// to tell whether a page was the last one.
type Style interface {
	// Query returns the query for the page at cursor. An empty cursor
	// selects the first page.
	Query(f Filter, cursor string) url.Values

	// Next returns the cursor of the page after b, or "" when b is the last
	// page. cursor is the one b was requested with.
	Next(f Filter, b body, cursor string) (string, error)
}

// StyleOf returns the implementation of ps.
func StyleOf(ps catalog.PaginationStyle) (Style, error) {
	switch ps {
	case catalog.CursorIncremental:
		return cursorStyle{}, nil
	case catalog.OffsetList:
		return offsetStyle{}, nil
	default:
		return nil, fmt.Errorf("unknown pagination style %q", ps)
	}
}

// cursorStyle walks the incremental export API. The time window only goes on
// the first request; the cursor encodes it afterwards.
type cursorStyle struct{}

func (cursorStyle) Query(f Filter, cursor string) url.Values {
	q := f.base()
	if cursor == "" {
		if f.StartDate == nil {
			q.Set("start_time", "0")
		}
		f.addDates(q)
		return q
	}
	q.Set("cursor", cursor)
	return q
}

func (cursorStyle) Next(_ Filter, b body, cursor string) (string, error) {
	if b.endOfStream || b.afterCursor == "" {
		return "", nil
	}
	if b.afterCursor == cursor {
		return "", fmt.Errorf("%w: %q", ErrCursorStuck, cursor)
	}
	return b.afterCursor, nil
}

// offsetStyle advances page=n until a page comes back short. Filters are
// repeated on every request.
type offsetStyle struct{}

func (offsetStyle) Query(f Filter, cursor string) url.Values {
	q := f.base()
	if cursor == "" {
		cursor = "1"
	}
	q.Set("page", cursor)
	f.addDates(q)
	if f.Score != "" {
		q.Set("score", f.Score)
	}
	return q
}

func (offsetStyle) Next(f Filter, b body, cursor string) (string, error) {
	if len(b.items) < f.PageSize {
		return "", nil
	}
	n := 1
	if cursor != "" {
		var err error
		if n, err = strconv.Atoi(cursor); err != nil {
			return "", fmt.Errorf("page number %q: %w", cursor, err)
		}
	}
	return strconv.Itoa(n + 1), nil
}

// decodeBody extracts the items under itemsKey and the cursor fields.
func decodeBody(data []byte, itemsKey string) (body, error) {
	var envelope map[string]gojson.RawMessage
	if err := gojson.Unmarshal(data, &envelope); err != nil {
		return body{}, fmt.Errorf("%w: %v", ErrProtocol, err)
	}

	raw, ok := envelope[itemsKey]
	if !ok {
		return body{}, fmt.Errorf("%w: missing %q", ErrProtocol, itemsKey)
	}

	dec := gojson.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var values []any
	if err := dec.Decode(&values); err != nil {
		return body{}, fmt.Errorf("%w: %q is not an array: %v", ErrProtocol, itemsKey, err)
	}

	var b body
	b.items = make([]map[string]any, 0, len(values))
	for i, v := range values {
		obj, ok := v.(map[string]any)
		if !ok {
			return body{}, fmt.Errorf("%w: %s[%d] is not an object", ErrProtocol, itemsKey, i)
		}
		b.items = append(b.items, obj)
	}

	if rc, ok := envelope["after_cursor"]; ok {
		var cursor *string
		if err := gojson.Unmarshal(rc, &cursor); err != nil {
			return body{}, fmt.Errorf("%w: after_cursor: %v", ErrProtocol, err)
		}
		if cursor != nil {
			b.afterCursor = *cursor
		}
	}
	if re, ok := envelope["end_of_stream"]; ok {
		if err := gojson.Unmarshal(re, &b.endOfStream); err != nil {
			return body{}, fmt.Errorf("%w: end_of_stream: %v", ErrProtocol, err)
		}
	}
	return b, nil
}
