package sink

import (
	"io"

	gojson "github.com/goccy/go-json"

	"github.com/prashantcloudsufi/zendesk/pkg/mapper"
)

type jsonlWriter struct {
	enc *gojson.Encoder
}

func newJSONLWriter(w io.Writer) *jsonlWriter {
	enc := gojson.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &jsonlWriter{enc: enc}
}

// write emits r.Values as one line; Encode appends the newline.
func (w *jsonlWriter) write(r mapper.Record) error {
	return w.enc.Encode(r.Values)
}

func (w *jsonlWriter) flush() error { return nil }
