package sink

import (
	"io"

	"github.com/linkedin/goavro/v2"

	"github.com/prashantcloudsufi/zendesk/pkg/mapper"
	"github.com/prashantcloudsufi/zendesk/pkg/schema"
)

// avroBlockSize is the number of records buffered per OCF block.
const avroBlockSize = 500

type avroWriter struct {
	ocf     *goavro.OCFWriter
	schema  *schema.Schema
	pending []any
}

func newAvroWriter(w io.Writer, s *schema.Schema) (*avroWriter, error) {
	ocf, err := goavro.NewOCFWriter(goavro.OCFConfig{
		W:               w,
		Schema:          s.String(),
		CompressionName: goavro.CompressionDeflateLabel,
	})
	if err != nil {
		return nil, err
	}
	return &avroWriter{ocf: ocf, schema: s}, nil
}

func (w *avroWriter) write(r mapper.Record) error {
	w.pending = append(w.pending, mapper.Native(w.schema, r))
	if len(w.pending) >= avroBlockSize {
		return w.flush()
	}
	return nil
}

func (w *avroWriter) flush() error {
	if len(w.pending) == 0 {
		return nil
	}
	err := w.ocf.Append(w.pending)
	w.pending = w.pending[:0]
	return err
}
