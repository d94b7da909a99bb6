package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"cascade-sim/internal/analysis"
)

// JSONStdoutWriter prints each result as one JSON document.
type JSONStdoutWriter struct {
	out    io.Writer
	indent bool
}

// NewJSONStdoutWriter creates a JSONStdoutWriter writing to os.Stdout.
func NewJSONStdoutWriter(indent bool) *JSONStdoutWriter {
	return &JSONStdoutWriter{out: os.Stdout, indent: indent}
}

// WriteResult implements ResultWriter.
func (w *JSONStdoutWriter) WriteResult(res *analysis.AggregateResult) error {
	var (
		data []byte
		err  error
	)
	if w.indent {
		data, err = json.MarshalIndent(res, "", "  ")
	} else {
		data, err = json.Marshal(res)
	}
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	_, err = fmt.Fprintln(w.out, string(data))
	return err
}
