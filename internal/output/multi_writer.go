package output

import (
	"errors"

	"cascade-sim/internal/analysis"
)

// MultiWriter fans results out to several writers.
type MultiWriter struct {
	writers []ResultWriter
}

// NewMultiWriter creates a MultiWriter. Nil writers are skipped.
func NewMultiWriter(ws ...ResultWriter) *MultiWriter {
	mw := &MultiWriter{}
	for _, w := range ws {
		if w != nil {
			mw.writers = append(mw.writers, w)
		}
	}
	return mw
}

// Len reports how many writers receive results.
func (mw *MultiWriter) Len() int { return len(mw.writers) }

// WriteResult sends res to every writer. A failing writer does not stop the
// others; all errors are joined.
func (mw *MultiWriter) WriteResult(res *analysis.AggregateResult) error {
	var errs []error
	for _, w := range mw.writers {
		if err := w.WriteResult(res); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
