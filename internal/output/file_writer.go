package output

import (
	"encoding/json"
	"os"

	"cascade-sim/internal/analysis"
)

// FileWriter appends results, and optionally their per-node forecast rows,
// to JSONL files.
type FileWriter struct {
	resultFile   *os.File
	forecastFile *os.File
	resultEnc    *json.Encoder
	forecastEnc  *json.Encoder
}

// NewFileWriter creates a FileWriter. forecastPath may be empty to skip the
// forecast log.
func NewFileWriter(resultPath, forecastPath string) (*FileWriter, error) {
	rf, err := os.Create(resultPath)
	if err != nil {
		return nil, err
	}
	fw := &FileWriter{resultFile: rf, resultEnc: json.NewEncoder(rf)}
	if forecastPath != "" {
		ff, err := os.Create(forecastPath)
		if err != nil {
			rf.Close()
			return nil, err
		}
		fw.forecastFile = ff
		fw.forecastEnc = json.NewEncoder(ff)
	}
	return fw, nil
}

// WriteResult implements ResultWriter.
func (f *FileWriter) WriteResult(res *analysis.AggregateResult) error {
	if err := f.resultEnc.Encode(res); err != nil {
		return err
	}
	if f.forecastEnc == nil {
		return nil
	}
	for _, row := range ForecastRows(res) {
		if err := f.forecastEnc.Encode(row); err != nil {
			return err
		}
	}
	return nil
}

// Close closes any underlying files.
func (f *FileWriter) Close() error {
	var err error
	if f.resultFile != nil {
		if e := f.resultFile.Close(); e != nil && err == nil {
			err = e
		}
	}
	if f.forecastFile != nil {
		if e := f.forecastFile.Close(); e != nil && err == nil {
			err = e
		}
	}
	return err
}
