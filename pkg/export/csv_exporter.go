package export

import (
	"fmt"
	"reflect"

	"github.com/gocarina/gocsv"
)

// CSVExporter renders slices of csv-tagged structs into CSV bytes.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV encoded bytes. rows must be a slice of structs carrying `csv` tags.
func (e *CSVExporter) Render(rows interface{}) ([]byte, error) {
	value := reflect.ValueOf(rows)
	if value.Kind() != reflect.Slice {
		return nil, fmt.Errorf("csv export requires a slice, got %T", rows)
	}
	out, err := gocsv.MarshalBytes(rows)
	if err != nil {
		return nil, fmt.Errorf("marshal csv: %w", err)
	}
	return out, nil
}

// Decode parses CSV bytes into the provided slice pointer.
func (e *CSVExporter) Decode(data []byte, out interface{}) error {
	if err := gocsv.UnmarshalBytes(data, out); err != nil {
		return fmt.Errorf("unmarshal csv: %w", err)
	}
	return nil
}
