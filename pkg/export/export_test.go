package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type examLine struct {
	ExamID string `csv:"exam_id"`
	Room   string `csv:"room"`
	Seats  int    `csv:"seats"`
}

func TestCSVExporterRoundTrip(t *testing.T) {
	exporter := NewCSVExporter()
	rows := []examLine{{ExamID: "exam-1", Room: "A-101", Seats: 80}, {ExamID: "exam-2", Room: "B-2", Seats: 30}}

	out, err := exporter.Render(rows)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("exam_id,room,seats")))

	var decoded []examLine
	require.NoError(t, exporter.Decode(out, &decoded))
	assert.Equal(t, rows, decoded)
}

func TestCSVExporterRejectsNonSlice(t *testing.T) {
	_, err := NewCSVExporter().Render(examLine{})
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(Table{
		Headers: []string{"Exam", "Room"},
		Rows:    [][]string{{"exam-1", "A-101"}, {"exam-2"}},
		Footer:  []string{"emergency schedule - manual review required"},
	}, "Exam timetable")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))

	_, err = NewPDFExporter().Render(Table{}, "empty")
	assert.Error(t, err)
}
