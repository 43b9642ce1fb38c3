// Command solve generates an exam schedule from a YAML or JSON problem file
// without any backing services and prints the result as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/noah-isme/exam-scheduler/internal/dto"
	"github.com/noah-isme/exam-scheduler/internal/models"
	"github.com/noah-isme/exam-scheduler/internal/service"
	"github.com/noah-isme/exam-scheduler/pkg/export"
	"github.com/noah-isme/exam-scheduler/pkg/logger"
)

type csvRow struct {
	Date       string `csv:"date"`
	StartTime  string `csv:"start_time"`
	EndTime    string `csv:"end_time"`
	CourseID   string `csv:"course_id"`
	CourseName string `csv:"course_name"`
	RoomID     string `csv:"room_id"`
	Students   int    `csv:"student_count"`
	Professors string `csv:"professors"`
}

func main() {
	input := flag.String("in", "", "path to the problem file (YAML or JSON)")
	strategy := flag.String("strategy", "", "override the solving strategy")
	seed := flag.Int64("seed", 0, "annealing seed; 0 picks a random one")
	timeout := flag.Duration("timeout", 2*time.Minute, "solve timeout")
	csvOut := flag.String("csv", "", "also write the schedule as CSV to this path")
	verbose := flag.Bool("v", false, "log solver progress to stderr")
	flag.Parse()

	if strings.TrimSpace(*input) == "" {
		die("-in is required")
	}

	logr := logger.NewCLI(*verbose)
	defer logr.Sync() //nolint:errcheck

	req, err := readRequest(*input)
	if err != nil {
		die("read problem: %v", err)
	}
	if *strategy != "" {
		req.Strategy = strings.ToUpper(*strategy)
	}
	req.UseUpstreamData = false

	metrics := service.NewMetricsService()
	svc := service.NewSchedulingService(
		service.NewConflictAnalyzerService(nil, nil, nil, metrics, nil, logr),
		service.NewQualityScorerService(logr),
		service.NewFallbackService(metrics, logr, service.FallbackConfig{}),
		nil, nil, nil,
		service.NewSessionTracker(*timeout, time.Minute, metrics),
		nil, metrics, nil, logr,
		service.SchedulingConfig{SolveTimeout: *timeout, AnnealingSeed: *seed},
	)

	result, err := svc.Generate(context.Background(), req)
	if err != nil {
		die("generate: %v", err)
	}
	logr.Info("schedule generated",
		zap.String("algorithm", result.Solution.Algorithm),
		zap.Float64("quality", result.Solution.QualityScore),
		zap.Int("exams", len(result.Solution.Exams)))

	if *csvOut != "" {
		if err := writeCSV(*csvOut, result.Solution.Exams); err != nil {
			die("write csv: %v", err)
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		die("encode result: %v", err)
	}
	if !result.Solution.IsComplete {
		os.Exit(2)
	}
}

func readRequest(path string) (dto.GenerateExamScheduleRequest, error) {
	var req dto.GenerateExamScheduleRequest
	raw, err := os.ReadFile(path)
	if err != nil {
		return req, err
	}
	if err := yaml.Unmarshal(raw, &req); err != nil {
		return req, fmt.Errorf("decode %s: %w", path, err)
	}
	return req, nil
}

func writeCSV(path string, exams []models.ScheduledExam) error {
	sorted := append([]models.ScheduledExam(nil), exams...)
	models.SortExams(sorted)
	rows := make([]csvRow, 0, len(sorted))
	for _, e := range sorted {
		rows = append(rows, csvRow{
			Date:       e.Slot.Date.Format("2006-01-02"),
			StartTime:  e.Slot.StartTime.String(),
			EndTime:    e.Slot.EndTime.String(),
			CourseID:   e.CourseID,
			CourseName: e.CourseName,
			RoomID:     e.Slot.RoomID,
			Students:   e.StudentCount,
			Professors: strings.Join(e.ProfessorIDs, ";"),
		})
	}
	data, err := export.NewCSVExporter().Render(rows)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func die(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "solve: "+format+"\n", args...)
	os.Exit(1)
}
