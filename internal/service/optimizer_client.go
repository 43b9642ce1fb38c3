package service

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/noah-isme/exam-scheduler/internal/models"
	"github.com/noah-isme/exam-scheduler/pkg/config"
)

// ErrOptimizerEmpty is returned when the optimizer answers without a schedule.
var ErrOptimizerEmpty = errors.New("optimizer returned no exams")

// optimizerRequest is the wire payload sent to the external optimizer.
type optimizerRequest struct {
	Problem *models.SchedulingProblem `json:"problem"`
}

// optimizerResponse is what the optimizer answers with.
type optimizerResponse struct {
	Exams         []models.ScheduledExam `json:"exams"`
	QualityScore  float64                `json:"quality_score"`
	Algorithm     string                 `json:"algorithm"`
	FailureReason *string                `json:"failure_reason,omitempty"`
}

// OptimizerClient delegates solving to an external optimisation service.
type OptimizerClient struct {
	caller *resilientCaller
	url    string
	logger *zap.Logger
}

// NewOptimizerClient builds a client protected by retries and a circuit breaker.
func NewOptimizerClient(cfg config.OptimizerConfig, httpClient *http.Client, logger *zap.Logger) *OptimizerClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OptimizerClient{
		caller: newResilientCaller(httpClient, resilientConfig{
			Name:             "optimizer",
			Timeout:          cfg.Timeout,
			MaxRetries:       cfg.MaxRetries,
			BreakerFailures:  cfg.BreakerFailures,
			BreakerOpenDelay: cfg.BreakerOpenDelay,
		}, logger),
		url:    cfg.URL,
		logger: logger,
	}
}

// Optimize asks the optimizer for a schedule. Any failure leaves the caller free to solve locally.
func (c *OptimizerClient) Optimize(ctx context.Context, problem *models.SchedulingProblem) (*models.SchedulingSolution, error) {
	var resp optimizerResponse
	if err := c.caller.doJSON(ctx, http.MethodPost, c.url, optimizerRequest{Problem: problem}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Exams) == 0 {
		return nil, ErrOptimizerEmpty
	}
	algorithm := resp.Algorithm
	if algorithm == "" {
		algorithm = models.AlgorithmOptimizer
	}
	return &models.SchedulingSolution{
		Exams:         resp.Exams,
		QualityScore:  resp.QualityScore,
		Algorithm:     algorithm,
		FailureReason: resp.FailureReason,
	}, nil
}
