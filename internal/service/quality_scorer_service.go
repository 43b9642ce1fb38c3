package service

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/exam-scheduler/internal/models"
	"github.com/noah-isme/exam-scheduler/internal/scheduler"
)

// Quality component weights; they sum to 1.
const (
	weightPreference  = 0.35
	weightConflicts   = 0.25
	weightUtilization = 0.20
	weightWorkload    = 0.15
	weightPolicy      = 0.05
)

// QualityScorerService rates a schedule on a [0,1] scale.
type QualityScorerService struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewQualityScorerService constructs the scorer.
func NewQualityScorerService(logger *zap.Logger) *QualityScorerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QualityScorerService{logger: logger, now: time.Now}
}

// Score computes the weighted quality and its components from exams, preferences and an analysis.
func (s *QualityScorerService) Score(exams []models.ScheduledExam, preferences []models.Preference, conflicts *models.ConflictAnalysisResult) *models.QualityScoreResult {
	result := &models.QualityScoreResult{CalculatedAt: s.now().UTC()}

	satisfied, total := scheduler.PreferenceSatisfaction(preferences, exams)
	result.PreferenceSatisfaction = 1
	if total > 0 {
		result.PreferenceSatisfaction = float64(satisfied) / float64(total)
	}

	conflictCount, critical := 0, 0
	if conflicts != nil {
		conflictCount = conflicts.TotalConflicts
		critical = conflicts.CriticalCount()
	}
	result.ConflictMinimization = conflictMinimization(len(exams), conflictCount)
	result.ResourceUtilization = scheduler.ResourceUtilization(exams)
	result.WorkloadDistribution = scheduler.WorkloadDistribution(exams)
	result.PolicyCompliance = scheduler.PolicyCompliance(exams)

	overall := weightPreference*result.PreferenceSatisfaction +
		weightConflicts*result.ConflictMinimization +
		weightUtilization*result.ResourceUtilization +
		weightWorkload*result.WorkloadDistribution +
		weightPolicy*result.PolicyCompliance
	result.OverallScore = math.Max(0, math.Min(1, overall))

	result.Breakdown = models.QualityBreakdown{
		TotalExams:           len(exams),
		TotalPreferences:     total,
		SatisfiedPreferences: satisfied,
		TotalConflicts:       conflictCount,
		CriticalConflicts:    critical,
	}
	result.Recommendations = qualityRecommendations(result)

	s.logger.Debug("schedule scored",
		zap.Float64("overall", result.OverallScore),
		zap.Int("exams", len(exams)),
		zap.Int("conflicts", conflictCount))
	return result
}

// conflictMinimization is 1 - conflicts/maxPairs with maxPairs = n(n-1)/2.
func conflictMinimization(exams, conflicts int) float64 {
	maxPairs := exams * (exams - 1) / 2
	if maxPairs == 0 {
		if conflicts == 0 {
			return 1
		}
		return 0
	}
	return math.Max(0, 1-float64(conflicts)/float64(maxPairs))
}

func qualityRecommendations(r *models.QualityScoreResult) []string {
	recs := []string{}
	if r.PreferenceSatisfaction < 0.7 {
		recs = append(recs, fmt.Sprintf("Only %d of %d professor preferences are met; revisit preferred dates and rooms",
			r.Breakdown.SatisfiedPreferences, r.Breakdown.TotalPreferences))
	}
	if r.Breakdown.CriticalConflicts > 0 {
		recs = append(recs, fmt.Sprintf("Resolve %d critical conflicts before publishing", r.Breakdown.CriticalConflicts))
	}
	if r.ConflictMinimization < 0.8 {
		recs = append(recs, "Reduce overlapping exams by spreading them across more slots")
	}
	if r.ResourceUtilization < 0.6 {
		recs = append(recs, "Rooms are underused; assign smaller rooms to small exams")
	} else if r.ResourceUtilization > 0.95 {
		recs = append(recs, "Rooms are nearly full; keep spare seats for late registrations")
	}
	if r.WorkloadDistribution < 0.7 {
		recs = append(recs, "Exams cluster on a few days; distribute them more evenly")
	}
	if r.PolicyCompliance < 1 {
		recs = append(recs, "Some exams fall outside 08:00-20:00 or run shorter than 120 minutes")
	}
	return recs
}
