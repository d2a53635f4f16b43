package service

import (
	"math"

	"github.com/sevahub/sevahub-backend/internal/model"
)

// EligibilityThreshold is the minimum attendance percentage for volunteering.
const EligibilityThreshold = 75.0

// CheckEligibility compares an attendance percentage against the threshold.
// A nil percentage means no attendance has been recorded and yields
// ErrNoAttendanceData rather than being treated as 0%.
func CheckEligibility(pct *float64) (model.Eligibility, error) {
	result := model.Eligibility{Threshold: EligibilityThreshold}
	if pct == nil {
		return result, ErrNoAttendanceData
	}
	if math.IsNaN(*pct) || math.IsInf(*pct, 0) {
		return result, ErrInvalidPercentage
	}

	result.Eligible = *pct >= EligibilityThreshold
	result.ShortBy = round2(math.Max(0, EligibilityThreshold-*pct))
	return result, nil
}

// ComputePercentage returns attended/total as a percentage clamped to
// [0, 100] and rounded to two decimals. A zero total yields 0.
func ComputePercentage(attended, total int) float64 {
	if total <= 0 {
		return 0
	}
	return ClampPercentage(float64(attended) / float64(total) * 100)
}

// ClampPercentage limits p to [0, 100] and rounds it to two decimals.
func ClampPercentage(p float64) float64 {
	return round2(math.Min(100, math.Max(0, p)))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
