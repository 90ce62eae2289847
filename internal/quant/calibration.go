package quant

import (
	"fmt"

	"market-edge-engine/internal/apperrors"
)

// CalibrationBucket aggregates resolved forecasts whose predicted probability
// falls in one fixed-width bin. It is recomputed on demand, never persisted.
type CalibrationBucket struct {
	RangeLow          float64 `json:"range_low"`
	RangeHigh         float64 `json:"range_high"`
	PredictedAvg      float64 `json:"predicted_avg"`
	ObservedFrequency float64 `json:"observed_frequency"`
	Count             int     `json:"count"`
}

// CalibrationBuckets partitions [0,1] into fixed-width bins by predicted
// probability and, for each non-empty bin, reports the mean prediction and
// the observed frequency of true outcomes. Empty bins are omitted.
func CalibrationBuckets(probabilities []float64, outcomes []bool, bucketWidth float64) ([]CalibrationBucket, error) {
	if len(probabilities) != len(outcomes) {
		return nil, fmt.Errorf("%w: %d probabilities vs %d outcomes", apperrors.ErrInvalidInput, len(probabilities), len(outcomes))
	}
	if bucketWidth <= 0 || bucketWidth > 1 {
		return nil, fmt.Errorf("%w: bucket_width=%v", apperrors.ErrInvalidInput, bucketWidth)
	}

	n := int(1/bucketWidth + 0.5)
	sums := make([]float64, n)
	hits := make([]int, n)
	counts := make([]int, n)

	for i, p := range probabilities {
		if err := validateProb("probability", p); err != nil {
			return nil, err
		}
		idx := int(p / bucketWidth)
		if idx >= n { // p == 1.0 lands in the top bin
			idx = n - 1
		}
		sums[idx] += p
		counts[idx]++
		if outcomes[i] {
			hits[idx]++
		}
	}

	buckets := make([]CalibrationBucket, 0, n)
	for i := 0; i < n; i++ {
		if counts[i] == 0 {
			continue
		}
		buckets = append(buckets, CalibrationBucket{
			RangeLow:          float64(i) * bucketWidth,
			RangeHigh:         float64(i+1) * bucketWidth,
			PredictedAvg:      sums[i] / float64(counts[i]),
			ObservedFrequency: float64(hits[i]) / float64(counts[i]),
			Count:             counts[i],
		})
	}
	return buckets, nil
}
