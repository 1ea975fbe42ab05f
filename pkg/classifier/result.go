package classifier

import (
	"context"
	"math"

	"github.com/pkg/errors"

	"github.com/menta2k/plant-predict/pkg/labels"
	"github.com/menta2k/plant-predict/pkg/types"
)

// Flatten reduces model output to a 1-D score vector. A (B, N) output
// yields its first row; any other shape is used as is.
func Flatten(out *types.Tensor) ([]float32, error) {
	if out == nil || len(out.Data) == 0 {
		return nil, errors.New("model returned no scores")
	}
	if len(out.Shape) == 2 {
		n := int(out.Shape[1])
		if n <= 0 || n > len(out.Data) {
			return nil, errors.Errorf("output shape %v does not match %d values", out.Shape, len(out.Data))
		}
		return out.Data[:n], nil
	}
	return out.Data, nil
}

// ArgMax returns the index of the first maximum score
func ArgMax(scores []float32) (int, error) {
	if len(scores) == 0 {
		return 0, errors.New("empty score vector")
	}
	best := 0
	for i, v := range scores {
		if math.IsNaN(float64(v)) {
			return 0, errors.Errorf("score %d is NaN", i)
		}
		if v > scores[best] {
			best = i
		}
	}
	return best, nil
}

// RoundConfidence rounds a score to 4 decimal places
func RoundConfidence(v float32) float64 {
	return math.Round(float64(v)*1e4) / 1e4
}

// Derive picks the winning class. known is false when the index fell
// outside the label table and a synthetic class_<idx> label was used.
func Derive(scores []float32) (pred types.Prediction, known bool, err error) {
	idx, err := ArgMax(scores)
	if err != nil {
		return types.Prediction{}, false, err
	}

	confidence := RoundConfidence(scores[idx])
	if math.IsInf(confidence, 0) {
		return types.Prediction{}, false, errors.Errorf("score %d is infinite", idx)
	}

	label, known := labels.Lookup(idx)
	return types.Prediction{
		Disease:    label,
		Confidence: confidence,
	}, known, nil
}

// Result is a derived prediction plus the facts the caller may want to trace
type Result struct {
	Prediction types.Prediction
	// Known is false when the label came from the class_<idx> fallback
	Known bool
	// Scores is the length of the flattened output vector
	Scores int
}

// Classify runs m on input and derives the winning class
func Classify(ctx context.Context, m Model, input *types.Tensor) (*Result, error) {
	out, err := m.Predict(ctx, input)
	if err != nil {
		return nil, err
	}
	scores, err := Flatten(out)
	if err != nil {
		return nil, err
	}
	pred, known, err := Derive(scores)
	if err != nil {
		return nil, err
	}
	return &Result{Prediction: pred, Known: known, Scores: len(scores)}, nil
}
