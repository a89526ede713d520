// Package model defines the external fraud-probability model capability.
// The engine treats the model as a black box: an ordered float vector in, a
// probability in [0,1] out. One instance is loaded at startup and shared
// read-only; feature-length mismatches are fatal configuration errors.
package model

import (
	"errors"
	"fmt"
)

// ErrPredict wraps upstream model failures. The caller surfaces these as
// scoring errors — the transaction is neither silently approved nor blocked
// without signal.
var ErrPredict = errors.New("model prediction failed")

// Model is the injected prediction capability.
type Model interface {
	// Predict maps an ordered feature vector to a fraud probability in
	// [0, 1]. The vector's order must match FeatureNames exactly.
	Predict(features []float64) (float64, error)
	// FeatureNames is the ordered schema the model was trained with.
	FeatureNames() []string
	// Version identifies the loaded model artifact.
	Version() string
}

// vectorLengthError builds the standard mismatch error.
func vectorLengthError(got, want int) error {
	return fmt.Errorf("%w: feature vector length %d, model expects %d", ErrPredict, got, want)
}
