package model

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// Logistic is a file-loaded logistic regression scorer. The training
// pipeline exports coefficients alongside the ordered feature-name list, so
// loading the file also fixes the serving-time feature schema.
type Logistic struct {
	version   string
	names     []string
	weights   []float64
	intercept float64
	threshold float64
}

// logisticFile is the on-disk artifact layout.
type logisticFile struct {
	Version      string    `json:"version"`
	FeatureNames []string  `json:"feature_names"`
	Weights      []float64 `json:"weights"`
	Intercept    float64   `json:"intercept"`
	Threshold    float64   `json:"threshold"`
}

// FromFile loads a model artifact. A weight/name length mismatch aborts
// loading — it means the artifact is corrupt, and scoring with it would
// silently misalign every feature.
func FromFile(path string) (*Logistic, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model file: %w", err)
	}
	var f logisticFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse model file %s: %w", path, err)
	}
	return New(f.Version, f.FeatureNames, f.Weights, f.Intercept, f.Threshold)
}

// New builds a logistic model from explicit parameters.
func New(version string, names []string, weights []float64, intercept, threshold float64) (*Logistic, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("model has no features")
	}
	if len(weights) != len(names) {
		return nil, fmt.Errorf("model has %d weights for %d feature names", len(weights), len(names))
	}
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("model threshold %v outside [0,1]", threshold)
	}
	if version == "" {
		version = "unversioned"
	}
	return &Logistic{
		version:   version,
		names:     names,
		weights:   weights,
		intercept: intercept,
		threshold: threshold,
	}, nil
}

func (m *Logistic) Predict(features []float64) (float64, error) {
	if len(features) != len(m.weights) {
		return 0, vectorLengthError(len(features), len(m.weights))
	}
	z := m.intercept
	for i, w := range m.weights {
		z += w * features[i]
	}
	return 1 / (1 + math.Exp(-z)), nil
}

func (m *Logistic) FeatureNames() []string {
	names := make([]string, len(m.names))
	copy(names, m.names)
	return names
}

func (m *Logistic) Version() string { return m.version }

// Threshold is the block threshold the model was calibrated for. Config may
// override it.
func (m *Logistic) Threshold() float64 { return m.threshold }
