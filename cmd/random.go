package cmd

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// randomEffects holds the between-subject (omega) and residual (sigma)
// covariance matrices.
type randomEffects struct {
	Omega [][]float64 `yaml:"omega"`
	Sigma [][]float64 `yaml:"sigma"`
}

// loadRandomEffects reads a random-effects YAML file. Unknown keys are
// rejected.
func loadRandomEffects(path string) (*randomEffects, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading random effects: %w", err)
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	var re randomEffects
	if err := decoder.Decode(&re); err != nil {
		return nil, fmt.Errorf("parsing random effects: %w", err)
	}
	return &re, nil
}
