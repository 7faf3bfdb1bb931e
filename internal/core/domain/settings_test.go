package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultScoringWeights_Valid(t *testing.T) {
	require.NoError(t, DefaultScoringWeights().Validate())
}

func TestScoringWeights_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ScoringWeights)
		wantErr bool
	}{
		{
			name:    "defaults sum to one",
			mutate:  func(*ScoringWeights) {},
			wantErr: false,
		},
		{
			name: "sum above one is rejected",
			mutate: func(w *ScoringWeights) {
				w.Popularity += 0.05
			},
			wantErr: true,
		},
		{
			name: "sum below one is rejected",
			mutate: func(w *ScoringWeights) {
				w.TextRelevance -= 0.1
			},
			wantErr: true,
		},
		{
			name: "negative weight is rejected even when sum is one",
			mutate: func(w *ScoringWeights) {
				w.Geography = -0.10
				w.TextRelevance += 0.20
			},
			wantErr: true,
		},
		{
			name: "redistributed weights summing to one are accepted",
			mutate: func(w *ScoringWeights) {
				w.TextRelevance = 0.50
				w.Performance = 0.0
				w.Geography = 0.0
				w.Freshness = 0.10
				w.PermissionFit = 0.20
				w.HistoricalSuccess = 0.10
				w.Popularity = 0.10
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := DefaultScoringWeights()
			tt.mutate(&w)
			err := w.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidWeights)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEngineSettings_Validate(t *testing.T) {
	settings := DefaultEngineSettings()
	require.NoError(t, settings.Validate())

	settings.MergeCap = 0
	assert.Error(t, settings.Validate())

	settings = DefaultEngineSettings()
	settings.RegionHopDecay = 1.5
	assert.Error(t, settings.Validate())

	settings = DefaultEngineSettings()
	settings.Weights.Popularity = 0.5
	assert.ErrorIs(t, settings.Validate(), ErrInvalidWeights)
}
