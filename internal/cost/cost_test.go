// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cost

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/gemini-file-search-tool/pkg/types"
)

func TestEstimate(t *testing.T) {
	usage := &types.UsageMetadata{PromptTokenCount: 150, CandidatesTokenCount: 320, TotalTokenCount: 470}

	tests := []struct {
		model   string
		key     string
		wantIn  float64
		wantOut float64
	}{
		{types.ModelFlash, types.ModelFlash, 0.00001125, 0.000096},
		{types.ModelPro, types.ModelPro, 0.0001875, 0.0016},
		{"gemini-2.5-flash-001", types.ModelFlash, 0.00001125, 0.000096},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			got, err := Estimate(usage, tt.model)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, tt.key, got.Model)
			assert.Equal(t, "USD", got.Currency)
			assert.InDelta(t, tt.wantIn, got.InputCostUSD, 1e-12)
			assert.InDelta(t, tt.wantOut, got.OutputCostUSD, 1e-12)
			assert.InDelta(t, tt.wantIn+tt.wantOut, got.TotalCostUSD, 1e-12)
			assert.NotEmpty(t, got.Note)
		})
	}
}

func TestEstimate_NilUsage(t *testing.T) {
	got, err := Estimate(nil, types.ModelFlash)
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestEstimate_UnknownModel(t *testing.T) {
	_, err := Estimate(&types.UsageMetadata{}, "gpt-4")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gpt-4")
}
