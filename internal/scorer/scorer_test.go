package scorer

import (
	"testing"

	kycerrors "kycintake/pkg/errors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResult(t *testing.T) {
	stdout := []byte(`{"fraud_score": 85, "risk_level": "High", "reasons": ["Image tampering suspected", "Name mismatch"]}`)

	result, err := ParseResult(stdout)
	require.NoError(t, err)

	assert.True(t, result.FraudScore.Equal(decimal.NewFromInt(85)))
	assert.Equal(t, "High", result.RiskLevel)
	assert.Equal(t, []string{"Image tampering suspected", "Name mismatch"}, result.Reasons)
}

func TestParseResultFractionalScore(t *testing.T) {
	result, err := ParseResult([]byte(`{"fraud_score": 70.5, "risk_level": "Medium", "reasons": []}`))
	require.NoError(t, err)

	assert.True(t, result.FraudScore.Equal(decimal.NewFromFloat(70.5)))
}

func TestParseResultMalformed(t *testing.T) {
	tests := []struct {
		name   string
		stdout []byte
	}{
		{"plain text", []byte("Traceback (most recent call last): ...")},
		{"empty", []byte("")},
		{"truncated json", []byte(`{"fraud_score": 85,`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseResult(tt.stdout)
			require.Error(t, err)
			assert.True(t, kycerrors.Is(err, kycerrors.ErrScorerOutputNotJSON))
		})
	}
}
