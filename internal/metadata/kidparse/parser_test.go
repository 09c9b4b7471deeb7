package kidparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleKID = `Key Information Document
Vanguard FTSE All-World UCITS ETF (USD) Accumulating
Purpose
This document provides you with key information about this investment product.
Risk Indicator
We have classified this product as 4 out of 7, which is a medium risk class.
What are the costs?
Management fees and other administrative or operating costs 0.19 % of the value of your investment per year.
The fund pursues a physical replication strategy.
`

func TestParse_FullDocument(t *testing.T) {
	extract := Parse(sampleKID)
	require.NotNil(t, extract)

	// The name pattern stops at the UCITS marker
	assert.Equal(t, "Vanguard FTSE All-World", extract.Name)

	require.NotNil(t, extract.TER)
	assert.InDelta(t, 0.19, *extract.TER, 0.0001)

	require.NotNil(t, extract.RiskLevel)
	assert.Equal(t, 4, *extract.RiskLevel)

	assert.Equal(t, DistributionAccumulating, extract.Distribution)
	assert.Equal(t, ReplicationPhysical, extract.Replication)
}

func TestParse_NoTERYieldsNil(t *testing.T) {
	text := `Key Information Document
Some Fund
We have classified this product as 3 out of 7, which is a medium-low risk class.
`
	assert.Nil(t, Parse(text))
}

func TestParse_TERPatterns(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected float64
	}{
		{
			name:     "management fees phrasing",
			text:     "Management fees and other administrative or operating costs 0.22 % per year",
			expected: 0.22,
		},
		{
			name:     "ongoing charges phrasing",
			text:     "Ongoing Charges: 0.07 % taken each year",
			expected: 0.07,
		},
		{
			name:     "ongoing costs phrasing",
			text:     "Ongoing costs 0.45 % deducted annually",
			expected: 0.45,
		},
		{
			name:     "of the value phrasing",
			text:     "impact of 0.12 % of the value of your investment p.a.",
			expected: 0.12,
		},
		{
			name:     "comma decimal separator",
			text:     "Ongoing costs 0,25 % deducted annually",
			expected: 0.25,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			extract := Parse(tc.text)
			require.NotNil(t, extract)
			require.NotNil(t, extract.TER)
			assert.InDelta(t, tc.expected, *extract.TER, 0.0001)
		})
	}
}

func TestParse_TERFirstPatternWins(t *testing.T) {
	// Both phrasings present: the management fees pattern is more specific
	// and ordered first.
	text := `Management fees and other operating costs 0.19 %
Ongoing Charges: 0.50 % per year`

	extract := Parse(text)
	require.NotNil(t, extract)
	require.NotNil(t, extract.TER)
	assert.InDelta(t, 0.19, *extract.TER, 0.0001)
}

func TestParse_RiskLevel(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected *int
	}{
		{
			name:     "classified phrasing",
			text:     "Ongoing costs 0.19 % per year. We have classified this product as 4 out of 7.",
			expected: intPtr(4),
		},
		{
			name:     "which is phrasing",
			text:     "Ongoing costs 0.19 % per year. The risk is 6 out of 7, which is the second-highest risk class.",
			expected: intPtr(6),
		},
		{
			name:     "out of range is a non-match",
			text:     "Ongoing costs 0.19 % per year. We have classified this product as 8 out of 7.",
			expected: nil,
		},
		{
			name:     "zero is a non-match",
			text:     "Ongoing costs 0.19 % per year. We have classified this product as 0 out of 7.",
			expected: nil,
		},
		{
			name:     "absent",
			text:     "Ongoing costs 0.19 % per year.",
			expected: nil,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			extract := Parse(tc.text)
			require.NotNil(t, extract)
			if tc.expected == nil {
				assert.Nil(t, extract.RiskLevel)
			} else {
				require.NotNil(t, extract.RiskLevel)
				assert.Equal(t, *tc.expected, *extract.RiskLevel)
			}
		})
	}
}

func TestParse_Distribution(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{"accumulating", "Ongoing costs 0.19 %. This is an accumulating share class.", DistributionAccumulating},
		{"distributing", "Ongoing costs 0.19 %. This is a distributing share class.", DistributionDistributing},
		{"case insensitive", "Ongoing costs 0.19 %. USD Accumulating shares.", DistributionAccumulating},
		{"absent", "Ongoing costs 0.19 %.", ""},
		// Word boundaries: no substring matches inside longer words
		{"no partial match", "Ongoing costs 0.19 %. Redistributing wealth is not a share class.", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			extract := Parse(tc.text)
			require.NotNil(t, extract)
			assert.Equal(t, tc.expected, extract.Distribution)
		})
	}
}

func TestParse_DistributionFirstMatchWins(t *testing.T) {
	// Both words present: accumulating is checked first, so it wins.
	text := "Ongoing costs 0.19 %. This accumulating class differs from the distributing class."

	extract := Parse(text)
	require.NotNil(t, extract)
	assert.Equal(t, DistributionAccumulating, extract.Distribution)
}

func TestParse_Replication(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{"physical", "Ongoing costs 0.19 %. The fund uses physical replication.", ReplicationPhysical},
		{"synthetic", "Ongoing costs 0.19 %. The fund uses synthetic replication via swaps.", ReplicationSynthetic},
		{"both prefers physical", "Ongoing costs 0.19 %. Physical rather than synthetic replication.", ReplicationPhysical},
		{"absent", "Ongoing costs 0.19 %.", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			extract := Parse(tc.text)
			require.NotNil(t, extract)
			assert.Equal(t, tc.expected, extract.Replication)
		})
	}
}

func TestParse_NameExtraction(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{
			name:     "name stops at UCITS marker",
			text:     "Key Information Document\nVanguard S&P 500 UCITS ETF\nOngoing costs 0.07 %",
			expected: "Vanguard S&P 500",
		},
		{
			name:     "name stops at newline",
			text:     "Key Information Document\nSome Global Fund\nOngoing costs 0.07 %",
			expected: "Some Global Fund",
		},
		{
			name:     "no header",
			text:     "Ongoing costs 0.07 %",
			expected: "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			extract := Parse(tc.text)
			require.NotNil(t, extract)
			assert.Equal(t, tc.expected, extract.Name)
		})
	}
}

func intPtr(v int) *int {
	return &v
}
