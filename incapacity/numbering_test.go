package incapacity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andara-hcm/incapacity-engine/incapacity"
)

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "INC-2024-0001", incapacity.FormatNumber(2024, 1))
	assert.Equal(t, "INC-2024-0042", incapacity.FormatNumber(2024, 42))
	assert.Equal(t, "INC-2025-1234", incapacity.FormatNumber(2025, 1234))
}

func TestParseNumber_RoundTrip(t *testing.T) {
	year, seq, err := incapacity.ParseNumber(incapacity.FormatNumber(2024, 317))
	require.NoError(t, err)
	assert.Equal(t, 2024, year)
	assert.Equal(t, 317, seq)
}

func TestParseNumber_RejectsMalformed(t *testing.T) {
	for _, bad := range []string{
		"",
		"INC-2024-1",      // unpadded sequence
		"INC-24-0001",     // short year
		"inc-2024-0001",   // wrong case
		"INC-2024-0001-x", // trailing garbage
		"PER-2024-0001",   // wrong prefix
	} {
		_, _, err := incapacity.ParseNumber(bad)
		assert.Error(t, err, "expected %q to be rejected", bad)
	}
}
