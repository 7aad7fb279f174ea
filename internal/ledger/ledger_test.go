package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/prolink-backend/internal/pkg/apperror"
)

func TestSplit_BasicAmounts(t *testing.T) {
	cases := []struct {
		gross  string
		fee    string
		payout string
	}{
		{"1000.00", "100.00", "900.00"},
		{"0.00", "0.00", "0.00"},
		{"0.01", "0.00", "0.01"},   // 0.001 округляется вниз
		{"0.05", "0.01", "0.04"},   // 0.005 округляется вверх (half-up)
		{"0.15", "0.02", "0.13"},   // 0.015 -> 0.02, а не 0.01 (не банковское округление)
		{"0.25", "0.03", "0.22"},   // 0.025 -> 0.03
		{"99.99", "10.00", "89.99"},
		{"123.45", "12.35", "111.10"}, // 12.345 -> 12.35
		{"0.04", "0.00", "0.04"},
		{"10000000.00", "1000000.00", "9000000.00"},
	}

	for _, tc := range cases {
		gross := decimal.RequireFromString(tc.gross)
		fee, payout, err := Split(gross)
		require.NoError(t, err, "gross=%s", tc.gross)
		assert.True(t, decimal.RequireFromString(tc.fee).Equal(fee),
			"gross=%s: fee=%s, ожидали %s", tc.gross, fee, tc.fee)
		assert.True(t, decimal.RequireFromString(tc.payout).Equal(payout),
			"gross=%s: payout=%s, ожидали %s", tc.gross, payout, tc.payout)
	}
}

func TestSplit_SumInvariant(t *testing.T) {
	// Перебираем суммы с шагом в один цент: сумма частей обязана сходиться
	// с валовой суммой без потери цента на границах округления.
	for cents := int64(0); cents <= 100_000; cents++ {
		gross := decimal.New(cents, -2)
		fee, payout, err := Split(gross)
		require.NoError(t, err)
		assert.True(t, fee.Add(payout).Equal(gross),
			"gross=%s: fee=%s + payout=%s != gross", gross, fee, payout)
		assert.False(t, fee.IsNegative())
		assert.False(t, payout.IsNegative())
	}
}

func TestSplit_NegativeRejected(t *testing.T) {
	_, _, err := Split(decimal.RequireFromString("-0.01"))
	assert.True(t, apperror.IsValidation(err))
}

func TestSplit_Deterministic(t *testing.T) {
	gross := decimal.RequireFromString("777.77")
	fee1, payout1, err := Split(gross)
	require.NoError(t, err)
	fee2, payout2, err := Split(gross)
	require.NoError(t, err)
	assert.True(t, fee1.Equal(fee2))
	assert.True(t, payout1.Equal(payout2))
}
