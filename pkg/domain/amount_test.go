package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const maxUint128 = "340282366920938463463374607431768211455"

func TestAmountArithmetic(t *testing.T) {
	t.Run("add within range", func(t *testing.T) {
		sum, err := NewAmount(40).Add(NewAmount(2))
		require.NoError(t, err)
		assert.Equal(t, "42", sum.String())
	})

	t.Run("add overflow is an error", func(t *testing.T) {
		_, err := MustAmount(maxUint128).Add(NewAmount(1))
		assert.ErrorIs(t, err, ErrAmountOverflow)
	})

	t.Run("sub to zero", func(t *testing.T) {
		diff, err := NewAmount(7).Sub(NewAmount(7))
		require.NoError(t, err)
		assert.True(t, diff.IsZero())
	})

	t.Run("sub underflow is an error", func(t *testing.T) {
		_, err := NewAmount(1).Sub(NewAmount(2))
		assert.ErrorIs(t, err, ErrAmountUnderflow)
	})

	t.Run("mul bytes beyond 64 bits", func(t *testing.T) {
		rate := MustAmount("10000000000000000000") // 1e19 per byte
		cost, err := rate.MulBytes(63)
		require.NoError(t, err)
		assert.Equal(t, "630000000000000000000", cost.String())
	})

	t.Run("mul bytes overflow is an error", func(t *testing.T) {
		_, err := MustAmount(maxUint128).MulBytes(2)
		assert.ErrorIs(t, err, ErrAmountOverflow)
	})

	t.Run("mul by zero bytes", func(t *testing.T) {
		cost, err := MustAmount(maxUint128).MulBytes(0)
		require.NoError(t, err)
		assert.True(t, cost.IsZero())
	})
}

func TestParseAmount(t *testing.T) {
	t.Run("empty is zero", func(t *testing.T) {
		a, err := ParseAmount("")
		require.NoError(t, err)
		assert.True(t, a.IsZero())
	})

	t.Run("rejects signs and fractions", func(t *testing.T) {
		for _, s := range []string{"-1", "+1", "1.5", "1e3", " 1"} {
			_, err := ParseAmount(s)
			assert.ErrorIs(t, err, ErrInvalidAmount, s)
		}
	})

	t.Run("rejects values above 128 bits", func(t *testing.T) {
		_, err := ParseAmount(maxUint128 + "0")
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})
}

func TestAmountJSON(t *testing.T) {
	var body struct {
		Deposit Amount `json:"deposit"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"deposit":"1000000000000000000000000"}`), &body))
	assert.Equal(t, "1000000000000000000000000", body.Deposit.String())

	out, err := json.Marshal(body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"deposit":"1000000000000000000000000"}`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"deposit":12}`), &body))
}
