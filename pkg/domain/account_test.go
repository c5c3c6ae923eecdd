package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "profilecheck/pkg/domain-errors"
)

func TestParseAccountID(t *testing.T) {
	valid := []string{
		"alice",
		"alice.near",
		"v1.social08.testnet",
		"app_1-beta.alice.near",
		"0x",
		strings.Repeat("a", 64),
	}
	for _, s := range valid {
		t.Run("accepts "+s, func(t *testing.T) {
			id, err := ParseAccountID(s)
			require.NoError(t, err)
			assert.Equal(t, s, id.String())
		})
	}

	invalid := []string{
		"",
		"a",
		strings.Repeat("a", 65),
		"Alice.near",
		".alice",
		"alice.",
		"alice..near",
		"al--ice",
		"alice@near",
		"alice near",
	}
	for _, s := range invalid {
		t.Run("rejects "+s, func(t *testing.T) {
			_, err := ParseAccountID(s)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		})
	}
}

func TestAccountIDHasSuffix(t *testing.T) {
	assert.True(t, MustAccountID("alice.near").HasSuffix(".near"))
	assert.False(t, MustAccountID("alice.testnet").HasSuffix(".near"))
	assert.True(t, AccountID("").IsNil())
}
