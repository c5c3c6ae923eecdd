package registry

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"profilecheck/pkg/domain"
)

func TestEndpointsSelect(t *testing.T) {
	eps := DefaultEndpoints()

	tests := []struct {
		signer string
		want   Network
	}{
		{"alice.near", NetworkMainnet},
		{"app.alice.near", NetworkMainnet},
		{"alice.testnet", NetworkTestnet},
		{"nearby", NetworkTestnet},
		{"alice", NetworkTestnet},
	}
	for _, tt := range tests {
		t.Run(tt.signer, func(t *testing.T) {
			assert.Equal(t, tt.want, eps.Select(domain.MustAccountID(tt.signer)).Network)
		})
	}

	assert.Equal(t, domain.AccountID("social.near"), eps.Mainnet.Contract)
	assert.Equal(t, domain.AccountID("v1.social08.testnet"), eps.Testnet.Contract)
}

func TestProfileKey(t *testing.T) {
	assert.Equal(t, "alice.near/profile/**", ProfileKey(domain.MustAccountID("alice.near")))
}

func TestStaticClient(t *testing.T) {
	eps := DefaultEndpoints()

	t.Run("serves document per endpoint", func(t *testing.T) {
		c := NewStaticClient()
		c.SetDocument(eps.Mainnet, []byte(`{"a":1}`))

		doc, err := c.Get(context.Background(), eps.Mainnet, nil)
		require.NoError(t, err)
		assert.Equal(t, `{"a":1}`, string(doc))

		doc, err = c.Get(context.Background(), eps.Testnet, nil)
		require.NoError(t, err)
		assert.Equal(t, `{}`, string(doc))
		assert.Equal(t, 2, c.Calls())
	})

	t.Run("returns configured error", func(t *testing.T) {
		c := NewStaticClient()
		boom := errors.New("boom")
		c.SetError(boom)
		_, err := c.Get(context.Background(), eps.Testnet, nil)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("latency beyond deadline is a timeout", func(t *testing.T) {
		c := NewStaticClient()
		c.SetLatency(time.Second)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		_, err := c.Get(ctx, eps.Testnet, nil)
		assert.Equal(t, ErrorTimeout, CategoryOf(err))
	})
}

func TestLoadStaticFixture(t *testing.T) {
	eps := DefaultEndpoints()
	dir := t.TempDir()

	t.Run("serves the fixture from both networks", func(t *testing.T) {
		path := filepath.Join(dir, "fixture.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"alice.near":{"profile":{}}}`), 0o600))

		c, err := LoadStaticFixture(path, eps)
		require.NoError(t, err)
		for _, ep := range []Endpoint{eps.Mainnet, eps.Testnet} {
			doc, err := c.Get(context.Background(), ep, nil)
			require.NoError(t, err)
			assert.JSONEq(t, `{"alice.near":{"profile":{}}}`, string(doc))
		}
	})

	t.Run("rejects invalid JSON", func(t *testing.T) {
		path := filepath.Join(dir, "broken.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"alice.near":`), 0o600))

		_, err := LoadStaticFixture(path, eps)
		assert.ErrorContains(t, err, "not valid JSON")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadStaticFixture(filepath.Join(dir, "absent.json"), eps)
		assert.ErrorContains(t, err, "read registry fixture")
	})
}
