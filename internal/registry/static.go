package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// StaticClient serves fixed documents per registry contract. It backs local
// development and tests; Latency is honored against ctx like a real call.
type StaticClient struct {
	mu        sync.RWMutex
	documents map[string][]byte
	err       error
	latency   time.Duration
	calls     int
}

// NewStaticClient returns a client with no documents.
func NewStaticClient() *StaticClient {
	return &StaticClient{documents: make(map[string][]byte)}
}

// LoadStaticFixture returns a client serving the JSON document stored at path
// from every endpoint in endpoints.
func LoadStaticFixture(path string, endpoints Endpoints) (*StaticClient, error) {
	doc, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry fixture: %w", err)
	}
	if !json.Valid(doc) {
		return nil, fmt.Errorf("registry fixture %s is not valid JSON", path)
	}
	c := NewStaticClient()
	c.SetDocument(endpoints.Mainnet, doc)
	c.SetDocument(endpoints.Testnet, doc)
	return c, nil
}

// SetDocument makes every Get against endpoint return doc.
func (c *StaticClient) SetDocument(endpoint Endpoint, doc []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.documents[endpoint.String()] = append([]byte(nil), doc...)
}

// SetError makes every Get fail with err.
func (c *StaticClient) SetError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

// SetLatency delays each Get by d.
func (c *StaticClient) SetLatency(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.latency = d
}

// Calls returns how many reads were issued.
func (c *StaticClient) Calls() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.calls
}

func (c *StaticClient) Get(ctx context.Context, endpoint Endpoint, _ []string) ([]byte, error) {
	c.mu.Lock()
	c.calls++
	latency, err := c.latency, c.err
	doc, ok := c.documents[endpoint.String()]
	c.mu.Unlock()

	if latency > 0 {
		timer := time.NewTimer(latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, NewError(ErrorTimeout, endpoint.String(), "query budget exceeded", ctx.Err())
		case <-timer.C:
		}
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return []byte("{}"), nil
	}
	return append([]byte(nil), doc...), nil
}
