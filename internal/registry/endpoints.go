// Package registry reads profile documents from the on-chain social registry.
package registry

import (
	"context"
	"fmt"

	"profilecheck/pkg/domain"
)

// Network names a chain the registry is deployed on.
type Network string

const (
	NetworkMainnet Network = "mainnet"
	NetworkTestnet Network = "testnet"
)

// mainnetSuffix marks signer accounts that live on mainnet.
const mainnetSuffix = ".near"

// Endpoint addresses one registry deployment.
type Endpoint struct {
	Network  Network
	Contract domain.AccountID
	RPCURL   string
}

func (e Endpoint) String() string {
	return fmt.Sprintf("%s:%s", e.Network, e.Contract)
}

// Endpoints holds the deployments the service may query.
type Endpoints struct {
	Mainnet Endpoint
	Testnet Endpoint
}

// DefaultEndpoints are the public social registry deployments.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Mainnet: Endpoint{
			Network:  NetworkMainnet,
			Contract: domain.AccountID("social.near"),
			RPCURL:   "https://rpc.mainnet.near.org",
		},
		Testnet: Endpoint{
			Network:  NetworkTestnet,
			Contract: domain.AccountID("v1.social08.testnet"),
			RPCURL:   "https://rpc.testnet.near.org",
		},
	}
}

// Select picks the deployment for a request signed by signer: mainnet for
// ".near" accounts, testnet for everything else.
func (e Endpoints) Select(signer domain.AccountID) Endpoint {
	if signer.HasSuffix(mainnetSuffix) {
		return e.Mainnet
	}
	return e.Testnet
}

// ProfileKey is the registry path that returns an account's full profile subtree.
func ProfileKey(account domain.AccountID) string {
	return account.String() + "/profile/**"
}

// Client performs one read against a registry deployment and returns the raw
// document bytes. Implementations must honor ctx cancellation and must not retry.
type Client interface {
	Get(ctx context.Context, endpoint Endpoint, keys []string) ([]byte, error)
}
