// Package web3 houses blockchain connectivity for the agents: the chain
// client interface, chain snapshots and receipts, and the YAML chain
// definition loader. Concrete EVM access lives in the ethereum subpackage
// and named clients are managed by the provider registry.
package web3
