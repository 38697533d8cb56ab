// Package storage defines the usage ledger interface and types shared by
// its adapter implementations (memory, postgres), plus caller-identity
// context helpers used for attribution.
package storage
