// internal/storage/models/market.go
package models

import (
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/pumpcurve/internal/curve"
)

// Market is the persisted record of one bonding-curve market. The mint is
// both the traded quote asset and the market id.
type Market struct {
	Mint      solana.PublicKey
	Creator   solana.PublicKey
	PoolVault solana.PublicKey
	Name      string
	Symbol    string
	URI       string
	CreatedAt int64
	Curve     curve.BondingCurve
	// RetainedAmount is the part of the dev buy kept in the pool vault
	// outside the reserves.
	RetainedAmount uint64
	HasMigration   bool
	Migration      Migration
}

// Migration records where a completed market's reserves were handed off.
type Migration struct {
	PoolHandle solana.PublicKey
	Controller solana.PublicKey
	Token0     solana.PublicKey
	Token1     solana.PublicKey
	Amount0    uint64
	Amount1    uint64
	MigratedAt int64
}

// Created returns the creation time.
func (m *Market) Created() time.Time {
	return time.Unix(m.CreatedAt, 0).UTC()
}

// Clone returns a deep copy of the record.
func (m *Market) Clone() *Market {
	cp := *m
	return &cp
}
