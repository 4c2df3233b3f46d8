// =============================
// File: internal/accounts/accounts.go
// =============================

// Package accounts derives the program addresses that identify the global
// configuration, each market's curve record and its pool vault.
package accounts

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Known program addresses
var (
	// ProgramID owns the configuration, curve and pool vault accounts.
	ProgramID = solana.MustPublicKeyFromBase58("77Pw9AmRgWD6oqjeufeV3enKnPfkavJia7Lq8RhVRTbu")
)

const (
	ConfigSeed = "config"
	CurveSeed  = "bonding_curve"
	PoolSeed   = "pool"
)

// GlobalConfigAddress returns the address of the deployment configuration.
func GlobalConfigAddress(programID solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{[]byte(ConfigSeed)}, programID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive config address: %w", err)
	}
	return addr, nil
}

// BondingCurveAddress returns the address of the curve record for mint.
func BondingCurveAddress(programID, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{mint.Bytes(), []byte(CurveSeed)}, programID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive bonding curve for %s: %w", mint, err)
	}
	return addr, nil
}

// PoolVaultAddress returns the owner of the pool balances for mint.
func PoolVaultAddress(programID, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{mint.Bytes(), []byte(PoolSeed)}, programID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive pool vault for %s: %w", mint, err)
	}
	return addr, nil
}

// MarketAddresses bundles the derived addresses of one market.
type MarketAddresses struct {
	Mint         solana.PublicKey
	BondingCurve solana.PublicKey
	PoolVault    solana.PublicKey
}

// DeriveMarket derives every address for mint.
func DeriveMarket(programID, mint solana.PublicKey) (MarketAddresses, error) {
	curve, err := BondingCurveAddress(programID, mint)
	if err != nil {
		return MarketAddresses{}, err
	}
	vault, err := PoolVaultAddress(programID, mint)
	if err != nil {
		return MarketAddresses{}, err
	}
	return MarketAddresses{Mint: mint, BondingCurve: curve, PoolVault: vault}, nil
}
