// internal/storage/models/codec.go
package models

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"

	"github.com/rovshanmuradov/pumpcurve/internal/curve"
)

// Record sizes of the fixed-width layouts.
const (
	BondingCurveSize        = 8*4 + 16 + 1 + 1
	GlobalConfigurationSize = 8*5 + 32*4 + 8
)

func encode(v interface{}) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := bin.NewBorshEncoder(buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeBondingCurve serializes c in field order.
func EncodeBondingCurve(c *curve.BondingCurve) ([]byte, error) {
	data, err := encode(*c)
	if err != nil {
		return nil, fmt.Errorf("failed to encode bonding curve: %w", err)
	}
	return data, nil
}

// DecodeBondingCurve parses a curve record.
func DecodeBondingCurve(data []byte) (*curve.BondingCurve, error) {
	if len(data) < BondingCurveSize {
		return nil, fmt.Errorf("bonding curve data too short: %d bytes", len(data))
	}
	var c curve.BondingCurve
	if err := bin.NewBorshDecoder(data).Decode(&c); err != nil {
		return nil, fmt.Errorf("failed to decode bonding curve: %w", err)
	}
	return &c, nil
}

// EncodeGlobalConfiguration serializes cfg in field order.
func EncodeGlobalConfiguration(cfg *curve.GlobalConfiguration) ([]byte, error) {
	data, err := encode(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode global configuration: %w", err)
	}
	return data, nil
}

// DecodeGlobalConfiguration parses a configuration record.
func DecodeGlobalConfiguration(data []byte) (*curve.GlobalConfiguration, error) {
	if len(data) < GlobalConfigurationSize {
		return nil, fmt.Errorf("global configuration data too short: %d bytes", len(data))
	}
	var cfg curve.GlobalConfiguration
	if err := bin.NewBorshDecoder(data).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode global configuration: %w", err)
	}
	return &cfg, nil
}

// EncodeMarket serializes a market record.
func EncodeMarket(m *Market) ([]byte, error) {
	data, err := encode(*m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode market %s: %w", m.Mint, err)
	}
	return data, nil
}

// DecodeMarket parses a market record.
func DecodeMarket(data []byte) (*Market, error) {
	var m Market
	if err := bin.NewBorshDecoder(data).Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to decode market: %w", err)
	}
	return &m, nil
}
