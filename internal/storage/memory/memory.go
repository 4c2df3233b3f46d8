// internal/storage/memory/memory.go
package memory

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpcurve/internal/accounts"
	"github.com/rovshanmuradov/pumpcurve/internal/curve"
	"github.com/rovshanmuradov/pumpcurve/internal/storage"
	"github.com/rovshanmuradov/pumpcurve/internal/storage/models"
)

// memoryStorage реализует интерфейс Storage поверх карты адрес -> данные
// аккаунта. Записи хранятся в сериализованном виде, как в блокчейне.
type memoryStorage struct {
	mu        sync.RWMutex
	programID solana.PublicKey
	accounts  map[solana.PublicKey][]byte
	markets   map[solana.PublicKey]solana.PublicKey // curve address -> mint
	logger    *zap.Logger
}

// NewStorage creates an empty in-memory store for programID.
func NewStorage(programID solana.PublicKey, logger *zap.Logger) storage.Storage {
	return &memoryStorage{
		programID: programID,
		accounts:  make(map[solana.PublicKey][]byte),
		markets:   make(map[solana.PublicKey]solana.PublicKey),
		logger:    logger.Named("storage"),
	}
}

func (s *memoryStorage) SaveConfig(ctx context.Context, cfg *curve.GlobalConfiguration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	addr, err := accounts.GlobalConfigAddress(s.programID)
	if err != nil {
		return err
	}
	data, err := models.EncodeGlobalConfiguration(cfg)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.accounts[addr] = data
	s.mu.Unlock()

	s.logger.Debug("Saved global configuration",
		zap.String("address", addr.String()),
		zap.Int("bytes", len(data)))
	return nil
}

func (s *memoryStorage) LoadConfig(ctx context.Context) (*curve.GlobalConfiguration, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	addr, err := accounts.GlobalConfigAddress(s.programID)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	data, ok := s.accounts[addr]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("global configuration: %w", storage.ErrNotFound)
	}
	return models.DecodeGlobalConfiguration(data)
}

func (s *memoryStorage) SaveMarket(ctx context.Context, m *models.Market) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	addr, err := accounts.BondingCurveAddress(s.programID, m.Mint)
	if err != nil {
		return err
	}
	data, err := models.EncodeMarket(m)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.accounts[addr] = data
	s.markets[addr] = m.Mint
	s.mu.Unlock()

	s.logger.Debug("Saved market",
		zap.String("mint", m.Mint.String()),
		zap.String("address", addr.String()),
		zap.Stringer("state", m.Curve.State))
	return nil
}

func (s *memoryStorage) LoadMarket(ctx context.Context, mint solana.PublicKey) (*models.Market, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	addr, err := accounts.BondingCurveAddress(s.programID, mint)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	data, ok := s.accounts[addr]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("market %s: %w", mint, storage.ErrNotFound)
	}
	return models.DecodeMarket(data)
}

func (s *memoryStorage) ListMarkets(ctx context.Context) ([]*models.Market, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	blobs := make([][]byte, 0, len(s.markets))
	for addr := range s.markets {
		blobs = append(blobs, s.accounts[addr])
	}
	s.mu.RUnlock()

	out := make([]*models.Market, 0, len(blobs))
	for _, data := range blobs {
		m, err := models.DecodeMarket(data)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return bytes.Compare(out[i].Mint[:], out[j].Mint[:]) < 0
	})
	return out, nil
}
