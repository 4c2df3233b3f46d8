// internal/storage/storage.go
package storage

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/pumpcurve/internal/curve"
	"github.com/rovshanmuradov/pumpcurve/internal/storage/models"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Storage определяет интерфейс для работы с хранилищем
type Storage interface {
	// Конфигурация
	SaveConfig(ctx context.Context, cfg *curve.GlobalConfiguration) error
	LoadConfig(ctx context.Context) (*curve.GlobalConfiguration, error)

	// Рынки
	SaveMarket(ctx context.Context, m *models.Market) error
	LoadMarket(ctx context.Context, mint solana.PublicKey) (*models.Market, error)
	ListMarkets(ctx context.Context) ([]*models.Market, error)
}
