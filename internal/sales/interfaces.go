package sales

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines persistence operations for the sales tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, sale *Sale) (*Sale, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Sale, error)
	Update(ctx context.Context, sale *Sale) (*Sale, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}
