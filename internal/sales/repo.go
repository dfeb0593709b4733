package sales

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a sales repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, sale *Sale) (*Sale, error) {
	if err := r.db.WithContext(ctx).Create(sale).Error; err != nil {
		return nil, err
	}
	return sale, nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Sale, error) {
	var sale Sale
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("sale_items.created_at ASC")
		}).
		Where("id = ?", id).
		First(&sale).Error
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

// Update saves the aggregate and its items, deleting rows for items that were
// removed in memory so the table mirrors the aggregate exactly.
func (r *repository) Update(ctx context.Context, sale *Sale) (*Sale, error) {
	db := r.db.WithContext(ctx)

	keep := make([]uuid.UUID, 0, len(sale.Items))
	for _, item := range sale.Items {
		keep = append(keep, item.ID)
	}
	orphanQuery := db.Where("sale_id = ?", sale.ID)
	if len(keep) > 0 {
		orphanQuery = orphanQuery.Where("id NOT IN ?", keep)
	}
	if err := orphanQuery.Delete(&SaleItem{}).Error; err != nil {
		return nil, err
	}

	if err := db.Session(&gorm.Session{FullSaveAssociations: true}).Save(sale).Error; err != nil {
		return nil, err
	}
	return sale, nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	db := r.db.WithContext(ctx)

	if err := db.Where("sale_id = ?", id).Delete(&SaleItem{}).Error; err != nil {
		return false, err
	}

	res := db.Where("id = ?", id).Delete(&Sale{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
