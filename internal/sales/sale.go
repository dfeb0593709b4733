package sales

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/sales-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/sales-backend/pkg/errors"
)

// Sale is the aggregate root for a sales record. Items are owned exclusively
// by the sale; every mutation goes through the methods below so the aggregate
// total and the per-product quantity cap always hold.
type Sale struct {
	ID           uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	SaleNumber   int64            `gorm:"column:sale_number;not null;uniqueIndex:idx_sales_sale_number"`
	SaleDate     time.Time        `gorm:"column:sale_date;not null"`
	CustomerID   uuid.UUID        `gorm:"column:customer_id;type:uuid;not null"`
	CustomerName string           `gorm:"column:customer_name;not null"`
	BranchID     uuid.UUID        `gorm:"column:branch_id;type:uuid;not null"`
	BranchName   string           `gorm:"column:branch_name;not null"`
	TotalAmount  decimal.Decimal  `gorm:"column:total_amount;type:numeric(18,2);not null"`
	Status       enums.SaleStatus `gorm:"column:status;type:text;not null;default:'confirmed'"`
	Items        []SaleItem       `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    *time.Time       `gorm:"column:updated_at;autoUpdateTime:false"`
}

// TableName maps the struct onto the sales table.
func (Sale) TableName() string {
	return "sales"
}

// NewSale builds a confirmed, empty sale. The sale number comes from the
// injected generator so tests stay deterministic.
func NewSale(number int64, saleDate time.Time, customerID uuid.UUID, customerName string, branchID uuid.UUID, branchName string) *Sale {
	return &Sale{
		ID:           uuid.New(),
		SaleNumber:   number,
		SaleDate:     saleDate,
		CustomerID:   customerID,
		CustomerName: customerName,
		BranchID:     branchID,
		BranchName:   branchName,
		TotalAmount:  decimal.Zero,
		Status:       enums.SaleStatusConfirmed,
		CreatedAt:    time.Now().UTC(),
	}
}

// IsCancelled reports whether the aggregate has been cancelled.
func (s *Sale) IsCancelled() bool {
	return s.Status == enums.SaleStatusCancelled
}

// AddItem appends a new line or merges into the existing line for the same
// product. The merged quantity is (existing + incoming); exceeding the
// per-product cap fails before anything is mutated.
func (s *Sale) AddItem(item *SaleItem) error {
	if s.IsCancelled() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, msgAddToCancelledSale)
	}

	existing := s.findItem(item.ProductID)
	if existing != nil {
		if existing.Cancelled {
			return pkgerrors.New(pkgerrors.CodeStateConflict, msgModifyCancelledItem)
		}
		merged := existing.Quantity + item.Quantity
		if merged > MaxQuantityPerProduct {
			return pkgerrors.New(pkgerrors.CodeStateConflict, msgMaxQuantityExceeded)
		}
		if err := existing.UpdateQuantity(merged); err != nil {
			return err
		}
	} else {
		if item.Quantity > MaxQuantityPerProduct {
			return pkgerrors.New(pkgerrors.CodeStateConflict, msgMaxQuantityExceeded)
		}
		item.SaleID = s.ID
		s.Items = append(s.Items, *item)
	}

	s.recalculateTotal()
	s.touch()
	return nil
}

// RemoveItem drops the line for the given product. A missing product is a
// no-op, not an error.
func (s *Sale) RemoveItem(productID uuid.UUID) error {
	if s.IsCancelled() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, msgUpdateCancelledSale)
	}

	for idx := range s.Items {
		if s.Items[idx].ProductID == productID {
			s.Items = append(s.Items[:idx], s.Items[idx+1:]...)
			s.recalculateTotal()
			s.touch()
			return nil
		}
	}
	return nil
}

// UpdateItemQuantity sets a new quantity for the given product. Quantity zero
// removes the line entirely; a missing product is a no-op.
func (s *Sale) UpdateItemQuantity(productID uuid.UUID, quantity int) error {
	if s.IsCancelled() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, msgUpdateCancelledSale)
	}
	if quantity > MaxQuantityPerProduct {
		return pkgerrors.New(pkgerrors.CodeStateConflict, msgMaxQuantityExceeded)
	}
	if quantity == 0 {
		return s.RemoveItem(productID)
	}

	item := s.findItem(productID)
	if item == nil {
		return nil
	}
	if err := item.UpdateQuantity(quantity); err != nil {
		return err
	}

	s.recalculateTotal()
	s.touch()
	return nil
}

// Cancel marks the sale cancelled and cascades to every item. The cascade is
// unconditional, so calling Cancel twice settles on the same zeroed state;
// rejecting a double cancel is the command handler's decision.
func (s *Sale) Cancel() {
	s.Status = enums.SaleStatusCancelled
	s.touch()
	for idx := range s.Items {
		s.Items[idx].Cancel()
	}
	s.recalculateTotal()
}

// ActiveItems returns the items that have not been individually cancelled.
func (s *Sale) ActiveItems() []SaleItem {
	active := make([]SaleItem, 0, len(s.Items))
	for _, item := range s.Items {
		if !item.Cancelled {
			active = append(active, item)
		}
	}
	return active
}

func (s *Sale) findItem(productID uuid.UUID) *SaleItem {
	for idx := range s.Items {
		if s.Items[idx].ProductID == productID {
			return &s.Items[idx]
		}
	}
	return nil
}

// recalculateTotal sums every item total. Cancelled items carry a zero total,
// which is what drives a cancelled sale's aggregate total to zero.
func (s *Sale) recalculateTotal() {
	total := decimal.Zero
	for idx := range s.Items {
		total = total.Add(s.Items[idx].TotalAmount)
	}
	s.TotalAmount = total
}

func (s *Sale) touch() {
	now := time.Now().UTC()
	s.UpdatedAt = &now
}
