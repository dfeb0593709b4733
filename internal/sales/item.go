package sales

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/sales-backend/pkg/errors"
)

// SaleItem is one product line inside a sale. It owns its own discount and
// total computation; the parent Sale owns every cross-item rule.
type SaleItem struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	SaleID          uuid.UUID       `gorm:"column:sale_id;type:uuid;not null"`
	ProductID       uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	ProductName     string          `gorm:"column:product_name;not null"`
	UnitPrice       decimal.Decimal `gorm:"column:unit_price;type:numeric(18,2);not null"`
	Quantity        int             `gorm:"column:quantity;not null"`
	DiscountPercent int64           `gorm:"column:discount_percent;not null;default:0"`
	DiscountAmount  decimal.Decimal `gorm:"column:discount_amount;type:numeric(18,2);not null"`
	TotalAmount     decimal.Decimal `gorm:"column:total_amount;type:numeric(18,2);not null"`
	Cancelled       bool            `gorm:"column:cancelled;not null;default:false"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName maps the struct onto the sale_items table.
func (SaleItem) TableName() string {
	return "sale_items"
}

// NewSaleItem builds a line item and computes its discount tier and total.
func NewSaleItem(productID uuid.UUID, productName string, unitPrice decimal.Decimal, quantity int) (*SaleItem, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if len(productName) < MinNameLength || len(productName) > MaxNameLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("product name must be between %d and %d characters", MinNameLength, MaxNameLength))
	}
	if unitPrice.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price must be greater than zero")
	}
	if quantity < MinQuantity {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("quantity must be at least %d", MinQuantity))
	}
	if quantity > MaxQuantityPerProduct {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, msgMaxQuantityExceeded)
	}

	item := &SaleItem{
		ID:          uuid.New(),
		ProductID:   productID,
		ProductName: productName,
		UnitPrice:   unitPrice,
		Quantity:    quantity,
	}
	item.recompute()
	return item, nil
}

// UpdateQuantity replaces the quantity and recomputes discount tier and total.
// A quantity of zero is legal here; the parent sale translates zero into a
// removal before it ever reaches the item.
func (i *SaleItem) UpdateQuantity(quantity int) error {
	if quantity < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}
	if quantity > MaxQuantityPerProduct {
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("quantity cannot exceed %d", MaxQuantityPerProduct))
	}
	if i.Cancelled {
		return pkgerrors.New(pkgerrors.CodeStateConflict, msgModifyCancelledItem)
	}
	i.Quantity = quantity
	i.recompute()
	return nil
}

// UpdateUnitPrice replaces the unit price and recomputes the total at the
// item's current discount tier.
func (i *SaleItem) UpdateUnitPrice(unitPrice decimal.Decimal) error {
	if unitPrice.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unit price cannot be negative")
	}
	if i.Cancelled {
		return pkgerrors.New(pkgerrors.CodeStateConflict, msgModifyCancelledItem)
	}
	i.UnitPrice = unitPrice
	i.recompute()
	return nil
}

// Cancel zeroes the derived amounts and freezes the item. Calling it twice
// leaves the same zeroed state.
func (i *SaleItem) Cancel() {
	i.Cancelled = true
	i.DiscountPercent = 0
	i.DiscountAmount = decimal.Zero
	i.TotalAmount = decimal.Zero
}

// recompute derives discount tier, discount amount and total:
// subtotal = unitPrice * quantity; total = subtotal - subtotal * tier / 100.
func (i *SaleItem) recompute() {
	i.DiscountPercent = DiscountPercentFor(i.Quantity)
	subtotal := i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
	i.DiscountAmount = subtotal.Mul(decimal.NewFromInt(i.DiscountPercent)).Div(decimal.NewFromInt(100))
	i.TotalAmount = subtotal.Sub(i.DiscountAmount)
}
