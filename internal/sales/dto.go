package sales

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/sales-backend/pkg/enums"
)

// ItemInput carries one line item in a create or update command.
type ItemInput struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
}

// CreateSaleInput captures everything needed to register a sale.
type CreateSaleInput struct {
	SaleDate     time.Time   `json:"sale_date"`
	CustomerID   uuid.UUID   `json:"customer_id"`
	CustomerName string      `json:"customer_name"`
	BranchID     uuid.UUID   `json:"branch_id"`
	BranchName   string      `json:"branch_name"`
	Items        []ItemInput `json:"items"`
}

// ItemQuantityInput points an update at an existing line.
type ItemQuantityInput struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

// UpdateSaleInput is the three-way diff applied to a sale. Adds run first,
// then quantity updates, then removals.
type UpdateSaleInput struct {
	SaleID           uuid.UUID           `json:"-"`
	ItemsToAdd       []ItemInput         `json:"items_to_add"`
	ItemsToUpdate    []ItemQuantityInput `json:"items_to_update"`
	ProductsToRemove []uuid.UUID         `json:"products_to_remove"`
}

// CancelSaleInput carries the cancellation command.
type CancelSaleInput struct {
	SaleID uuid.UUID `json:"-"`
	Reason string    `json:"reason"`
}

// SaleItemResult is the line-item view returned by every command.
type SaleItemResult struct {
	ProductID       uuid.UUID       `json:"product_id"`
	ProductName     string          `json:"product_name"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	Quantity        int             `json:"quantity"`
	DiscountPercent int64           `json:"discount_percent"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	Cancelled       bool            `json:"cancelled"`
}

// SaleResult is the aggregate view returned by every command.
type SaleResult struct {
	ID           uuid.UUID        `json:"id"`
	SaleNumber   int64            `json:"sale_number"`
	SaleDate     time.Time        `json:"sale_date"`
	CustomerID   uuid.UUID        `json:"customer_id"`
	CustomerName string           `json:"customer_name"`
	BranchID     uuid.UUID        `json:"branch_id"`
	BranchName   string           `json:"branch_name"`
	TotalAmount  decimal.Decimal  `json:"total_amount"`
	Status       enums.SaleStatus `json:"status"`
	Items        []SaleItemResult `json:"items"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    *time.Time       `json:"updated_at,omitempty"`
}

// UpdateSaleResult pairs the updated sale with counts of what changed.
type UpdateSaleResult struct {
	Sale         SaleResult `json:"sale"`
	ItemsAdded   int        `json:"items_added"`
	ItemsUpdated int        `json:"items_updated"`
	ItemsRemoved int        `json:"items_removed"`
	Message      string     `json:"message"`
}

func toSaleResult(sale *Sale) SaleResult {
	items := make([]SaleItemResult, 0, len(sale.Items))
	for _, item := range sale.Items {
		items = append(items, SaleItemResult{
			ProductID:       item.ProductID,
			ProductName:     item.ProductName,
			UnitPrice:       item.UnitPrice,
			Quantity:        item.Quantity,
			DiscountPercent: item.DiscountPercent,
			DiscountAmount:  item.DiscountAmount,
			TotalAmount:     item.TotalAmount,
			Cancelled:       item.Cancelled,
		})
	}
	return SaleResult{
		ID:           sale.ID,
		SaleNumber:   sale.SaleNumber,
		SaleDate:     sale.SaleDate,
		CustomerID:   sale.CustomerID,
		CustomerName: sale.CustomerName,
		BranchID:     sale.BranchID,
		BranchName:   sale.BranchName,
		TotalAmount:  sale.TotalAmount,
		Status:       sale.Status,
		Items:        items,
		CreatedAt:    sale.CreatedAt,
		UpdatedAt:    sale.UpdatedAt,
	}
}

// updateSummary names only the categories that actually changed, or reports
// that nothing did.
func updateSummary(added, updated, removed int) string {
	var parts []string
	if added > 0 {
		parts = append(parts, fmt.Sprintf("%d added", added))
	}
	if updated > 0 {
		parts = append(parts, fmt.Sprintf("%d updated", updated))
	}
	if removed > 0 {
		parts = append(parts, fmt.Sprintf("%d removed", removed))
	}
	if len(parts) == 0 {
		return "No items changed"
	}
	return "Items " + strings.Join(parts, ", ")
}
