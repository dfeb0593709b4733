package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/sales-backend/api/responses"
	"github.com/angelmondragon/sales-backend/api/validators"
	"github.com/angelmondragon/sales-backend/internal/sales"
	pkgerrors "github.com/angelmondragon/sales-backend/pkg/errors"
	"github.com/angelmondragon/sales-backend/pkg/logger"
)

type saleItemRequest struct {
	ProductID   uuid.UUID       `json:"product_id" validate:"required"`
	ProductName string          `json:"product_name" validate:"required,min=1,max=100"`
	UnitPrice   decimal.Decimal `json:"unit_price" validate:"required"`
	Quantity    int             `json:"quantity" validate:"required,gte=1,lte=20"`
}

type createSaleRequest struct {
	SaleDate     *time.Time        `json:"sale_date"`
	CustomerID   uuid.UUID         `json:"customer_id" validate:"required"`
	CustomerName string            `json:"customer_name" validate:"required,min=1,max=100"`
	BranchID     uuid.UUID         `json:"branch_id" validate:"required"`
	BranchName   string            `json:"branch_name" validate:"required,min=1,max=100"`
	Items        []saleItemRequest `json:"items" validate:"required,min=1,dive"`
}

type itemQuantityRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"gte=0,lte=20"`
}

type updateSaleRequest struct {
	ItemsToAdd       []saleItemRequest     `json:"items_to_add" validate:"omitempty,dive"`
	ItemsToUpdate    []itemQuantityRequest `json:"items_to_update" validate:"omitempty,dive"`
	ProductsToRemove []uuid.UUID           `json:"products_to_remove"`
}

type cancelSaleRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

func toItemInputs(items []saleItemRequest) []sales.ItemInput {
	inputs := make([]sales.ItemInput, 0, len(items))
	for _, item := range items {
		inputs = append(inputs, sales.ItemInput{
			ProductID:   item.ProductID,
			ProductName: validators.SanitizeString(item.ProductName, 100),
			UnitPrice:   item.UnitPrice,
			Quantity:    item.Quantity,
		})
	}
	return inputs
}

// CreateSale registers a new sale with its initial line items.
func CreateSale(svc sales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sales service unavailable"))
			return
		}

		var req createSaleRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := sales.CreateSaleInput{
			CustomerID:   req.CustomerID,
			CustomerName: validators.SanitizeString(req.CustomerName, 100),
			BranchID:     req.BranchID,
			BranchName:   validators.SanitizeString(req.BranchName, 100),
			Items:        toItemInputs(req.Items),
		}
		if req.SaleDate != nil {
			input.SaleDate = *req.SaleDate
		}

		result, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if logg != nil {
			ctx := logg.WithSaleID(r.Context(), result.ID.String())
			logg.Info(ctx, "sale created")
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// GetSale returns the full aggregate for one sale.
func GetSale(svc sales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sales service unavailable"))
			return
		}

		saleID, err := validators.ParseUUIDParam(r, "saleID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Get(r.Context(), saleID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// UpdateSale applies the add/update/remove operation lists in one unit.
func UpdateSale(svc sales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sales service unavailable"))
			return
		}

		saleID, err := validators.ParseUUIDParam(r, "saleID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req updateSaleRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updates := make([]sales.ItemQuantityInput, 0, len(req.ItemsToUpdate))
		for _, item := range req.ItemsToUpdate {
			updates = append(updates, sales.ItemQuantityInput{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
			})
		}

		result, err := svc.Update(r.Context(), sales.UpdateSaleInput{
			SaleID:           saleID,
			ItemsToAdd:       toItemInputs(req.ItemsToAdd),
			ItemsToUpdate:    updates,
			ProductsToRemove: req.ProductsToRemove,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if logg != nil {
			ctx := logg.WithSaleID(r.Context(), saleID.String())
			logg.Info(ctx, "sale updated")
		}
		responses.WriteSuccess(w, result)
	}
}

// CancelSale cancels the sale and every item on it.
func CancelSale(svc sales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sales service unavailable"))
			return
		}

		saleID, err := validators.ParseUUIDParam(r, "saleID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		// body is optional; a bare cancel carries no reason
		var req cancelSaleRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &req); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		result, err := svc.Cancel(r.Context(), sales.CancelSaleInput{
			SaleID: saleID,
			Reason: validators.SanitizeString(req.Reason, 500),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if logg != nil {
			ctx := logg.WithSaleID(r.Context(), saleID.String())
			logg.Info(ctx, "sale cancelled")
		}
		responses.WriteSuccess(w, result)
	}
}

// DeleteSale removes the sale and its items permanently.
func DeleteSale(svc sales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sales service unavailable"))
			return
		}

		saleID, err := validators.ParseUUIDParam(r, "saleID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), saleID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if logg != nil {
			ctx := logg.WithSaleID(r.Context(), saleID.String())
			logg.Info(ctx, "sale deleted")
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
