package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/sales-backend/pkg/db"
	pkgerrors "github.com/angelmondragon/sales-backend/pkg/errors"
	"github.com/angelmondragon/sales-backend/pkg/metrics"
)

const saleNumberIndex = "idx_sales_sale_number"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines the sale command handlers.
type Service interface {
	Create(ctx context.Context, input CreateSaleInput) (*SaleResult, error)
	Get(ctx context.Context, id uuid.UUID) (*SaleResult, error)
	Update(ctx context.Context, input UpdateSaleInput) (*UpdateSaleResult, error)
	Cancel(ctx context.Context, input CancelSaleInput) (*SaleResult, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo     Repository
	tx       txRunner
	numbers  NumberGenerator
	notifier Notifier
	metrics  *metrics.CommandMetrics
}

// NewService builds a sales service with the required dependencies. Metrics
// may be nil; the recorder is a no-op in that case.
func NewService(repo Repository, tx txRunner, numbers NumberGenerator, notifier Notifier, m *metrics.CommandMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("sales repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if numbers == nil {
		return nil, fmt.Errorf("sale number generator required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		numbers:  numbers,
		notifier: notifier,
		metrics:  m,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateSaleInput) (result *SaleResult, err error) {
	defer s.record("create_sale", time.Now())(&err)

	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	sale, err := s.buildSale(input)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		_, txErr := s.repo.WithTx(tx).Create(ctx, sale)
		return txErr
	})
	if err != nil && db.IsUniqueViolation(err, saleNumberIndex) {
		// Ten-digit numbers collide rarely; one retry with a fresh draw
		// covers it before giving up.
		number, genErr := s.numbers.Generate()
		if genErr != nil {
			return nil, genErr
		}
		sale.SaleNumber = number
		err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			_, txErr := s.repo.WithTx(tx).Create(ctx, sale)
			return txErr
		})
	}
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist sale")
	}

	res := toSaleResult(sale)
	return &res, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (result *SaleResult, err error) {
	defer s.record("get_sale", time.Now())(&err)

	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sale id required")
	}

	sale, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound(id)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sale")
	}

	res := toSaleResult(sale)
	return &res, nil
}

func (s *service) Update(ctx context.Context, input UpdateSaleInput) (result *UpdateSaleResult, err error) {
	defer s.record("update_sale", time.Now())(&err)

	if err := validateUpdateInput(input); err != nil {
		return nil, err
	}

	var (
		sale    *Sale
		added   int
		updated int
		removed int
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		loaded, txErr := repo.GetByID(ctx, input.SaleID)
		if txErr != nil {
			if errors.Is(txErr, gorm.ErrRecordNotFound) {
				return notFound(input.SaleID)
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "load sale")
		}
		if loaded.IsCancelled() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, msgUpdateCancelledSale)
		}

		for _, in := range input.ItemsToAdd {
			item, buildErr := NewSaleItem(in.ProductID, in.ProductName, in.UnitPrice, in.Quantity)
			if buildErr != nil {
				return buildErr
			}
			if addErr := loaded.AddItem(item); addErr != nil {
				return addErr
			}
			added++
		}
		for _, in := range input.ItemsToUpdate {
			if loaded.findItem(in.ProductID) == nil {
				continue
			}
			if updErr := loaded.UpdateItemQuantity(in.ProductID, in.Quantity); updErr != nil {
				return updErr
			}
			updated++
		}
		for _, productID := range input.ProductsToRemove {
			if loaded.findItem(productID) == nil {
				continue
			}
			if rmErr := loaded.RemoveItem(productID); rmErr != nil {
				return rmErr
			}
			removed++
		}

		persisted, txErr := repo.Update(ctx, loaded)
		if txErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "persist sale")
		}
		sale = persisted
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &UpdateSaleResult{
		Sale:         toSaleResult(sale),
		ItemsAdded:   added,
		ItemsUpdated: updated,
		ItemsRemoved: removed,
		Message:      updateSummary(added, updated, removed),
	}, nil
}

func (s *service) Cancel(ctx context.Context, input CancelSaleInput) (result *SaleResult, err error) {
	defer s.record("cancel_sale", time.Now())(&err)

	if err := validateCancelInput(input); err != nil {
		return nil, err
	}

	var (
		sale   *Sale
		active []SaleItem
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		loaded, txErr := repo.GetByID(ctx, input.SaleID)
		if txErr != nil {
			if errors.Is(txErr, gorm.ErrRecordNotFound) {
				return notFound(input.SaleID)
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "load sale")
		}
		if loaded.IsCancelled() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, msgAlreadyCancelled)
		}

		active = loaded.ActiveItems()
		loaded.Cancel()

		persisted, txErr := repo.Update(ctx, loaded)
		if txErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "persist sale")
		}
		sale = persisted
		return nil
	})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if sale.UpdatedAt != nil {
		now = *sale.UpdatedAt
	}
	s.notifier.SaleCancelled(ctx, SaleCancelledEvent{
		SaleID:      sale.ID,
		SaleNumber:  sale.SaleNumber,
		Reason:      input.Reason,
		CancelledAt: now,
	})
	for _, item := range active {
		s.notifier.ItemCancelled(ctx, ItemCancelledEvent{
			SaleID:      sale.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			Reason:      input.Reason,
		})
	}

	res := toSaleResult(sale)
	return &res, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) (err error) {
	defer s.record("delete_sale", time.Now())(&err)

	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "sale id required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		deleted, txErr := s.repo.WithTx(tx).Delete(ctx, id)
		if txErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "delete sale")
		}
		if !deleted {
			return notFound(id)
		}
		return nil
	})
}

// buildSale assembles a fresh aggregate, running every input line through
// AddItem so duplicate product ids in the payload merge the same way they
// would on an update.
func (s *service) buildSale(input CreateSaleInput) (*Sale, error) {
	number, err := s.numbers.Generate()
	if err != nil {
		return nil, err
	}

	saleDate := input.SaleDate
	if saleDate.IsZero() {
		saleDate = time.Now().UTC()
	}
	sale := NewSale(number, saleDate, input.CustomerID, input.CustomerName, input.BranchID, input.BranchName)

	for _, in := range input.Items {
		item, err := NewSaleItem(in.ProductID, in.ProductName, in.UnitPrice, in.Quantity)
		if err != nil {
			return nil, err
		}
		if err := sale.AddItem(item); err != nil {
			return nil, err
		}
	}
	return sale, nil
}

func (s *service) record(command string, start time.Time) func(*error) {
	return func(errPtr *error) {
		s.metrics.ObserveDuration(command, time.Since(start))
		if errPtr != nil && *errPtr != nil {
			s.metrics.IncFailure(command)
			return
		}
		s.metrics.IncSuccess(command)
	}
}

func notFound(id uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("Sale with id %s not found", id))
}

func validateCreateInput(input CreateSaleInput) error {
	if input.CustomerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	if l := len(input.CustomerName); l < MinNameLength || l > MaxNameLength {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer name must be between 1 and 100 characters")
	}
	if input.BranchID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "branch id required")
	}
	if l := len(input.BranchName); l < MinNameLength || l > MaxNameLength {
		return pkgerrors.New(pkgerrors.CodeValidation, "branch name must be between 1 and 100 characters")
	}
	if len(input.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one item is required")
	}
	for _, item := range input.Items {
		if err := validateItemInput(item); err != nil {
			return err
		}
	}
	return nil
}

func validateUpdateInput(input UpdateSaleInput) error {
	if input.SaleID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "sale id required")
	}
	for _, item := range input.ItemsToAdd {
		if err := validateItemInput(item); err != nil {
			return err
		}
	}
	for _, item := range input.ItemsToUpdate {
		if item.ProductID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "product id required")
		}
		if item.Quantity < 0 || item.Quantity > MaxQuantityPerProduct {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be between 0 and 20")
		}
	}
	for _, productID := range input.ProductsToRemove {
		if productID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "product id required")
		}
	}
	return nil
}

func validateCancelInput(input CancelSaleInput) error {
	if input.SaleID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "sale id required")
	}
	if len(input.Reason) > MaxCancellationReasonLength {
		return pkgerrors.New(pkgerrors.CodeValidation, "cancellation reason must be at most 500 characters")
	}
	return nil
}

func validateItemInput(item ItemInput) error {
	if item.ProductID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if l := len(item.ProductName); l < MinNameLength || l > MaxNameLength {
		return pkgerrors.New(pkgerrors.CodeValidation, "product name must be between 1 and 100 characters")
	}
	if !item.UnitPrice.GreaterThan(decimal.Zero) {
		return pkgerrors.New(pkgerrors.CodeValidation, "unit price must be greater than zero")
	}
	if item.Quantity < MinQuantity || item.Quantity > MaxQuantityPerProduct {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be between 1 and 20")
	}
	return nil
}
