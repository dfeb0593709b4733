package sales

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	pkgerrors "github.com/angelmondragon/sales-backend/pkg/errors"
)

type stubSalesRepo struct {
	sales  map[uuid.UUID]*Sale
	create func(ctx context.Context, sale *Sale) (*Sale, error)
	update func(ctx context.Context, sale *Sale) (*Sale, error)
}

func newStubSalesRepo() *stubSalesRepo {
	return &stubSalesRepo{sales: make(map[uuid.UUID]*Sale)}
}

func (s *stubSalesRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubSalesRepo) Create(ctx context.Context, sale *Sale) (*Sale, error) {
	if s.create != nil {
		return s.create(ctx, sale)
	}
	s.sales[sale.ID] = sale
	return sale, nil
}

func (s *stubSalesRepo) GetByID(ctx context.Context, id uuid.UUID) (*Sale, error) {
	sale, ok := s.sales[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return sale, nil
}

func (s *stubSalesRepo) Update(ctx context.Context, sale *Sale) (*Sale, error) {
	if s.update != nil {
		return s.update(ctx, sale)
	}
	s.sales[sale.ID] = sale
	return sale, nil
}

func (s *stubSalesRepo) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	if _, ok := s.sales[id]; !ok {
		return false, nil
	}
	delete(s.sales, id)
	return true, nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubNumberGenerator struct {
	numbers []int64
	calls   int
}

func (s *stubNumberGenerator) Generate() (int64, error) {
	if s.calls >= len(s.numbers) {
		return 0, fmt.Errorf("generator exhausted")
	}
	number := s.numbers[s.calls]
	s.calls++
	return number, nil
}

type stubNotifier struct {
	saleEvents []SaleCancelledEvent
	itemEvents []ItemCancelledEvent
}

func (s *stubNotifier) SaleCancelled(ctx context.Context, event SaleCancelledEvent) {
	s.saleEvents = append(s.saleEvents, event)
}

func (s *stubNotifier) ItemCancelled(ctx context.Context, event ItemCancelledEvent) {
	s.itemEvents = append(s.itemEvents, event)
}

func newTestService(t *testing.T, repo *stubSalesRepo, notifier *stubNotifier, numbers ...int64) Service {
	t.Helper()
	if len(numbers) == 0 {
		numbers = []int64{1234567890}
	}
	svc, err := NewService(repo, stubTxRunner{}, &stubNumberGenerator{numbers: numbers}, notifier, nil)
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}
	return svc
}

func seedSale(repo *stubSalesRepo, items ...*SaleItem) *Sale {
	sale := NewSale(1234567890, time.Now().UTC(), uuid.New(), "Acme Corp", uuid.New(), "Downtown")
	for _, item := range items {
		_ = sale.AddItem(item)
	}
	repo.sales[sale.ID] = sale
	return sale
}

func validCreateInput() CreateSaleInput {
	return CreateSaleInput{
		SaleDate:     time.Now().UTC(),
		CustomerID:   uuid.New(),
		CustomerName: "Acme Corp",
		BranchID:     uuid.New(),
		BranchName:   "Downtown",
		Items: []ItemInput{{
			ProductID:   uuid.New(),
			ProductName: "Widget",
			UnitPrice:   decimal.RequireFromString("9.99"),
			Quantity:    10,
		}},
	}
}

func TestCreateSale(t *testing.T) {
	repo := newStubSalesRepo()
	svc := newTestService(t, repo, &stubNotifier{}, 4242424242)

	result, err := svc.Create(context.Background(), validCreateInput())
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if result.SaleNumber != 4242424242 {
		t.Fatalf("expected generated number got %d", result.SaleNumber)
	}
	if !result.TotalAmount.Equal(decimal.RequireFromString("79.92")) {
		t.Fatalf("expected total 79.92 got %s", result.TotalAmount)
	}
	if len(result.Items) != 1 || result.Items[0].DiscountPercent != 20 {
		t.Fatalf("unexpected items %+v", result.Items)
	}
	if len(repo.sales) != 1 {
		t.Fatalf("expected one persisted sale got %d", len(repo.sales))
	}
}

func TestCreateSaleMergesDuplicateProducts(t *testing.T) {
	repo := newStubSalesRepo()
	svc := newTestService(t, repo, &stubNotifier{})

	input := validCreateInput()
	productID := input.Items[0].ProductID
	input.Items[0].Quantity = 3
	input.Items = append(input.Items, ItemInput{
		ProductID:   productID,
		ProductName: "Widget",
		UnitPrice:   decimal.RequireFromString("9.99"),
		Quantity:    2,
	})

	result, err := svc.Create(context.Background(), input)
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if len(result.Items) != 1 {
		t.Fatalf("expected merged line got %d", len(result.Items))
	}
	if result.Items[0].Quantity != 5 {
		t.Fatalf("expected merged quantity 5 got %d", result.Items[0].Quantity)
	}
}

func TestCreateSaleValidation(t *testing.T) {
	repo := newStubSalesRepo()
	svc := newTestService(t, repo, &stubNotifier{})

	input := validCreateInput()
	input.Items = nil
	_, err := svc.Create(context.Background(), input)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error got %v", err)
	}
	if len(repo.sales) != 0 {
		t.Fatalf("nothing should be persisted on validation failure")
	}
}

func TestCreateSaleRetriesOnNumberCollision(t *testing.T) {
	repo := newStubSalesRepo()
	attempts := 0
	repo.create = func(ctx context.Context, sale *Sale) (*Sale, error) {
		attempts++
		if attempts == 1 {
			return nil, errors.New(`duplicate key value violates unique constraint "idx_sales_sale_number"`)
		}
		repo.sales[sale.ID] = sale
		return sale, nil
	}
	svc := newTestService(t, repo, &stubNotifier{}, 1111111111, 2222222222)

	result, err := svc.Create(context.Background(), validCreateInput())
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected one retry got %d attempts", attempts)
	}
	if result.SaleNumber != 2222222222 {
		t.Fatalf("expected retried number got %d", result.SaleNumber)
	}
}

func TestGetSale(t *testing.T) {
	repo := newStubSalesRepo()
	svc := newTestService(t, repo, &stubNotifier{})
	item, _ := NewSaleItem(uuid.New(), "Widget", decimal.RequireFromString("9.99"), 10)
	sale := seedSale(repo, item)

	result, err := svc.Get(context.Background(), sale.ID)
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if result.ID != sale.ID || len(result.Items) != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestGetSaleNotFound(t *testing.T) {
	svc := newTestService(t, newStubSalesRepo(), &stubNotifier{})
	missing := uuid.New()

	_, err := svc.Get(context.Background(), missing)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not-found got %v", err)
	}
	want := fmt.Sprintf("Sale with id %s not found", missing)
	if typed.Message() != want {
		t.Fatalf("expected message %q got %q", want, typed.Message())
	}
}

func TestUpdateSaleThreeWayDiff(t *testing.T) {
	repo := newStubSalesRepo()
	svc := newTestService(t, repo, &stubNotifier{})

	existing, _ := NewSaleItem(uuid.New(), "Widget", decimal.RequireFromString("10.00"), 2)
	toRemove, _ := NewSaleItem(uuid.New(), "Gadget", decimal.RequireFromString("5.00"), 4)
	sale := seedSale(repo, existing, toRemove)

	added := ItemInput{
		ProductID:   uuid.New(),
		ProductName: "Gizmo",
		UnitPrice:   decimal.RequireFromString("2.00"),
		Quantity:    10,
	}
	result, err := svc.Update(context.Background(), UpdateSaleInput{
		SaleID:           sale.ID,
		ItemsToAdd:       []ItemInput{added},
		ItemsToUpdate:    []ItemQuantityInput{{ProductID: existing.ProductID, Quantity: 4}},
		ProductsToRemove: []uuid.UUID{toRemove.ProductID},
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if result.ItemsAdded != 1 || result.ItemsUpdated != 1 || result.ItemsRemoved != 1 {
		t.Fatalf("unexpected counts %+v", result)
	}
	if result.Message != "Items 1 added, 1 updated, 1 removed" {
		t.Fatalf("unexpected message %q", result.Message)
	}
	if len(result.Sale.Items) != 2 {
		t.Fatalf("expected two lines got %d", len(result.Sale.Items))
	}
	// 10.00*4*0.9 + 2.00*10*0.8 = 36 + 16
	if !result.Sale.TotalAmount.Equal(decimal.RequireFromString("52.00")) {
		t.Fatalf("unexpected total %s", result.Sale.TotalAmount)
	}
}

func TestUpdateSaleAddThenRemoveNetsToAbsent(t *testing.T) {
	repo := newStubSalesRepo()
	svc := newTestService(t, repo, &stubNotifier{})
	sale := seedSale(repo, mustServiceItem("Widget", "10.00", 2))

	productID := uuid.New()
	result, err := svc.Update(context.Background(), UpdateSaleInput{
		SaleID: sale.ID,
		ItemsToAdd: []ItemInput{{
			ProductID:   productID,
			ProductName: "Gizmo",
			UnitPrice:   decimal.RequireFromString("1.00"),
			Quantity:    5,
		}},
		ProductsToRemove: []uuid.UUID{productID},
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	for _, item := range result.Sale.Items {
		if item.ProductID == productID {
			t.Fatalf("product should have been removed")
		}
	}
	if result.ItemsAdded != 1 || result.ItemsRemoved != 1 {
		t.Fatalf("unexpected counts %+v", result)
	}
}

func TestUpdateSaleQuantityZeroRemoves(t *testing.T) {
	repo := newStubSalesRepo()
	svc := newTestService(t, repo, &stubNotifier{})
	item := mustServiceItem("Widget", "10.00", 5)
	sale := seedSale(repo, item)

	result, err := svc.Update(context.Background(), UpdateSaleInput{
		SaleID:        sale.ID,
		ItemsToUpdate: []ItemQuantityInput{{ProductID: item.ProductID, Quantity: 0}},
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if len(result.Sale.Items) != 0 {
		t.Fatalf("expected empty sale got %d items", len(result.Sale.Items))
	}
	if !result.Sale.TotalAmount.IsZero() {
		t.Fatalf("expected zero total got %s", result.Sale.TotalAmount)
	}
}

func TestUpdateSaleEmptyDiffIsNoOp(t *testing.T) {
	repo := newStubSalesRepo()
	svc := newTestService(t, repo, &stubNotifier{})
	sale := seedSale(repo, mustServiceItem("Widget", "10.00", 2))

	persisted := false
	repo.update = func(ctx context.Context, updated *Sale) (*Sale, error) {
		persisted = true
		repo.sales[updated.ID] = updated
		return updated, nil
	}

	result, err := svc.Update(context.Background(), UpdateSaleInput{SaleID: sale.ID})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if result.ItemsAdded != 0 || result.ItemsUpdated != 0 || result.ItemsRemoved != 0 {
		t.Fatalf("unexpected counts %+v", result)
	}
	if result.Message != "No items changed" {
		t.Fatalf("unexpected message %q", result.Message)
	}
	if len(result.Sale.Items) != 1 {
		t.Fatalf("expected one line got %d", len(result.Sale.Items))
	}
	if !result.Sale.TotalAmount.Equal(decimal.RequireFromString("20.00")) {
		t.Fatalf("unexpected total %s", result.Sale.TotalAmount)
	}
	if !persisted {
		t.Fatalf("sale should still be written through the repository")
	}
}

func TestUpdateSaleAbsentProductsUncounted(t *testing.T) {
	repo := newStubSalesRepo()
	svc := newTestService(t, repo, &stubNotifier{})
	sale := seedSale(repo, mustServiceItem("Widget", "10.00", 2))

	result, err := svc.Update(context.Background(), UpdateSaleInput{
		SaleID:           sale.ID,
		ItemsToUpdate:    []ItemQuantityInput{{ProductID: uuid.New(), Quantity: 5}},
		ProductsToRemove: []uuid.UUID{uuid.New()},
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if result.ItemsUpdated != 0 || result.ItemsRemoved != 0 {
		t.Fatalf("unexpected counts %+v", result)
	}
	if result.Message != "No items changed" {
		t.Fatalf("unexpected message %q", result.Message)
	}
}

func TestUpdateCancelledSale(t *testing.T) {
	repo := newStubSalesRepo()
	svc := newTestService(t, repo, &stubNotifier{})
	sale := seedSale(repo, mustServiceItem("Widget", "10.00", 5))
	sale.Cancel()

	_, err := svc.Update(context.Background(), UpdateSaleInput{
		SaleID:           sale.ID,
		ProductsToRemove: []uuid.UUID{uuid.New()},
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict got %v", err)
	}
	if typed.Message() != "Canceled sales cannot be updated" {
		t.Fatalf("unexpected message %q", typed.Message())
	}
}

func TestUpdateSaleNotFound(t *testing.T) {
	svc := newTestService(t, newStubSalesRepo(), &stubNotifier{})

	_, err := svc.Update(context.Background(), UpdateSaleInput{
		SaleID:           uuid.New(),
		ProductsToRemove: []uuid.UUID{uuid.New()},
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not-found got %v", err)
	}
}

func TestCancelSale(t *testing.T) {
	repo := newStubSalesRepo()
	notifier := &stubNotifier{}
	svc := newTestService(t, repo, notifier)
	sale := seedSale(repo,
		mustServiceItem("Widget", "9.99", 10),
		mustServiceItem("Gadget", "5.00", 4),
	)

	result, err := svc.Cancel(context.Background(), CancelSaleInput{
		SaleID: sale.ID,
		Reason: "customer request",
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if result.Status != "cancelled" {
		t.Fatalf("expected cancelled status got %s", result.Status)
	}
	if !result.TotalAmount.IsZero() {
		t.Fatalf("expected zero total got %s", result.TotalAmount)
	}
	for _, item := range result.Items {
		if !item.Cancelled {
			t.Fatalf("expected all items cancelled")
		}
	}
	if len(notifier.saleEvents) != 1 {
		t.Fatalf("expected one sale event got %d", len(notifier.saleEvents))
	}
	if notifier.saleEvents[0].Reason != "customer request" {
		t.Fatalf("unexpected reason %q", notifier.saleEvents[0].Reason)
	}
	if len(notifier.itemEvents) != 2 {
		t.Fatalf("expected two item events got %d", len(notifier.itemEvents))
	}
	for _, event := range notifier.itemEvents {
		if event.Reason != "customer request" {
			t.Fatalf("item event missing reason, got %q", event.Reason)
		}
	}
}

func TestCancelSaleTwice(t *testing.T) {
	repo := newStubSalesRepo()
	notifier := &stubNotifier{}
	svc := newTestService(t, repo, notifier)
	sale := seedSale(repo, mustServiceItem("Widget", "9.99", 10))

	if _, err := svc.Cancel(context.Background(), CancelSaleInput{SaleID: sale.ID}); err != nil {
		t.Fatalf("first cancel should succeed: %v", err)
	}

	_, err := svc.Cancel(context.Background(), CancelSaleInput{SaleID: sale.ID})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict got %v", err)
	}
	if typed.Message() != "Sale has already been cancelled" {
		t.Fatalf("unexpected message %q", typed.Message())
	}
	if len(notifier.saleEvents) != 1 {
		t.Fatalf("second cancel must not emit events")
	}
}

func TestCancelSaleNotFound(t *testing.T) {
	svc := newTestService(t, newStubSalesRepo(), &stubNotifier{})

	_, err := svc.Cancel(context.Background(), CancelSaleInput{SaleID: uuid.New()})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not-found got %v", err)
	}
}

func TestDeleteSale(t *testing.T) {
	repo := newStubSalesRepo()
	svc := newTestService(t, repo, &stubNotifier{})
	sale := seedSale(repo, mustServiceItem("Widget", "10.00", 2))

	if err := svc.Delete(context.Background(), sale.ID); err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if len(repo.sales) != 0 {
		t.Fatalf("sale should be gone")
	}

	err := svc.Delete(context.Background(), sale.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not-found got %v", err)
	}
}

func mustServiceItem(name, price string, quantity int) *SaleItem {
	item, err := NewSaleItem(uuid.New(), name, decimal.RequireFromString(price), quantity)
	if err != nil {
		panic(err)
	}
	return item
}
