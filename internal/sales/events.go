package sales

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/sales-backend/pkg/logger"
)

// SaleCancelledEvent is emitted after a cancellation commits.
type SaleCancelledEvent struct {
	SaleID      uuid.UUID
	SaleNumber  int64
	Reason      string
	CancelledAt time.Time
}

// ItemCancelledEvent is emitted once per item cancelled by the cascade.
type ItemCancelledEvent struct {
	SaleID      uuid.UUID
	ProductID   uuid.UUID
	ProductName string
	Quantity    int
	Reason      string
}

// Notifier receives domain events after the owning transaction commits.
// Implementations must not fail the command; delivery is best effort.
type Notifier interface {
	SaleCancelled(ctx context.Context, event SaleCancelledEvent)
	ItemCancelled(ctx context.Context, event ItemCancelledEvent)
}

type logNotifier struct {
	log *logger.Logger
}

// NewLogNotifier returns a Notifier that records events on the structured
// log. It stands in until a real broker is wired behind the interface.
func NewLogNotifier(log *logger.Logger) Notifier {
	return &logNotifier{log: log}
}

func (n *logNotifier) SaleCancelled(ctx context.Context, event SaleCancelledEvent) {
	ctx = n.log.WithFields(ctx, map[string]any{
		"sale_id":     event.SaleID.String(),
		"sale_number": event.SaleNumber,
		"reason":      event.Reason,
	})
	n.log.Info(ctx, "sale cancelled")
}

func (n *logNotifier) ItemCancelled(ctx context.Context, event ItemCancelledEvent) {
	ctx = n.log.WithFields(ctx, map[string]any{
		"sale_id":    event.SaleID.String(),
		"product_id": event.ProductID.String(),
		"product":    event.ProductName,
		"quantity":   event.Quantity,
		"reason":     event.Reason,
	})
	n.log.Info(ctx, "sale item cancelled")
}
