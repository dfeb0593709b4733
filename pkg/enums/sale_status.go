package enums

// SaleStatus tracks the lifecycle of a sale aggregate.
type SaleStatus string

const (
	SaleStatusConfirmed SaleStatus = "confirmed"
	SaleStatusCancelled SaleStatus = "cancelled"
)

// Valid reports whether the value is a known sale status.
func (s SaleStatus) Valid() bool {
	switch s {
	case SaleStatusConfirmed, SaleStatusCancelled:
		return true
	default:
		return false
	}
}
