package sales

// Business constraints for sale aggregates. Every layer that checks a bound
// (domain methods, command handlers, HTTP validation) reads from this block so
// the limits cannot drift apart.
const (
	MinQuantity           = 1
	MaxQuantityPerProduct = 20

	// Discount tiers by quantity: below TenPercentMinQuantity no discount
	// applies, from TwentyPercentMinQuantity the 20% tier takes over.
	TenPercentMinQuantity    = 4
	TwentyPercentMinQuantity = 10

	MinNameLength = 1
	MaxNameLength = 100

	MaxCancellationReasonLength = 500

	MinSaleNumber int64 = 1_000_000_000
	MaxSaleNumber int64 = 9_999_999_999
)

// Messages surfaced on state-conflict errors. The exact wording is part of the
// API contract.
const (
	msgMaxQuantityExceeded  = "You cannot add more than 20 of the same item to a sale"
	msgAddToCancelledSale   = "Cannot add items to a cancelled sale"
	msgAlreadyCancelled     = "Sale has already been cancelled"
	msgUpdateCancelledSale  = "Canceled sales cannot be updated"
	msgModifyCancelledItem  = "Cancelled items cannot be modified"
)

// DiscountPercentFor returns the discount tier for the given quantity:
// 0% below 4 units, 10% from 4, 20% from 10 up to the per-product cap.
func DiscountPercentFor(quantity int) int64 {
	switch {
	case quantity >= TwentyPercentMinQuantity:
		return 20
	case quantity >= TenPercentMinQuantity:
		return 10
	default:
		return 0
	}
}
