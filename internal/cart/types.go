package cart

import "errors"

// Line is the quantity held for one item id.
type Line struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
}

// AddRequest is the payload of the addToCart application event.
type AddRequest struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
}

var (
	// ErrInvalidQuantity is returned for quantities that are not a
	// non-negative integer.
	ErrInvalidQuantity = errors.New("quantity must be a non-negative integer")

	// ErrMissingID is returned when a request carries no item id.
	ErrMissingID = errors.New("item id is required")
)

// StoreName is the storage collection the cart persists into.
const StoreName = "cart"
