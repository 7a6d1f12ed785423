package domain

import (
	"strings"
	"time"
)

// OwnerKind distinguishes authenticated users from anonymous browser sessions.
type OwnerKind string

const (
	// OwnerKindUser marks carts and orders belonging to an authenticated user.
	OwnerKindUser OwnerKind = "user"
	// OwnerKindAnonymous marks carts and orders keyed by an anonymous session token.
	OwnerKindAnonymous OwnerKind = "anonymous"
)

// Valid reports whether the kind is one of the supported owner kinds.
func (k OwnerKind) Valid() bool {
	return k == OwnerKindUser || k == OwnerKindAnonymous
}

// Owner identifies who a cart or order belongs to.
type Owner struct {
	Kind OwnerKind
	ID   string
}

// Key renders the owner as a stable datastore key segment.
func (o Owner) Key() string {
	return string(o.Kind) + ":" + o.ID
}

// IsZero reports whether the owner carries no identity.
func (o Owner) IsZero() bool {
	return strings.TrimSpace(o.ID) == "" && o.Kind == ""
}

// CartLine is a single product entry in an owner's cart. Lines are created and
// mutated by the cart endpoints; checkout only reads them and deletes them
// after a successful order insert.
type CartLine struct {
	ID            string
	Owner         Owner
	ProductRef    string
	ProductName   string
	ProductBrand  string
	Size          string
	Quantity      int64
	UnitPriceBase float64
	ImageRef      string
	AddedAt       time.Time
}

// OrderStatus enumerates the lifecycle states of an order. Confirmation only
// ever creates orders in the paid state; later states belong to fulfilment
// flows outside this service.
type OrderStatus string

// OrderStatusPaid marks an order whose checkout session was paid at the gateway.
const OrderStatusPaid OrderStatus = "paid"

// PostalAddress carries the address fields echoed back by the payment gateway.
type PostalAddress struct {
	Line1      string
	Line2      string
	City       string
	State      string
	PostalCode string
	Country    string
}

// OrderContact snapshots customer or shipping contact details from the
// gateway session at confirmation time.
type OrderContact struct {
	Name    string
	Email   string
	Phone   string
	Address *PostalAddress
}

// OrderLineItem is the denormalised snapshot of a cart line at the moment the
// order was confirmed.
type OrderLineItem struct {
	ProductRef    string
	Name          string
	Brand         string
	Size          string
	Quantity      int64
	UnitPriceBase float64
	ImageRef      string
}

// Order is the durable ledger record created exactly once per checkout
// session. StripeSessionID is unique across all orders; that uniqueness is
// the only cross-request coordination the confirmation flow relies on.
type Order struct {
	ID              string
	Owner           Owner
	StripeSessionID string
	Currency        string
	AmountBase      float64
	Status          OrderStatus
	Customer        *OrderContact
	Shipping        *OrderContact
	ShipTo          string
	Items           []OrderLineItem
	CreatedAt       time.Time
}
