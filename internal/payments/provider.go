package payments

import (
	"context"
	"errors"
)

// PaymentStatus enumerates the normalised session payment states shared across providers.
type PaymentStatus string

const (
	// PaymentStatusUnpaid indicates the session has not been paid yet.
	PaymentStatusUnpaid PaymentStatus = "unpaid"
	// PaymentStatusPaid indicates the gateway reports the session as paid.
	PaymentStatusPaid PaymentStatus = "paid"
	// PaymentStatusNone indicates the session required no payment.
	PaymentStatusNone PaymentStatus = "no_payment_required"
)

// ErrSessionNotFound is returned when the gateway does not know the session id.
var ErrSessionNotFound = errors.New("payments: checkout session not found")

// CheckoutLineItem describes a single line item to include in a checkout session.
type CheckoutLineItem struct {
	Name        string
	Description string
	ImageURL    string
	Quantity    int64
	UnitAmount  int64
	Currency    string
}

// CreateSessionRequest captures the payload required to create a checkout session.
type CreateSessionRequest struct {
	Items             []CheckoutLineItem
	SuccessURL        string
	CancelURL         string
	Metadata          map[string]string
	ShippingCountries []string
	CollectPhone      bool
}

// CheckoutSession is the gateway session handed back to the client for redirect.
type CheckoutSession struct {
	ID  string
	URL string
}

// ContactDetails normalises the customer or shipping contact echoed by the gateway.
type ContactDetails struct {
	Name       string
	Email      string
	Phone      string
	Line1      string
	Line2      string
	City       string
	State      string
	PostalCode string
	Country    string
}

// SessionDetails is the authoritative gateway-side view of a checkout session.
type SessionDetails struct {
	ID            string
	PaymentStatus PaymentStatus
	Currency      string
	AmountTotal   int64
	Metadata      map[string]string
	Customer      *ContactDetails
	Shipping      *ContactDetails
}

// Provider defines the contract the checkout flows require from a payment gateway.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, req CreateSessionRequest) (CheckoutSession, error)
	RetrieveCheckoutSession(ctx context.Context, sessionID string) (SessionDetails, error)
}
