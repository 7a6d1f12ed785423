package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/threadline-shop/api/internal/domain"
	pfirestore "github.com/threadline-shop/api/internal/platform/firestore"
	"github.com/threadline-shop/api/internal/repositories"
)

const orderCollection = "orders"

type orderAddressDocument struct {
	Line1      string `firestore:"line1,omitempty"`
	Line2      string `firestore:"line2,omitempty"`
	City       string `firestore:"city,omitempty"`
	State      string `firestore:"state,omitempty"`
	PostalCode string `firestore:"postalCode,omitempty"`
	Country    string `firestore:"country,omitempty"`
}

type orderContactDocument struct {
	Name    string                `firestore:"name,omitempty"`
	Email   string                `firestore:"email,omitempty"`
	Phone   string                `firestore:"phone,omitempty"`
	Address *orderAddressDocument `firestore:"address,omitempty"`
}

type orderLineItemDocument struct {
	ProductRef    string  `firestore:"productRef"`
	Name          string  `firestore:"name"`
	Brand         string  `firestore:"brand,omitempty"`
	Size          string  `firestore:"size,omitempty"`
	Quantity      int64   `firestore:"quantity"`
	UnitPriceBase float64 `firestore:"unitPriceBase"`
	ImageRef      string  `firestore:"imageRef,omitempty"`
}

type orderDocument struct {
	ID              string                  `firestore:"id"`
	OwnerKind       string                  `firestore:"ownerKind"`
	OwnerID         string                  `firestore:"ownerId"`
	StripeSessionID string                  `firestore:"stripeSessionId"`
	Currency        string                  `firestore:"currency"`
	AmountBase      float64                 `firestore:"amountBase"`
	Status          string                  `firestore:"status"`
	Customer        *orderContactDocument   `firestore:"customer,omitempty"`
	Shipping        *orderContactDocument   `firestore:"shipping,omitempty"`
	ShipTo          string                  `firestore:"shipTo,omitempty"`
	Items           []orderLineItemDocument `firestore:"items"`
	CreatedAt       time.Time               `firestore:"createdAt"`
}

// OrderRepository persists the order ledger. The checkout session id doubles
// as the document id, so a plain create is the uniqueness constraint: the
// second insert for a session fails with AlreadyExists and surfaces as a
// conflict to the service layer.
type OrderRepository struct {
	base *pfirestore.BaseRepository[orderDocument]
}

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	return &OrderRepository{
		base: pfirestore.NewBaseRepository[orderDocument](provider, orderCollection, nil),
	}, nil
}

// Insert creates the order keyed by its checkout session id.
func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) (domain.Order, error) {
	sessionID := strings.TrimSpace(order.StripeSessionID)
	if sessionID == "" {
		return domain.Order{}, errors.New("order repository: session id is required")
	}
	if strings.TrimSpace(order.ID) == "" {
		return domain.Order{}, errors.New("order repository: order id is required")
	}

	doc := encodeOrder(order)
	if _, err := r.base.Create(ctx, sessionID, doc); err != nil {
		return domain.Order{}, err
	}
	return decodeOrder(sessionID, doc), nil
}

// FindBySessionID returns the order created for a checkout session.
func (r *OrderRepository) FindBySessionID(ctx context.Context, sessionID string) (domain.Order, error) {
	doc, err := r.base.Get(ctx, strings.TrimSpace(sessionID))
	if err != nil {
		return domain.Order{}, err
	}
	return decodeOrder(doc.ID, doc.Data), nil
}

// FindByID looks an order up by its public order id.
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, pfirestore.WrapError("orders.get", errors.New("firestore: order id is required"))
	}

	docs, err := r.base.Query(ctx, func(query firestore.Query) firestore.Query {
		return query.Where("id", "==", orderID).Limit(1)
	})
	if err != nil {
		return domain.Order{}, err
	}
	if len(docs) == 0 {
		return domain.Order{}, repositories.NewNotFoundError("orders.get", "order "+orderID)
	}
	return decodeOrder(docs[0].ID, docs[0].Data), nil
}

// ListByOwner returns the owner's orders, newest first.
func (r *OrderRepository) ListByOwner(ctx context.Context, owner domain.Owner, filter repositories.OrderListFilter) ([]domain.Order, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}

	docs, err := r.base.Query(ctx, func(query firestore.Query) firestore.Query {
		return query.
			Where("ownerKind", "==", string(owner.Kind)).
			Where("ownerId", "==", owner.ID).
			OrderBy("createdAt", firestore.Desc).
			Limit(limit)
	})
	if err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(docs))
	for _, doc := range docs {
		orders = append(orders, decodeOrder(doc.ID, doc.Data))
	}
	return orders, nil
}

func encodeOrder(order domain.Order) orderDocument {
	return orderDocument{
		ID:              order.ID,
		OwnerKind:       string(order.Owner.Kind),
		OwnerID:         order.Owner.ID,
		StripeSessionID: order.StripeSessionID,
		Currency:        order.Currency,
		AmountBase:      order.AmountBase,
		Status:          string(order.Status),
		Customer:        encodeContact(order.Customer),
		Shipping:        encodeContact(order.Shipping),
		ShipTo:          order.ShipTo,
		Items:           encodeItems(order.Items),
		CreatedAt:       order.CreatedAt.UTC(),
	}
}

func decodeOrder(docID string, doc orderDocument) domain.Order {
	sessionID := doc.StripeSessionID
	if sessionID == "" {
		sessionID = docID
	}
	return domain.Order{
		ID:              doc.ID,
		Owner:           domain.Owner{Kind: domain.OwnerKind(doc.OwnerKind), ID: doc.OwnerID},
		StripeSessionID: sessionID,
		Currency:        doc.Currency,
		AmountBase:      doc.AmountBase,
		Status:          domain.OrderStatus(doc.Status),
		Customer:        decodeContact(doc.Customer),
		Shipping:        decodeContact(doc.Shipping),
		ShipTo:          doc.ShipTo,
		Items:           decodeItems(doc.Items),
		CreatedAt:       doc.CreatedAt,
	}
}

func encodeContact(contact *domain.OrderContact) *orderContactDocument {
	if contact == nil {
		return nil
	}
	doc := &orderContactDocument{
		Name:  contact.Name,
		Email: contact.Email,
		Phone: contact.Phone,
	}
	if addr := contact.Address; addr != nil {
		doc.Address = &orderAddressDocument{
			Line1:      addr.Line1,
			Line2:      addr.Line2,
			City:       addr.City,
			State:      addr.State,
			PostalCode: addr.PostalCode,
			Country:    addr.Country,
		}
	}
	return doc
}

func decodeContact(doc *orderContactDocument) *domain.OrderContact {
	if doc == nil {
		return nil
	}
	contact := &domain.OrderContact{
		Name:  doc.Name,
		Email: doc.Email,
		Phone: doc.Phone,
	}
	if addr := doc.Address; addr != nil {
		contact.Address = &domain.PostalAddress{
			Line1:      addr.Line1,
			Line2:      addr.Line2,
			City:       addr.City,
			State:      addr.State,
			PostalCode: addr.PostalCode,
			Country:    addr.Country,
		}
	}
	return contact
}

func encodeItems(items []domain.OrderLineItem) []orderLineItemDocument {
	docs := make([]orderLineItemDocument, 0, len(items))
	for _, item := range items {
		docs = append(docs, orderLineItemDocument{
			ProductRef:    item.ProductRef,
			Name:          item.Name,
			Brand:         item.Brand,
			Size:          item.Size,
			Quantity:      item.Quantity,
			UnitPriceBase: item.UnitPriceBase,
			ImageRef:      item.ImageRef,
		})
	}
	return docs
}

func decodeItems(docs []orderLineItemDocument) []domain.OrderLineItem {
	items := make([]domain.OrderLineItem, 0, len(docs))
	for _, doc := range docs {
		items = append(items, domain.OrderLineItem{
			ProductRef:    doc.ProductRef,
			Name:          doc.Name,
			Brand:         doc.Brand,
			Size:          doc.Size,
			Quantity:      doc.Quantity,
			UnitPriceBase: doc.UnitPriceBase,
			ImageRef:      doc.ImageRef,
		})
	}
	return items
}
