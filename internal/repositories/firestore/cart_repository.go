package firestore

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	domain "github.com/threadline-shop/api/internal/domain"
	pfirestore "github.com/threadline-shop/api/internal/platform/firestore"
)

const (
	cartCollection      = "carts"
	cartItemsCollection = "items"
)

type cartLineDocument struct {
	ProductRef    string    `firestore:"productRef"`
	ProductName   string    `firestore:"productName"`
	Brand         string    `firestore:"brand,omitempty"`
	Size          string    `firestore:"size,omitempty"`
	Quantity      int64     `firestore:"quantity"`
	UnitPriceBase float64   `firestore:"unitPriceBase"`
	ImageRef      string    `firestore:"imageRef,omitempty"`
	AddedAt       time.Time `firestore:"addedAt"`
}

// CartRepository reads and clears cart line documents. Lines live in an
// items subcollection under a per-owner cart document so an owner's cart
// can be listed and deleted without touching other carts.
type CartRepository struct {
	provider *pfirestore.Provider
}

// NewCartRepository constructs a Firestore-backed cart repository.
func NewCartRepository(provider *pfirestore.Provider) (*CartRepository, error) {
	if provider == nil {
		return nil, errors.New("cart repository requires firestore provider")
	}
	return &CartRepository{provider: provider}, nil
}

// ListLines returns the owner's cart lines ordered by when they were added.
func (r *CartRepository) ListLines(ctx context.Context, owner domain.Owner) ([]domain.CartLine, error) {
	items, err := r.itemsRef(ctx, owner)
	if err != nil {
		return nil, err
	}

	iter := items.OrderBy("addedAt", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var lines []domain.CartLine
	for {
		snapshot, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, pfirestore.WrapError("carts.list", err)
		}

		var doc cartLineDocument
		if err := snapshot.DataTo(&doc); err != nil {
			return nil, pfirestore.WrapError("carts.decode", err)
		}
		lines = append(lines, domain.CartLine{
			ID:            snapshot.Ref.ID,
			Owner:         owner,
			ProductRef:    doc.ProductRef,
			ProductName:   doc.ProductName,
			ProductBrand:  doc.Brand,
			Size:          doc.Size,
			Quantity:      doc.Quantity,
			UnitPriceBase: doc.UnitPriceBase,
			ImageRef:      doc.ImageRef,
			AddedAt:       doc.AddedAt,
		})
	}
	return lines, nil
}

// DeleteLines removes every line in the owner's cart. An already-empty cart
// is not an error.
func (r *CartRepository) DeleteLines(ctx context.Context, owner domain.Owner) error {
	items, err := r.itemsRef(ctx, owner)
	if err != nil {
		return err
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return err
	}

	iter := items.Select().Documents(ctx)
	defer iter.Stop()

	writer := client.BulkWriter(ctx)
	for {
		snapshot, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			writer.End()
			return pfirestore.WrapError("carts.delete", err)
		}
		if _, err := writer.Delete(snapshot.Ref); err != nil {
			writer.End()
			return pfirestore.WrapError("carts.delete", err)
		}
	}
	writer.End()
	return nil
}

func (r *CartRepository) itemsRef(ctx context.Context, owner domain.Owner) (*firestore.CollectionRef, error) {
	if r == nil || r.provider == nil {
		return nil, pfirestore.WrapError("carts", errors.New("firestore: provider is nil"))
	}
	if owner.IsZero() || !owner.Kind.Valid() {
		return nil, pfirestore.WrapError("carts", errors.New("firestore: owner is required"))
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Collection(cartCollection).Doc(owner.Key()).Collection(cartItemsCollection), nil
}
