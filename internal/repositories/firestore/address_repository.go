package firestore

import (
	"context"
	"errors"
	"strings"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	domain "github.com/swiftbasket/api/internal/domain"
	pfirestore "github.com/swiftbasket/api/internal/platform/firestore"
)

const (
	actorsCollection    = "actors"
	addressesCollection = "addresses"
)

type addressDocument struct {
	ActorID string  `firestore:"actorId"`
	Label   string  `firestore:"label,omitempty"`
	Line1   string  `firestore:"line1,omitempty"`
	City    string  `firestore:"city,omitempty"`
	Lat     float64 `firestore:"lat"`
	Lng     float64 `firestore:"lng"`
}

// AddressRepository stores destinations under actors/{actorId}/addresses/{id}.
type AddressRepository struct {
	provider *pfirestore.Provider
}

// NewAddressRepository constructs a Firestore-backed address repository.
func NewAddressRepository(provider *pfirestore.Provider) (*AddressRepository, error) {
	if provider == nil {
		return nil, errors.New("address repository requires firestore provider")
	}
	return &AddressRepository{provider: provider}, nil
}

func (r *AddressRepository) addressesRef(ctx context.Context, actorID string) (*firestore.CollectionRef, error) {
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return nil, pfirestore.WrapError("addresses.ref", errors.New("actor id is required"))
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Collection(actorsCollection).Doc(actorID).Collection(addressesCollection), nil
}

// Upsert writes the address under the actor, allocating an id when absent.
func (r *AddressRepository) Upsert(ctx context.Context, address domain.Address) (domain.Address, error) {
	coll, err := r.addressesRef(ctx, address.ActorID)
	if err != nil {
		return domain.Address{}, err
	}

	ref := coll.NewDoc()
	if strings.TrimSpace(address.ID) != "" {
		ref = coll.Doc(address.ID)
	}
	address.ID = ref.ID

	doc := addressDocument{
		ActorID: address.ActorID,
		Label:   address.Label,
		Line1:   address.Line1,
		City:    address.City,
		Lat:     address.Lat,
		Lng:     address.Lng,
	}
	if _, err := ref.Set(ctx, doc); err != nil {
		return domain.Address{}, pfirestore.WrapError("addresses.upsert", err)
	}
	return address, nil
}

// Delete removes the address. Missing documents are not an error.
func (r *AddressRepository) Delete(ctx context.Context, actorID, addressID string) error {
	coll, err := r.addressesRef(ctx, actorID)
	if err != nil {
		return err
	}
	if strings.TrimSpace(addressID) == "" {
		return pfirestore.WrapError("addresses.delete", errors.New("address id is required"))
	}
	if _, err := coll.Doc(addressID).Delete(ctx); err != nil {
		return pfirestore.WrapError("addresses.delete", err)
	}
	return nil
}

// FindByID loads one of the actor's addresses.
func (r *AddressRepository) FindByID(ctx context.Context, actorID, addressID string) (domain.Address, error) {
	coll, err := r.addressesRef(ctx, actorID)
	if err != nil {
		return domain.Address{}, err
	}
	if strings.TrimSpace(addressID) == "" {
		return domain.Address{}, pfirestore.WrapError("addresses.find", errors.New("address id is required"))
	}

	snapshot, err := coll.Doc(addressID).Get(ctx)
	if err != nil {
		return domain.Address{}, pfirestore.WrapError("addresses.find", err)
	}

	var doc addressDocument
	if err := snapshot.DataTo(&doc); err != nil {
		return domain.Address{}, pfirestore.WrapError("addresses.decode", err)
	}
	return domain.Address{
		ID:      snapshot.Ref.ID,
		ActorID: doc.ActorID,
		Label:   doc.Label,
		Line1:   doc.Line1,
		City:    doc.City,
		Lat:     doc.Lat,
		Lng:     doc.Lng,
	}, nil
}

// ListByActor returns every stored address for the actor.
func (r *AddressRepository) ListByActor(ctx context.Context, actorID string) ([]domain.Address, error) {
	coll, err := r.addressesRef(ctx, actorID)
	if err != nil {
		return nil, err
	}

	iter := coll.Documents(ctx)
	defer iter.Stop()

	var addresses []domain.Address
	for {
		snapshot, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, pfirestore.WrapError("addresses.list", err)
		}

		var doc addressDocument
		if err := snapshot.DataTo(&doc); err != nil {
			return nil, pfirestore.WrapError("addresses.decode", err)
		}
		addresses = append(addresses, domain.Address{
			ID:      snapshot.Ref.ID,
			ActorID: doc.ActorID,
			Label:   doc.Label,
			Line1:   doc.Line1,
			City:    doc.City,
			Lat:     doc.Lat,
			Lng:     doc.Lng,
		})
	}
	return addresses, nil
}
