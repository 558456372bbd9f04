package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/swiftbasket/api/internal/domain"
	pfirestore "github.com/swiftbasket/api/internal/platform/firestore"
)

const (
	negotiationsCollection       = "negotiations"
	negotiationRecordsCollection = "records"
)

type negotiationAttemptDocument struct {
	Amount        float64   `firestore:"amount"`
	AttemptNumber int       `firestore:"attemptNumber"`
	Success       bool      `firestore:"success"`
	At            time.Time `firestore:"at"`
}

type negotiationDocument struct {
	ActorID   string                       `firestore:"actorId"`
	ProductID string                       `firestore:"productId"`
	Attempts  []negotiationAttemptDocument `firestore:"attempts"`
	UpdatedAt time.Time                    `firestore:"updatedAt"`
}

// NegotiationRepository stores attempt histories under
// negotiations/{actorId}/records/{productId}.
type NegotiationRepository struct {
	provider *pfirestore.Provider
}

// NewNegotiationRepository constructs a Firestore-backed negotiation repository.
func NewNegotiationRepository(provider *pfirestore.Provider) (*NegotiationRepository, error) {
	if provider == nil {
		return nil, errors.New("negotiation repository requires firestore provider")
	}
	return &NegotiationRepository{provider: provider}, nil
}

func (r *NegotiationRepository) recordRef(ctx context.Context, actorID, productID string) (*firestore.DocumentRef, error) {
	actorID = strings.TrimSpace(actorID)
	productID = strings.TrimSpace(productID)
	if actorID == "" || productID == "" {
		return nil, pfirestore.WrapError("negotiations.ref", errors.New("actor id and product id are required"))
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Collection(negotiationsCollection).
		Doc(actorID).
		Collection(negotiationRecordsCollection).
		Doc(productID), nil
}

// Find loads the attempt history for (actor, product).
func (r *NegotiationRepository) Find(ctx context.Context, actorID, productID string) (domain.NegotiationRecord, error) {
	ref, err := r.recordRef(ctx, actorID, productID)
	if err != nil {
		return domain.NegotiationRecord{}, err
	}

	snapshot, err := ref.Get(ctx)
	if err != nil {
		return domain.NegotiationRecord{}, pfirestore.WrapError("negotiations.find", err)
	}

	var doc negotiationDocument
	if err := snapshot.DataTo(&doc); err != nil {
		return domain.NegotiationRecord{}, pfirestore.WrapError("negotiations.decode", err)
	}

	record := domain.NegotiationRecord{
		ActorID:   doc.ActorID,
		ProductID: doc.ProductID,
		UpdatedAt: doc.UpdatedAt,
	}
	for _, attempt := range doc.Attempts {
		record.Attempts = append(record.Attempts, domain.NegotiationAttempt(attempt))
	}
	return record, nil
}

// Save overwrites the attempt history for (actor, product).
func (r *NegotiationRepository) Save(ctx context.Context, record domain.NegotiationRecord) error {
	ref, err := r.recordRef(ctx, record.ActorID, record.ProductID)
	if err != nil {
		return err
	}

	doc := negotiationDocument{
		ActorID:   record.ActorID,
		ProductID: record.ProductID,
		UpdatedAt: record.UpdatedAt,
	}
	for _, attempt := range record.Attempts {
		doc.Attempts = append(doc.Attempts, negotiationAttemptDocument(attempt))
	}

	if _, err := ref.Set(ctx, doc); err != nil {
		return pfirestore.WrapError("negotiations.save", err)
	}
	return nil
}
