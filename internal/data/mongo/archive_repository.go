// Package mongo implements the long-term movement archive on MongoDB.
// Events arrive through Kafka after a movement reaches a terminal status,
// so the archive trails the system of record by the pipeline's latency.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mybankaccount-ledger/internal/domain/movement"
)

const (
	// ArchiveCollectionName is the name of the movement archive collection in MongoDB
	ArchiveCollectionName = "movement_archive"
)

// archiveDocument is the BSON shape of an archived movement event. Amounts
// are stored as strings; decimal.Decimal has no native BSON representation.
type archiveDocument struct {
	Reference         string     `bson:"reference"`
	Kind              string     `bson:"kind"`
	Status            string     `bson:"status"`
	FromAccountNumber string     `bson:"from_account_number,omitempty"`
	ToAccountNumber   string     `bson:"to_account_number,omitempty"`
	Amount            string     `bson:"amount"`
	Fee               string     `bson:"fee"`
	Currency          string     `bson:"currency"`
	Description       string     `bson:"description,omitempty"`
	FailureReason     string     `bson:"failure_reason,omitempty"`
	CorrelationID     string     `bson:"correlation_id,omitempty"`
	CreatedAt         time.Time  `bson:"created_at"`
	ProcessedAt       *time.Time `bson:"processed_at,omitempty"`
	ArchivedAt        time.Time  `bson:"archived_at"`
}

func toDocument(event *movement.Event) *archiveDocument {
	return &archiveDocument{
		Reference:         event.Reference,
		Kind:              string(event.Kind),
		Status:            string(event.Status),
		FromAccountNumber: event.FromAccountNumber,
		ToAccountNumber:   event.ToAccountNumber,
		Amount:            event.Amount.String(),
		Fee:               event.Fee.String(),
		Currency:          event.Currency,
		Description:       event.Description,
		FailureReason:     event.FailureReason,
		CorrelationID:     event.CorrelationID,
		CreatedAt:         event.CreatedAt,
		ProcessedAt:       event.ProcessedAt,
		ArchivedAt:        time.Now(),
	}
}

func (d *archiveDocument) toEvent() (*movement.Event, error) {
	amount, err := decimal.NewFromString(d.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid archived amount %q: %w", d.Amount, err)
	}
	fee, err := decimal.NewFromString(d.Fee)
	if err != nil {
		return nil, fmt.Errorf("invalid archived fee %q: %w", d.Fee, err)
	}

	return &movement.Event{
		Reference:         d.Reference,
		Kind:              movement.Kind(d.Kind),
		Status:            movement.Status(d.Status),
		FromAccountNumber: d.FromAccountNumber,
		ToAccountNumber:   d.ToAccountNumber,
		Amount:            amount,
		Fee:               fee,
		Currency:          d.Currency,
		Description:       d.Description,
		FailureReason:     d.FailureReason,
		CorrelationID:     d.CorrelationID,
		CreatedAt:         d.CreatedAt,
		ProcessedAt:       d.ProcessedAt,
	}, nil
}

// ArchiveRepository implements the movement.ArchiveRepository interface for MongoDB
type ArchiveRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewArchiveRepository creates a new MongoDB movement archive repository
func NewArchiveRepository(logger *slog.Logger, db *mongo.Database) movement.ArchiveRepository {
	return &ArchiveRepository{
		db:     db,
		logger: logger,
	}
}

// Upsert stores an event keyed by reference, replacing any previous version
// so redelivered events stay idempotent.
func (r *ArchiveRepository) Upsert(ctx context.Context, event *movement.Event) error {
	collection := r.db.Collection(ArchiveCollectionName)

	filter := bson.M{"reference": event.Reference}
	opts := options.Replace().SetUpsert(true)

	_, err := collection.ReplaceOne(ctx, filter, toDocument(event), opts)
	if err != nil {
		r.logger.Error("Failed to archive movement event",
			"reference", event.Reference,
			"error", err)
		return fmt.Errorf("failed to archive movement event: %w", err)
	}

	return nil
}

// GetByReference retrieves an archived event by its movement reference.
// Returns ErrMovementNotFound if nothing has been archived under it.
func (r *ArchiveRepository) GetByReference(ctx context.Context, reference string) (*movement.Event, error) {
	collection := r.db.Collection(ArchiveCollectionName)

	filter := bson.M{"reference": reference}
	var doc archiveDocument
	err := collection.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, movement.ErrMovementNotFound{Reference: reference}
		}
		r.logger.Error("Failed to get archived movement event",
			"reference", reference,
			"error", err)
		return nil, fmt.Errorf("failed to get archived movement event: %w", err)
	}

	return doc.toEvent()
}

// ListForAccount retrieves paginated archived events touching the account,
// newest first, narrowed by the filter.
func (r *ArchiveRepository) ListForAccount(ctx context.Context, accountNumber string, filter movement.Filter, limit, offset int) ([]*movement.Event, error) {
	collection := r.db.Collection(ArchiveCollectionName)

	opts := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, accountFilter(accountNumber, filter), opts)
	if err != nil {
		r.logger.Error("Failed to list archived movement events",
			"account_number", accountNumber,
			"error", err)
		return nil, fmt.Errorf("failed to list archived movement events: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []*archiveDocument
	if err := cursor.All(ctx, &docs); err != nil {
		r.logger.Error("Failed to decode archived movement events",
			"account_number", accountNumber,
			"error", err)
		return nil, fmt.Errorf("failed to decode archived movement events: %w", err)
	}

	events := make([]*movement.Event, 0, len(docs))
	for _, doc := range docs {
		event, err := doc.toEvent()
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	return events, nil
}

// CountForAccount counts archived events touching the account under the filter
func (r *ArchiveRepository) CountForAccount(ctx context.Context, accountNumber string, filter movement.Filter) (int64, error) {
	collection := r.db.Collection(ArchiveCollectionName)

	count, err := collection.CountDocuments(ctx, accountFilter(accountNumber, filter))
	if err != nil {
		r.logger.Error("Failed to count archived movement events",
			"account_number", accountNumber,
			"error", err)
		return 0, fmt.Errorf("failed to count archived movement events: %w", err)
	}

	return count, nil
}

// accountFilter builds the BSON query for events touching an account on
// either side, narrowed by the optional status, kind, and time window.
func accountFilter(accountNumber string, filter movement.Filter) bson.M {
	query := bson.M{
		"$or": bson.A{
			bson.M{"from_account_number": accountNumber},
			bson.M{"to_account_number": accountNumber},
		},
	}

	if filter.Status != "" {
		query["status"] = string(filter.Status)
	}
	if filter.Kind != "" {
		query["kind"] = string(filter.Kind)
	}

	window := bson.M{}
	if !filter.From.IsZero() {
		window["$gte"] = filter.From
	}
	if !filter.To.IsZero() {
		window["$lt"] = filter.To
	}
	if len(window) > 0 {
		query["created_at"] = window
	}

	return query
}
