package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/effectivemobile/bank-cards/internal/core/domain"
	"github.com/effectivemobile/bank-cards/internal/core/ports"
)

const ledgerEventsCollection = "ledger_events"

// ledgerEventDoc is the stored shape of a journal entry. Money is kept as
// Decimal128 so the journal never round-trips through floating point.
type ledgerEventDoc struct {
	EventID        string               `bson:"event_id"`
	Type           string               `bson:"type"`
	CardID         string               `bson:"card_id"`
	OwnerID        string               `bson:"owner_id"`
	CounterpartyID string               `bson:"counterparty_id,omitempty"`
	Amount         primitive.Decimal128 `bson:"amount"`
	Status         string               `bson:"status"`
	BalanceAfter   primitive.Decimal128 `bson:"balance_after"`
	ActorID        string               `bson:"actor_id,omitempty"`
	OccurredAt     time.Time            `bson:"occurred_at"`
	RecordedAt     time.Time            `bson:"recorded_at"`
}

// AuditRepository implements ports.AuditRepository using MongoDB.
type AuditRepository struct {
	coll *mongo.Collection
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(db *mongo.Database) *AuditRepository {
	return &AuditRepository{coll: db.Collection(ledgerEventsCollection)}
}

var _ ports.AuditRepository = (*AuditRepository)(nil)

// EnsureIndexes creates the unique event id index and the per-card history indexes.
func (r *AuditRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "event_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "card_id", Value: 1}, {Key: "occurred_at", Value: -1}}},
		{Keys: bson.D{{Key: "counterparty_id", Value: 1}, {Key: "occurred_at", Value: -1}}, Options: options.Index().SetSparse(true)},
	})
	if err != nil {
		return fmt.Errorf("ensure ledger_events indexes: %w", err)
	}
	return nil
}

// Insert stores ev. A duplicate event id is treated as already journaled.
func (r *AuditRepository) Insert(ctx context.Context, ev domain.LedgerEvent) error {
	doc, err := toEventDoc(ev)
	if err != nil {
		return err
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("insert ledger event: %w", err)
	}
	return nil
}

// ListByCard returns events where the card is either leg, newest first.
func (r *AuditRepository) ListByCard(ctx context.Context, cardID uuid.UUID, limit int) ([]domain.LedgerEvent, error) {
	id := cardID.String()
	filter := bson.M{"$or": bson.A{
		bson.M{"card_id": id},
		bson.M{"counterparty_id": id},
	}}
	opts := options.Find().
		SetSort(bson.D{{Key: "occurred_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find ledger events: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []ledgerEventDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode ledger events: %w", err)
	}

	out := make([]domain.LedgerEvent, 0, len(docs))
	for _, d := range docs {
		ev, err := d.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, nil
}

func toEventDoc(ev domain.LedgerEvent) (ledgerEventDoc, error) {
	amount, err := primitive.ParseDecimal128(ev.Amount.String())
	if err != nil {
		return ledgerEventDoc{}, fmt.Errorf("encode amount: %w", err)
	}
	balance, err := primitive.ParseDecimal128(ev.BalanceAfter.String())
	if err != nil {
		return ledgerEventDoc{}, fmt.Errorf("encode balance: %w", err)
	}
	doc := ledgerEventDoc{
		EventID:      ev.ID.String(),
		Type:         string(ev.Type),
		CardID:       ev.CardID.String(),
		OwnerID:      ev.OwnerID.String(),
		Amount:       amount,
		Status:       string(ev.Status),
		BalanceAfter: balance,
		OccurredAt:   ev.OccurredAt.UTC(),
		RecordedAt:   time.Now().UTC(),
	}
	if ev.CounterpartyID != uuid.Nil {
		doc.CounterpartyID = ev.CounterpartyID.String()
	}
	if ev.ActorID != uuid.Nil {
		doc.ActorID = ev.ActorID.String()
	}
	return doc, nil
}

func (d ledgerEventDoc) toDomain() (domain.LedgerEvent, error) {
	ev := domain.LedgerEvent{
		Type:       domain.LedgerEventType(d.Type),
		Status:     domain.CardStatus(d.Status),
		OccurredAt: d.OccurredAt,
	}
	var err error
	if ev.ID, err = uuid.Parse(d.EventID); err != nil {
		return ev, fmt.Errorf("decode event_id: %w", err)
	}
	if ev.CardID, err = uuid.Parse(d.CardID); err != nil {
		return ev, fmt.Errorf("decode card_id: %w", err)
	}
	if ev.OwnerID, err = uuid.Parse(d.OwnerID); err != nil {
		return ev, fmt.Errorf("decode owner_id: %w", err)
	}
	if d.CounterpartyID != "" {
		if ev.CounterpartyID, err = uuid.Parse(d.CounterpartyID); err != nil {
			return ev, fmt.Errorf("decode counterparty_id: %w", err)
		}
	}
	if d.ActorID != "" {
		if ev.ActorID, err = uuid.Parse(d.ActorID); err != nil {
			return ev, fmt.Errorf("decode actor_id: %w", err)
		}
	}
	if ev.Amount, err = decimal.NewFromString(d.Amount.String()); err != nil {
		return ev, fmt.Errorf("decode amount: %w", err)
	}
	if ev.BalanceAfter, err = decimal.NewFromString(d.BalanceAfter.String()); err != nil {
		return ev, fmt.Errorf("decode balance_after: %w", err)
	}
	return ev, nil
}
