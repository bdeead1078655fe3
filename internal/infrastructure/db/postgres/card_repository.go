package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/effectivemobile/bank-cards/internal/core/domain"
	"github.com/effectivemobile/bank-cards/internal/core/ports"
)

const cardColumns = `c.id, c.pan_encrypted, c.pan_last4, c.owner_id, c.expiry, c.status, c.balance::text, c.created_at, c.updated_at`

// CardRepository implements ports.CardRepository on the cards table.
// Balances travel as text to keep NUMERIC exact on both sides.
type CardRepository struct {
	q    querier
	lock bool // append FOR UPDATE to single-card reads
}

// NewCardRepository returns a repository for reads outside transactions.
func NewCardRepository(pool *pgxpool.Pool) *CardRepository {
	return &CardRepository{q: pool}
}

var _ ports.CardRepository = (*CardRepository)(nil)

func (r *CardRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	return r.findOne(ctx, `SELECT `+cardColumns+` FROM cards c WHERE c.id = $1`, id)
}

func (r *CardRepository) FindByIDAndOwner(ctx context.Context, id, ownerID uuid.UUID) (*domain.Card, error) {
	return r.findOne(ctx, `SELECT `+cardColumns+` FROM cards c WHERE c.id = $1 AND c.owner_id = $2`, id, ownerID)
}

func (r *CardRepository) findOne(ctx context.Context, query string, args ...any) (*domain.Card, error) {
	if r.lock {
		query += ` FOR UPDATE`
	}
	card, err := scanCard(r.q.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrCardNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find card: %w", err)
	}
	return card, nil
}

func (r *CardRepository) List(ctx context.Context, f ports.CardFilter) ([]*domain.Card, int64, error) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	from := ` FROM cards c`
	if f.OwnerID != nil {
		conds = append(conds, "c.owner_id = "+arg(*f.OwnerID))
	}
	if f.Status != nil {
		conds = append(conds, "c.status = "+arg(string(*f.Status)))
	}
	if f.OwnerUsername != "" {
		from += ` JOIN users u ON u.id = c.owner_id`
		conds = append(conds, `u.username ILIKE '%' || `+arg(escapeLike(f.OwnerUsername))+` || '%'`)
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int64
	if err := r.q.QueryRow(ctx, `SELECT count(*)`+from+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count cards: %w", err)
	}

	query := `SELECT ` + cardColumns + from + where +
		` ORDER BY c.created_at, c.id LIMIT ` + arg(f.Page.Limit) + ` OFFSET ` + arg(f.Page.Offset())
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()

	cards := make([]*domain.Card, 0, f.Page.Limit)
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan card: %w", err)
		}
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list cards: %w", err)
	}
	return cards, total, nil
}

func (r *CardRepository) Create(ctx context.Context, card *domain.Card) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO cards (id, pan_encrypted, pan_last4, owner_id, expiry, status, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8, $9)`,
		card.ID, card.PANEncrypted, card.PANLast4, card.OwnerID, card.Expiry,
		string(card.Status), card.Balance.StringFixed(domain.BalanceScale), card.CreatedAt, card.UpdatedAt)
	if pgCode(err) == pgForeignKeyViolation {
		return domain.ErrUserNotFound
	}
	if err != nil {
		return balanceWriteError(err, "insert card")
	}
	return nil
}

func (r *CardRepository) Save(ctx context.Context, card *domain.Card) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE cards SET status = $2, balance = $3::numeric, updated_at = $4
		WHERE id = $1`,
		card.ID, string(card.Status), card.Balance.StringFixed(domain.BalanceScale), card.UpdatedAt)
	if err != nil {
		return balanceWriteError(err, "update card")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCardNotFound
	}
	return nil
}

// balanceWriteError translates constraint failures on the balance column.
// The non-negative check becomes ErrInsufficientFunds; a value that does not
// fit NUMERIC(19,2) is a caller error.
func balanceWriteError(err error, op string) error {
	switch pgCode(err) {
	case pgCheckViolation:
		return domain.ErrInsufficientFunds
	case pgNumericOutOfRange:
		return domain.ErrAmountOutOfRange
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (r *CardRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM cards WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete card: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCardNotFound
	}
	return nil
}

func (r *CardRepository) CountByStatus(ctx context.Context) (map[domain.CardStatus]int64, error) {
	rows, err := r.q.Query(ctx, `SELECT status, count(*) FROM cards GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count cards by status: %w", err)
	}
	defer rows.Close()

	out := make(map[domain.CardStatus]int64, len(domain.CardStatuses))
	for rows.Next() {
		var (
			status string
			n      int64
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan card count: %w", err)
		}
		out[domain.CardStatus(status)] = n
	}
	return out, rows.Err()
}

func scanCard(row pgx.Row) (*domain.Card, error) {
	var (
		c       domain.Card
		status  string
		balance string
	)
	if err := row.Scan(&c.ID, &c.PANEncrypted, &c.PANLast4, &c.OwnerID, &c.Expiry, &status, &balance, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	amount, err := decimal.NewFromString(balance)
	if err != nil {
		return nil, fmt.Errorf("parse balance %q: %w", balance, err)
	}
	c.Status = domain.CardStatus(status)
	c.Balance = amount
	return &c, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike neutralises LIKE wildcards in user input.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
