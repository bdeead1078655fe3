package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/effectivemobile/bank-cards/internal/core/domain"
	"github.com/effectivemobile/bank-cards/internal/core/ports"
	"github.com/effectivemobile/bank-cards/internal/pkg/metrics"
)

// LedgerService moves money between cards. Every mutation runs inside one
// storage transaction and publishes its ledger event only after commit.
type LedgerService struct {
	tx     ports.Transactor
	cards  ports.CardRepository
	cipher ports.PANCipher
	events ports.EventPublisher
	now    func() time.Time
	log    zerolog.Logger
}

// NewLedgerService wires the engine. events may be nil when no journal is attached.
func NewLedgerService(
	tx ports.Transactor,
	cards ports.CardRepository,
	cipher ports.PANCipher,
	events ports.EventPublisher,
	log zerolog.Logger,
) *LedgerService {
	return &LedgerService{
		tx:     tx,
		cards:  cards,
		cipher: cipher,
		events: events,
		now:    func() time.Time { return time.Now().UTC() },
		log:    log,
	}
}

var _ ports.LedgerService = (*LedgerService)(nil)

// CreateCard issues an ACTIVE card with a zero balance for an existing user.
func (s *LedgerService) CreateCard(ctx context.Context, in ports.CreateCardInput) (card *domain.Card, err error) {
	defer s.observe("create_card", time.Now(), &err)

	err = s.tx.InTx(ctx, func(ctx context.Context, repos ports.TxRepositories) error {
		if _, err := repos.Users.FindByID(ctx, in.OwnerID); err != nil {
			return err
		}
		token, err := s.cipher.Encrypt(in.PAN)
		if err != nil {
			return err
		}
		now := s.now()
		card = &domain.Card{
			ID:           uuid.New(),
			PANEncrypted: token,
			PANLast4:     domain.Last4(in.PAN),
			OwnerID:      in.OwnerID,
			Expiry:       dateOnly(in.Expiry),
			Status:       domain.CardActive,
			Balance:      decimal.Zero,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		return repos.Cards.Create(ctx, card)
	})
	if err != nil {
		return nil, fmt.Errorf("create card: %w", err)
	}

	s.log.Info().Str("card_id", card.ID.String()).Str("owner_id", card.OwnerID.String()).Msg("card created")
	s.publish(domain.LedgerEvent{
		Type:         domain.EventCardCreated,
		CardID:       card.ID,
		OwnerID:      card.OwnerID,
		Status:       card.Status,
		BalanceAfter: card.Balance,
	})
	return card, nil
}

// ChangeStatus sets the card status unconditionally. Any status may replace
// any other, including itself.
func (s *LedgerService) ChangeStatus(ctx context.Context, cardID uuid.UUID, owner *uuid.UUID, status domain.CardStatus) (card *domain.Card, err error) {
	defer s.observe("change_status", time.Now(), &err)

	if _, err = domain.ParseCardStatus(string(status)); err != nil {
		return nil, fmt.Errorf("change status: %w", err)
	}

	var previous domain.CardStatus
	err = s.tx.InTx(ctx, func(ctx context.Context, repos ports.TxRepositories) error {
		c, err := lockCard(ctx, repos.Cards, cardID, owner)
		if err != nil {
			return err
		}
		previous = c.Status
		c.Status = status
		c.UpdatedAt = s.now()
		if err := repos.Cards.Save(ctx, c); err != nil {
			return err
		}
		card = c
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("change status: %w", err)
	}

	s.log.Info().
		Str("card_id", card.ID.String()).
		Str("from", string(previous)).
		Str("to", string(status)).
		Msg("card status changed")
	s.publish(domain.LedgerEvent{
		Type:         domain.EventStatusChanged,
		CardID:       card.ID,
		OwnerID:      card.OwnerID,
		Status:       card.Status,
		BalanceAfter: card.Balance,
		ActorID:      actorOf(owner),
	})
	return card, nil
}

// TopUp credits a card the owner holds.
func (s *LedgerService) TopUp(ctx context.Context, ownerID, cardID uuid.UUID, amount decimal.Decimal) (card *domain.Card, err error) {
	defer s.observe("top_up", time.Now(), &err)
	return s.topUp(ctx, cardID, &ownerID, amount)
}

// AdminTopUp credits any card.
func (s *LedgerService) AdminTopUp(ctx context.Context, cardID uuid.UUID, amount decimal.Decimal) (card *domain.Card, err error) {
	defer s.observe("admin_top_up", time.Now(), &err)
	return s.topUp(ctx, cardID, nil, amount)
}

func (s *LedgerService) topUp(ctx context.Context, cardID uuid.UUID, owner *uuid.UUID, amount decimal.Decimal) (*domain.Card, error) {
	if err := validateAmount(amount); err != nil {
		return nil, fmt.Errorf("top up: %w", err)
	}

	var card *domain.Card
	err := s.tx.InTx(ctx, func(ctx context.Context, repos ports.TxRepositories) error {
		c, err := lockCard(ctx, repos.Cards, cardID, owner)
		if err != nil {
			return err
		}
		if !c.IsActive() {
			return domain.ErrCardInactive
		}
		c.Balance = c.Balance.Add(amount)
		c.UpdatedAt = s.now()
		if err := repos.Cards.Save(ctx, c); err != nil {
			return err
		}
		card = c
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("top up: %w", err)
	}

	s.log.Info().Str("card_id", card.ID.String()).Str("amount", amount.StringFixed(domain.BalanceScale)).Msg("card topped up")
	s.publish(domain.LedgerEvent{
		Type:         domain.EventToppedUp,
		CardID:       card.ID,
		OwnerID:      card.OwnerID,
		Amount:       amount,
		Status:       card.Status,
		BalanceAfter: card.Balance,
		ActorID:      actorOf(owner),
	})
	return card, nil
}

// Transfer moves amount between two cards of the same owner. Both rows are
// locked in ascending id order so opposite-direction transfers cannot deadlock.
func (s *LedgerService) Transfer(ctx context.Context, in ports.TransferInput) (res *ports.TransferResult, err error) {
	defer s.observe("transfer", time.Now(), &err)

	if err = validateAmount(in.Amount); err != nil {
		return nil, fmt.Errorf("transfer: %w", err)
	}
	if in.FromCardID == in.ToCardID {
		return nil, fmt.Errorf("transfer: %w", domain.ErrSameCard)
	}

	err = s.tx.InTx(ctx, func(ctx context.Context, repos ports.TxRepositories) error {
		first, second := in.FromCardID, in.ToCardID
		if bytes.Compare(first[:], second[:]) > 0 {
			first, second = second, first
		}
		a, err := repos.Cards.FindByIDAndOwner(ctx, first, in.OwnerID)
		if err != nil {
			return err
		}
		b, err := repos.Cards.FindByIDAndOwner(ctx, second, in.OwnerID)
		if err != nil {
			return err
		}
		from, to := a, b
		if from.ID != in.FromCardID {
			from, to = b, a
		}

		if !from.IsActive() || !to.IsActive() {
			return domain.ErrCardInactive
		}
		if from.Balance.LessThan(in.Amount) {
			return domain.ErrInsufficientFunds
		}

		now := s.now()
		from.Balance = from.Balance.Sub(in.Amount)
		from.UpdatedAt = now
		to.Balance = to.Balance.Add(in.Amount)
		to.UpdatedAt = now
		if err := repos.Cards.Save(ctx, from); err != nil {
			return err
		}
		if err := repos.Cards.Save(ctx, to); err != nil {
			return err
		}
		res = &ports.TransferResult{From: from, To: to}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("transfer: %w", err)
	}

	s.log.Info().
		Str("from_card_id", in.FromCardID.String()).
		Str("to_card_id", in.ToCardID.String()).
		Str("amount", in.Amount.StringFixed(domain.BalanceScale)).
		Msg("transfer committed")
	s.publish(domain.LedgerEvent{
		Type:           domain.EventTransferred,
		CardID:         res.From.ID,
		OwnerID:        res.From.OwnerID,
		CounterpartyID: res.To.ID,
		Amount:         in.Amount,
		Status:         res.From.Status,
		BalanceAfter:   res.From.Balance,
		ActorID:        in.OwnerID,
	})
	return res, nil
}

// DeleteByID hard-deletes a card regardless of its balance or status.
func (s *LedgerService) DeleteByID(ctx context.Context, cardID uuid.UUID) (err error) {
	defer s.observe("delete_card", time.Now(), &err)

	var card *domain.Card
	err = s.tx.InTx(ctx, func(ctx context.Context, repos ports.TxRepositories) error {
		c, err := repos.Cards.FindByID(ctx, cardID)
		if err != nil {
			return err
		}
		card = c
		return repos.Cards.DeleteByID(ctx, cardID)
	})
	if err != nil {
		return fmt.Errorf("delete card: %w", err)
	}

	ev := s.log.Info()
	if !card.Balance.IsZero() {
		ev = s.log.Warn().Str("discarded_balance", card.Balance.StringFixed(domain.BalanceScale))
	}
	ev.Str("card_id", cardID.String()).Msg("card deleted")
	s.publish(domain.LedgerEvent{
		Type:         domain.EventCardDeleted,
		CardID:       card.ID,
		OwnerID:      card.OwnerID,
		Status:       card.Status,
		BalanceAfter: card.Balance,
	})
	return nil
}

// ListOwned pages through the owner's cards, optionally narrowed by status.
func (s *LedgerService) ListOwned(ctx context.Context, ownerID uuid.UUID, status *domain.CardStatus, page domain.PageRequest) (*domain.CardPage, error) {
	req := page.Normalize()
	items, total, err := s.cards.List(ctx, ports.CardFilter{OwnerID: &ownerID, Status: status, Page: req})
	if err != nil {
		return nil, fmt.Errorf("list owned cards: %w", err)
	}
	return domain.NewCardPage(items, total, req), nil
}

// ListAll pages through every card. A blank username disables that filter.
func (s *LedgerService) ListAll(ctx context.Context, username string, status *domain.CardStatus, page domain.PageRequest) (*domain.CardPage, error) {
	req := page.Normalize()
	filter := ports.CardFilter{
		Status:        status,
		OwnerUsername: strings.TrimSpace(username),
		Page:          req,
	}
	items, total, err := s.cards.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	return domain.NewCardPage(items, total, req), nil
}

// RevealPAN decrypts the stored card number. The plaintext is never logged.
func (s *LedgerService) RevealPAN(ctx context.Context, cardID uuid.UUID, owner *uuid.UUID) (pan string, err error) {
	defer s.observe("reveal_pan", time.Now(), &err)

	card, err := lockCard(ctx, s.cards, cardID, owner)
	if err != nil {
		return "", fmt.Errorf("reveal pan: %w", err)
	}
	pan, err = s.cipher.Decrypt(card.PANEncrypted)
	if err != nil {
		s.log.Error().Str("card_id", cardID.String()).Msg("stored pan failed to decrypt")
		return "", fmt.Errorf("reveal pan: %w", err)
	}
	s.log.Info().Str("card_id", cardID.String()).Str("actor_id", actorOf(owner).String()).Msg("pan revealed")
	return pan, nil
}

func (s *LedgerService) publish(ev domain.LedgerEvent) {
	if s.events == nil {
		return
	}
	ev.ID = uuid.New()
	ev.OccurredAt = s.now()
	s.events.Publish(ev)
}

func (s *LedgerService) observe(op string, start time.Time, err *error) {
	metrics.LedgerOperationsTotal.WithLabelValues(op, metrics.ResultLabel(*err)).Inc()
	metrics.LedgerOperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// lockCard resolves a card under the caller's scope. A nil owner is an admin.
func lockCard(ctx context.Context, cards ports.CardRepository, id uuid.UUID, owner *uuid.UUID) (*domain.Card, error) {
	if owner == nil {
		return cards.FindByID(ctx, id)
	}
	return cards.FindByIDAndOwner(ctx, id, *owner)
}

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return domain.ErrNonPositiveAmount
	}
	if !amount.Equal(amount.Truncate(domain.BalanceScale)) {
		return domain.ErrAmountScale
	}
	return nil
}

func actorOf(owner *uuid.UUID) uuid.UUID {
	if owner == nil {
		return uuid.Nil
	}
	return *owner
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
