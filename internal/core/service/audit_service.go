package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/effectivemobile/bank-cards/internal/core/domain"
	"github.com/effectivemobile/bank-cards/internal/core/ports"
	"github.com/effectivemobile/bank-cards/internal/pkg/metrics"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

type auditService struct {
	repo ports.AuditRepository
	log  zerolog.Logger
}

// NewAuditService returns an AuditService backed by repo.
func NewAuditService(repo ports.AuditRepository, log zerolog.Logger) ports.AuditService {
	return &auditService{repo: repo, log: log}
}

// Record appends a committed ledger event to the journal. Replays of the
// same event ID are absorbed by the repository.
func (s *auditService) Record(ctx context.Context, ev domain.LedgerEvent) error {
	if err := s.repo.Insert(ctx, ev); err != nil {
		metrics.AuditEventsTotal.WithLabelValues(string(ev.Type), "error").Inc()
		return fmt.Errorf("record ledger event: %w", err)
	}
	metrics.AuditEventsTotal.WithLabelValues(string(ev.Type), "ok").Inc()

	s.log.Debug().
		Str("event_id", ev.ID.String()).
		Str("type", string(ev.Type)).
		Str("card_id", ev.CardID.String()).
		Msg("ledger event journaled")
	return nil
}

// CardHistory returns the newest events for a card first.
func (s *auditService) CardHistory(ctx context.Context, cardID uuid.UUID, limit int) ([]domain.LedgerEvent, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	events, err := s.repo.ListByCard(ctx, cardID, limit)
	if err != nil {
		return nil, fmt.Errorf("card history: %w", err)
	}
	if events == nil {
		events = []domain.LedgerEvent{}
	}
	return events, nil
}
