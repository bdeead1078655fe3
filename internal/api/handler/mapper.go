package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/effectivemobile/bank-cards/internal/core/domain"
)

const dateLayout = "2006-01-02"

// --- Domain → Response ---

func toCardResponse(card *domain.Card) cardResponse {
	return cardResponse{
		ID:           card.ID.String(),
		MaskedNumber: card.MaskedNumber(),
		Expiry:       card.Expiry.Format(dateLayout),
		Status:       string(card.Status),
		Balance:      card.Balance.StringFixed(domain.BalanceScale),
		OwnerID:      card.OwnerID.String(),
	}
}

func toCardPageResponse(page *domain.CardPage) cardPageResponse {
	items := make([]cardResponse, 0, len(page.Items))
	for _, card := range page.Items {
		items = append(items, toCardResponse(card))
	}
	return cardPageResponse{
		Items:      items,
		Total:      page.Total,
		Page:       page.Page,
		Limit:      page.Limit,
		TotalPages: page.TotalPages,
	}
}

func toUserResponse(user *domain.User) userResponse {
	resp := userResponse{
		ID:       user.ID.String(),
		Username: user.Username,
		Roles:    user.RoleStrings(),
	}
	if !user.CreatedAt.IsZero() {
		resp.CreatedAt = user.CreatedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func toEventResponse(ev domain.LedgerEvent) eventResponse {
	resp := eventResponse{
		ID:           ev.ID.String(),
		Type:         string(ev.Type),
		CardID:       ev.CardID.String(),
		OwnerID:      ev.OwnerID.String(),
		Status:       string(ev.Status),
		BalanceAfter: ev.BalanceAfter.StringFixed(domain.BalanceScale),
		OccurredAt:   ev.OccurredAt.UTC().Format(time.RFC3339Nano),
	}
	if ev.CounterpartyID != uuid.Nil {
		resp.CounterpartyID = ev.CounterpartyID.String()
	}
	if !ev.Amount.IsZero() {
		resp.Amount = ev.Amount.StringFixed(domain.BalanceScale)
	}
	if ev.ActorID != uuid.Nil {
		resp.ActorID = ev.ActorID.String()
	}
	return resp
}

// --- Query → Domain ---

// cardQuery reads page, limit and status from the query string.
func cardQuery(c echo.Context) (domain.PageRequest, *domain.CardStatus, error) {
	var page domain.PageRequest
	err := echo.QueryParamsBinder(c).
		Int("page", &page.Page).
		Int("limit", &page.Limit).
		BindError()
	if err != nil {
		return page, nil, echo.NewHTTPError(http.StatusBadRequest, "page and limit must be integers")
	}

	raw := strings.TrimSpace(c.QueryParam("status"))
	if raw == "" {
		return page, nil, nil
	}
	status, err := domain.ParseCardStatus(strings.ToUpper(raw))
	if err != nil {
		return page, nil, err
	}
	return page, &status, nil
}
