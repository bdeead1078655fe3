package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/effectivemobile/bank-cards/internal/core/domain"
	"github.com/effectivemobile/bank-cards/internal/core/ports"
)

// AdminCardHandler serves card management for administrators. Lookups are
// not owner-scoped.
type AdminCardHandler struct {
	ledger ports.LedgerService
	audit  ports.AuditService
}

func NewAdminCardHandler(ledger ports.LedgerService, audit ports.AuditService) *AdminCardHandler {
	return &AdminCardHandler{ledger: ledger, audit: audit}
}

// Create issues a card for an existing user.
//
// @Summary      Issue a card
// @Tags         admin-cards
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createCardRequest  true  "Card details"
// @Success      201   {object}  cardResponse
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /api/admin/cards [post]
func (h *AdminCardHandler) Create(c echo.Context) error {
	var req createCardRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	expiry, _ := time.Parse(dateLayout, req.Expiry)

	card, err := h.ledger.CreateCard(c.Request().Context(), ports.CreateCardInput{
		OwnerID: uuid.MustParse(req.OwnerID),
		PAN:     req.PAN,
		Expiry:  expiry,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toCardResponse(card))
}

// List returns every card, optionally filtered by owner username and status.
//
// @Summary      List all cards
// @Tags         admin-cards
// @Produce      json
// @Security     BearerAuth
// @Param        username  query     string  false  "owner username substring"
// @Param        status    query     string  false  "ACTIVE, BLOCKED or EXPIRED"
// @Param        page      query     int     false  "1-based page"  default(1)
// @Param        limit     query     int     false  "page size"     default(20)
// @Success      200       {object}  cardPageResponse
// @Failure      400       {object}  errorResponse
// @Router       /api/admin/cards [get]
func (h *AdminCardHandler) List(c echo.Context) error {
	page, status, err := cardQuery(c)
	if err != nil {
		return err
	}

	result, err := h.ledger.ListAll(c.Request().Context(), c.QueryParam("username"), status, page)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCardPageResponse(result))
}

// Delete removes a card regardless of its balance.
//
// @Summary      Delete a card
// @Tags         admin-cards
// @Security     BearerAuth
// @Param        id  path  string  true  "Card ID"
// @Success      204
// @Failure      404  {object}  errorResponse
// @Router       /api/admin/cards/{id} [delete]
func (h *AdminCardHandler) Delete(c echo.Context) error {
	cardID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	if err := h.ledger.DeleteByID(c.Request().Context(), cardID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// TopUp credits any active card.
//
// @Summary      Top up a card
// @Tags         admin-cards
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id               path      string         true   "Card ID"
// @Param        Idempotency-Key  header    string         false  "Replay-safe request key"
// @Param        body             body      amountRequest  true   "Amount"
// @Success      200              {object}  cardResponse
// @Failure      400              {object}  errorResponse
// @Failure      404              {object}  errorResponse
// @Router       /api/admin/cards/{id}/topup [post]
func (h *AdminCardHandler) TopUp(c echo.Context) error {
	cardID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	var req amountRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	card, err := h.ledger.AdminTopUp(c.Request().Context(), cardID, req.Amount)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCardResponse(card))
}

// Activate sets a card to ACTIVE.
//
// @Summary      Activate a card
// @Tags         admin-cards
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Card ID"
// @Success      200  {object}  cardResponse
// @Failure      404  {object}  errorResponse
// @Router       /api/admin/cards/{id}/activate [post]
func (h *AdminCardHandler) Activate(c echo.Context) error {
	return h.setStatus(c, domain.CardActive)
}

// Block sets a card to BLOCKED.
//
// @Summary      Block a card
// @Tags         admin-cards
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Card ID"
// @Success      200  {object}  cardResponse
// @Failure      404  {object}  errorResponse
// @Router       /api/admin/cards/{id}/block [post]
func (h *AdminCardHandler) Block(c echo.Context) error {
	return h.setStatus(c, domain.CardBlocked)
}

func (h *AdminCardHandler) setStatus(c echo.Context, status domain.CardStatus) error {
	cardID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	card, err := h.ledger.ChangeStatus(c.Request().Context(), cardID, nil, status)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCardResponse(card))
}

// Events returns the audit journal of a card, newest first.
//
// @Summary      Card ledger history
// @Tags         admin-cards
// @Produce      json
// @Security     BearerAuth
// @Param        id     path      string  true   "Card ID"
// @Param        limit  query     int     false  "max events"  default(50)
// @Success      200    {array}   eventResponse
// @Failure      400    {object}  errorResponse
// @Router       /api/admin/cards/{id}/events [get]
func (h *AdminCardHandler) Events(c echo.Context) error {
	cardID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be an integer")
		}
	}

	events, err := h.audit.CardHistory(c.Request().Context(), cardID, limit)
	if err != nil {
		return err
	}
	resp := make([]eventResponse, 0, len(events))
	for _, ev := range events {
		resp = append(resp, toEventResponse(ev))
	}
	return c.JSON(http.StatusOK, resp)
}
