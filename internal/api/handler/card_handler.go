package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/effectivemobile/bank-cards/internal/core/domain"
	"github.com/effectivemobile/bank-cards/internal/core/ports"
)

// CardHandler serves card operations scoped to the calling user.
type CardHandler struct {
	ledger ports.LedgerService
}

func NewCardHandler(ledger ports.LedgerService) *CardHandler {
	return &CardHandler{ledger: ledger}
}

// List returns the caller's cards.
//
// @Summary      List my cards
// @Tags         cards
// @Produce      json
// @Security     BearerAuth
// @Param        status  query     string  false  "ACTIVE, BLOCKED or EXPIRED"
// @Param        page    query     int     false  "1-based page"  default(1)
// @Param        limit   query     int     false  "page size"     default(20)
// @Success      200     {object}  cardPageResponse
// @Failure      400     {object}  errorResponse
// @Failure      401     {object}  errorResponse
// @Router       /api/cards [get]
func (h *CardHandler) List(c echo.Context) error {
	owner, err := callerID(c)
	if err != nil {
		return err
	}
	page, status, err := cardQuery(c)
	if err != nil {
		return err
	}

	result, err := h.ledger.ListOwned(c.Request().Context(), owner, status, page)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCardPageResponse(result))
}

// Block blocks one of the caller's cards.
//
// @Summary      Block my card
// @Tags         cards
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Card ID"
// @Success      200  {object}  cardResponse
// @Failure      400  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /api/cards/{id}/block [post]
func (h *CardHandler) Block(c echo.Context) error {
	owner, err := callerID(c)
	if err != nil {
		return err
	}
	cardID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	card, err := h.ledger.ChangeStatus(c.Request().Context(), cardID, &owner, domain.CardBlocked)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCardResponse(card))
}

// TopUp credits one of the caller's active cards.
//
// @Summary      Top up my card
// @Tags         cards
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id               path      string         true   "Card ID"
// @Param        Idempotency-Key  header    string         false  "Replay-safe request key"
// @Param        body             body      amountRequest  true   "Amount"
// @Success      200              {object}  cardResponse
// @Failure      400              {object}  errorResponse
// @Failure      404              {object}  errorResponse
// @Failure      409              {object}  errorResponse
// @Router       /api/cards/{id}/topup [post]
func (h *CardHandler) TopUp(c echo.Context) error {
	owner, err := callerID(c)
	if err != nil {
		return err
	}
	cardID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	var req amountRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	card, err := h.ledger.TopUp(c.Request().Context(), owner, cardID, req.Amount)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCardResponse(card))
}

// Transfer moves money between two of the caller's cards.
//
// @Summary      Transfer between my cards
// @Tags         cards
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        Idempotency-Key  header    string           false  "Replay-safe request key"
// @Param        body             body      transferRequest  true   "Transfer"
// @Success      200              {object}  transferResponse
// @Failure      400              {object}  errorResponse
// @Failure      404              {object}  errorResponse
// @Failure      409              {object}  errorResponse
// @Router       /api/cards/transfer [post]
func (h *CardHandler) Transfer(c echo.Context) error {
	owner, err := callerID(c)
	if err != nil {
		return err
	}
	var req transferRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.ledger.Transfer(c.Request().Context(), ports.TransferInput{
		OwnerID:    owner,
		FromCardID: uuid.MustParse(req.FromCardID),
		ToCardID:   uuid.MustParse(req.ToCardID),
		Amount:     req.Amount,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, transferResponse{From: toCardResponse(res.From), To: toCardResponse(res.To)})
}

// RevealNumber returns the full card number of one of the caller's cards.
//
// @Summary      Reveal my card number
// @Tags         cards
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Card ID"
// @Success      200  {object}  panResponse
// @Failure      404  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Router       /api/cards/{id}/number [get]
func (h *CardHandler) RevealNumber(c echo.Context) error {
	owner, err := callerID(c)
	if err != nil {
		return err
	}
	cardID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	pan, err := h.ledger.RevealPAN(c.Request().Context(), cardID, &owner)
	if err != nil {
		return err
	}
	c.Response().Header().Set("Cache-Control", "no-store")
	return c.JSON(http.StatusOK, panResponse{ID: cardID.String(), Number: pan})
}
