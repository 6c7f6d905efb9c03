package transfers

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/tokenbook/tokenbook/internal/ledger"
)

// Handler exposes transfer and approval endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a transfer handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type transferRequest struct {
	TokenID uint32 `json:"token_id"`
	From    string `json:"from"`
	To      string `json:"to"`
	Amount  int64  `json:"amount"`
}

// Transfer processes a direct account-to-account transfer.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	requestor, _ := c.Locals("account_id").(string)

	res, err := h.service.Transfer(c.UserContext(), TransferInput{
		TokenID:   ledger.TokenID(req.TokenID),
		From:      ledger.AccountID(req.From),
		To:        ledger.AccountID(req.To),
		Amount:    req.Amount,
		Requestor: ledger.AccountID(requestor),
	})
	if err != nil {
		return mapError(err)
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"token_id":     uint32(res.TokenID),
		"from_balance": res.FromBalance,
		"to_balance":   res.ToBalance,
		"completed_at": res.CompletedAt,
	})
}

type approveRequest struct {
	TokenID uint32 `json:"token_id"`
	Owner   string `json:"owner"`
	Spender string `json:"spender"`
	Amount  int64  `json:"amount"`
}

// Approve sets a spender allowance.
func (h *Handler) Approve(c *fiber.Ctx) error {
	var req approveRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	requestor, _ := c.Locals("account_id").(string)

	err := h.service.Approve(c.UserContext(), ApproveInput{
		TokenID:   ledger.TokenID(req.TokenID),
		Owner:     ledger.AccountID(req.Owner),
		Spender:   ledger.AccountID(req.Spender),
		Amount:    req.Amount,
		Requestor: ledger.AccountID(requestor),
	})
	if err != nil {
		return mapError(err)
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"token_id":  req.TokenID,
		"owner":     req.Owner,
		"spender":   req.Spender,
		"allowance": req.Amount,
	})
}

type delegatedRequest struct {
	TokenID uint32 `json:"token_id"`
	Spender string `json:"spender"`
	Owner   string `json:"owner"`
	To      string `json:"to"`
	Amount  int64  `json:"amount"`
}

// Delegated processes a transfer spending a previously approved allowance.
func (h *Handler) Delegated(c *fiber.Ctx) error {
	var req delegatedRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	requestor, _ := c.Locals("account_id").(string)

	res, err := h.service.TransferFrom(c.UserContext(), DelegatedInput{
		TokenID:   ledger.TokenID(req.TokenID),
		Spender:   ledger.AccountID(req.Spender),
		Owner:     ledger.AccountID(req.Owner),
		To:        ledger.AccountID(req.To),
		Amount:    req.Amount,
		Requestor: ledger.AccountID(requestor),
	})
	if err != nil {
		return mapError(err)
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"token_id":      uint32(res.TokenID),
		"owner_balance": res.FromBalance,
		"to_balance":    res.ToBalance,
		"completed_at":  res.CompletedAt,
	})
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ledger.ErrUnknownToken):
		return fiber.NewError(http.StatusNotFound, "unknown token")
	case errors.Is(err, ledger.ErrInsufficientBalance):
		return fiber.NewError(http.StatusBadRequest, "insufficient balance")
	case errors.Is(err, ledger.ErrInsufficientAllowance):
		return fiber.NewError(http.StatusBadRequest, "insufficient allowance")
	case errors.Is(err, ledger.ErrInvalidAmount):
		return fiber.NewError(http.StatusBadRequest, "invalid amount")
	case errors.Is(err, ErrNotRequestor):
		return fiber.NewError(http.StatusForbidden, "caller does not control source account")
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
