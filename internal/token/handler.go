package token

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/tokenbook/tokenbook/internal/ledger"
)

// Handler exposes token HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a token HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	TokenID       *uint32 `json:"token_id"`
	Name          string  `json:"name"`
	Ticker        string  `json:"ticker"`
	Owner         string  `json:"owner"`
	InitialSupply int64   `json:"initial_supply"`
}

type tokenResponse struct {
	ID        uint32    `json:"id"`
	Name      string    `json:"name"`
	Ticker    string    `json:"ticker"`
	Creator   string    `json:"creator"`
	CreatedAt time.Time `json:"created_at"`
}

func toResponse(tok Token) tokenResponse {
	return tokenResponse{
		ID:        uint32(tok.ID),
		Name:      tok.Name,
		Ticker:    tok.Ticker,
		Creator:   string(tok.Creator),
		CreatedAt: tok.CreatedAt,
	}
}

// Create initializes a token and credits the initial supply to the owner.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	var requested *ledger.TokenID
	if req.TokenID != nil {
		id := ledger.TokenID(*req.TokenID)
		requested = &id
	}

	tok, err := h.service.Create(c.UserContext(), CreateInput{
		RequestedID:   requested,
		Name:          req.Name,
		Ticker:        req.Ticker,
		Owner:         ledger.AccountID(req.Owner),
		InitialSupply: req.InitialSupply,
	})
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrTokenExists):
			return fiber.NewError(http.StatusConflict, "token already exists")
		case errors.Is(err, ledger.ErrInvalidAmount):
			return fiber.NewError(http.StatusBadRequest, "invalid amount")
		default:
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
	}
	return c.Status(http.StatusCreated).JSON(toResponse(tok))
}

// Get returns token details.
func (h *Handler) Get(c *fiber.Ctx) error {
	id, err := ParseTokenID(c.Params("tokenId"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	tok, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, "unknown token")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(toResponse(tok))
}

// List returns every initialized token.
func (h *Handler) List(c *fiber.Ctx) error {
	tokens, err := h.service.List(c.UserContext())
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	out := make([]tokenResponse, 0, len(tokens))
	for _, tok := range tokens {
		out = append(out, toResponse(tok))
	}
	return c.Status(http.StatusOK).JSON(out)
}

// Supply returns the token's total supply.
func (h *Handler) Supply(c *fiber.Ctx) error {
	id, err := ParseTokenID(c.Params("tokenId"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	supply, err := h.service.Supply(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, ledger.ErrUnknownToken) {
			return fiber.NewError(http.StatusNotFound, "unknown token")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"token_id":     uint32(supply.TokenID),
		"total_supply": supply.Amount,
		"timestamp":    supply.AsOf,
	})
}

// Balance returns the balance one account holds on the token.
func (h *Handler) Balance(c *fiber.Ctx) error {
	id, err := ParseTokenID(c.Params("tokenId"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	account := ledger.AccountID(c.Params("account"))
	balance, err := h.service.Balance(c.UserContext(), id, account)
	if err != nil {
		if errors.Is(err, ledger.ErrUnknownToken) {
			return fiber.NewError(http.StatusNotFound, "unknown token")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"token_id":  uint32(balance.TokenID),
		"account":   string(balance.Account),
		"balance":   balance.Amount,
		"timestamp": balance.AsOf,
	})
}

// Allowance returns the remaining spender allowance.
func (h *Handler) Allowance(c *fiber.Ctx) error {
	id, err := ParseTokenID(c.Params("tokenId"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	owner := ledger.AccountID(c.Params("owner"))
	spender := ledger.AccountID(c.Params("spender"))
	allowance, err := h.service.Allowance(c.UserContext(), id, owner, spender)
	if err != nil {
		if errors.Is(err, ledger.ErrUnknownToken) {
			return fiber.NewError(http.StatusNotFound, "unknown token")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"token_id":  uint32(id),
		"owner":     string(owner),
		"spender":   string(spender),
		"allowance": allowance,
	})
}

// ParseTokenID parses a token identifier path parameter.
func ParseTokenID(raw string) (ledger.TokenID, error) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, errors.New("invalid token id")
	}
	return ledger.TokenID(id), nil
}
