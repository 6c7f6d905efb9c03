package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/tokenbook/tokenbook/internal/config"
	"github.com/tokenbook/tokenbook/internal/logging"
)

func setupApp(t *testing.T) *fiber.App {
	t.Helper()
	app := fiber.New()
	cfg := config.Config{AppName: "Tokenbook", Env: "development", Port: "0"}
	if err := Setup(app, Deps{Cfg: cfg, Logger: logging.Discard()}); err != nil {
		t.Fatalf("setup routes: %v", err)
	}
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path, account string, body any) (int, map[string]any) {
	t.Helper()
	var payload *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode body: %v", err)
		}
		payload = bytes.NewReader(raw)
	} else {
		payload = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, payload)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if account != "" {
		req.Header.Set("X-Account-ID", account)
	}

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp.StatusCode, decoded
}

func TestTokenLifecycleOverHTTP(t *testing.T) {
	app := setupApp(t)

	status, created := doJSON(t, app, fiber.MethodPost, "/api/v1/tokens", "alice", fiber.Map{
		"name":           "Copper Franc",
		"ticker":         "CFR",
		"owner":          "alice",
		"initial_supply": 1000,
	})
	if status != http.StatusCreated {
		t.Fatalf("create token: expected 201, got %d (%v)", status, created)
	}
	if created["id"].(float64) != 1 {
		t.Fatalf("expected first token id 1, got %v", created["id"])
	}

	status, balance := doJSON(t, app, fiber.MethodGet, "/api/v1/tokens/1/balances/alice", "", nil)
	if status != http.StatusOK || balance["balance"].(float64) != 1000 {
		t.Fatalf("alice balance: status=%d body=%v", status, balance)
	}
	status, balance = doJSON(t, app, fiber.MethodGet, "/api/v1/tokens/1/balances/bob", "", nil)
	if status != http.StatusOK || balance["balance"].(float64) != 0 {
		t.Fatalf("bob balance: status=%d body=%v", status, balance)
	}

	// Unknown tokens are distinguishable from zero balances.
	status, _ = doJSON(t, app, fiber.MethodGet, "/api/v1/tokens/9/balances/alice", "", nil)
	if status != http.StatusNotFound {
		t.Fatalf("unknown token: expected 404, got %d", status)
	}
}

func TestTransferAndDelegationOverHTTP(t *testing.T) {
	app := setupApp(t)

	doJSON(t, app, fiber.MethodPost, "/api/v1/tokens", "alice", fiber.Map{
		"name": "Copper Franc", "ticker": "CFR", "owner": "alice", "initial_supply": 1000,
	})

	status, res := doJSON(t, app, fiber.MethodPost, "/api/v1/transfers", "alice", fiber.Map{
		"token_id": 1, "from": "alice", "to": "bob", "amount": 300,
	})
	if status != http.StatusCreated {
		t.Fatalf("transfer: expected 201, got %d (%v)", status, res)
	}
	if res["from_balance"].(float64) != 700 || res["to_balance"].(float64) != 300 {
		t.Fatalf("unexpected transfer result: %v", res)
	}

	// A caller may not spend somebody else's balance directly.
	status, _ = doJSON(t, app, fiber.MethodPost, "/api/v1/transfers", "mallory", fiber.Map{
		"token_id": 1, "from": "alice", "to": "mallory", "amount": 100,
	})
	if status != http.StatusForbidden {
		t.Fatalf("foreign transfer: expected 403, got %d", status)
	}

	// Neither may a caller that never asserted an account.
	status, _ = doJSON(t, app, fiber.MethodPost, "/api/v1/transfers", "", fiber.Map{
		"token_id": 1, "from": "alice", "to": "mallory", "amount": 100,
	})
	if status != http.StatusForbidden {
		t.Fatalf("anonymous transfer: expected 403, got %d", status)
	}

	// Overdrafts are rejected and change nothing.
	status, _ = doJSON(t, app, fiber.MethodPost, "/api/v1/transfers", "alice", fiber.Map{
		"token_id": 1, "from": "alice", "to": "bob", "amount": 10000,
	})
	if status != http.StatusBadRequest {
		t.Fatalf("overdraft: expected 400, got %d", status)
	}

	status, _ = doJSON(t, app, fiber.MethodPost, "/api/v1/approvals", "alice", fiber.Map{
		"token_id": 1, "owner": "alice", "spender": "carol", "amount": 200,
	})
	if status != http.StatusCreated {
		t.Fatalf("approve: expected 201, got %d", status)
	}

	status, res = doJSON(t, app, fiber.MethodPost, "/api/v1/transfers/delegated", "carol", fiber.Map{
		"token_id": 1, "spender": "carol", "owner": "alice", "to": "dave", "amount": 150,
	})
	if status != http.StatusCreated {
		t.Fatalf("delegated transfer: expected 201, got %d (%v)", status, res)
	}

	status, allowance := doJSON(t, app, fiber.MethodGet, "/api/v1/tokens/1/allowances/alice/carol", "", nil)
	if status != http.StatusOK || allowance["allowance"].(float64) != 50 {
		t.Fatalf("allowance: status=%d body=%v", status, allowance)
	}

	status, balance := doJSON(t, app, fiber.MethodGet, "/api/v1/tokens/1/balances/dave", "", nil)
	if status != http.StatusOK || balance["balance"].(float64) != 150 {
		t.Fatalf("dave balance: status=%d body=%v", status, balance)
	}
}

func TestMintAndBurnOverHTTP(t *testing.T) {
	// Development setup without an admin key hash allows every caller.
	app := setupApp(t)

	doJSON(t, app, fiber.MethodPost, "/api/v1/tokens", "alice", fiber.Map{
		"name": "Copper Franc", "ticker": "CFR", "owner": "alice", "initial_supply": 1000,
	})

	status, res := doJSON(t, app, fiber.MethodPost, "/api/v1/tokens/1/mint", "", fiber.Map{
		"account": "bob", "amount": 500,
	})
	if status != http.StatusCreated {
		t.Fatalf("mint: expected 201, got %d (%v)", status, res)
	}
	if res["total_supply"].(float64) != 1500 {
		t.Fatalf("expected supply 1500, got %v", res["total_supply"])
	}

	status, res = doJSON(t, app, fiber.MethodPost, "/api/v1/tokens/1/burn", "", fiber.Map{
		"account": "bob", "amount": 200,
	})
	if status != http.StatusCreated {
		t.Fatalf("burn: expected 201, got %d (%v)", status, res)
	}
	if res["total_supply"].(float64) != 1300 {
		t.Fatalf("expected supply 1300, got %v", res["total_supply"])
	}

	status, _ = doJSON(t, app, fiber.MethodGet, "/api/v1/tokens/1/supply", "", nil)
	if status != http.StatusOK {
		t.Fatalf("supply: expected 200, got %d", status)
	}
}
