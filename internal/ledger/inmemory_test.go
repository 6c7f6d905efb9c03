package ledger

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/tokenbook/tokenbook/internal/events"
)

func initToken(t *testing.T, l Ledger, owner AccountID, supply int64) TokenID {
	t.Helper()
	id, err := l.InitToken(context.Background(), nil, owner, supply)
	if err != nil {
		t.Fatalf("init token: %v", err)
	}
	return id
}

func TestInitTokenAndBalances(t *testing.T) {
	l := NewInMemory(nil)
	ctx := context.Background()

	id := initToken(t, l, "alice", 1_000)

	got, err := l.BalanceOf(ctx, id, "alice")
	if err != nil {
		t.Fatalf("balance of alice: %v", err)
	}
	if got != 1_000 {
		t.Fatalf("expected alice balance 1000, got %d", got)
	}

	got, err = l.BalanceOf(ctx, id, "bob")
	if err != nil {
		t.Fatalf("balance of bob: %v", err)
	}
	if got != 0 {
		t.Fatalf("expected bob balance 0, got %d", got)
	}

	supply, err := l.TotalSupply(ctx, id)
	if err != nil {
		t.Fatalf("total supply: %v", err)
	}
	if supply != 1_000 {
		t.Fatalf("expected supply 1000, got %d", supply)
	}
}

func TestInitTokenSequentialIDs(t *testing.T) {
	l := NewInMemory(nil)
	ctx := context.Background()

	first := initToken(t, l, "alice", 100)
	second := initToken(t, l, "bob", 100)
	if second != first+1 {
		t.Fatalf("expected sequential ids, got %d then %d", first, second)
	}

	requested := TokenID(42)
	id, err := l.InitToken(ctx, &requested, "carol", 100)
	if err != nil {
		t.Fatalf("init with requested id: %v", err)
	}
	if id != requested {
		t.Fatalf("expected id %d, got %d", requested, id)
	}

	if _, err := l.InitToken(ctx, &requested, "dave", 100); err != ErrTokenExists {
		t.Fatalf("expected ErrTokenExists, got %v", err)
	}

	// Assignment continues past the highest caller-supplied id so ids are
	// never reused.
	next := initToken(t, l, "erin", 100)
	if next != requested+1 {
		t.Fatalf("expected next id %d, got %d", requested+1, next)
	}
}

func TestInitTokenMaxIDDoesNotWrapNonce(t *testing.T) {
	l := NewInMemory(nil)
	ctx := context.Background()

	first := initToken(t, l, "alice", 1_000)

	top := TokenID(math.MaxUint32)
	id, err := l.InitToken(ctx, &top, "bob", 10)
	if err != nil {
		t.Fatalf("init with top id: %v", err)
	}
	if id != top {
		t.Fatalf("expected id %d, got %d", top, id)
	}

	// Auto-assignment continues below the top of the id space instead of
	// wrapping to zero and re-walking assigned ids.
	second := initToken(t, l, "mallory", 7)
	if second == first || second == top {
		t.Fatalf("id %d was reused", second)
	}

	supply, err := l.TotalSupply(ctx, first)
	if err != nil {
		t.Fatalf("total supply: %v", err)
	}
	if supply != 1_000 {
		t.Fatalf("existing token supply overwritten: %d", supply)
	}
	alice, _ := l.BalanceOf(ctx, first, "alice")
	if alice != 1_000 {
		t.Fatalf("existing token balance disturbed: %d", alice)
	}
	mallory, _ := l.BalanceOf(ctx, first, "mallory")
	if mallory != 0 {
		t.Fatalf("new token credited into old token: %d", mallory)
	}
}

func TestTransferMovesBalance(t *testing.T) {
	l := NewInMemory(nil)
	ctx := context.Background()
	id := initToken(t, l, "alice", 1_000)

	res, err := l.Transfer(ctx, id, "alice", "bob", 300)
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if res.FromBalance != 700 || res.ToBalance != 300 {
		t.Fatalf("unexpected result %+v", res)
	}

	supply, _ := l.TotalSupply(ctx, id)
	if supply != 1_000 {
		t.Fatalf("transfer changed supply to %d", supply)
	}
}

func TestTransferInsufficientBalanceLeavesStateUntouched(t *testing.T) {
	l := NewInMemory(nil)
	ctx := context.Background()
	id := initToken(t, l, "alice", 1_000)

	if _, err := l.Transfer(ctx, id, "alice", "bob", 10_000); err != ErrInsufficientBalance {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	alice, _ := l.BalanceOf(ctx, id, "alice")
	bob, _ := l.BalanceOf(ctx, id, "bob")
	if alice != 1_000 || bob != 0 {
		t.Fatalf("failed transfer mutated state: alice=%d bob=%d", alice, bob)
	}
}

func TestTransferNegativeAmount(t *testing.T) {
	l := NewInMemory(nil)
	id := initToken(t, l, "alice", 1_000)

	if _, err := l.Transfer(context.Background(), id, "alice", "bob", -1); err != ErrInvalidAmount {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestSelfTransferDoesNotDoubleCredit(t *testing.T) {
	l := NewInMemory(nil)
	ctx := context.Background()
	id := initToken(t, l, "alice", 1_000)

	res, err := l.Transfer(ctx, id, "alice", "alice", 400)
	if err != nil {
		t.Fatalf("self transfer: %v", err)
	}
	if res.FromBalance != 1_000 || res.ToBalance != 1_000 {
		t.Fatalf("unexpected self transfer result %+v", res)
	}

	balance, _ := l.BalanceOf(ctx, id, "alice")
	if balance != 1_000 {
		t.Fatalf("self transfer changed balance to %d", balance)
	}
}

func TestApproveIsAbsoluteNotAdditive(t *testing.T) {
	l := NewInMemory(nil)
	ctx := context.Background()
	id := initToken(t, l, "alice", 1_000)

	if err := l.Approve(ctx, id, "alice", "carol", 10); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := l.Approve(ctx, id, "alice", "carol", 5); err != nil {
		t.Fatalf("re-approve: %v", err)
	}

	allowance, err := l.Allowance(ctx, id, "alice", "carol")
	if err != nil {
		t.Fatalf("allowance: %v", err)
	}
	if allowance != 5 {
		t.Fatalf("expected allowance 5, got %d", allowance)
	}
}

func TestTransferFromSpendsAllowance(t *testing.T) {
	l := NewInMemory(nil)
	ctx := context.Background()
	id := initToken(t, l, "alice", 1_000)

	if err := l.Approve(ctx, id, "alice", "carol", 200); err != nil {
		t.Fatalf("approve: %v", err)
	}

	res, err := l.TransferFrom(ctx, id, "carol", "alice", "dave", 150)
	if err != nil {
		t.Fatalf("transfer from: %v", err)
	}
	if res.ToBalance != 150 {
		t.Fatalf("expected dave balance 150, got %d", res.ToBalance)
	}

	allowance, _ := l.Allowance(ctx, id, "alice", "carol")
	if allowance != 50 {
		t.Fatalf("expected remaining allowance 50, got %d", allowance)
	}
	dave, _ := l.BalanceOf(ctx, id, "dave")
	if dave != 150 {
		t.Fatalf("expected dave balance 150, got %d", dave)
	}
}

func TestTransferFromAllOrNothing(t *testing.T) {
	l := NewInMemory(nil)
	ctx := context.Background()
	id := initToken(t, l, "alice", 100)

	// Allowance covers the amount but the balance does not: neither the
	// allowance nor any balance may change.
	if err := l.Approve(ctx, id, "alice", "carol", 500); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := l.TransferFrom(ctx, id, "carol", "alice", "dave", 200); err != ErrInsufficientBalance {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	allowance, _ := l.Allowance(ctx, id, "alice", "carol")
	if allowance != 500 {
		t.Fatalf("failed transfer consumed allowance: %d", allowance)
	}
	alice, _ := l.BalanceOf(ctx, id, "alice")
	if alice != 100 {
		t.Fatalf("failed transfer moved balance: %d", alice)
	}

	// Balance covers the amount but the allowance does not.
	if err := l.Approve(ctx, id, "alice", "carol", 10); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := l.TransferFrom(ctx, id, "carol", "alice", "dave", 50); err != ErrInsufficientAllowance {
		t.Fatalf("expected ErrInsufficientAllowance, got %v", err)
	}
	alice, _ = l.BalanceOf(ctx, id, "alice")
	if alice != 100 {
		t.Fatalf("failed transfer moved balance: %d", alice)
	}
}

func TestUnknownTokenGuards(t *testing.T) {
	l := NewInMemory(nil)
	ctx := context.Background()
	missing := TokenID(99)

	if _, err := l.BalanceOf(ctx, missing, "alice"); err != ErrUnknownToken {
		t.Fatalf("balance of: expected ErrUnknownToken, got %v", err)
	}
	if _, err := l.TotalSupply(ctx, missing); err != ErrUnknownToken {
		t.Fatalf("total supply: expected ErrUnknownToken, got %v", err)
	}
	if _, err := l.Transfer(ctx, missing, "alice", "bob", 1); err != ErrUnknownToken {
		t.Fatalf("transfer: expected ErrUnknownToken, got %v", err)
	}
	if err := l.Approve(ctx, missing, "alice", "bob", 1); err != ErrUnknownToken {
		t.Fatalf("approve: expected ErrUnknownToken, got %v", err)
	}
	if _, err := l.Allowance(ctx, missing, "alice", "bob"); err != ErrUnknownToken {
		t.Fatalf("allowance: expected ErrUnknownToken, got %v", err)
	}
	if _, err := l.TransferFrom(ctx, missing, "carol", "alice", "bob", 1); err != ErrUnknownToken {
		t.Fatalf("transfer from: expected ErrUnknownToken, got %v", err)
	}
	if _, err := l.Mint(ctx, missing, "alice", 1); err != ErrUnknownToken {
		t.Fatalf("mint: expected ErrUnknownToken, got %v", err)
	}
	if _, err := l.Burn(ctx, missing, "alice", 1); err != ErrUnknownToken {
		t.Fatalf("burn: expected ErrUnknownToken, got %v", err)
	}
}

func TestMintAndBurnAdjustSupply(t *testing.T) {
	l := NewInMemory(nil)
	ctx := context.Background()
	id := initToken(t, l, "alice", 1_000)

	supply, err := l.Mint(ctx, id, "bob", 500)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if supply != 1_500 {
		t.Fatalf("expected supply 1500, got %d", supply)
	}
	bob, _ := l.BalanceOf(ctx, id, "bob")
	if bob != 500 {
		t.Fatalf("expected bob balance 500, got %d", bob)
	}

	supply, err = l.Burn(ctx, id, "bob", 200)
	if err != nil {
		t.Fatalf("burn: %v", err)
	}
	if supply != 1_300 {
		t.Fatalf("expected supply 1300, got %d", supply)
	}

	if _, err := l.Burn(ctx, id, "bob", 10_000); err != ErrInsufficientBalance {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
}

func TestConcurrentTransfersConserveSupply(t *testing.T) {
	l := NewInMemory(nil)
	ctx := context.Background()
	id := initToken(t, l, "alice", 100_000)

	const workers = 10
	const amount = int64(500)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			to := AccountID(fmt.Sprintf("account-%d", i%3))
			if _, err := l.Transfer(ctx, id, "alice", to, amount); err != nil {
				t.Errorf("transfer %d failed: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	supply, _ := l.TotalSupply(ctx, id)
	if supply != 100_000 {
		t.Fatalf("supply changed under concurrency: %d", supply)
	}

	var total int64
	for _, account := range []AccountID{"alice", "account-0", "account-1", "account-2"} {
		balance, err := l.BalanceOf(ctx, id, account)
		if err != nil {
			t.Fatalf("balance of %s: %v", account, err)
		}
		total += balance
	}
	if total != 100_000 {
		t.Fatalf("balances no longer sum to supply: %d", total)
	}
}

func TestEventsEmittedOncePerSuccessfulMutation(t *testing.T) {
	sink := events.NewCaptureSink()
	l := NewInMemory(sink)
	ctx := context.Background()

	id := initToken(t, l, "alice", 1_000)
	if _, err := l.Transfer(ctx, id, "alice", "bob", 100); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if err := l.Approve(ctx, id, "alice", "carol", 50); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := l.TransferFrom(ctx, id, "carol", "alice", "dave", 25); err != nil {
		t.Fatalf("transfer from: %v", err)
	}

	// Failed operations must not reach the sink.
	if _, err := l.Transfer(ctx, id, "alice", "bob", 1_000_000); err != ErrInsufficientBalance {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	got := sink.Events()
	want := []events.Type{
		events.TypeTokenInitialized,
		events.TypeTransfer,
		events.TypeApproval,
		events.TypeTransfer,
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(got))
	}
	for i, typ := range want {
		if got[i].Type != typ {
			t.Fatalf("event %d: expected %s, got %s", i, typ, got[i].Type)
		}
	}
	if got[3].Spender != "carol" {
		t.Fatalf("delegated transfer event missing spender: %+v", got[3])
	}
}
