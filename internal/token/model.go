package token

import (
	"time"

	"github.com/tokenbook/tokenbook/internal/ledger"
)

// Token carries the descriptive details of one ledger token.
type Token struct {
	ID        ledger.TokenID
	Name      string
	Ticker    string
	Creator   ledger.AccountID
	CreatedAt time.Time
}

// Supply reports the recorded total supply of a token.
type Supply struct {
	TokenID ledger.TokenID
	Amount  int64
	AsOf    time.Time
}

// Balance encapsulates the holdings of one account on one token.
type Balance struct {
	TokenID ledger.TokenID
	Account ledger.AccountID
	Amount  int64
	AsOf    time.Time
}
