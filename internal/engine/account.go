package engine

import (
	"cmp"
	"slices"

	"auctionsim/internal/common"

	"github.com/shopspring/decimal"
)

// Account is a running balance. Negative balances are allowed.
type Account struct {
	owner   common.AgentID
	balance decimal.Decimal
}

func NewAccount(owner common.AgentID) *Account {
	return &Account{owner: owner, balance: decimal.Zero}
}

func (a *Account) Owner() common.AgentID { return a.owner }

func (a *Account) Deposit(amount float64) {
	a.balance = a.balance.Add(decimal.NewFromFloat(amount))
}

func (a *Account) Withdraw(amount float64) {
	a.balance = a.balance.Sub(decimal.NewFromFloat(amount))
}

func (a *Account) Balance() float64 {
	return a.balance.InexactFloat64()
}

// Ledger holds the accounts touched by settlement, created on first use.
type Ledger struct {
	accounts map[common.AgentID]*Account
}

func NewLedger() *Ledger {
	return &Ledger{accounts: make(map[common.AgentID]*Account)}
}

func (l *Ledger) Account(owner common.AgentID) *Account {
	account, ok := l.accounts[owner]
	if !ok {
		account = NewAccount(owner)
		l.accounts[owner] = account
	}
	return account
}

// Accounts returns every account ordered by owner.
func (l *Ledger) Accounts() []*Account {
	accounts := make([]*Account, 0, len(l.accounts))
	for _, account := range l.accounts {
		accounts = append(accounts, account)
	}
	slices.SortFunc(accounts, func(a, b *Account) int {
		return cmp.Compare(a.owner, b.owner)
	})
	return accounts
}

// Total is the sum of all balances. Settlement only moves money between
// accounts, so it stays zero.
func (l *Ledger) Total() float64 {
	total := decimal.Zero
	for _, account := range l.accounts {
		total = total.Add(account.balance)
	}
	return total.InexactFloat64()
}
