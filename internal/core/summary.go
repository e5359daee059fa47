package core

import (
	"cmp"
	"encoding/json"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

// Balance is the income/expense overview of a transaction set.
type Balance struct {
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Total   decimal.Decimal `json:"total"`
}

// ComputeBalance sums income and expense amounts; Total is Income - Expense.
func ComputeBalance(txs []Transaction) Balance {
	income, expense := decimal.Zero, decimal.Zero
	for _, t := range txs {
		switch t.Type {
		case Income:
			income = income.Add(t.Amount)
		case Expense:
			expense = expense.Add(t.Amount)
		}
	}
	return Balance{Income: income, Expense: expense, Total: income.Sub(expense)}
}

// MarshalJSON writes the three sums as plain JSON numbers.
func (b Balance) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Income  json.Number `json:"income"`
		Expense json.Number `json:"expense"`
		Total   json.Number `json:"total"`
	}{json.Number(b.Income.String()), json.Number(b.Expense.String()), json.Number(b.Total.String())})
}

// TransactionFilter narrows a transaction list the way the dashboard does:
// by type (empty or "all" keeps both) and by a case-insensitive term matched
// against description or category.
type TransactionFilter struct {
	Type TransactionType
	Term string
}

func (f TransactionFilter) Match(t Transaction) bool {
	if f.Type != "" && f.Type != "all" && t.Type != f.Type {
		return false
	}
	term := strings.ToLower(strings.TrimSpace(f.Term))
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(t.Description), term) ||
		strings.Contains(strings.ToLower(t.Category), term)
}

// Apply returns the matching transactions, newest date first.
func (f TransactionFilter) Apply(txs []Transaction) []Transaction {
	out := make([]Transaction, 0, len(txs))
	for _, t := range txs {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	slices.SortStableFunc(out, func(a, b Transaction) int {
		return cmp.Compare(b.Date.Unix(), a.Date.Unix())
	})
	return out
}

type defaultCategory struct {
	name  string
	typ   TransactionType
	color string
}

var defaultCategories = []defaultCategory{
	{"Salário", Income, "#32D957"},
	{"Freelance", Income, "#50E170"},
	{"Investimentos", Income, "#28BB49"},
	{"Alimentação", Expense, "#EB3D3D"},
	{"Transporte", Expense, "#F05454"},
	{"Moradia", Expense, "#D03333"},
	{"Lazer", Expense, "#FFCE52"},
	{"Saúde", Expense, "#FFD76B"},
	{"Educação", Expense, "#D9B043"},
}

// DefaultCategories returns the nine categories seeded for a new user, each
// with an identifier from newID.
func DefaultCategories(newID func() string) []Category {
	out := make([]Category, len(defaultCategories))
	for i, c := range defaultCategories {
		out[i] = Category{ID: newID(), Name: c.name, Type: c.typ, Color: c.color}
	}
	return out
}
