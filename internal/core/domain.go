package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

type (
	TransactionType string

	User struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		Email     string    `json:"email"`
		Avatar    string    `json:"avatar,omitempty"`
		CreatedAt time.Time `json:"createdAt"`
	}

	Transaction struct {
		ID          string          `json:"id"`
		Type        TransactionType `json:"type"`
		Amount      decimal.Decimal `json:"amount"`
		Description string          `json:"description"`
		Category    string          `json:"category"`
		Date        Date            `json:"date"`
	}

	// TransactionPatch carries the fields to overwrite on an existing
	// transaction. Nil fields are left untouched.
	TransactionPatch struct {
		Type        *TransactionType
		Amount      *decimal.Decimal
		Description *string
		Category    *string
		Date        *Date
	}

	Category struct {
		ID    string          `json:"id"`
		Name  string          `json:"name"`
		Type  TransactionType `json:"type"`
		Color string          `json:"color"`
	}

	// Session is the login state: LoggedOut when User is nil, LoggedIn otherwise.
	Session struct {
		User *User
	}
)

var (
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNotFound           = errors.New("not found")
	ErrNoSession          = errors.New("no active session")
	ErrValidation         = errors.New("validation error")
	ErrInvalidType        = fmt.Errorf("%w: type must be income or expense", ErrValidation)
	ErrEmptyDescription   = fmt.Errorf("%w: empty description", ErrValidation)
	ErrEmptyCategory      = fmt.Errorf("%w: empty category", ErrValidation)
	ErrEmptyCategoryName  = fmt.Errorf("%w: empty category name", ErrValidation)
	ErrDescriptionTooLong = fmt.Errorf("%w: description too long (max 200 characters)", ErrValidation)
	ErrInvalidColor       = fmt.Errorf("%w: color must be a #RRGGBB value", ErrValidation)
)

// Valid reports whether t is income or expense.
func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func (t TransactionType) String() string {
	return string(t)
}

// Active reports whether someone is logged in.
func (s Session) Active() bool {
	return s.User != nil
}

// LoggedIn returns a session for a copy of u.
func LoggedIn(u User) Session {
	return Session{User: &u}
}

func (t Transaction) Validate() error {
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if err := ValidateAmount(t.Amount); err != nil {
		return err
	}
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return ErrDescriptionTooLong
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	return t.Date.Validate()
}

// MarshalJSON writes Amount as a plain JSON number. Decoding accepts both
// numbers and the quoted form.
func (t Transaction) MarshalJSON() ([]byte, error) {
	type plain Transaction
	return json.Marshal(struct {
		plain
		Amount json.Number `json:"amount"`
	}{plain(t), json.Number(t.Amount.String())})
}

// Apply returns t with every non-nil field of p written over it.
func (p TransactionPatch) Apply(t Transaction) Transaction {
	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.Date != nil {
		t.Date = *p.Date
	}
	return t
}

// IsEmpty reports whether the patch changes nothing.
func (p TransactionPatch) IsEmpty() bool {
	return p.Type == nil && p.Amount == nil && p.Description == nil && p.Category == nil && p.Date == nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyCategoryName
	}
	if !c.Type.Valid() {
		return ErrInvalidType
	}
	if c.Color != "" && !colorPattern.MatchString(c.Color) {
		return ErrInvalidColor
	}
	return nil
}
