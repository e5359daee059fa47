// Package kv defines the key-value persistence contract shared by the
// session and ledger stores, and typed JSON helpers on top of it.
//
// Keys are structured values rather than strings: a Kind names the logical
// collection and an optional Owner scopes it to one user. How a key is laid
// out physically is left to each backend.
package kv

import (
	"context"
	"encoding/json"
	"fmt"
)

const (
	KindUsers        Kind = "users"
	KindCredentials  Kind = "credentials"
	KindCurrentUser  Kind = "current_user"
	KindTransactions Kind = "transactions"
	KindCategories   Kind = "categories"
)

type Kind string

// Key addresses one stored value. Owner is empty for the global kinds.
type Key struct {
	Kind  Kind
	Owner string
}

var (
	UsersKey       = Key{Kind: KindUsers}
	CredentialsKey = Key{Kind: KindCredentials}
	CurrentUserKey = Key{Kind: KindCurrentUser}
)

// TransactionsOf returns the partition key of a user's transactions.
func TransactionsOf(userID string) Key {
	return Key{Kind: KindTransactions, Owner: userID}
}

// CategoriesOf returns the partition key of a user's categories.
func CategoriesOf(userID string) Key {
	return Key{Kind: KindCategories, Owner: userID}
}

// Scoped reports whether the key belongs to a single owner's partition.
func (k Key) Scoped() bool {
	return k.Owner != ""
}

func (k Key) String() string {
	if k.Owner == "" {
		return string(k.Kind)
	}
	return string(k.Kind) + "/" + k.Owner
}

// Store is the persistence collaborator. Get reports absence with ok=false
// and a nil error. Set replaces any prior value. Remove of a missing key is a
// no-op.
type Store interface {
	Get(ctx context.Context, key Key) (value []byte, ok bool, err error)
	Set(ctx context.Context, key Key, value []byte) error
	Remove(ctx context.Context, key Key) error
}

// Get decodes the JSON value stored under key into a T.
func Get[T any](ctx context.Context, s Store, key Key) (T, bool, error) {
	var zero T
	raw, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return zero, false, err
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return zero, false, fmt.Errorf("decode %s: %w", key, err)
	}
	return v, true, nil
}

// Set stores the JSON encoding of v under key.
func Set[T any](ctx context.Context, s Store, key Key, v T) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, key, raw)
}
