package kv_test

import (
	"context"
	"testing"

	"financas/internal/kv"
	"financas/internal/kv/memory"
)

type record struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestTypedGetSet(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	got, ok, err := kv.Get[[]record](ctx, s, kv.UsersKey)
	if err != nil || ok || got != nil {
		t.Fatalf("expected absent, got %v ok=%v err=%v", got, ok, err)
	}

	want := []record{{"a", 1}, {"b", 2}}
	if err := kv.Set(ctx, s, kv.UsersKey, want); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, ok, err = kv.Get[[]record](ctx, s, kv.UsersKey)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if len(got) != 2 || got[1] != want[1] {
		t.Fatalf("unexpected value %+v", got)
	}
}

func TestTypedGetDecodeError(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	_ = s.Set(ctx, kv.CredentialsKey, []byte("{not json"))

	if _, _, err := kv.Get[map[string]string](ctx, s, kv.CredentialsKey); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestKeyString(t *testing.T) {
	cases := []struct {
		key  kv.Key
		want string
	}{
		{kv.UsersKey, "users"},
		{kv.CurrentUserKey, "current_user"},
		{kv.TransactionsOf("42"), "transactions/42"},
		{kv.CategoriesOf("42"), "categories/42"},
	}
	for _, tc := range cases {
		if got := tc.key.String(); got != tc.want {
			t.Fatalf("%#v.String() = %q, want %q", tc.key, got, tc.want)
		}
	}
	if kv.UsersKey.Scoped() || !kv.TransactionsOf("x").Scoped() {
		t.Fatal("unexpected Scoped result")
	}
}
