package commands

import (
	"bytes"
	"context"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"financas/internal/config"
	"financas/internal/core"
	"financas/internal/log"
	"financas/internal/sheets"
	sheetsmem "financas/internal/sheets/memory"
)

// cliEnv isolates the process environment and points every invocation at
// one SQLite file, so state carries over between commands like it does for
// a real user.
type cliEnv struct {
	t       *testing.T
	dbPath  string
	journal sheets.JournalReader
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	for _, k := range []string{"DATA_BACKEND", "SQLITE_DB_PATH", "CACHE_SIZE", "CACHE_TTL", "AMQP_URL", "LOG_FORMAT",
		"GOOGLE_SPREADSHEET_ID", "GOOGLE_SERVICE_ACCOUNT_JSON", "GOOGLE_SERVICE_ACCOUNT_FILE", "GOOGLE_APPLICATION_CREDENTIALS"} {
		t.Setenv(k, "")
	}
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("CURRENCY", "BRL")
	return &cliEnv{t: t, dbPath: filepath.Join(t.TempDir(), "financas.db")}
}

func (e *cliEnv) run(args ...string) (string, error) {
	e.t.Helper()
	var out, errOut bytes.Buffer
	a := &app{out: &out, errOut: &errOut, openJournal: openGoogleJournal}
	if e.journal != nil {
		a.openJournal = func(context.Context, *config.Config, *log.Logger) (sheets.JournalReader, error) {
			return e.journal, nil
		}
	}
	root := newRootCmd(a)
	root.SetArgs(append([]string{"--backend", "sqlite", "--db", e.dbPath}, args...))
	err := root.Execute()
	return out.String(), err
}

func (e *cliEnv) mustRun(args ...string) string {
	e.t.Helper()
	out, err := e.run(args...)
	require.NoError(e.t, err, "financas %s", strings.Join(args, " "))
	return out
}

var idPattern = regexp.MustCompile(`\(([0-9a-f-]{36})\)`)

func TestCLI_Scenario(t *testing.T) {
	env := newCLIEnv(t)

	out := env.mustRun("register", "Ana", "ana@x.com", "-p", "secret1")
	assert.Contains(t, out, "Registered Ana <ana@x.com>")

	out = env.mustRun("whoami")
	assert.Contains(t, out, "Not logged in")

	_, err := env.run("login", "ana@x.com", "-p", "wrong")
	require.Error(t, err)
	assert.Equal(t, "invalid email or password", err.Error())

	out = env.mustRun("login", "ana@x.com", "-p", "secret1")
	assert.Contains(t, out, "Logged in as Ana")

	env.mustRun("tx", "add", "-t", "income", "-a", "1000", "-d", "Salário", "-c", "Salário", "--date", "2024-01-05")
	out = env.mustRun("tx", "add", "-t", "expense", "-a", "200", "-d", "Mercado", "-c", "Alimentação", "--date", "2024-01-06")
	m := idPattern.FindStringSubmatch(out)
	require.Len(t, m, 2, "transaction id in %q", out)
	groceries := m[1]

	out = env.mustRun("balance")
	assert.Contains(t, out, core.FormatAmount(decimal.NewFromInt(1000), "BRL"))
	assert.Contains(t, out, core.FormatAmount(decimal.NewFromInt(200), "BRL"))
	assert.Contains(t, out, core.FormatAmount(decimal.NewFromInt(800), "BRL"))

	out = env.mustRun("tx", "update", groceries, "-a", "250,50")
	assert.Contains(t, out, "Updated "+groceries)

	out = env.mustRun("tx", "list", "-t", "expense")
	assert.Contains(t, out, "Mercado")
	assert.NotContains(t, out, "Salário")

	out = env.mustRun("tx", "period", "2024-01-06", "2024-01-31")
	assert.Contains(t, out, "1 transaction(s) between 2024-01-06 and 2024-01-31")

	out = env.mustRun("tx", "delete", groceries)
	assert.Contains(t, out, "Deleted "+groceries)
	out = env.mustRun("tx", "delete", groceries)
	assert.Contains(t, out, "No transaction with id "+groceries)

	out = env.mustRun("logout")
	assert.Contains(t, out, "Logged out")

	_, err = env.run("balance")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not logged in")
}

func TestCLI_Categories(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun("register", "Ana", "ana@x.com", "-p", "secret1")
	env.mustRun("login", "ana@x.com", "-p", "secret1")

	out := env.mustRun("category", "list", "-t", "income")
	assert.Equal(t, 3, strings.Count(out, "income"))

	out = env.mustRun("category", "add", "Pets", "-t", "expense", "--color", "#AABBCC")
	assert.Contains(t, out, "Added expense category Pets")

	out = env.mustRun("category", "list")
	assert.Contains(t, out, "Pets")
	assert.Equal(t, 10, strings.Count(strings.TrimSpace(out), "\n")+1)

	_, err := env.run("category", "add", "Bad", "-t", "expense", "--color", "red")
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestCLI_Profile(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun("register", "Ana", "ana@x.com", "-p", "secret1")
	env.mustRun("register", "Bob", "bob@x.com", "-p", "secret2")

	_, err := env.run("profile", "--name", "Ana Maria")
	require.Error(t, err)

	env.mustRun("login", "ana@x.com", "-p", "secret1")
	out := env.mustRun("profile", "--name", "Ana Maria")
	assert.Contains(t, out, "Profile updated: Ana Maria <ana@x.com>")

	_, err = env.run("profile", "--email", "bob@x.com")
	require.Error(t, err)
	assert.Equal(t, "this email is already registered", err.Error())

	out = env.mustRun("whoami")
	assert.Contains(t, out, "Ana Maria <ana@x.com>")

	out = env.mustRun("users")
	assert.Contains(t, out, "bob@x.com")
}

func TestCLI_InputErrors(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun("register", "Ana", "ana@x.com", "-p", "secret1")
	env.mustRun("login", "ana@x.com", "-p", "secret1")

	tests := []struct {
		name string
		args []string
	}{
		{"duplicate email", []string{"register", "Ana", "ana@x.com", "-p", "secret1"}},
		{"zero amount", []string{"tx", "add", "-t", "income", "-a", "0", "-d", "x", "-c", "x"}},
		{"bad type", []string{"tx", "add", "-t", "gift", "-a", "10", "-d", "x", "-c", "x"}},
		{"bad date", []string{"tx", "add", "-t", "income", "-a", "10", "-d", "x", "-c", "x", "--date", "05/01/2024"}},
		{"empty update", []string{"tx", "update", "some-id"}},
		{"missing password", []string{"login", "ana@x.com"}},
		{"unknown backend", []string{"--backend", "sheets", "whoami"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.run(tt.args...)
			assert.Error(t, err)
		})
	}
}

var userIDPattern = regexp.MustCompile(`id: (\S+)`)

func TestCLI_Journal(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun("register", "Ana", "ana@x.com", "-p", "secret1")

	_, err := env.run("journal")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not logged in")

	env.mustRun("login", "ana@x.com", "-p", "secret1")

	_, err = env.run("journal")
	require.Error(t, err, "journal without spreadsheet settings")
	assert.Contains(t, err.Error(), "GOOGLE_SPREADSHEET_ID")

	m := userIDPattern.FindStringSubmatch(env.mustRun("whoami"))
	require.Len(t, m, 2)
	anaID := m[1]

	journal := sheetsmem.New()
	ctx := context.Background()
	ts := time.Date(2024, 1, 6, 12, 0, 0, 0, time.UTC)
	_, err = journal.Append(ctx, sheets.Entry{Timestamp: ts, Event: core.EventTransactionCreated, OwnerID: anaID,
		EntityID: "t1", Type: core.Expense, Amount: decimal.NewFromInt(200), Description: "Mercado", Category: "Alimentação"})
	require.NoError(t, err)
	_, err = journal.Append(ctx, sheets.Entry{Timestamp: ts, Event: core.EventTransactionDeleted, OwnerID: anaID, EntityID: "t1"})
	require.NoError(t, err)
	_, err = journal.Append(ctx, sheets.Entry{Timestamp: ts, Event: core.EventCategoryCreated, OwnerID: "someone-else", EntityID: "c9"})
	require.NoError(t, err)
	env.journal = journal

	out := env.mustRun("journal")
	assert.Contains(t, out, "Mercado")
	assert.Contains(t, out, core.FormatAmount(decimal.NewFromInt(200), "BRL"))
	assert.Contains(t, out, string(core.EventTransactionDeleted))
	assert.NotContains(t, out, "c9")
	assert.Contains(t, out, "2 journal row(s)")
}
