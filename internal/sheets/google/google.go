package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"financas/internal/log"
	ports "financas/internal/sheets"
)

const defaultRowCacheDuration = 2 * time.Minute

// Config selects the spreadsheet and the service account used to reach it.
// CredentialsJSON wins over CredentialsFile when both are set.
type Config struct {
	SpreadsheetID   string
	JournalSheet    string
	CredentialsJSON string
	CredentialsFile string
}

// Client appends journal rows to "<year> <JournalSheet>", one sheet per
// calendar year of the event timestamp.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	journalBase   string
	logger        *log.Logger
	now           func() time.Time

	// Row count of cachedSheet, saved so consecutive appends skip a read.
	mu                 sync.Mutex
	cachedSheet        string
	cachedRowCount     int
	cacheExpiresAt     time.Time
	cacheValidDuration time.Duration
}

var (
	_ ports.JournalWriter = (*Client)(nil)
	_ ports.JournalReader = (*Client)(nil)
)

type Option func(*Client)

func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l.WithComponent(log.ComponentSheets) }
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config, opts ...Option) (*Client, error) {
	spreadsheetID := strings.TrimSpace(cfg.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	journal := strings.TrimSpace(cfg.JournalSheet)
	if journal == "" {
		journal = "Journal"
	}

	creds, err := loadCredentials(cfg)
	if err != nil {
		return nil, err
	}

	c := &Client{
		spreadsheetID:      spreadsheetID,
		journalBase:        journal,
		logger:             log.Nop(),
		now:                time.Now,
		cacheValidDuration: defaultRowCacheDuration,
	}
	for _, opt := range opts {
		opt(c)
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	c.svc = svc

	c.logger.InfoContext(ctx, "Google Sheets service created",
		"spreadsheet_id", spreadsheetID,
		"journal_sheet", journal)
	return c, nil
}

func loadCredentials(cfg Config) ([]byte, error) {
	inline := strings.TrimSpace(cfg.CredentialsJSON)
	file := strings.TrimSpace(cfg.CredentialsFile)
	switch {
	case inline != "":
		return []byte(inline), nil
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// Append writes e on the first free row of its year's journal sheet. An empty
// sheet gets the header row first.
func (c *Client) Append(ctx context.Context, e ports.Entry) (string, error) {
	if e.OwnerID == "" || e.Event == "" {
		return "", fmt.Errorf("incomplete journal entry: event=%q owner=%q", e.Event, e.OwnerID)
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	sheet := yearPrefixedName(c.journalBase, e.Timestamp.Year())
	rows, err := c.rowCount(ctx, sheet)
	if err != nil {
		return "", err
	}

	values := [][]any{journalRow(e)}
	if rows == 0 {
		values = [][]any{journalHeader, journalRow(e)}
	}
	first := rows + 1
	last := rows + len(values)

	rng := fmt.Sprintf("%s!A%d:I%d", sheet, first, last)
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		c.InvalidateRowCache()
		return "", fmt.Errorf("failed to update %s: %w", rng, err)
	}
	c.storeRowCount(sheet, last)

	ref := fmt.Sprintf("%s!A%d:I%d", sheet, last, last)
	c.logger.DebugContext(ctx, "Journal row appended",
		log.FieldOperation, log.OpAppend,
		log.FieldSheetsRef, ref,
		log.FieldEventType, string(e.Event))
	return ref, nil
}

// List reads the current year's journal sheet and returns ownerID's rows.
func (c *Client) List(ctx context.Context, ownerID string) ([]ports.Entry, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A:I", yearPrefixedName(c.journalBase, c.clock().Year()))
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return parseJournalRows(resp.Values, ownerID), nil
}

func (c *Client) rowCount(ctx context.Context, sheet string) (int, error) {
	if n, ok := c.cachedRows(sheet); ok {
		return n, nil
	}
	rng := fmt.Sprintf("%s!A:A", sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("failed to get sheet dimensions for %s: %w", sheet, err)
	}
	c.storeRowCount(sheet, len(resp.Values))
	return len(resp.Values), nil
}

func (c *Client) cachedRows(sheet string) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cachedSheet != sheet || !c.clock().Before(c.cacheExpiresAt) {
		return 0, false
	}
	return c.cachedRowCount, true
}

func (c *Client) storeRowCount(sheet string, n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cachedSheet = sheet
	c.cachedRowCount = n
	c.cacheExpiresAt = c.clock().Add(c.cacheValidDuration)
}

func (c *Client) clock() time.Time {
	if c.now == nil {
		return time.Now()
	}
	return c.now()
}

// InvalidateRowCache forces the next append to re-read the sheet size, e.g.
// after rows were edited by hand.
func (c *Client) InvalidateRowCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cacheExpiresAt = time.Time{}
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
