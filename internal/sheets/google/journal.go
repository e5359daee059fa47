package google

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"financas/internal/core"
	ports "financas/internal/sheets"
)

var journalHeader = []any{"Timestamp", "Event", "Owner", "Entity", "Type", "Amount", "Description", "Category", "Date"}

func journalRow(e ports.Entry) []any {
	amount := ""
	if !e.Amount.IsZero() {
		amount = e.Amount.StringFixed(2)
	}
	return []any{
		e.Timestamp.UTC().Format(time.RFC3339),
		string(e.Event),
		e.OwnerID,
		e.EntityID,
		string(e.Type),
		amount,
		e.Description,
		e.Category,
		e.Date,
	}
}

// parseJournalRows converts a values matrix (as returned by the Sheets API)
// back into entries belonging to ownerID. The header row and rows that do
// not parse are skipped.
func parseJournalRows(values [][]any, ownerID string) []ports.Entry {
	var out []ports.Entry
	for _, row := range values {
		cols := toStrings(row)
		if len(cols) < 4 || cols[2] != ownerID {
			continue
		}
		ts, err := time.Parse(time.RFC3339, cols[0])
		if err != nil {
			continue
		}
		e := ports.Entry{
			Timestamp:   ts,
			Event:       core.EventType(cols[1]),
			OwnerID:     cols[2],
			EntityID:    cols[3],
			Type:        core.TransactionType(safeGet(cols, 4)),
			Description: safeGet(cols, 6),
			Category:    safeGet(cols, 7),
			Date:        safeGet(cols, 8),
		}
		if raw := safeGet(cols, 5); raw != "" {
			amount, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", "."))
			if err != nil {
				continue
			}
			e.Amount = amount
		}
		out = append(out, e)
	}
	return out
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
