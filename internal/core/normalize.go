package core

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// RawRecord is a transaction document as the store or a backup file delivers
// it: untyped, with optional fields and several possible date encodings.
type RawRecord map[string]any

// RecordError pairs a rejected raw record with the reason it was skipped.
type RecordError struct {
	Index  int
	Record RawRecord
	Reason error
}

// NormalizeResult carries the records that normalized cleanly alongside the
// per-record failures. A failure never aborts the batch.
type NormalizeResult struct {
	Valid  []Transaction
	Errors []RecordError
}

// Normalize converts a raw record into the canonical Transaction form.
//
// The date is resolved with this precedence: a {seconds: N} timestamp
// wrapper on "date" then "createdAt", then a parseable string or time value
// on the same fields. Amounts accept JSON numbers or numeric strings and
// must not be negative. The type string must be exactly "income" or
// "expense". Missing category and description are defaulted, not rejected.
func Normalize(raw RawRecord) (Transaction, error) {
	occurredAt, err := resolveOccurredAt(raw)
	if err != nil {
		return Transaction{}, err
	}

	cents, err := resolveAmount(raw["amount"])
	if err != nil {
		return Transaction{}, err
	}

	typ, _ := raw["type"].(string)
	txType := TxType(typ)
	if !txType.Valid() {
		return Transaction{}, ErrInvalidType
	}

	category := DefaultCategory
	if c, ok := raw["category"].(string); ok && strings.TrimSpace(c) != "" {
		category = strings.TrimSpace(c)
	}

	description := ""
	if t, ok := raw["title"].(string); ok {
		description = strings.TrimSpace(t)
	} else if d, ok := raw["description"].(string); ok {
		description = strings.TrimSpace(d)
	}

	id, _ := raw["id"].(string)
	owner, _ := raw["uid"].(string)

	return Transaction{
		ID:          id,
		Type:        txType,
		Amount:      Money{Cents: cents},
		Category:    category,
		Description: description,
		OccurredAt:  occurredAt,
		Owner:       owner,
	}, nil
}

// NormalizeAll runs Normalize over a batch, collecting failures instead of
// propagating them, so a caller can report "N records skipped" and still
// aggregate the rest.
func NormalizeAll(raws []RawRecord) NormalizeResult {
	var res NormalizeResult
	for i, raw := range raws {
		tx, err := Normalize(raw)
		if err != nil {
			res.Errors = append(res.Errors, RecordError{Index: i, Record: raw, Reason: err})
			continue
		}
		res.Valid = append(res.Valid, tx)
	}
	return res
}

func resolveOccurredAt(raw RawRecord) (time.Time, error) {
	candidates := []any{raw["date"], raw["createdAt"]}

	// Timestamp wrappers win over string forms regardless of which field
	// carries them; the source components read .seconds first.
	for _, v := range candidates {
		if t, ok := timestampSeconds(v); ok {
			return t, nil
		}
	}
	for _, v := range candidates {
		if t, ok := parseDateValue(v); ok {
			return t, nil
		}
	}
	return time.Time{}, ErrInvalidDate
}

// timestampSeconds unwraps a store-native {seconds: N} timestamp.
func timestampSeconds(v any) (time.Time, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return time.Time{}, false
	}
	sec, ok := m["seconds"]
	if !ok {
		return time.Time{}, false
	}
	switch s := sec.(type) {
	case float64:
		return time.Unix(int64(s), 0).UTC(), true
	case int64:
		return time.Unix(s, 0).UTC(), true
	case int:
		return time.Unix(int64(s), 0).UTC(), true
	case json.Number:
		if n, err := s.Int64(); err == nil {
			return time.Unix(n, 0).UTC(), true
		}
	}
	return time.Time{}, false
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseDateValue(v any) (time.Time, bool) {
	switch d := v.(type) {
	case time.Time:
		if d.IsZero() {
			return time.Time{}, false
		}
		return d, true
	case string:
		s := strings.TrimSpace(d)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

func resolveAmount(v any) (int64, error) {
	switch a := v.(type) {
	case float64:
		return CentsFromFloat(a)
	case int:
		return CentsFromFloat(float64(a))
	case int64:
		return CentsFromFloat(float64(a))
	case json.Number:
		return ParseAmountToCents(a.String())
	case string:
		return ParseAmountToCents(a)
	}
	return 0, ErrInvalidAmount
}

// amountString is used by report shaping to round-trip raw amounts; kept
// here so parsing rules live in one file.
func amountString(cents int64) string {
	if cents%100 == 0 {
		return strconv.FormatInt(cents/100, 10)
	}
	return strconv.FormatFloat(float64(cents)/100.0, 'f', 2, 64)
}
