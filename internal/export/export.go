// Package export turns ledger snapshots into portable artifacts: CSV
// tables for spreadsheets and a JSON backup format that Restore accepts
// back unchanged.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"khata/internal/core"
)

// WriteCSV writes a header row followed by one line per row, in the given
// column order. Missing cells come out empty.
func WriteCSV(w io.Writer, columns []string, rows []core.Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	record := make([]string, len(columns))
	for i, row := range rows {
		for j, col := range columns {
			switch v := row[col].(type) {
			case nil:
				record[j] = ""
			case string:
				record[j] = v
			default:
				record[j] = fmt.Sprint(v)
			}
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// backupRecord is one transaction in the backup file. The shape matches
// what Restore reads back: amounts in rupees, timestamps as RFC 3339.
type backupRecord struct {
	Title     string  `json:"title"`
	Amount    float64 `json:"amount"`
	Category  string  `json:"category"`
	Type      string  `json:"type"`
	CreatedAt string  `json:"createdAt"`
	UID       string  `json:"uid,omitempty"`
}

// MarshalBackup serializes a snapshot as an indented JSON array.
func MarshalBackup(txs []core.Transaction) ([]byte, error) {
	records := make([]backupRecord, 0, len(txs))
	for _, tx := range txs {
		records = append(records, backupRecord{
			Title:     tx.Description,
			Amount:    tx.Amount.Rupees(),
			Category:  tx.Category,
			Type:      string(tx.Type),
			CreatedAt: tx.OccurredAt.UTC().Format(time.RFC3339),
			UID:       tx.Owner,
		})
	}
	return json.MarshalIndent(records, "", "  ")
}

// ParseBackup decodes a backup file into raw records for normalization.
// It only checks the JSON shape; per-record validation is the
// normalizer's job.
func ParseBackup(data []byte) ([]core.RawRecord, error) {
	var raws []core.RawRecord
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("parse backup: %w", err)
	}
	return raws, nil
}
