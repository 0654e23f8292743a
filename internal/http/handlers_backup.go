package http

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"khata/internal/core"
	"khata/internal/export"
)

const maxRestoreBytes = 16 << 20 // 16 MiB

// handleExportCSV streams the filtered snapshot as a CSV download.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	family, txs, ok := s.filteredSnapshot(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", "transactions_"+family+".csv"))

	rows := core.TransactionRows(txs)
	if err := export.WriteCSV(w, core.TransactionColumns, rows); err != nil {
		// Headers are gone; all we can do is log.
		slog.ErrorContext(r.Context(), "Failed to write CSV export",
			"family", family, "error", err)
	}
}

// handleBackup returns the family's full ledger in the backup format.
func (s *Server) handleBackup(w http.ResponseWriter, r *http.Request) {
	family, ok := parseFamily(w, r)
	if !ok {
		return
	}

	data, err := s.backups.Snapshot(r.Context(), family)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to create backup",
			"family", family, "error", err)
		httpError(w, http.StatusInternalServerError, "failed to create backup")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", "backup_"+family+".json"))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// handleRestore accepts a backup file and inserts its records. Bad
// records are skipped and reported, the rest still go in.
func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	family, ok := parseFamily(w, r)
	if !ok {
		return
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxRestoreBytes))
	if err != nil {
		httpError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	report, err := s.backups.Restore(r.Context(), family, data)
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.invalidateSnapshot(family)
	writeJSON(w, http.StatusOK, report)
}
