package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"khata/internal/core"
)

// transactionView is the JSON shape of one transaction.
type transactionView struct {
	ID          string  `json:"id"`
	Type        string  `json:"type"`
	AmountCents int64   `json:"amount_cents"`
	Amount      float64 `json:"amount"`
	Display     string  `json:"display"`
	Category    string  `json:"category"`
	Description string  `json:"description,omitempty"`
	Date        string  `json:"date"`
	Owner       string  `json:"owner,omitempty"`
}

func viewOf(tx core.Transaction) transactionView {
	return transactionView{
		ID:          tx.ID,
		Type:        string(tx.Type),
		AmountCents: tx.Amount.Cents,
		Amount:      tx.Amount.Rupees(),
		Display:     core.FormatRupees(tx.Amount.Cents),
		Category:    tx.Category,
		Description: tx.Description,
		Date:        tx.OccurredAt.UTC().Format("2006-01-02"),
		Owner:       tx.Owner,
	}
}

// handleCreateTransaction accepts a raw record body, normalizes it, and
// stores the result. Amounts may arrive as numbers or strings; the
// normalizer sorts it out.
func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	family, ok := parseFamily(w, r)
	if !ok {
		return
	}

	var raw core.RawRecord
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		httpError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	tx, err := core.Normalize(raw)
	if err != nil {
		httpError(w, normalizeStatus(err), err.Error())
		return
	}

	id, err := s.transactions.Create(r.Context(), family, tx)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to create transaction",
			"family", family, "error", err)
		httpError(w, http.StatusInternalServerError, "failed to store transaction")
		return
	}
	tx.ID = id

	s.invalidateSnapshot(family)
	s.countTransaction()

	writeJSON(w, http.StatusCreated, viewOf(tx))
}

// handleListTransactions returns the family snapshot, optionally
// filtered by from/to/category/type query parameters.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	family, ok := parseFamily(w, r)
	if !ok {
		return
	}
	filter, err := parseFilter(r)
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}

	txs, err := s.snapshot(r.Context(), family)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list transactions",
			"family", family, "error", err)
		httpError(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}
	txs = core.ApplyFilter(txs, filter)

	views := make([]transactionView, 0, len(txs))
	for _, tx := range txs {
		views = append(views, viewOf(tx))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"transactions": views,
		"count":        len(views),
	})
}

// handleUpdateTransaction re-normalizes the submitted record and replaces
// the stored transaction under the path id.
func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	family, ok := parseFamily(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	if id == "" {
		httpError(w, http.StatusBadRequest, "missing transaction id")
		return
	}

	var raw core.RawRecord
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		httpError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	tx, err := core.Normalize(raw)
	if err != nil {
		httpError(w, normalizeStatus(err), err.Error())
		return
	}
	tx.ID = id

	if err := s.transactions.Update(r.Context(), family, tx); err != nil {
		httpError(w, http.StatusNotFound, "transaction not found")
		return
	}

	s.invalidateSnapshot(family)
	writeJSON(w, http.StatusOK, viewOf(tx))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	family, ok := parseFamily(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	if id == "" {
		httpError(w, http.StatusBadRequest, "missing transaction id")
		return
	}

	if err := s.transactions.Delete(r.Context(), family, id); err != nil {
		httpError(w, http.StatusNotFound, "transaction not found")
		return
	}

	s.invalidateSnapshot(family)
	writeJSON(w, http.StatusOK, map[string]string{"deleted": id})
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	family, ok := parseFamily(w, r)
	if !ok {
		return
	}

	cats, err := s.store.ListCategories(r.Context(), family)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list categories",
			"family", family, "error", err)
		httpError(w, http.StatusInternalServerError, "failed to list categories")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"categories": cats,
		"count":      len(cats),
	})
}

func (s *Server) handleSaveCategory(w http.ResponseWriter, r *http.Request) {
	family, ok := parseFamily(w, r)
	if !ok {
		return
	}

	var cat core.Category
	if err := json.NewDecoder(r.Body).Decode(&cat); err != nil {
		httpError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := cat.Validate(); err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.store.SaveCategory(r.Context(), family, cat); err != nil {
		slog.ErrorContext(r.Context(), "Failed to save category",
			"family", family, "category", cat.Name, "error", err)
		httpError(w, http.StatusInternalServerError, "failed to save category")
		return
	}
	writeJSON(w, http.StatusCreated, cat)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	family, ok := parseFamily(w, r)
	if !ok {
		return
	}
	name := r.URL.Query().Get("name")
	txType := core.TxType(r.URL.Query().Get("type"))
	if name == "" || !txType.Valid() {
		httpError(w, http.StatusBadRequest, "name and type query parameters are required")
		return
	}

	if err := s.store.DeleteCategory(r.Context(), family, name, txType); err != nil {
		httpError(w, http.StatusNotFound, "category not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": name})
}
