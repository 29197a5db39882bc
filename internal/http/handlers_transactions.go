package http

import (
	"bytes"
	"encoding/json"
	"net/http"

	"farmprofit/internal/core"
	"farmprofit/internal/log"
)

// amountField accepts an amount as a JSON number or as a string, so form
// values like "12,50" pass through to core's parser untouched.
type amountField string

func (a *amountField) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = amountField(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*a = amountField(n.String())
	return nil
}

type transactionRequest struct {
	Type        string      `json:"type"`
	Amount      amountField `json:"amount"`
	Description string      `json:"description"`
	Date        string      `json:"date"`
}

func (s *Server) decodeTransaction(r *http.Request) (core.TransactionInput, error) {
	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		return core.TransactionInput{}, err
	}
	return core.ParseTransactionInput(
		sanitizeInput(req.Type),
		sanitizeInput(string(req.Amount)),
		sanitizeInput(req.Description),
		sanitizeInput(req.Date),
	)
}

func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	accountID := r.PathValue("id")
	in, err := s.decodeTransaction(r)
	if err != nil {
		writeError(w, err)
		return
	}

	tx, err := s.ledger.AddTransaction(r.Context(), accountID, in)
	if err != nil {
		s.logFailure(r, "Transaction add failed", err, log.OpCreate, log.NewFields().WithAccount(accountID, ""))
		writeError(w, err)
		return
	}
	s.reqLogger.LogTransactionSaved(r.Context(), log.OpCreate, accountID, tx.ID, string(tx.Type), tx.Amount.Cents)
	writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	accountID, txID := r.PathValue("id"), r.PathValue("txID")
	in, err := s.decodeTransaction(r)
	if err != nil {
		writeError(w, err)
		return
	}

	tx, err := s.ledger.UpdateTransaction(r.Context(), accountID, txID, in)
	if err != nil {
		s.logFailure(r, "Transaction update failed", err, log.OpUpdate,
			log.NewFields().WithAccount(accountID, "").WithTransaction(txID, string(in.Type), in.Amount.Cents))
		writeError(w, err)
		return
	}
	s.reqLogger.LogTransactionSaved(r.Context(), log.OpUpdate, accountID, tx.ID, string(tx.Type), tx.Amount.Cents)
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	accountID, txID := r.PathValue("id"), r.PathValue("txID")
	if err := s.ledger.RemoveTransaction(r.Context(), accountID, txID); err != nil {
		s.logFailure(r, "Transaction removal failed", err, log.OpDelete, log.NewFields().WithAccount(accountID, ""))
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
