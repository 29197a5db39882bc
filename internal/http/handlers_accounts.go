package http

import (
	"net/http"

	"farmprofit/internal/log"
)

type createAccountRequest struct {
	CropName string `json:"cropName"`
	Location string `json:"location"`
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ledger.ListAccounts())
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	account, err := s.ledger.CreateAccount(r.Context(), sanitizeInput(req.CropName), sanitizeInput(req.Location))
	if err != nil {
		s.logFailure(r, "Account creation failed", err, log.OpCreate, log.NewFields())
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	account, err := s.ledger.FindAccount(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.ledger.RemoveAccount(r.Context(), id); err != nil {
		s.logFailure(r, "Account removal failed", err, log.OpDelete, log.NewFields().WithAccount(id, ""))
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// logFailure logs unexpected errors; client mistakes are only visible in the
// access log.
func (s *Server) logFailure(r *http.Request, msg string, err error, op string, fields log.LogFields) {
	if statusFor(err) < http.StatusInternalServerError {
		return
	}
	s.reqLogger.LogError(r.Context(), msg, err, op, fields)
}
