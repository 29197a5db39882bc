package http

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"farmprofit/internal/core"
	"farmprofit/internal/currency"
	"farmprofit/internal/i18n"
	"farmprofit/internal/report"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps ledger errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrDuplicateAccount):
		return http.StatusConflict
	case errors.Is(err, core.ErrPersistence):
		return http.StatusServiceUnavailable
	case errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidType),
		errors.Is(err, core.ErrEmptyRequiredField),
		errors.Is(err, core.ErrDescriptionTooLong),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

var errBadRequest = errors.New("bad request")

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

// decodeJSON reads a single JSON object from the request body.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err)
	}
	return nil
}

// sanitizeInput trims whitespace and drops control characters other than
// tab and newlines.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}

func generateRequestID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(b)
}

// reportParams are the query parameters shared by the summary, chart and
// report endpoints.
type reportParams struct {
	Range     report.DateRange
	Lang      string
	Formatter currency.Formatter
}

func (s *Server) parseReportParams(r *http.Request) (reportParams, error) {
	q := r.URL.Query()
	rng, err := report.ParseDateRange(q.Get("start"), q.Get("end"))
	if err != nil {
		return reportParams{}, err
	}

	lang := strings.TrimSpace(q.Get("lang"))
	if lang == "" {
		lang = s.defaultLang
	}
	lang = i18n.Normalize(lang)

	profile := currency.ProfileFor(lang)
	if code := strings.TrimSpace(q.Get("currency")); code != "" {
		p, ok := currency.ByCode(code)
		if !ok {
			return reportParams{}, fmt.Errorf("%w: unknown currency %q", errBadRequest, code)
		}
		profile = p
	}
	return reportParams{Range: rng, Lang: lang, Formatter: currency.NewFormatter(profile)}, nil
}
