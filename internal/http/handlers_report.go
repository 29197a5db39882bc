package http

import (
	"bytes"
	"context"
	"net/http"
	"strconv"

	"farmprofit/internal/aggregate"
	"farmprofit/internal/log"
	"farmprofit/internal/render"
	"farmprofit/internal/report"
)

const (
	reportFilename = "Farm_Profit_Report.txt"
	invalidHeader  = "X-Invalid-Transactions"
)

type summaryResponse struct {
	Lang               string           `json:"lang"`
	Currency           string           `json:"currency"`
	Start              string           `json:"start,omitempty"`
	End                string           `json:"end,omitempty"`
	Accounts           []report.Summary `json:"accounts"`
	NetProfit          int64            `json:"net_profit"`
	FormattedNetProfit string           `json:"formatted_net_profit"`
	Invalid            int              `json:"invalid"`
}

type series struct {
	Labels []string `json:"labels"`
	Values []int64  `json:"values"`
}

type chartsResponse struct {
	Weekly  series `json:"weekly"`
	Monthly series `json:"monthly"`
	Invalid int    `json:"invalid"`
}

func newSeries(b aggregate.Buckets) series {
	keys := b.Keys()
	s := series{Labels: keys, Values: make([]int64, 0, len(keys))}
	for _, k := range keys {
		s.Values = append(s.Values, b.Totals[k])
	}
	return s
}

// labels resolves report labels for lang. A catalog failure degrades to
// English rather than failing the request.
func (s *Server) labels(ctx context.Context, lang string) report.Labels {
	catalog, err := s.translations.Load(ctx, lang)
	if err != nil {
		log.FromContext(ctx).WarnContext(ctx, "Translation catalog unavailable, using defaults",
			log.FieldLanguage, lang,
			log.FieldError, err.Error())
		return report.DefaultLabels()
	}
	return catalog.Labels()
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	params, err := s.parseReportParams(r)
	if err != nil {
		writeError(w, err)
		return
	}

	labels := s.labels(r.Context(), params.Lang)
	summaries := report.BuildSummaries(s.ledger.ListAccounts(), params.Range, params.Formatter, labels)

	var net int64
	invalid := 0
	for _, sum := range summaries {
		net += sum.Totals.NetProfit
		invalid += sum.Invalid
	}
	writeJSON(w, http.StatusOK, summaryResponse{
		Lang:               params.Lang,
		Currency:           params.Formatter.Profile().Code,
		Start:              params.Range.Start.String(),
		End:                params.Range.End.String(),
		Accounts:           summaries,
		NetProfit:          net,
		FormattedNetProfit: params.Formatter.Format(net),
		Invalid:            invalid,
	})
}

func (s *Server) handleCharts(w http.ResponseWriter, r *http.Request) {
	params, err := s.parseReportParams(r)
	if err != nil {
		writeError(w, err)
		return
	}

	sel := report.Partition(s.ledger.Transactions(), params.Range)
	weekly := aggregate.BucketByWeek(sel.Matched)
	monthly := aggregate.BucketByMonth(sel.Matched)

	invalid := len(sel.Invalid) + len(weekly.Invalid)
	if invalid > 0 {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Transactions with unreadable date or amount left out of charts",
			"count", invalid)
	}
	writeJSON(w, http.StatusOK, chartsResponse{
		Weekly:  newSeries(weekly),
		Monthly: newSeries(monthly),
		Invalid: invalid,
	})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	params, err := s.parseReportParams(r)
	if err != nil {
		writeError(w, err)
		return
	}

	labels := s.labels(r.Context(), params.Lang)
	rep := report.BuildMultiAccountReport(s.ledger.ListAccounts(), params.Range, params.Formatter, labels)

	if rep.Invalid > 0 {
		w.Header().Set(invalidHeader, strconv.Itoa(rep.Invalid))
	}
	if r.URL.Query().Get("format") == "json" {
		writeJSON(w, http.StatusOK, rep)
		return
	}

	var buf bytes.Buffer
	if err := render.WriteText(&buf, rep, s.perPage); err != nil {
		s.reqLogger.LogError(r.Context(), "Report rendering failed", err, log.OpExport, log.NewFields())
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+reportFilename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleTranslations(w http.ResponseWriter, r *http.Request) {
	catalog, err := s.translations.Load(r.Context(), r.PathValue("lang"))
	if err != nil {
		s.reqLogger.LogError(r.Context(), "Translation load failed", err, log.OpLoad, log.NewFields())
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Lang     string            `json:"lang"`
		Messages map[string]string `json:"messages"`
	}{Lang: catalog.Lang, Messages: catalog.Resolved()})
}
