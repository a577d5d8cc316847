package api

import (
	"context"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"portfoliotracker/pkg/portfolio"
)

const maxUploadSize = 5 << 20

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) getSession(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, h.core.Snapshot(sessionFrom(r)))
}

func (h *handler) getHoldings(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, h.core.Overview(sessionFrom(r)))
}

func (h *handler) getSummary(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, h.core.Overview(sessionFrom(r)).Summary)
}

func (h *handler) addHolding(w http.ResponseWriter, r *http.Request) {
	var payload addHoldingPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	h.dispatch(w, r, portfolio.AddHolding{
		Ticker:   payload.Ticker,
		Quantity: payload.Quantity,
		BuyPrice: payload.BuyPrice,
	})
}

func (h *handler) removeHolding(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, portfolio.RemoveHolding{Ticker: chi.URLParam(r, "ticker")})
}

func (h *handler) clearHoldings(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, portfolio.ClearPortfolio{})
}

func (h *handler) refreshPrices(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, portfolio.RefreshPrices{})
}

func (h *handler) selectTab(w http.ResponseWriter, r *http.Request) {
	var payload tabPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	h.dispatch(w, r, portfolio.SelectTab{Tab: payload.Tab})
}

func (h *handler) selectTicker(w http.ResponseWriter, r *http.Request) {
	var payload tickerPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	h.dispatch(w, r, portfolio.SelectTicker{Ticker: payload.Ticker})
}

func (h *handler) selectPeriod(w http.ResponseWriter, r *http.Request) {
	var payload periodPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	h.dispatch(w, r, portfolio.SelectPeriod{Period: payload.Period})
}

func (h *handler) signOut(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, portfolio.SignOut{})
}

// dispatch runs a command and answers with the notice and the new state.
func (h *handler) dispatch(w http.ResponseWriter, r *http.Request, cmd portfolio.Command) {
	s := sessionFrom(r)
	notice, err := h.core.Dispatch(r.Context(), s, cmd)
	if err != nil {
		writeNoticeError(w, r, notice, err)
		return
	}
	writeNotice(w, notice, h.state(s))
}

func (h *handler) state(s *portfolio.SessionState) stateResponse {
	return stateResponse{
		Session:  h.core.Snapshot(s),
		Overview: h.core.Overview(s),
	}
}

func (h *handler) importHoldings(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	body, closeBody, err := uploadReader(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	defer closeBody()

	s := sessionFrom(r)
	result, notice, err := h.core.ImportCSV(r.Context(), s, body)
	if err != nil {
		writeNoticeError(w, r, notice, err)
		return
	}
	resp := importResponse{
		Imported: []portfolio.HoldingRow{},
		Skipped:  []skippedRow{},
		Overview: h.core.Overview(s),
	}
	for _, hd := range result.Imported() {
		resp.Imported = append(resp.Imported, portfolio.NewHoldingRow(hd))
	}
	for _, sk := range result.Skipped() {
		resp.Skipped = append(resp.Skipped, skippedRow{Ticker: sk.Ticker, Reason: sk.Reason})
	}
	writeNotice(w, notice, resp)
}

// uploadReader returns the CSV from a multipart "file" field, or the raw body
// for any other content type.
func uploadReader(r *http.Request) (io.Reader, func(), error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return r.Body, func() {}, nil
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, nil, err
	}
	return file, func() { _ = file.Close() }, nil
}

func (h *handler) exportHoldings(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="portfolio.csv"`)
	if err := h.core.ExportCSV(sessionFrom(r), w); err != nil {
		h.core.Logger().Error("export failed", "err", err)
	}
}

func (h *handler) getAnalytics(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, h.core.Analytics(sessionFrom(r)))
}

func (h *handler) getDividends(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, h.core.Dividends(r.Context(), sessionFrom(r)))
}

func (h *handler) getCompany(w http.ResponseWriter, r *http.Request) {
	detail, err := h.core.CompanyDetail(r.Context(), sessionFrom(r), chi.URLParam(r, "ticker"), r.URL.Query().Get("period"))
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	writeSuccess(w, detail)
}

func (h *handler) signIn(w http.ResponseWriter, r *http.Request) {
	h.authenticate(w, r, h.core.SignIn)
}

func (h *handler) signUp(w http.ResponseWriter, r *http.Request) {
	h.authenticate(w, r, h.core.SignUp)
}

func (h *handler) authenticate(
	w http.ResponseWriter,
	r *http.Request,
	fn func(context.Context, *portfolio.SessionState, string, string) (portfolio.Notice, error),
) {
	var payload credentialsPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	s := sessionFrom(r)
	notice, err := fn(r.Context(), s, payload.Email, payload.Password)
	if err != nil {
		writeNoticeError(w, r, notice, err)
		return
	}
	writeNotice(w, notice, h.core.Snapshot(s))
}

func (h *handler) savePortfolio(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r)
	notice, err := h.core.SavePortfolio(r.Context(), s)
	if err != nil {
		writeNoticeError(w, r, notice, err)
		return
	}
	writeNotice(w, notice, h.core.Snapshot(s))
}

func (h *handler) loadPortfolio(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r)
	notice, err := h.core.LoadPortfolio(r.Context(), s)
	if err != nil {
		writeNoticeError(w, r, notice, err)
		return
	}
	writeNotice(w, notice, h.state(s))
}

func (h *handler) getOperationLogs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, offset := normalizeLimitOffset(parseIntDefault(query.Get("limit"), 50), parseIntDefault(query.Get("offset"), 0))
	logs, err := h.core.GetOperationLogs(r.Context(), sessionFrom(r).ID, limit, offset)
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	if logs == nil {
		logs = []portfolio.OperationLog{}
	}
	writeSuccess(w, operationLogsResponse{Items: logs, Limit: limit, Offset: offset})
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func parseIntDefault(value string, fallback int) int {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return i
}

func normalizeLimitOffset(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
