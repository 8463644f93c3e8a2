/*
handlers.go - HTTP API handlers for the collections engine

PURPOSE:
  Exposes the billing engine, reports and letters via REST API. Handles
  HTTP request/response and JSON serialization, and delegates every
  computation to the billing, reporting and letters packages.

ENDPOINTS:
  Clients:
    GET    /api/clients                      List (search, sort, paginate)
    POST   /api/clients                      Create from intake form
    GET    /api/clients/{id}                 Client with billing picture
    PUT    /api/clients/{id}                 Update profile
    DELETE /api/clients/{id}                 Delete client
    GET    /api/clients/{id}/billing         Billing state (?as_of=)

  Billing events:
    POST   /api/clients/{id}/invoice         Set up invoice and installments
    POST   /api/clients/{id}/payments        Record payment
    POST   /api/clients/{id}/arrangement     Save payment arrangement
    DELETE /api/clients/{id}/arrangement     Remove payment arrangement
    POST   /api/clients/{id}/promise         Save payment promise
    DELETE /api/clients/{id}/promise         Remove payment promise
    POST   /api/clients/{id}/logs            Append communication log entry
    POST   /api/clients/{id}/follow-up       Schedule next follow-up

  Letters:
    GET    /api/clients/{id}/letters/past-due     Past-due summary (?as_of=)
    POST   /api/clients/{id}/letters/warning      Warning letter values
    POST   /api/clients/{id}/letters/termination  Termination letter values

  Reports:
    GET    /api/meta                         Intake form options
    GET    /api/reports/summary              Dashboard summary
    GET    /api/follow-ups                   Clients due for follow-up
    POST   /api/follow-ups/digest            Send today's digest now
    GET    /api/follow-ups/digest/runs       Recent digest runs
    GET    /api/promises                     Promise lookup (?date= or ?month=)

REQUEST FLOW (billing events):
  1. Decode the event from the body
  2. Load the client from the store
  3. billing.Apply validates and returns the next client and a patch
  4. Store the patch
  5. Respond with the client and its billing picture

ERROR HANDLING:
  - 400: Validation errors, invalid input
  - 404: Client not found
  - 500: Internal errors

SEE ALSO:
  - dto.go: Response structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/warp/collections-engine/billing"
	"github.com/warp/collections-engine/letters"
	"github.com/warp/collections-engine/logger"
	"github.com/warp/collections-engine/reporting"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     billing.ClientStore
	Clock     billing.Clock
	CutoffDay int

	// Scheduler backs POST /api/follow-ups/digest; nil disables it.
	Scheduler *FollowUpScheduler

	log *slog.Logger

	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a handler over store. A nil clock means the system clock.
func NewHandler(store billing.ClientStore, clock billing.Clock) *Handler {
	if clock == nil {
		clock = billing.SystemClock{}
	}
	return &Handler{
		Store:     store,
		Clock:     clock,
		CutoffDay: billing.DefaultCutoffDay,
		log:       logger.WithService("api"),
	}
}

func (h *Handler) today() billing.Date {
	return billing.Today(h.Clock)
}

// asOf reads ?as_of=YYYY-MM-DD, defaulting to today.
func (h *Handler) asOf(r *http.Request) (billing.Date, error) {
	return dateParam(r, "as_of", h.today())
}

// =============================================================================
// CLIENT HANDLERS
// =============================================================================

// ListClients returns a page of client rows.
func (h *Handler) ListClients(w http.ResponseWriter, r *http.Request) {
	asOf, err := h.asOf(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of (use YYYY-MM-DD)", err)
		return
	}
	q := r.URL.Query()
	query := reporting.ClientQuery{
		Search:  q.Get("search"),
		SortKey: q.Get("sort"),
		Desc:    strings.EqualFold(q.Get("order"), "desc"),
		Page:    intParam(q.Get("page")),
		PerPage: intParam(q.Get("per_page")),
	}

	clients, err := h.Store.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list clients", err)
		return
	}
	writeJSON(w, http.StatusOK, reporting.ClientRows(clients, asOf, query))
}

// CreateClient creates a client from the intake form.
func (h *Handler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var req billing.UpdateProfile
	if !decodeBody(w, r, &req) {
		return
	}

	c, err := billing.NewClient(req, h.Clock.Now())
	if err != nil {
		writeDomainError(w, "Invalid client", err)
		return
	}
	created, err := h.Store.Create(r.Context(), c)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create client", err)
		return
	}

	h.log.Info("client created", "client_id", created.ID, "case_type", created.CaseType, "request_id", middleware.GetReqID(r.Context()))
	writeJSON(w, http.StatusCreated, h.detail(created, h.today()))
}

// GetClient returns a client with its billing picture.
func (h *Handler) GetClient(w http.ResponseWriter, r *http.Request) {
	asOf, err := h.asOf(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of (use YYYY-MM-DD)", err)
		return
	}
	c, ok := h.loadClient(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.detail(c, asOf))
}

// GetBilling returns only the billing picture.
func (h *Handler) GetBilling(w http.ResponseWriter, r *http.Request) {
	asOf, err := h.asOf(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of (use YYYY-MM-DD)", err)
		return
	}
	c, ok := h.loadClient(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newBillingDTO(c, asOf, h.CutoffDay))
}

// DeleteClient removes a client.
func (h *Handler) DeleteClient(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Store.Delete(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to delete client", err)
		return
	}
	h.log.Info("client deleted", "client_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// BILLING EVENT HANDLERS
// =============================================================================

func (h *Handler) UpdateClient(w http.ResponseWriter, r *http.Request) {
	var ev billing.UpdateProfile
	if decodeBody(w, r, &ev) {
		h.apply(w, r, ev, http.StatusOK)
	}
}

func (h *Handler) SetupInvoice(w http.ResponseWriter, r *http.Request) {
	var ev billing.SetupInvoice
	if decodeBody(w, r, &ev) {
		h.apply(w, r, ev, http.StatusOK)
	}
}

func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var ev billing.RecordPayment
	if decodeBody(w, r, &ev) {
		h.apply(w, r, ev, http.StatusCreated)
	}
}

func (h *Handler) SetArrangement(w http.ResponseWriter, r *http.Request) {
	var req ArrangementRequest
	if !decodeBody(w, r, &req) {
		return
	}
	ev, err := req.Event()
	if err != nil {
		writeDomainError(w, "Invalid arrangement", err)
		return
	}
	h.apply(w, r, ev, http.StatusOK)
}

func (h *Handler) DeleteArrangement(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, billing.DeleteArrangement{}, http.StatusOK)
}

func (h *Handler) SetPromise(w http.ResponseWriter, r *http.Request) {
	var ev billing.SetPromise
	if decodeBody(w, r, &ev) {
		h.apply(w, r, ev, http.StatusOK)
	}
}

func (h *Handler) DeletePromise(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, billing.DeletePromise{}, http.StatusOK)
}

func (h *Handler) AppendLog(w http.ResponseWriter, r *http.Request) {
	var ev billing.AppendLog
	if decodeBody(w, r, &ev) {
		h.apply(w, r, ev, http.StatusCreated)
	}
}

func (h *Handler) ScheduleFollowUp(w http.ResponseWriter, r *http.Request) {
	var ev billing.ScheduleFollowUp
	if decodeBody(w, r, &ev) {
		h.apply(w, r, ev, http.StatusOK)
	}
}

// apply runs one event through the reducer and stores the patch.
func (h *Handler) apply(w http.ResponseWriter, r *http.Request, ev billing.Event, status int) {
	c, ok := h.loadClient(w, r)
	if !ok {
		return
	}
	next, err := h.applyEvent(r.Context(), c, ev)
	if err != nil {
		writeDomainError(w, "Failed to apply "+ev.EventType(), err)
		return
	}
	writeJSON(w, status, h.detail(next, h.today()))
}

func (h *Handler) applyEvent(ctx context.Context, c billing.Client, ev billing.Event) (billing.Client, error) {
	next, patch, err := billing.Apply(c, ev, h.Clock.Now())
	if err != nil {
		return c, err
	}
	if err := h.Store.ApplyPatch(ctx, c.ID, patch); err != nil {
		return c, err
	}
	h.log.Info("client updated",
		"client_id", c.ID,
		"event", ev.EventType(),
		"fields", patch.Fields(),
		"request_id", middleware.GetReqID(ctx),
	)
	return next, nil
}

// =============================================================================
// LETTER HANDLERS
// =============================================================================

// GetPastDue returns the serializable past-due summary letters quote.
func (h *Handler) GetPastDue(w http.ResponseWriter, r *http.Request) {
	asOf, err := h.asOf(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of (use YYYY-MM-DD)", err)
		return
	}
	c, ok := h.loadClient(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, letters.PastDueSummary(c, asOf))
}

func (h *Handler) WarningLetter(w http.ResponseWriter, r *http.Request) {
	var form letters.WarningForm
	if !decodeBody(w, r, &form) {
		return
	}
	h.letter(w, r, func(c billing.Client) (letters.Letter, error) {
		return letters.WarningLetter(c, form, h.Clock.Now())
	})
}

func (h *Handler) TerminationLetter(w http.ResponseWriter, r *http.Request) {
	var form letters.TerminationForm
	if !decodeBody(w, r, &form) {
		return
	}
	h.letter(w, r, func(c billing.Client) (letters.Letter, error) {
		return letters.TerminationLetter(c, form, h.Clock.Now())
	})
}

// letter builds a letter and records its metadata on the client.
func (h *Handler) letter(w http.ResponseWriter, r *http.Request, build func(billing.Client) (letters.Letter, error)) {
	c, ok := h.loadClient(w, r)
	if !ok {
		return
	}
	l, err := build(c)
	if err != nil {
		writeDomainError(w, "Invalid letter form", err)
		return
	}
	next, err := h.applyEvent(r.Context(), c, l.Record())
	if err != nil {
		writeDomainError(w, "Failed to record letter", err)
		return
	}
	writeJSON(w, http.StatusCreated, LetterDTO{Letter: l, Record: next.Letters[len(next.Letters)-1]})
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// GetSummary returns the dashboard summary (?as_of=, ?months=).
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	asOf, err := h.asOf(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of (use YYYY-MM-DD)", err)
		return
	}
	clients, err := h.Store.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list clients", err)
		return
	}
	writeJSON(w, http.StatusOK, reporting.Summarize(clients, asOf, intParam(r.URL.Query().Get("months"))))
}

// ListFollowUps returns the clients due for follow-up (?date=).
func (h *Handler) ListFollowUps(w http.ResponseWriter, r *http.Request) {
	date, err := dateParam(r, "date", h.today())
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
		return
	}
	clients, err := h.Store.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list clients", err)
		return
	}
	rows := reporting.FollowUpList(clients, date, h.CutoffDay)
	writeJSON(w, http.StatusOK, FollowUpsDTO{
		Date:      date,
		CutoffDay: h.CutoffDay,
		Rows:      rows,
		TotalDue:  reporting.TotalDue(rows),
	})
}

// SendDigest runs the follow-up digest job now.
func (h *Handler) SendDigest(w http.ResponseWriter, r *http.Request) {
	if h.Scheduler == nil {
		writeError(w, http.StatusServiceUnavailable, "Follow-up digest is not configured", nil)
		return
	}
	d, err := h.Scheduler.RunOnce(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to send digest", err)
		return
	}
	writeJSON(w, http.StatusOK, FollowUpsDTO{
		Date:      d.Date,
		CutoffDay: h.Scheduler.CutoffDay,
		Rows:      d.Rows,
		TotalDue:  d.Total(),
	})
}

// ListDigestRuns returns recent digest runs (?limit=).
func (h *Handler) ListDigestRuns(w http.ResponseWriter, r *http.Request) {
	if h.Scheduler == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	runs, err := h.Scheduler.History(r.Context(), intParam(r.URL.Query().Get("limit")))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list digest runs", err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// ListPromises looks up promises by ?date=YYYY-MM-DD or ?month=YYYY-MM.
// Without either it returns the current month's calendar.
func (h *Handler) ListPromises(w http.ResponseWriter, r *http.Request) {
	clients, err := h.Store.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list clients", err)
		return
	}
	today := h.today()
	q := r.URL.Query()

	if raw := q.Get("date"); raw != "" {
		date, err := billing.ParseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
			return
		}
		rows := reporting.PromisesOn(clients, date, today)
		total := decimal.Zero
		for _, p := range rows {
			total = total.Add(p.Amount)
		}
		writeJSON(w, http.StatusOK, PromisesDTO{Date: &date, Rows: rows, Total: total})
		return
	}

	month := today.YearMonth()
	if raw := q.Get("month"); raw != "" {
		month, err = billing.ParseYearMonth(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid month (use YYYY-MM)", err)
			return
		}
	}
	days := reporting.PromiseCalendar(clients, month, today)
	total := decimal.Zero
	for _, d := range days {
		total = total.Add(d.Total)
	}
	writeJSON(w, http.StatusOK, PromisesDTO{Month: &month, Days: days, Total: total})
}

// GetMeta returns the intake form options.
func (h *Handler) GetMeta(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, MetaDTO{
		CaseTypes:    billing.CaseTypes,
		CaseStatuses: billing.CaseStatuses,
		Installment:  billing.DefaultInstallmentAmount,
	})
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) loadClient(w http.ResponseWriter, r *http.Request) (billing.Client, bool) {
	c, err := h.Store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to load client", err)
		return billing.Client{}, false
	}
	return c, true
}

func (h *Handler) detail(c billing.Client, asOf billing.Date) ClientDetailDTO {
	return ClientDetailDTO{Client: c, Billing: newBillingDTO(c, asOf, h.CutoffDay)}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

func dateParam(r *http.Request, name string, fallback billing.Date) (billing.Date, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	return billing.ParseDate(raw)
}

func intParam(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message, Code: errorCode(status)}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps billing errors to HTTP statuses.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case billing.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Client not found", err)
	case errors.Is(err, billing.ErrValidation):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   message,
			Code:    "validation_failed",
			Details: err.Error(),
			Fields:  billing.ValidationFields(err),
		})
	case billing.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func errorCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusServiceUnavailable:
		return "unavailable"
	}
	if status >= 500 {
		return "internal"
	}
	return fmt.Sprintf("http_%d", status)
}
