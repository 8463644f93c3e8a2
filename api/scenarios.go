/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:
	Populates the store with realistic clients for demos. Every client is
	built through billing.Apply, so scenario data goes through the same
	validation and patch path as the UI.

AVAILABLE SCENARIOS:
	collections:  Mixed book of clients, some months behind
	promises:     Kept, missed and upcoming payment promises
	arrangement:  Client on a reduced-payment arrangement
	new-intake:   Freshly created clients with no invoice yet

DATES:
	All dates are relative to the handler clock, so the dashboard always
	shows the same picture ("two months behind", "promise due in 5 days").

USAGE VIA API:
	POST /api/scenarios/load
	{"scenario_id": "collections"}

NOTE:
	Loading a scenario deletes every client first. Only use in
	development/demo environments.

SEE ALSO:
  - handlers.go: applyEvent
*/
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/warp/collections-engine/billing"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "collections",
		Name:        "Collections Book",
		Description: "Five clients: current, one month behind, several months behind, never paid",
	},
	{
		ID:          "promises",
		Name:        "Payment Promises",
		Description: "A kept promise, a missed promise and one due later this week",
	},
	{
		ID:          "arrangement",
		Name:        "Payment Arrangement",
		Description: "Client paying a reduced amount for three months",
	},
	{
		ID:          "new-intake",
		Name:        "New Intake",
		Description: "Clients created from the intake form with no invoice yet",
	},
}

var scenarioLoaders = map[string]func(h *Handler, ctx context.Context) error{
	"collections": (*Handler).loadCollectionsScenario,
	"promises":    (*Handler).loadPromisesScenario,
	"arrangement": (*Handler).loadArrangementScenario,
	"new-intake":  (*Handler).loadNewIntakeScenario,
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario resets the store and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !decodeBody(w, r, &req) {
		return
	}
	load, ok := scenarioLoaders[req.ScenarioID]
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", fmt.Errorf("scenario %q", req.ScenarioID))
		return
	}

	ctx := r.Context()
	if err := h.resetStore(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset store", err)
		return
	}
	if err := load(h, ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	h.mu.Lock()
	h.currentScenario = req.ScenarioID
	h.mu.Unlock()

	h.log.Info("scenario loaded", "scenario", req.ScenarioID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetDatabase deletes every client.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.resetStore(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset store", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

type resetter interface {
	Reset(ctx context.Context) error
}

func (h *Handler) resetStore(ctx context.Context) error {
	h.mu.Lock()
	h.currentScenario = ""
	h.mu.Unlock()

	if r, ok := h.Store.(resetter); ok {
		return r.Reset(ctx)
	}
	clients, err := h.Store.List(ctx)
	if err != nil {
		return err
	}
	for _, c := range clients {
		if err := h.Store.Delete(ctx, c.ID); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

// seed creates a client and applies events in order.
func (h *Handler) seed(ctx context.Context, profile billing.UpdateProfile, events ...billing.Event) (billing.Client, error) {
	c, err := billing.NewClient(profile, h.Clock.Now())
	if err != nil {
		return c, err
	}
	c, err = h.Store.Create(ctx, c)
	if err != nil {
		return c, err
	}
	for _, ev := range events {
		c, err = h.applyEvent(ctx, c, ev)
		if err != nil {
			return c, fmt.Errorf("%s %s: %w", c.FullName(), ev.EventType(), err)
		}
	}
	return c, nil
}

// monthStart returns the first of the month n months before today.
func (h *Handler) monthStart(n int) billing.Date {
	m := h.today().YearMonth().AddMonths(-n)
	return billing.NewDate(m.Year, m.Month, 1)
}

func usd(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func profile(first, last string, caseType billing.CaseType, status billing.CaseStatus) billing.UpdateProfile {
	return billing.UpdateProfile{FirstName: first, LastName: last, CaseType: caseType, CaseStatus: status}
}

func invoice(total int64, start billing.Date) billing.SetupInvoice {
	return billing.SetupInvoice{
		InvoiceTotal:         usd(total),
		InstallmentAmount:    usd(500),
		InitialPayment:       usd(1000),
		InitialPaymentDate:   start.AddMonths(-1),
		FirstInstallmentDate: start,
	}
}

func payment(amount int64, d billing.Date) billing.RecordPayment {
	return billing.RecordPayment{Amount: usd(amount), Date: d, Author: "Front Desk"}
}

func (h *Handler) loadCollectionsScenario(ctx context.Context) error {
	start := h.monthStart(5)

	// Paid every month.
	current := []billing.Event{invoice(8000, start)}
	for i := 0; i <= 5; i++ {
		current = append(current, payment(500, start.AddMonths(i).AddDays(2)))
	}
	if _, err := h.seed(ctx, profile("Ana", "Nguyen", billing.CaseN400, billing.StatusActive), current...); err != nil {
		return err
	}

	// One month behind, contacted today.
	oneBehind := []billing.Event{invoice(6000, start)}
	for i := 0; i < 5; i++ {
		oneBehind = append(oneBehind, payment(500, start.AddMonths(i).AddDays(5)))
	}
	oneBehind = append(oneBehind,
		billing.AppendLog{Message: "Left voicemail about this month's installment.", Author: "Front Desk"},
	)
	if _, err := h.seed(ctx, profile("Maria", "Lopez", billing.CaseUVisa, billing.StatusFiled), oneBehind...); err != nil {
		return err
	}

	// Three months behind.
	if _, err := h.seed(ctx, profile("Carlos", "Ramirez", billing.CaseAsylum, billing.StatusActive),
		invoice(7500, start),
		payment(500, start.AddDays(1)),
		payment(500, start.AddMonths(1).AddDays(3)),
		payment(500, start.AddMonths(2).AddDays(1)),
	); err != nil {
		return err
	}

	// Never paid an installment; follow-up already scheduled.
	if _, err := h.seed(ctx, profile("Zed", "Young", billing.CaseTVisa, billing.StatusActive),
		invoice(5000, start),
		billing.ScheduleFollowUp{Date: h.today().AddDays(3)},
	); err != nil {
		return err
	}

	// Case approved and balance settled.
	_, err := h.seed(ctx, profile("Grace", "Okafor", billing.CaseN400, billing.StatusApproved),
		invoice(3000, start),
		payment(3000, start.AddDays(10)),
	)
	return err
}

func (h *Handler) loadPromisesScenario(ctx context.Context) error {
	start := h.monthStart(3)
	today := h.today()

	// Promise kept: the payment on the promised date clears it.
	if _, err := h.seed(ctx, profile("Luis", "Castro", billing.CaseUVisa, billing.StatusActive),
		invoice(6000, start),
		payment(500, start.AddDays(2)),
		billing.SetPromise{Date: today.AddDays(-2), Amount: usd(1000), Notes: "Paycheck on Friday", Author: "Front Desk"},
		payment(1000, today.AddDays(-2)),
	); err != nil {
		return err
	}

	// Promise missed.
	if _, err := h.seed(ctx, profile("Rosa", "Mendez", billing.CaseAsylum, billing.StatusFiled),
		invoice(6000, start),
		billing.SetPromise{Date: today.AddDays(-3), Amount: usd(500), Author: "Front Desk"},
	); err != nil {
		return err
	}

	// Promise due later this week.
	_, err := h.seed(ctx, profile("Omar", "Haddad", billing.CaseTVisa, billing.StatusActive),
		invoice(6000, start),
		payment(500, start.AddDays(4)),
		billing.SetPromise{Date: today.AddDays(5), Amount: usd(1000), Notes: "Tax refund", Author: "Front Desk"},
	)
	return err
}

func (h *Handler) loadArrangementScenario(ctx context.Context) error {
	start := h.monthStart(4)
	reduced := start.AddMonths(2).YearMonth()

	_, err := h.seed(ctx, profile("Elena", "Petrova", billing.CaseN400, billing.StatusActive),
		invoice(7000, start),
		payment(500, start.AddDays(1)),
		payment(500, start.AddMonths(1).AddDays(1)),
		billing.SetArrangement{ReducedAmount: usd(250), StartMonth: reduced, EndMonth: reduced.AddMonths(2)},
		payment(250, start.AddMonths(2).AddDays(1)),
		billing.AppendLog{Message: "Reduced payments approved while client is between jobs.", Author: "Attorney"},
	)
	return err
}

func (h *Handler) loadNewIntakeScenario(ctx context.Context) error {
	for _, p := range []billing.UpdateProfile{
		profile("Samuel", "Adeyemi", billing.CaseAsylum, billing.StatusActive),
		profile("Lin", "Zhang", billing.CaseN400, billing.StatusActive),
	} {
		if _, err := h.seed(ctx, p); err != nil {
			return err
		}
	}
	return nil
}
