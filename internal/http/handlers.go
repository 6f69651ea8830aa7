package http

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"bilancio/internal/core"
	"bilancio/internal/period"
)

// Wire representations. Decimal amounts travel as strings so clients never
// see binary-float rounding.

type personPayload struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	BudgetStartDay int    `json:"budget_start_day"`
}

type budgetPayload struct {
	Amount string `json:"amount"`
}

type accountPayload struct {
	ID       string `json:"id"`
	PersonID string `json:"person_id"`
	Name     string `json:"name"`
}

type transactionPayload struct {
	ID                  string `json:"id"`
	PersonID            string `json:"person_id"`
	AccountID           string `json:"account_id"`
	ToAccountID         string `json:"to_account_id,omitempty"`
	Description         string `json:"description"`
	Amount              string `json:"amount"`
	Date                string `json:"date"`
	Type                string `json:"type"`
	Category            string `json:"category"`
	IsReconciled        bool   `json:"is_reconciled"`
	ParentTransactionID string `json:"parent_transaction_id,omitempty"`
}

type periodPayload struct {
	ID          string `json:"id"`
	PersonID    string `json:"person_id"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date,omitempty"`
	IsCompleted bool   `json:"is_completed"`
}

type exceptionPayload struct {
	ID            string `json:"id"`
	PersonID      string `json:"person_id"`
	ExceptionDate string `json:"exception_date"`
	Reason        string `json:"reason,omitempty"`
	Consumed      bool   `json:"consumed"`
}

type totalsPayload struct {
	PeriodStart      string            `json:"period_start"`
	PeriodEnd        string            `json:"period_end"`
	IsCompleted      bool              `json:"is_completed"`
	CurrentSpent     string            `json:"current_spent"`
	TotalSaved       string            `json:"total_saved"`
	CategorySpending map[string]string `json:"category_spending"`
	Percentage       string            `json:"percentage"`
	BudgetUndefined  bool              `json:"budget_undefined"`
	Remaining        string            `json:"remaining"`
	IsOverBudget     bool              `json:"is_over_budget"`
}

func toPeriodPayload(bp core.BudgetPeriod) periodPayload {
	p := periodPayload{
		ID:          bp.ID,
		PersonID:    bp.PersonID,
		StartDate:   bp.StartDate.ISO(),
		IsCompleted: bp.IsCompleted,
	}
	if !bp.EndDate.IsZero() {
		p.EndDate = bp.EndDate.ISO()
	}
	return p
}

func toTransactionPayload(tx core.Transaction) transactionPayload {
	return transactionPayload{
		ID:                  tx.ID,
		PersonID:            tx.PersonID,
		AccountID:           tx.AccountID,
		ToAccountID:         tx.ToAccountID,
		Description:         tx.Description,
		Amount:              tx.Amount.String(),
		Date:                tx.Date.ISO(),
		Type:                string(tx.Type),
		Category:            tx.Category,
		IsReconciled:        tx.IsReconciled,
		ParentTransactionID: tx.ParentTransactionID,
	}
}

func toTotalsPayload(t period.Totals) totalsPayload {
	buckets := make(map[string]string, len(t.CategorySpending))
	for category, amount := range t.CategorySpending {
		buckets[category] = amount.String()
	}
	return totalsPayload{
		PeriodStart:      t.PeriodStart.ISO(),
		PeriodEnd:        t.PeriodEnd.ISO(),
		IsCompleted:      t.IsCompleted,
		CurrentSpent:     t.CurrentSpent.String(),
		TotalSaved:       t.TotalSaved.String(),
		CategorySpending: buckets,
		Percentage:       t.Percentage.StringFixed(2),
		BudgetUndefined:  t.BudgetUndefined,
		Remaining:        t.Remaining.String(),
		IsOverBudget:     t.IsOverBudget,
	}
}

// --- persons, budgets, accounts, transactions ---

func (s *Server) handleCreatePerson(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name           string `json:"name"`
		BudgetStartDay int    `json:"budget_start_day"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	person := core.Person{
		ID:             uuid.NewString(),
		Name:           sanitizeInput(req.Name),
		BudgetStartDay: req.BudgetStartDay,
	}
	if err := s.storage.CreatePerson(r.Context(), person); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, personPayload{
		ID:             person.ID,
		Name:           person.Name,
		BudgetStartDay: person.BudgetStartDay,
	})
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	personID := r.PathValue("id")

	var req budgetPayload
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if _, err := s.storage.GetPerson(r.Context(), personID); err != nil {
		writeError(w, r, err)
		return
	}
	budget := core.Budget{PersonID: personID, Amount: amount}
	if err := s.storage.SetBudget(r.Context(), budget); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, budgetPayload{Amount: budget.Amount.String()})
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PersonID string `json:"person_id"`
		Name     string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := s.storage.GetPerson(r.Context(), req.PersonID); err != nil {
		writeError(w, r, err)
		return
	}

	account := core.Account{
		ID:       uuid.NewString(),
		PersonID: req.PersonID,
		Name:     sanitizeInput(req.Name),
	}
	if err := s.storage.CreateAccount(r.Context(), account); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, accountPayload(account))
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PersonID    string `json:"person_id"`
		AccountID   string `json:"account_id"`
		ToAccountID string `json:"to_account_id"`
		Description string `json:"description"`
		Amount      string `json:"amount"`
		Date        string `json:"date"`
		Type        string `json:"type"`
		Category    string `json:"category"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	date, err := parseDateParam("date", req.Date)
	if err != nil {
		writeError(w, r, err)
		return
	}

	tx := core.Transaction{
		ID:          uuid.NewString(),
		PersonID:    req.PersonID,
		AccountID:   req.AccountID,
		ToAccountID: req.ToAccountID,
		Description: sanitizeInput(req.Description),
		Amount:      amount,
		Date:        date,
		Type:        core.TransactionType(req.Type),
		Category:    req.Category,
	}
	if err := s.storage.CreateTransaction(r.Context(), tx); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toTransactionPayload(tx))
}

// --- period lifecycle ---

func (s *Server) handleListPeriods(w http.ResponseWriter, r *http.Request) {
	personID := r.PathValue("id")

	if _, err := s.storage.GetPerson(r.Context(), personID); err != nil {
		writeError(w, r, err)
		return
	}
	history, err := s.storage.ListPeriods(r.Context(), personID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	payload := make([]periodPayload, 0, len(history))
	for _, bp := range history {
		payload = append(payload, toPeriodPayload(bp))
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleStartPeriod(w http.ResponseWriter, r *http.Request) {
	personID := r.PathValue("id")

	var req struct {
		ReferenceDate string `json:"reference_date"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	ref := core.DateOf(time.Now())
	if req.ReferenceDate != "" {
		parsed, err := parseDateParam("reference_date", req.ReferenceDate)
		if err != nil {
			writeError(w, r, err)
			return
		}
		ref = parsed
	}

	bp, err := s.budgets.StartPeriod(r.Context(), personID, ref)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPeriodPayload(bp))
}

func (s *Server) handleEndPeriod(w http.ResponseWriter, r *http.Request) {
	personID := r.PathValue("id")

	var req struct {
		EndDate string `json:"end_date"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	endDate, err := parseDateParam("end_date", req.EndDate)
	if err != nil {
		writeError(w, r, err)
		return
	}

	closed, err := s.budgets.EndPeriod(r.Context(), personID, endDate)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPeriodPayload(closed))
}

func (s *Server) handlePeriodTotals(w http.ResponseWriter, r *http.Request) {
	personID := r.PathValue("id")
	periodID := r.PathValue("periodID")

	totals, err := s.budgets.PeriodTotals(r.Context(), personID, periodID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTotalsPayload(totals))
}

func (s *Server) handleCurrentTotals(w http.ResponseWriter, r *http.Request) {
	personID := r.PathValue("id")

	totals, err := s.budgets.CurrentTotals(r.Context(), personID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTotalsPayload(totals))
}

// --- exceptions ---

func (s *Server) handlePreviewException(w http.ResponseWriter, r *http.Request) {
	personID := r.PathValue("id")

	date, err := parseDateParam("date", r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	preview, err := s.budgets.PreviewException(r.Context(), personID, date)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		PeriodStart string `json:"period_start"`
		PeriodEnd   string `json:"period_end"`
		IsWeekend   bool   `json:"is_weekend"`
	}{
		PeriodStart: preview.PeriodStart.ISO(),
		PeriodEnd:   preview.PeriodEnd.ISO(),
		IsWeekend:   preview.IsWeekend,
	})
}

func (s *Server) handleAddException(w http.ResponseWriter, r *http.Request) {
	personID := r.PathValue("id")

	var req struct {
		Date   string `json:"date"`
		Reason string `json:"reason"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	date, err := parseDateParam("date", req.Date)
	if err != nil {
		writeError(w, r, err)
		return
	}

	exc, err := s.budgets.AddException(r.Context(), personID, date, sanitizeInput(req.Reason))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, exceptionPayload{
		ID:            exc.ID,
		PersonID:      exc.PersonID,
		ExceptionDate: exc.ExceptionDate.ISO(),
		Reason:        exc.Reason,
		Consumed:      exc.Consumed,
	})
}

func (s *Server) handleRemoveException(w http.ResponseWriter, r *http.Request) {
	personID := r.PathValue("id")
	excID := r.PathValue("excID")

	if err := s.budgets.RemoveException(r.Context(), personID, excID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- reconciliation ---

func (s *Server) handleLink(w http.ResponseWriter, r *http.Request) {
	parentID := r.PathValue("id")

	var req struct {
		ChildID string `json:"child_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.ChildID == "" {
		writeError(w, r, &core.ValidationError{Field: "child_id", Reason: "missing child transaction"})
		return
	}

	child, err := s.reconciler.Link(r.Context(), parentID, req.ChildID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionPayload(child))
}

func (s *Server) handleUnlink(w http.ResponseWriter, r *http.Request) {
	childID := r.PathValue("id")

	child, err := s.reconciler.Unlink(r.Context(), childID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionPayload(child))
}

func (s *Server) handleRemaining(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	remaining, err := s.reconciler.Remaining(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		TransactionID string `json:"transaction_id"`
		Remaining     string `json:"remaining"`
	}{
		TransactionID: id,
		Remaining:     remaining.String(),
	})
}

func (s *Server) handleLinkableCandidates(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	candidates, err := s.reconciler.LinkableCandidates(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	payload := make([]transactionPayload, 0, len(candidates))
	for _, tx := range candidates {
		payload = append(payload, toTransactionPayload(tx))
	}
	writeJSON(w, http.StatusOK, payload)
}
