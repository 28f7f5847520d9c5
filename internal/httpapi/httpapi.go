// Package httpapi exposes the ledger engine over JSON HTTP plus a websocket
// event stream at /ws/events.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"duakasir/backend/internal/bus"
	"duakasir/backend/internal/domain"
	"duakasir/backend/internal/service"
	"duakasir/backend/internal/store"
	"duakasir/backend/internal/store/gateway"
)

type API struct {
	service *service.Service
	auth    *AuthManager
	gw      *gateway.Gateway
	events  *bus.Bus
	log     *logrus.Logger
}

func New(svc *service.Service, auth *AuthManager, gw *gateway.Gateway, events *bus.Bus, log *logrus.Logger) *API {
	return &API{
		service: svc,
		auth:    auth,
		gw:      gw,
		events:  events,
		log:     log,
	}
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", a.handleHealth)
	mux.HandleFunc("/api/v1/auth/login", a.handleLogin)
	mux.HandleFunc("/api/v1/status", a.requireAuth(a.handleStatus, "cashier", "admin"))

	mux.HandleFunc("/api/v1/items", a.requireAuth(a.handleItems, "cashier", "admin"))
	mux.HandleFunc("/api/v1/items/", a.requireAuth(a.handleItemActions, "cashier", "admin"))
	mux.HandleFunc("/api/v1/categories", a.requireAuth(a.handleCategories, "cashier", "admin"))
	mux.HandleFunc("/api/v1/categories/", a.requireAuth(a.handleCategoryActions, "admin"))
	mux.HandleFunc("/api/v1/customers", a.requireAuth(a.handleCustomers, "cashier", "admin"))
	mux.HandleFunc("/api/v1/customers/", a.requireAuth(a.handleCustomerActions, "cashier", "admin"))

	mux.HandleFunc("/api/v1/shifts", a.requireAuth(a.handleShifts, "cashier", "admin"))
	mux.HandleFunc("/api/v1/shifts/start", a.requireAuth(a.handleShiftStart, "cashier", "admin"))
	mux.HandleFunc("/api/v1/shifts/active", a.requireAuth(a.handleShiftActive, "cashier", "admin"))
	mux.HandleFunc("/api/v1/shifts/close", a.requireAuth(a.handleShiftClose, "cashier", "admin"))
	mux.HandleFunc("/api/v1/sales", a.requireAuth(a.handleSales, "cashier", "admin"))
	mux.HandleFunc("/api/v1/expenses", a.requireAuth(a.handleExpenses, "cashier", "admin"))
	mux.HandleFunc("/api/v1/expenses/", a.requireAuth(a.handleExpenseActions, "cashier", "admin"))
	mux.HandleFunc("/api/v1/external-money", a.requireAuth(a.handleExternalMoney, "cashier", "admin"))
	mux.HandleFunc("/api/v1/external-money/", a.requireAuth(a.handleExternalMoneyActions, "cashier", "admin"))
	mux.HandleFunc("/api/v1/supplies", a.requireAuth(a.handleSupplies, "cashier", "admin"))

	mux.HandleFunc("/api/v1/debts/unpaid", a.requireAuth(a.handleUnpaidDebts, "cashier", "admin"))
	mux.HandleFunc("/api/v1/debts/customer/", a.requireAuth(a.handleCustomerDebt, "cashier", "admin"))
	mux.HandleFunc("/api/v1/debts/pay", a.requireAuth(a.handlePayDebt, "cashier", "admin"))

	mux.HandleFunc("/api/v1/supplement-debt", a.requireAuth(a.handleSupplementDebt, "cashier", "admin"))
	mux.HandleFunc("/api/v1/supplement-debt/transactions", a.requireAuth(a.handleDebtTransactions, "cashier", "admin"))

	mux.HandleFunc("/api/v1/admin-logs", a.requireAuth(a.handleAdminLogs, "admin"))
	mux.HandleFunc("/api/v1/archives", a.requireAuth(a.handleArchives, "admin"))
	mux.HandleFunc("/api/v1/period/reset", a.requireAuth(a.handlePeriodReset, "admin"))
	mux.HandleFunc("/api/v1/users", a.requireAuth(a.handleUsers, "admin"))

	mux.HandleFunc("/ws/events", a.handleEventSocket)

	return mux
}

func (a *API) requireAuth(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authorization := strings.TrimSpace(r.Header.Get("Authorization"))
		if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
			writeError(a.log, w, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}

		token := strings.TrimSpace(authorization[len("Bearer "):])
		actor, err := a.auth.ParseToken(token)
		if err != nil {
			writeError(a.log, w, http.StatusUnauthorized, err)
			return
		}
		if len(roles) > 0 && !isRoleAllowed(actor.Role, roles) {
			writeError(a.log, w, http.StatusForbidden, errors.New("forbidden role"))
			return
		}

		next(w, r.WithContext(service.WithActor(r.Context(), actor)))
	}
}

func isRoleAllowed(role string, allowed []string) bool {
	for _, allow := range allowed {
		if role == allow {
			return true
		}
	}
	return false
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(a.log, w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":   true,
		"mode": a.gw.Mode(),
		"at":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(a.log, w)
		return
	}
	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(a.log, w, http.StatusBadRequest, err)
		return
	}
	resp, err := a.auth.Login(r.Context(), req)
	if err != nil {
		writeError(a.log, w, http.StatusUnauthorized, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(a.log, w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"mode":     a.gw.Mode(),
		"degraded": a.gw.Degraded(),
	})
}

func (a *API) handleItems(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		items, err := a.service.ListItems(r.Context(), store.ItemFilter{
			Section:    domain.Section(r.URL.Query().Get("section")),
			CategoryID: r.URL.Query().Get("category_id"),
		})
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	case http.MethodPost:
		var item domain.Item
		if err := decodeJSON(r, &item); err != nil {
			writeError(a.log, w, http.StatusBadRequest, err)
			return
		}
		saved, err := a.service.SaveItem(r.Context(), item)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, saved)
	default:
		writeMethodNotAllowed(a.log, w)
	}
}

func (a *API) handleItemActions(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/items/")
	if id == "" {
		writeError(a.log, w, http.StatusBadRequest, errors.New("missing item id"))
		return
	}
	switch r.Method {
	case http.MethodGet:
		item, err := a.service.GetItem(r.Context(), id)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, item)
	case http.MethodPut:
		var item domain.Item
		if err := decodeJSON(r, &item); err != nil {
			writeError(a.log, w, http.StatusBadRequest, err)
			return
		}
		item.ID = id
		saved, err := a.service.SaveItem(r.Context(), item)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, saved)
	case http.MethodDelete:
		if err := a.service.DeleteItem(r.Context(), id); err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
	default:
		writeMethodNotAllowed(a.log, w)
	}
}

func (a *API) handleCategories(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		categories, err := a.service.ListCategories(r.Context(), domain.Section(r.URL.Query().Get("section")))
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"categories": categories})
	case http.MethodPost:
		var category domain.Category
		if err := decodeJSON(r, &category); err != nil {
			writeError(a.log, w, http.StatusBadRequest, err)
			return
		}
		saved, err := a.service.SaveCategory(r.Context(), category)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, saved)
	default:
		writeMethodNotAllowed(a.log, w)
	}
}

func (a *API) handleCategoryActions(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/categories/")
	if id == "" {
		writeError(a.log, w, http.StatusBadRequest, errors.New("missing category id"))
		return
	}
	switch r.Method {
	case http.MethodPut:
		var category domain.Category
		if err := decodeJSON(r, &category); err != nil {
			writeError(a.log, w, http.StatusBadRequest, err)
			return
		}
		category.ID = id
		saved, err := a.service.SaveCategory(r.Context(), category)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, saved)
	case http.MethodDelete:
		if err := a.service.DeleteCategory(r.Context(), id); err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
	default:
		writeMethodNotAllowed(a.log, w)
	}
}

func (a *API) handleCustomers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		customers, err := a.service.ListCustomers(r.Context(), domain.Section(r.URL.Query().Get("section")))
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"customers": customers})
	case http.MethodPost:
		var customer domain.Customer
		if err := decodeJSON(r, &customer); err != nil {
			writeError(a.log, w, http.StatusBadRequest, err)
			return
		}
		saved, err := a.service.SaveCustomer(r.Context(), customer)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, saved)
	default:
		writeMethodNotAllowed(a.log, w)
	}
}

func (a *API) handleCustomerActions(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/customers/")
	if id == "" {
		writeError(a.log, w, http.StatusBadRequest, errors.New("missing customer id"))
		return
	}
	switch r.Method {
	case http.MethodGet:
		customer, err := a.service.GetCustomer(r.Context(), id)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, customer)
	case http.MethodDelete:
		if err := a.service.DeleteCustomer(r.Context(), id); err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
	default:
		writeMethodNotAllowed(a.log, w)
	}
}

func (a *API) handleShifts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(a.log, w)
		return
	}
	shifts, err := a.service.ListShifts(r.Context(), domain.Section(r.URL.Query().Get("section")))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"shifts": shifts})
}

func (a *API) handleShiftStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(a.log, w)
		return
	}
	var req struct {
		Section  domain.Section `json:"section"`
		Operator string         `json:"operator"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(a.log, w, http.StatusBadRequest, err)
		return
	}
	if req.Operator == "" {
		if actor, ok := service.ActorFromContext(r.Context()); ok {
			req.Operator = actor.Username
		}
	}
	shift, err := a.service.StartShift(r.Context(), req.Section, req.Operator)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, shift)
}

func (a *API) handleShiftActive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(a.log, w)
		return
	}
	shift, err := a.service.GetActiveShift(r.Context(), domain.Section(r.URL.Query().Get("section")))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, shift)
}

func (a *API) handleShiftClose(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(a.log, w)
		return
	}
	var req domain.CloseShiftRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(a.log, w, http.StatusBadRequest, err)
		return
	}
	shift, preview, err := a.service.CloseShift(r.Context(), req)
	if err != nil {
		if errors.Is(err, store.ErrReasonRequired) {
			writeJSON(w, http.StatusConflict, map[string]any{
				"error":   err.Error(),
				"preview": preview,
			})
			return
		}
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"shift": shift, "preview": preview})
}

func (a *API) handleSales(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(a.log, w)
		return
	}
	var req domain.RecordSaleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(a.log, w, http.StatusBadRequest, err)
		return
	}
	result, err := a.service.RecordSale(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

type cashEditRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason"`
}

func (a *API) handleExpenses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(a.log, w)
		return
	}
	var req domain.CashEntryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(a.log, w, http.StatusBadRequest, err)
		return
	}
	expense, err := a.service.RecordExpense(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, expense)
}

func (a *API) handleExpenseActions(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/expenses/")
	if id == "" {
		writeError(a.log, w, http.StatusBadRequest, errors.New("missing expense id"))
		return
	}
	switch r.Method {
	case http.MethodPut:
		var req cashEditRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(a.log, w, http.StatusBadRequest, err)
			return
		}
		expense, err := a.service.EditExpense(r.Context(), id, req.Amount, req.Reason)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, expense)
	case http.MethodDelete:
		if err := a.service.DeleteExpense(r.Context(), id); err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
	default:
		writeMethodNotAllowed(a.log, w)
	}
}

func (a *API) handleExternalMoney(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(a.log, w)
		return
	}
	var req domain.CashEntryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(a.log, w, http.StatusBadRequest, err)
		return
	}
	entry, err := a.service.RecordExternalMoney(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (a *API) handleExternalMoneyActions(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/external-money/")
	if id == "" {
		writeError(a.log, w, http.StatusBadRequest, errors.New("missing entry id"))
		return
	}
	switch r.Method {
	case http.MethodPut:
		var req cashEditRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(a.log, w, http.StatusBadRequest, err)
			return
		}
		entry, err := a.service.EditExternalMoney(r.Context(), id, req.Amount, req.Reason)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, entry)
	case http.MethodDelete:
		if err := a.service.DeleteExternalMoney(r.Context(), id); err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
	default:
		writeMethodNotAllowed(a.log, w)
	}
}

func (a *API) handleSupplies(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		supplies, err := a.service.ListSupplies(r.Context(), domain.Section(r.URL.Query().Get("section")))
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"supplies": supplies})
	case http.MethodPost:
		var req domain.SupplyRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(a.log, w, http.StatusBadRequest, err)
			return
		}
		supply, err := a.service.ApplySupply(r.Context(), req)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, supply)
	default:
		writeMethodNotAllowed(a.log, w)
	}
}

func (a *API) handleUnpaidDebts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(a.log, w)
		return
	}
	purchases, err := a.service.UnpaidPurchases(r.Context(), domain.Section(r.URL.Query().Get("section")))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"purchases": purchases})
}

func (a *API) handleCustomerDebt(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(a.log, w)
		return
	}
	customerID := strings.TrimPrefix(r.URL.Path, "/api/v1/debts/customer/")
	debt, err := a.service.CustomerDebt(r.Context(), customerID)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, debt)
}

func (a *API) handlePayDebt(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(a.log, w)
		return
	}
	var req domain.PayDebtRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(a.log, w, http.StatusBadRequest, err)
		return
	}
	result, err := a.service.PayDebt(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleSupplementDebt(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(a.log, w)
		return
	}
	debt, err := a.service.SupplementDebt(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, debt)
}

func (a *API) handleDebtTransactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		transactions, err := a.service.ListDebtTransactions(r.Context(), limit)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"transactions": transactions})
	case http.MethodPost:
		var req domain.DebtTransactionRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(a.log, w, http.StatusBadRequest, err)
			return
		}
		balance, err := a.service.ApplyDebtTransaction(r.Context(), req)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, balance)
	default:
		writeMethodNotAllowed(a.log, w)
	}
}

func (a *API) handleAdminLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(a.log, w)
		return
	}
	filter := store.AdminLogFilter{
		Section: domain.Section(r.URL.Query().Get("section")),
	}
	if from := r.URL.Query().Get("from"); from != "" {
		at, err := time.Parse(time.RFC3339, from)
		if err != nil {
			writeError(a.log, w, http.StatusBadRequest, err)
			return
		}
		filter.From = at
	}
	if to := r.URL.Query().Get("to"); to != "" {
		at, err := time.Parse(time.RFC3339, to)
		if err != nil {
			writeError(a.log, w, http.StatusBadRequest, err)
			return
		}
		filter.To = at
	}
	filter.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))

	logs, err := a.service.ListAdminLogs(r.Context(), filter)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": logs})
}

func (a *API) handleArchives(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(a.log, w)
		return
	}
	archives, err := a.service.ListArchives(r.Context(), domain.Section(r.URL.Query().Get("section")))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"archives": archives})
}

func (a *API) handlePeriodReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(a.log, w)
		return
	}
	var req struct {
		Section domain.Section `json:"section"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(a.log, w, http.StatusBadRequest, err)
		return
	}
	archive, err := a.service.ResetPeriod(r.Context(), req.Section)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, archive)
}

func (a *API) handleUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(a.log, w)
		return
	}
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(a.log, w, http.StatusBadRequest, err)
		return
	}
	if err := a.auth.CreateUser(r.Context(), req.Username, req.Password, req.Role); err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"username": strings.ToLower(strings.TrimSpace(req.Username))})
}

func (a *API) writeServiceError(w http.ResponseWriter, err error) {
	writeError(a.log, w, statusFromErr(err), err)
}

func statusFromErr(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrConflict),
		errors.Is(err, store.ErrInsufficientStock),
		errors.Is(err, store.ErrShiftActive),
		errors.Is(err, store.ErrNoActiveShift),
		errors.Is(err, store.ErrReasonRequired):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(log *logrus.Logger, w http.ResponseWriter, status int, err error) {
	msg := err.Error()
	if status >= 500 {
		log.WithError(err).Error("request failed")
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{"error": msg})
}

func writeMethodNotAllowed(log *logrus.Logger, w http.ResponseWriter) {
	writeError(log, w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}
