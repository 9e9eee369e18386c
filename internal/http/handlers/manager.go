package handlers

import (
	"crypto/subtle"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/hongminglow/mess-be/internal/http/respond"
	"github.com/hongminglow/mess-be/internal/mess"
	"github.com/hongminglow/mess-be/internal/models"
	"github.com/hongminglow/mess-be/internal/models/dto"
)

// SignupKeyHeader carries the manager signup key when one is configured.
const SignupKeyHeader = "X-Manager-Signup-Key"

// ManagerHandler owns the manager endpoints.
type ManagerHandler struct {
	accounts  Accounts
	mess      Mess
	signupKey string
}

// NewManagerHandler constructs the handler. An empty signupKey leaves manager
// registration open.
func NewManagerHandler(accounts Accounts, mess Mess, signupKey string) *ManagerHandler {
	return &ManagerHandler{accounts: accounts, mess: mess, signupKey: signupKey}
}

// Register attaches the /api/manager routes.
func (h *ManagerHandler) Register(r *mux.Router, guards Guards) {
	guards = guards.withDefaults()
	manager := r.PathPrefix("/api/manager").Subrouter()

	manager.HandleFunc("/register", h.handleRegister).Methods(http.MethodPost)
	manager.Handle("/login", guards.Login(http.HandlerFunc(h.handleLogin))).Methods(http.MethodPost)

	gated := manager.NewRoute().Subrouter()
	gated.Use(guards.Manager)
	gated.HandleFunc("/register-student", h.handleRegisterStudent).Methods(http.MethodPost)
	gated.HandleFunc("/delete-student/{studentId}", h.handleDeleteStudent).Methods(http.MethodDelete)
	gated.HandleFunc("/mess-off/{studentId}", h.handleMessOff).Methods(http.MethodPatch)
	gated.HandleFunc("/students/{studentId}/reseed", h.handleReseed).Methods(http.MethodPost)
	gated.HandleFunc("/mess/seed-month", h.handleSeedMonth).Methods(http.MethodPost)
	gated.HandleFunc("/students", h.handleListStudents).Methods(http.MethodGet)
	gated.HandleFunc("/messtoday", h.handleToday).Methods(http.MethodGet)
	gated.HandleFunc("/mess-requests/pending", h.handlePending).Methods(http.MethodGet)
	gated.HandleFunc("/mess-request/{requestId}", h.handleResolve).Methods(http.MethodPatch)
}

func (h *ManagerHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if h.signupKey != "" {
		given := r.Header.Get(SignupKeyHeader)
		if subtle.ConstantTimeCompare([]byte(given), []byte(h.signupKey)) != 1 {
			respond.Error(w, http.StatusForbidden, "access forbidden")
			return
		}
	}
	var req dto.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	created, err := h.accounts.Register(r.Context(), req, models.RoleManager)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, "Manager registered successfully", created)
}

func (h *ManagerHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	out, err := h.accounts.Login(r.Context(), req, models.RoleManager)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, "login successful", out)
}

func (h *ManagerHandler) handleRegisterStudent(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	out, err := h.mess.RegisterStudent(r.Context(), req)
	if err != nil {
		fail(w, r, err)
		return
	}
	message := "Student registered and mess entries created successfully"
	if !out.LedgerSeeded {
		message = "Student registered; mess entries could not be created, reseed the student"
	}
	respond.JSON(w, http.StatusCreated, message, dto.RegisterResponse{
		Account:      out.Account,
		LedgerSeeded: out.LedgerSeeded,
		EntryCount:   int(out.Entries),
	})
}

func (h *ManagerHandler) handleDeleteStudent(w http.ResponseWriter, r *http.Request) {
	if err := h.accounts.DeleteStudent(r.Context(), mux.Vars(r)["studentId"]); err != nil {
		fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, "Student deleted successfully", nil)
}

func (h *ManagerHandler) handleMessOff(w http.ResponseWriter, r *http.Request) {
	var req dto.MessOffRequest
	if !decodeOptionalJSON(w, r, &req) {
		return
	}
	entry, err := h.mess.TurnMessOff(r.Context(), mux.Vars(r)["studentId"], req)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, "Mess turned off for student", entry)
}

func (h *ManagerHandler) handleReseed(w http.ResponseWriter, r *http.Request) {
	n, err := h.mess.ReseedStudent(r.Context(), mux.Vars(r)["studentId"])
	if err != nil {
		fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, "mess entries reseeded", map[string]int64{"inserted": n})
}

func (h *ManagerHandler) handleSeedMonth(w http.ResponseWriter, r *http.Request) {
	var req dto.SeedMonthRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := dto.Validate(req); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	month, err := mess.ParseMonth(req.Month)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.mess.SeedMonthForAll(r.Context(), month)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, "month seeded", res)
}

func (h *ManagerHandler) handleListStudents(w http.ResponseWriter, r *http.Request) {
	students, err := h.accounts.ListStudents(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, "students fetched successfully", students)
}

func (h *ManagerHandler) handleToday(w http.ResponseWriter, r *http.Request) {
	rows, err := h.mess.TodayStatus(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, "Mess status fetched successfully", rows)
}

func (h *ManagerHandler) handlePending(w http.ResponseWriter, r *http.Request) {
	rows, err := h.mess.PendingRequests(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, "Pending requests fetched successfully", rows)
}

func (h *ManagerHandler) handleResolve(w http.ResponseWriter, r *http.Request) {
	manager, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r, "requestId")
	if !ok {
		respond.Error(w, http.StatusBadRequest, "invalid request id")
		return
	}
	var req dto.UpdateRequestStatus
	if !decodeJSON(w, r, &req) {
		return
	}
	updated, err := h.mess.ResolveRequest(r.Context(), id, req.Status, manager.ID)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, "Request "+string(updated.Status)+" successfully", updated)
}
