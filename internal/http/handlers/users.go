package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/hongminglow/mess-be/internal/http/respond"
	"github.com/hongminglow/mess-be/internal/models"
	"github.com/hongminglow/mess-be/internal/models/dto"
)

// UserHandler owns the student-facing endpoints.
type UserHandler struct {
	accounts Accounts
	mess     Mess
}

// NewUserHandler constructs the handler.
func NewUserHandler(accounts Accounts, mess Mess) *UserHandler {
	return &UserHandler{accounts: accounts, mess: mess}
}

// Register attaches the /api/users routes.
func (h *UserHandler) Register(r *mux.Router, guards Guards) {
	guards = guards.withDefaults()
	users := r.PathPrefix("/api/users").Subrouter()

	users.HandleFunc("/register", h.handleRegister).Methods(http.MethodPost)
	users.Handle("/login", guards.Login(http.HandlerFunc(h.handleLogin))).Methods(http.MethodPost)
	users.Handle("/user", guards.Any(http.HandlerFunc(h.handleFindByEmail))).Methods(http.MethodGet)

	own := users.NewRoute().Subrouter()
	own.Use(guards.Student)
	own.HandleFunc("/mess", h.handleLedger).Methods(http.MethodGet)
	own.HandleFunc("/mess-requests", h.handleCreateRequest).Methods(http.MethodPost)
	own.HandleFunc("/mess-requests", h.handleListRequests).Methods(http.MethodGet)
}

func (h *UserHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	out, err := h.mess.RegisterStudent(r.Context(), req)
	if err != nil {
		fail(w, r, err)
		return
	}
	message := "User registered successfully"
	if !out.LedgerSeeded {
		message = "User registered; mess entries could not be created and will be retried"
	}
	respond.JSON(w, http.StatusCreated, message, dto.RegisterResponse{
		Account:      out.Account,
		LedgerSeeded: out.LedgerSeeded,
		EntryCount:   int(out.Entries),
	})
}

func (h *UserHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	out, err := h.accounts.Login(r.Context(), req, models.RoleStudent)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, "login successful", out)
}

func (h *UserHandler) handleFindByEmail(w http.ResponseWriter, r *http.Request) {
	user, err := h.accounts.FindStudentByEmail(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, "user fetched successfully", user)
}

func (h *UserHandler) handleLedger(w http.ResponseWriter, r *http.Request) {
	account, ok := caller(w, r)
	if !ok {
		return
	}
	entries, err := h.mess.Ledger(r.Context(), account.ID, r.URL.Query().Get("month"))
	if err != nil {
		fail(w, r, err)
		return
	}
	if entries == nil {
		entries = []models.MessEntry{}
	}
	respond.JSON(w, http.StatusOK, "mess entries fetched successfully", entries)
}

func (h *UserHandler) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	account, ok := caller(w, r)
	if !ok {
		return
	}
	var req dto.CreateMessRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	created, err := h.mess.CreateRequest(r.Context(), account.ID, req)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, "mess request submitted successfully", created)
}

func (h *UserHandler) handleListRequests(w http.ResponseWriter, r *http.Request) {
	account, ok := caller(w, r)
	if !ok {
		return
	}
	requests, err := h.mess.RequestsForUser(r.Context(), account.ID)
	if err != nil {
		fail(w, r, err)
		return
	}
	if requests == nil {
		requests = []models.MessRequest{}
	}
	respond.JSON(w, http.StatusOK, "mess requests fetched successfully", requests)
}
