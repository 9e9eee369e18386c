package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/hongminglow/mess-be/internal/apperr"
	"github.com/hongminglow/mess-be/internal/http/respond"
	"github.com/hongminglow/mess-be/internal/storage"
)

// MenuHandler serves the weekly menu.
type MenuHandler struct {
	menu storage.MenuStore
}

// NewMenuHandler constructs the handler.
func NewMenuHandler(menu storage.MenuStore) *MenuHandler {
	return &MenuHandler{menu: menu}
}

// Register attaches the menu route.
func (h *MenuHandler) Register(r *mux.Router) {
	r.HandleFunc("/api/menu", h.handleList).Methods(http.MethodGet)
}

func (h *MenuHandler) handleList(w http.ResponseWriter, r *http.Request) {
	menu, err := h.menu.ListMenu(r.Context())
	if err != nil {
		fail(w, r, apperr.Unexpected("failed to fetch menu", err))
		return
	}
	if len(menu) == 0 {
		respond.Error(w, http.StatusNotFound, "menu not found")
		return
	}
	respond.JSON(w, http.StatusOK, "menu fetched successfully", menu)
}
