// Package httpapi exposes the command side of the system: auth, items and
// exchange lifecycle operations. Every command returns the updated entity
// or a typed error mapped to a status code; no push logic lives here.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"bookswap/auth"
	"bookswap/domain"
	"bookswap/errors"
	"bookswap/exchange"
	"bookswap/infrastructure/storage"
	"bookswap/services"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type Handler struct {
	log         *slog.Logger
	exchanges   exchange.Service
	items       storage.IItemRepository
	authService services.IAuthService
	tokens      *auth.TokenManager
}

func NewHandler(log *slog.Logger, exchanges exchange.Service,
	items storage.IItemRepository, authService services.IAuthService,
	tokens *auth.TokenManager) *Handler {
	return &Handler{
		log:         log,
		exchanges:   exchanges,
		items:       items,
		authService: authService,
		tokens:      tokens,
	}
}

// Router wires all routes. The websocket endpoint is mounted by the caller
// on the same router so both surfaces share one listener.
func (h *Handler) Router(pushHandler http.HandlerFunc) *mux.Router {
	r := mux.NewRouter()
	r.Use(RequestLogger(h.log))

	r.Methods(http.MethodPost).Path("/auth/register").HandlerFunc(h.register)
	r.Methods(http.MethodPost).Path("/auth/login").HandlerFunc(h.login)
	r.Path("/ws").HandlerFunc(pushHandler)

	api := r.NewRoute().Subrouter()
	api.Use(RequireAuth(h.tokens))
	api.Methods(http.MethodPost).Path("/items").HandlerFunc(h.createItem)
	api.Methods(http.MethodGet).Path("/items").HandlerFunc(h.listItems)
	api.Methods(http.MethodPost).Path("/exchanges").HandlerFunc(h.createExchange)
	api.Methods(http.MethodPut).Path("/exchanges/{id}/accept").HandlerFunc(h.acceptExchange)
	api.Methods(http.MethodPut).Path("/exchanges/{id}/reject").HandlerFunc(h.rejectExchange)
	api.Methods(http.MethodDelete).Path("/exchanges/{id}/cancel").HandlerFunc(h.cancelExchange)
	api.Methods(http.MethodGet).Path("/exchanges/my-requests").HandlerFunc(h.myRequests)
	api.Methods(http.MethodGet).Path("/exchanges/my-offers").HandlerFunc(h.myOffers)

	return r
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	token, err := h.authService.Register(r.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		http.Error(w, err.Error(), errors.HTTPStatus(err))
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"token": string(token)})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	token, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		http.Error(w, err.Error(), errors.HTTPStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": string(token)})
}

func (h *Handler) createItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title  string `json:"title"`
		Author string `json:"author"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Title == "" {
		http.Error(w, "title is required", http.StatusBadRequest)
		return
	}

	item := domain.NewItem(UserID(r.Context()), req.Title, req.Author)
	if err := h.items.CreateItem(r.Context(), item); err != nil {
		http.Error(w, err.Error(), errors.HTTPStatus(err))
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (h *Handler) listItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.items.ListItems(r.Context())
	if err != nil {
		http.Error(w, err.Error(), errors.HTTPStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) createExchange(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ItemID uuid.UUID `json:"item_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	request, err := h.exchanges.CreateRequest(r.Context(), req.ItemID, UserID(r.Context()))
	if err != nil {
		http.Error(w, err.Error(), errors.HTTPStatus(err))
		return
	}
	writeJSON(w, http.StatusCreated, request)
}

func (h *Handler) acceptExchange(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.exchanges.Accept)
}

func (h *Handler) rejectExchange(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.exchanges.Reject)
}

func (h *Handler) cancelExchange(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.exchanges.Cancel)
}

func (h *Handler) myRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := h.exchanges.ListMyRequests(r.Context(), UserID(r.Context()))
	if err != nil {
		http.Error(w, err.Error(), errors.HTTPStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, requests)
}

func (h *Handler) myOffers(w http.ResponseWriter, r *http.Request) {
	offers, err := h.exchanges.ListMyOffers(r.Context(), UserID(r.Context()))
	if err != nil {
		http.Error(w, err.Error(), errors.HTTPStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, offers)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, requestID uuid.UUID, actorID string) (*domain.ExchangeRequest, error)) {
	requestID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid request id", http.StatusBadRequest)
		return
	}

	request, err := op(r.Context(), requestID, UserID(r.Context()))
	if err != nil {
		http.Error(w, err.Error(), errors.HTTPStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, request)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
