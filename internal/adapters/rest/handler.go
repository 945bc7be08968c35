// Package rest exposes bid queries and administrator actions over HTTP.
package rest

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/domain/bid"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/domain/shared"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/ports/inbound"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

const adminTokenHeader = "X-Admin-Token"

type Handler struct {
	bidService inbound.BidService
	closer     inbound.AuctionCloser
	adminToken string
	logger     zerolog.Logger
}

type HandlerParams struct {
	BidService inbound.BidService
	Closer     inbound.AuctionCloser
	AdminToken string
	Logger     zerolog.Logger
}

func NewHandler(params HandlerParams) *Handler {
	return &Handler{
		bidService: params.BidService,
		closer:     params.Closer,
		adminToken: params.AdminToken,
		logger:     params.Logger.With().Str("component", "rest_handler").Logger(),
	}
}

// Register mounts the routes on r
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/bids/{id}", h.getBid).Methods(http.MethodGet)
	r.HandleFunc("/bids/{id}/history", h.bidHistory).Methods(http.MethodGet)
	r.HandleFunc("/listings/{id}/bids", h.listBids).Methods(http.MethodGet)
	r.HandleFunc("/listings/{id}/winning", h.winningBid).Methods(http.MethodGet)
	r.HandleFunc("/listings/{id}/stats", h.stats).Methods(http.MethodGet)

	admin := r.PathPrefix("/admin").Subrouter()
	admin.Use(h.requireAdmin)
	admin.HandleFunc("/bids/{id}/paid", h.markPaid).Methods(http.MethodPost)
	admin.HandleFunc("/bids/{id}/{action:approve|reject|mark-won}", h.override).Methods(http.MethodPost)
	admin.HandleFunc("/listings/{id}/close", h.closeListing).Methods(http.MethodPost)
}

// requireAdmin rejects requests without the configured admin token. With no
// token configured every admin request is rejected.
func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get(adminTokenHeader)
		if h.adminToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(h.adminToken)) != 1 {
			h.respondError(w, r, shared.ErrAdminUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) getBid(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	b, err := h.bidService.GetBid(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, b)
}

func (h *Handler) bidHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	entries, err := h.bidService.History(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"bid_id": id, "history": entries})
}

func (h *Handler) listBids(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	req := inbound.ListBidsRequest{ListingID: &id, Limit: 50}
	query := r.URL.Query()
	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			h.respondError(w, r, shared.Validationf("limit must be a non-negative integer"))
			return
		}
		req.Limit = limit
	}
	for _, status := range query["status"] {
		req.Statuses = append(req.Statuses, bid.Status(status))
	}

	bids, err := h.bidService.ListBids(r.Context(), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"bids": bids, "count": len(bids)})
}

func (h *Handler) winningBid(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	b, err := h.bidService.WinningBid(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"listing_id": id, "bid": b})
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	stats, err := h.bidService.Stats(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (h *Handler) override(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	action := inbound.AdminAction(mux.Vars(r)["action"])

	b, err := h.bidService.AdminOverride(r.Context(), id, action)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.logger.Info().Str("bid_id", id.String()).Str("action", string(action)).Msg("Admin override applied")
	respondJSON(w, http.StatusOK, b)
}

func (h *Handler) markPaid(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	b, err := h.bidService.MarkPaid(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.logger.Info().Str("bid_id", id.String()).Msg("Bid marked paid")
	respondJSON(w, http.StatusOK, b)
}

func (h *Handler) closeListing(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	result, err := h.closer.Close(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, r, shared.Validationf("invalid id %q", mux.Vars(r)["id"]))
		return uuid.Nil, false
	}
	return id, true
}

// StatusCode maps an error kind to its HTTP status
func StatusCode(err error) int {
	switch {
	case errors.Is(err, shared.ErrAdminUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, shared.ErrBusy):
		return http.StatusServiceUnavailable
	case errors.Is(err, shared.ErrAuctionClosed):
		return http.StatusConflict
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrValidation):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusCode(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("Request failed")
		message = "internal error"
	}
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}
	respondJSON(w, status, map[string]string{"error": message})
}

func respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
