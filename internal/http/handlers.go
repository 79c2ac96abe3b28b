package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mongoadapter "github.com/sportshub/venue-booking/internal/adapters/mongo"
	"github.com/sportshub/venue-booking/internal/booking"
	"github.com/sportshub/venue-booking/internal/config"
	"github.com/sportshub/venue-booking/internal/domain"
	"github.com/sportshub/venue-booking/internal/idempotency"
)

type Handlers struct {
	cfg      *config.Config
	requests *booking.Requests
	ledger   *booking.Ledger
	issuer   *booking.Issuer
	redeemer *booking.Redeemer
	events   *booking.Events
	venues   *mongoadapter.VenueRegistry
	idemp    *idempotency.Idempotency
}

func NewHandlers(cfg *config.Config, requests *booking.Requests, ledger *booking.Ledger, issuer *booking.Issuer, redeemer *booking.Redeemer, events *booking.Events, venues *mongoadapter.VenueRegistry, idemp *idempotency.Idempotency) *Handlers {
	return &Handlers{
		cfg:      cfg,
		requests: requests,
		ledger:   ledger,
		issuer:   issuer,
		redeemer: redeemer,
		events:   events,
		venues:   venues,
		idemp:    idemp,
	}
}

func (h *Handlers) CreateBookingRequest(w http.ResponseWriter, r *http.Request) {
	callerID, ok := callerID(w, r)
	if !ok {
		return
	}

	key := r.Header.Get("Idempotency-Key")
	existing, err := h.idemp.Get(r.Context(), key)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if existing != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(existing.Status)
		w.Write(existing.Result)
		return
	}

	var req struct {
		VenueID uuid.UUID `json:"venue_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	created, err := h.requests.Create(r.Context(), req.VenueID, callerID)
	if err != nil {
		writeError(w, err)
		return
	}

	data, _ := json.Marshal(requestJSON(*created))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	w.Write(data)

	h.idemp.Set(r.Context(), key, idempotency.Response{Status: http.StatusCreated, Result: data})
}

func (h *Handlers) SentRequests(w http.ResponseWriter, r *http.Request) {
	callerID, ok := callerID(w, r)
	if !ok {
		return
	}
	reqs, err := h.requests.SentBy(r.Context(), callerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeRequestList(w, reqs)
}

func (h *Handlers) ReceivedRequests(w http.ResponseWriter, r *http.Request) {
	callerID, ok := callerID(w, r)
	if !ok {
		return
	}
	reqs, err := h.requests.ReceivedBy(r.Context(), callerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeRequestList(w, reqs)
}

func (h *Handlers) DecideRequest(w http.ResponseWriter, r *http.Request) {
	callerID, ok := callerID(w, r)
	if !ok {
		return
	}
	requestID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req struct {
		Outcome string `json:"outcome"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	outcome := booking.Outcome(req.Outcome)
	if outcome != booking.OutcomeApprove && outcome != booking.OutcomeReject {
		http.Error(w, "outcome must be approve or reject", http.StatusBadRequest)
		return
	}

	decided, err := h.requests.Decide(r.Context(), requestID, callerID, outcome)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, requestJSON(*decided))
}

func (h *Handlers) CancelRequest(w http.ResponseWriter, r *http.Request) {
	callerID, ok := callerID(w, r)
	if !ok {
		return
	}
	requestID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	cancelled, err := h.requests.Cancel(r.Context(), requestID, callerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, requestJSON(*cancelled))
}

func (h *Handlers) InitiatePayment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IdempotencyKey   string    `json:"idempotency_key"`
		BookingRequestID uuid.UUID `json:"booking_request_id"`
		Amount           int64     `json:"amount"`
		Currency         string    `json:"currency"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	intent, err := h.ledger.Initiate(r.Context(), req.IdempotencyKey, req.BookingRequestID, req.Amount, req.Currency)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, intentJSON(*intent))
}

func (h *Handlers) PaymentCallback(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IdempotencyKey string `json:"idempotency_key"`
		Status         string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Status != "success" && req.Status != "failure" {
		http.Error(w, "status must be success or failure", http.StatusBadRequest)
		return
	}

	intent, err := h.ledger.Callback(r.Context(), req.IdempotencyKey, req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, intentJSON(*intent))
}

func (h *Handlers) GenerateToken(w http.ResponseWriter, r *http.Request) {
	callerID, ok := callerID(w, r)
	if !ok {
		return
	}
	var req struct {
		BookingRequestID uuid.UUID `json:"booking_request_id"`
		ExpiresInHours   int       `json:"expires_in_hours"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ttl := time.Duration(req.ExpiresInHours) * time.Hour
	if ttl <= 0 {
		ttl = h.cfg.DefaultTokenTTL
	}

	tok, err := h.issuer.Generate(r.Context(), req.BookingRequestID, callerID, ttl)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tokenJSON(*tok))
}

func (h *Handlers) ExtendToken(w http.ResponseWriter, r *http.Request) {
	callerID, ok := callerID(w, r)
	if !ok {
		return
	}
	var req struct {
		Code  string `json:"code"`
		Hours int    `json:"hours"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Hours <= 0 {
		http.Error(w, "hours must be positive", http.StatusBadRequest)
		return
	}

	tok, err := h.issuer.Extend(r.Context(), req.Code, callerID, time.Duration(req.Hours)*time.Hour)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenJSON(*tok))
}

func (h *Handlers) RevokeToken(w http.ResponseWriter, r *http.Request) {
	callerID, ok := callerID(w, r)
	if !ok {
		return
	}
	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	tok, err := h.issuer.Revoke(r.Context(), req.Code, callerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenJSON(*tok))
}

func (h *Handlers) VerifyToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	tok, snap, err := h.redeemer.Verify(r.Context(), req.Code)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     tok.Status,
		"expires_at": tok.ExpiresAt.Format(time.RFC3339),
		"venue":      snapshotJSON(*snap),
	})
}

func (h *Handlers) CreateEvent(w http.ResponseWriter, r *http.Request) {
	callerID, ok := callerID(w, r)
	if !ok {
		return
	}
	var req struct {
		Title            string  `json:"title"`
		BookingTokenCode *string `json:"booking_token_code"`
		Location         struct {
			Name    string  `json:"name"`
			Address string  `json:"address"`
			City    string  `json:"city"`
			State   string  `json:"state"`
			Country string  `json:"country"`
			Lat     float64 `json:"lat"`
			Lng     float64 `json:"lng"`
		} `json:"location"`
		MaxCapacity int `json:"max_capacity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	loc := domain.Location{
		Name:    req.Location.Name,
		Address: req.Location.Address,
		City:    req.Location.City,
		State:   req.Location.State,
		Country: req.Location.Country,
		Lat:     req.Location.Lat,
		Lng:     req.Location.Lng,
	}
	ev, err := h.events.Create(r.Context(), callerID, req.Title, req.BookingTokenCode, loc, req.MaxCapacity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, eventJSON(*ev))
}

func (h *Handlers) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	ev, err := h.events.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, eventJSON(*ev))
}

func (h *Handlers) TokenEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := h.events.ByToken(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, eventJSON(*ev))
}

func (h *Handlers) CreateVenue(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := callerID(w, r)
	if !ok {
		return
	}
	var req struct {
		Name     string `json:"name"`
		Location struct {
			Name    string  `json:"name"`
			Address string  `json:"address"`
			City    string  `json:"city"`
			State   string  `json:"state"`
			Country string  `json:"country"`
			Lat     float64 `json:"lat"`
			Lng     float64 `json:"lng"`
		} `json:"location"`
		MaxCapacity int `json:"max_capacity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	venue := domain.Venue{
		ID:      uuid.New(),
		OwnerID: ownerID,
		Name:    req.Name,
		Location: domain.Location{
			Name:    req.Location.Name,
			Address: req.Location.Address,
			City:    req.Location.City,
			State:   req.Location.State,
			Country: req.Location.Country,
			Lat:     req.Location.Lat,
			Lng:     req.Location.Lng,
		},
		MaxCapacity: req.MaxCapacity,
		Status:      domain.VenueAvailable,
	}
	if err := h.venues.CreateVenue(r.Context(), venue); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"venue_id": venue.ID})
}

func (h *Handlers) GetVenue(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	venue, err := h.venues.Venue(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":           venue.ID,
		"owner_id":     venue.OwnerID,
		"name":         venue.Name,
		"status":       venue.Status,
		"max_capacity": venue.MaxCapacity,
		"location":     locationJSON(venue.Location),
	})
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}

func callerID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.Header.Get("X-User-ID"))
	if err != nil {
		http.Error(w, "missing or invalid X-User-ID", http.StatusUnauthorized)
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError keeps the reasons distinct end to end: the client renders
// different guidance for expired, revoked and consumed tokens.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	reason := "internal"

	switch {
	case errors.Is(err, domain.ErrForbidden):
		status, reason = http.StatusForbidden, "forbidden"
	case errors.Is(err, domain.ErrInvalidTransition):
		status, reason = http.StatusConflict, "invalid_transition"
	case errors.Is(err, domain.ErrTokenNotFound):
		status, reason = http.StatusNotFound, "token_not_found"
	case errors.Is(err, domain.ErrTokenExpired):
		status, reason = http.StatusGone, "token_expired"
	case errors.Is(err, domain.ErrTokenRevoked):
		status, reason = http.StatusConflict, "token_revoked"
	case errors.Is(err, domain.ErrTokenConsumed):
		status, reason = http.StatusConflict, "token_consumed"
	case errors.Is(err, domain.ErrNotFound):
		status, reason = http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrPaymentRequired):
		status, reason = http.StatusPaymentRequired, "payment_required"
	case errors.Is(err, domain.ErrVenueUnavailable):
		status, reason = http.StatusConflict, "venue_unavailable"
	case errors.Is(err, domain.ErrInvalidInput):
		status, reason = http.StatusBadRequest, "invalid_input"
	case errors.Is(err, domain.ErrSerializationFailure):
		status, reason = http.StatusConflict, "conflict_retry"
	}

	writeJSON(w, status, map[string]interface{}{
		"error":  err.Error(),
		"reason": reason,
	})
}

func writeRequestList(w http.ResponseWriter, reqs []domain.BookingRequest) {
	out := make([]map[string]interface{}, 0, len(reqs))
	for _, req := range reqs {
		out = append(out, requestJSON(req))
	}
	writeJSON(w, http.StatusOK, out)
}

func requestJSON(req domain.BookingRequest) map[string]interface{} {
	return map[string]interface{}{
		"id":              req.ID,
		"venue_id":        req.VenueID,
		"requester_id":    req.RequesterID,
		"owner_id":        req.OwnerID,
		"status":          req.Status,
		"conversation_id": req.ConversationID,
		"created_at":      req.CreatedAt.Format(time.RFC3339),
	}
}

func intentJSON(intent domain.PaymentIntent) map[string]interface{} {
	return map[string]interface{}{
		"idempotency_key":    intent.IdempotencyKey,
		"booking_request_id": intent.BookingRequestID,
		"amount":             intent.Amount,
		"currency":           intent.Currency,
		"status":             intent.Status,
	}
}

func tokenJSON(tok domain.BookingToken) map[string]interface{} {
	return map[string]interface{}{
		"code":               tok.Code,
		"booking_request_id": tok.BookingRequestID,
		"venue_id":           tok.VenueID,
		"issued_to":          tok.IssuedToUserID,
		"status":             tok.Status,
		"expires_at":         tok.ExpiresAt.Format(time.RFC3339),
		"extension_count":    tok.ExtensionCount,
	}
}

func snapshotJSON(snap domain.VenueSnapshot) map[string]interface{} {
	return map[string]interface{}{
		"venue_id":     snap.VenueID,
		"name":         snap.Name,
		"max_capacity": snap.MaxCapacity,
		"location":     locationJSON(snap.Location),
	}
}

func locationJSON(loc domain.Location) map[string]interface{} {
	return map[string]interface{}{
		"name":    loc.Name,
		"address": loc.Address,
		"city":    loc.City,
		"state":   loc.State,
		"country": loc.Country,
		"lat":     loc.Lat,
		"lng":     loc.Lng,
	}
}

func eventJSON(ev domain.Event) map[string]interface{} {
	return map[string]interface{}{
		"id":                 ev.ID,
		"organizer_id":       ev.OrganizerID,
		"title":              ev.Title,
		"booking_token_code": ev.BookingTokenCode,
		"venue":              snapshotJSON(ev.Venue),
		"created_at":         ev.CreatedAt.Format(time.RFC3339),
	}
}
