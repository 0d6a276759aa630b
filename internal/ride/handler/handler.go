package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"ride-backend/internal/ride/domain"
	"ride-backend/internal/ride/service"
	"ride-backend/pkg/auth"
	"ride-backend/pkg/logger"
	"ride-backend/pkg/websocket"
)

// Handler exposes the ride lifecycle over HTTP. It owns the mapping from the
// engine's error taxonomy to response codes; the engine itself knows nothing
// about HTTP.
type Handler struct {
	createRide   *service.CreateRideUseCase
	changeStatus *service.ChangeStatusUseCase
	getRide      *service.GetRideUseCase
	tripDetails  *service.UpdateTripDetailsUseCase
	hub          *websocket.Hub
	log          logger.Logger
}

func New(
	createRide *service.CreateRideUseCase,
	changeStatus *service.ChangeStatusUseCase,
	getRide *service.GetRideUseCase,
	tripDetails *service.UpdateTripDetailsUseCase,
	hub *websocket.Hub,
	log logger.Logger,
) *Handler {
	return &Handler{
		createRide:   createRide,
		changeStatus: changeStatus,
		getRide:      getRide,
		tripDetails:  tripDetails,
		hub:          hub,
		log:          log,
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type createRideRequest struct {
	PickupAddress  string          `json:"pickup_address"`
	PickupLat      float64         `json:"pickup_lat"`
	PickupLng      float64         `json:"pickup_lng"`
	DropoffAddress string          `json:"dropoff_address"`
	DropoffLat     float64         `json:"dropoff_lat"`
	DropoffLng     float64         `json:"dropoff_lng"`
	ExpectedFare   float64         `json:"expected_fare"`
	FareSnapshot   json.RawMessage `json:"expected_fare_snapshot"`
	Metadata       json.RawMessage `json:"metadata"`
}

// CreateRide handles POST /rides. The authenticated user is the client.
func (h *Handler) CreateRide(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.GetClaims(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing credentials")
		return
	}

	var req createRideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ride, err := h.createRide.Execute(r.Context(), service.CreateRideCommand{
		ClientID:       claims.UserID,
		PickupAddress:  req.PickupAddress,
		PickupLat:      req.PickupLat,
		PickupLng:      req.PickupLng,
		DropoffAddress: req.DropoffAddress,
		DropoffLat:     req.DropoffLat,
		DropoffLng:     req.DropoffLng,
		ExpectedFare:   req.ExpectedFare,
		FareSnapshot:   req.FareSnapshot,
		Metadata:       req.Metadata,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ride)
}

// GetRide handles GET /rides/{ride_id}.
func (h *Handler) GetRide(w http.ResponseWriter, r *http.Request) {
	ride, err := h.getRide.ByID(r.Context(), r.PathValue("ride_id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ride)
}

// GetHistory handles GET /rides/{ride_id}/history.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.getRide.History(r.Context(), r.PathValue("ride_id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ride_id": r.PathValue("ride_id"),
		"history": entries,
	})
}

type changeStatusRequest struct {
	ToStatus string          `json:"to_status"`
	Reason   *string         `json:"reason"`
	Meta     json.RawMessage `json:"meta"`
}

// ChangeStatus handles POST /rides/{ride_id}/status. Actor identity and role
// come from the verified token, never from the body.
func (h *Handler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.GetClaims(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing credentials")
		return
	}

	var req changeStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	role := domain.ActorRole(claims.Role)
	if !role.IsValid() {
		writeError(w, http.StatusForbidden, fmt.Sprintf("unknown actor role %q", claims.Role))
		return
	}

	ride, err := h.changeStatus.Execute(r.Context(), service.ChangeStatusCommand{
		RideID:    r.PathValue("ride_id"),
		Target:    domain.Status(req.ToStatus),
		ActorID:   claims.UserID,
		ActorRole: role,
		Reason:    req.Reason,
		Meta:      req.Meta,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ride)
}

type tripDetailsRequest struct {
	DriverProfileID *string         `json:"driver_profile_id"`
	DriverFare      *float64        `json:"driver_fare"`
	ActualFare      *float64        `json:"actual_fare"`
	DistanceMeters  *int64          `json:"distance_meters"`
	DurationSeconds *int64          `json:"duration_seconds"`
	IsAnomaly       *bool           `json:"is_anomaly"`
	AnomalyReason   *string         `json:"anomaly_reason"`
	Metadata        json.RawMessage `json:"metadata"`
}

// UpdateTripDetails handles PATCH /rides/{ride_id}. Non-status fields only.
func (h *Handler) UpdateTripDetails(w http.ResponseWriter, r *http.Request) {
	var req tripDetailsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ride, err := h.tripDetails.Execute(r.Context(), r.PathValue("ride_id"), domain.TripDetailsUpdate{
		DriverProfileID: req.DriverProfileID,
		DriverFare:      req.DriverFare,
		ActualFare:      req.ActualFare,
		DistanceMeters:  req.DistanceMeters,
		DurationSeconds: req.DurationSeconds,
		IsAnomaly:       req.IsAnomaly,
		AnomalyReason:   req.AnomalyReason,
		Metadata:        req.Metadata,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ride)
}

// wsClientMessage is the small control protocol websocket clients speak:
// joining and leaving ride rooms.
type wsClientMessage struct {
	Type   string `json:"type"`
	RideID string `json:"ride_id"`
}

// WebSocket handles GET /ws. The connection is registered under the
// authenticated user; clients may then join ride rooms to receive status
// notifications for those rides.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.GetClaims(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing credentials")
		return
	}

	conn, err := websocket.Upgrade(w, r, h.log, claims)
	if err != nil {
		h.log.Error("websocket_upgrade_failed", err)
		return
	}

	userID := claims.UserID
	h.hub.AddConnection(userID, conn)

	go conn.ReadPump(
		func(p []byte) {
			var msg wsClientMessage
			if err := json.Unmarshal(p, &msg); err != nil {
				return
			}
			switch msg.Type {
			case "join_ride":
				h.hub.JoinRide(msg.RideID, userID)
			case "leave_ride":
				h.hub.LeaveRide(msg.RideID, userID)
			}
		},
		func() {
			h.hub.RemoveConnection(userID, conn)
		},
	)
}

func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrRoleNotPermitted):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrRideNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrTransitionRejected):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrLockTimeout):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		h.log.Error("internal_error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{
		"error":   http.StatusText(code),
		"message": msg,
	})
}
