// README: Driver availability and assignment handlers.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"charter/internal/modules/dispatch"
	"charter/internal/modules/quote"
	"charter/internal/types"
)

type DispatchHandler struct {
	quotes   *quote.Service
	dispatch *dispatch.Service
	drivers  *dispatch.Store
}

func NewDispatchHandler(quotes *quote.Service, svc *dispatch.Service, drivers *dispatch.Store) *DispatchHandler {
	return &DispatchHandler{quotes: quotes, dispatch: svc, drivers: drivers}
}

type availabilityReq struct {
	Available *bool `json:"available"`
}

func (h *DispatchHandler) SetAvailability(c *gin.Context) {
	var req availabilityReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Available == nil {
		writeError(c, http.StatusBadRequest, "available must be a boolean")
		return
	}
	if err := h.drivers.SetAvailability(c.Request.Context(), types.ID(c.Param("id")), *req.Available); err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"available": *req.Available})
}

func (h *DispatchHandler) ListAvailable(c *gin.Context) {
	drivers, err := h.drivers.FindAvailable(c.Request.Context())
	if err != nil {
		writeDomainError(c, err)
		return
	}
	out := make([]gin.H, 0, len(drivers))
	for _, d := range drivers {
		out = append(out, gin.H{"driver_id": d.ID, "name": d.Name, "hourly_rate": d.HourlyRate})
	}
	writeJSON(c, http.StatusOK, gin.H{"drivers": out})
}

type assignReq struct {
	DriverID string `json:"driver_id"`
}

// Assign binds a specific driver to a confirmed quote, running the same
// conflict check and rate repricing as the background sweep.
func (h *DispatchHandler) Assign(c *gin.Context) {
	var req assignReq
	if err := c.ShouldBindJSON(&req); err != nil || req.DriverID == "" {
		writeError(c, http.StatusBadRequest, "driver_id is required")
		return
	}
	ctx := c.Request.Context()

	q, err := h.quotes.Get(ctx, types.ID(c.Param("id")))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	d, err := h.drivers.GetDriver(ctx, types.ID(req.DriverID))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	pending := dispatch.PendingQuote{
		ID:          q.ID,
		Itinerary:   q.Itinerary,
		Lines:       q.Lines,
		Amenities:   q.Amenities,
		RouteTotals: q.RouteTotals,
		Snapshot:    q.Breakdown.ConfigSnapshot,
	}
	if err := h.dispatch.AssignDriver(ctx, pending, d); err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": quote.StatusAssigned, "driver_id": d.ID})
}

type checkReq struct {
	DriverID string `json:"driver_id"`
}

// Check answers whether a driver could take the quote's window without
// committing anything.
func (h *DispatchHandler) Check(c *gin.Context) {
	var req checkReq
	if err := c.ShouldBindJSON(&req); err != nil || req.DriverID == "" {
		writeError(c, http.StatusBadRequest, "driver_id is required")
		return
	}
	ctx := c.Request.Context()

	q, err := h.quotes.Get(ctx, types.ID(c.Param("id")))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	d, err := h.drivers.GetDriver(ctx, types.ID(req.DriverID))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	decision, err := h.dispatch.CanAssign(ctx, d, q.Itinerary, q.ID)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	resp := gin.H{"can_assign": decision.CanAssign}
	if decision.Reason != "" {
		resp["reason"] = decision.Reason
	}
	writeJSON(c, http.StatusOK, resp)
}
