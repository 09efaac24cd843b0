// README: Vehicle recommendation and capacity remedy handlers.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"charter/internal/modules/allocation"
	"charter/internal/modules/quote"
)

type RecommendationHandler struct {
	alloc  *allocation.Service
	fleet  *allocation.Store
	quotes *quote.Service
}

func NewRecommendationHandler(alloc *allocation.Service, fleet *allocation.Store, quotes *quote.Service) *RecommendationHandler {
	return &RecommendationHandler{alloc: alloc, fleet: fleet, quotes: quotes}
}

type recommendReq struct {
	PassengerCount int `json:"passenger_count"`
}

func (h *RecommendationHandler) Recommend(c *gin.Context) {
	var req recommendReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	fleet, err := h.fleet.ListFleet(c.Request.Context())
	if err != nil {
		writeDomainError(c, err)
		return
	}
	options, err := h.alloc.GetRecommendations(req.PassengerCount, fleet)
	if err != nil {
		writeDomainError(c, err)
		return
	}

	out := make([]gin.H, 0, len(options))
	for _, o := range options {
		lines := make([]gin.H, 0, len(o.Lines))
		for _, l := range o.Lines {
			lines = append(lines, gin.H{
				"vehicle_id": l.Vehicle.ID,
				"name":       l.Vehicle.Name,
				"capacity":   l.Vehicle.Capacity,
				"quantity":   l.Quantity,
			})
		}
		out = append(out, gin.H{
			"option_id":       o.ID,
			"lines":           lines,
			"total_capacity":  o.TotalCapacity,
			"estimated_price": o.EstimatedPrice,
			"is_exact_match":  o.IsExactMatch,
		})
	}
	writeJSON(c, http.StatusOK, gin.H{"options": out})
}

// Remedy suggests additional vehicles for a passenger shortfall, for the flow
// where a group outgrows its booked allocation.
func (h *RecommendationHandler) Remedy(c *gin.Context) {
	shortfall, err := strconv.Atoi(c.Query("shortfall"))
	if err != nil || shortfall <= 0 {
		writeError(c, http.StatusBadRequest, "shortfall must be a positive integer")
		return
	}
	candidates, err := h.quotes.AdditionalVehicleCandidates(c.Request.Context(), shortfall)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	out := make([]gin.H, 0, len(candidates))
	for _, v := range candidates {
		out = append(out, gin.H{"vehicle_id": v.ID, "name": v.Name, "capacity": v.Capacity, "base_fare": v.BaseFare})
	}
	writeJSON(c, http.StatusOK, gin.H{"candidates": out, "covered": len(out) > 0})
}
