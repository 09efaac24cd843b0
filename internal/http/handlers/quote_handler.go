// README: Quote handlers: create, lifecycle transitions, reprice, charges.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"charter/internal/modules/fare"
	"charter/internal/modules/quote"
	"charter/internal/types"
)

type QuoteHandler struct {
	quotes *quote.Service
}

func NewQuoteHandler(svc *quote.Service) *QuoteHandler {
	return &QuoteHandler{quotes: svc}
}

type lineReq struct {
	VehicleID string `json:"vehicle_id"`
	Quantity  int    `json:"quantity"`
}

type createQuoteReq struct {
	CustomerID     string         `json:"customer_id"`
	PassengerCount int            `json:"passenger_count"`
	Itinerary      fare.Itinerary `json:"itinerary"`
	Lines          []lineReq      `json:"lines"`
	AmenityIDs     []string       `json:"amenity_ids"`
}

func (h *QuoteHandler) Create(c *gin.Context) {
	var req createQuoteReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	id, err := h.quotes.Create(c.Request.Context(), quote.CreateCommand{
		CustomerID:     types.ID(req.CustomerID),
		PassengerCount: req.PassengerCount,
		Itinerary:      req.Itinerary,
		Lines:          toLineRequests(req.Lines),
		AmenityIDs:     toIDs(req.AmenityIDs),
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, gin.H{"quote_id": id, "status": quote.StatusPending})
}

func (h *QuoteHandler) Get(c *gin.Context) {
	q, err := h.quotes.Get(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, quoteView(q))
}

func (h *QuoteHandler) Confirm(c *gin.Context) {
	if err := h.quotes.Confirm(c.Request.Context(), types.ID(c.Param("id"))); err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": quote.StatusConfirmed})
}

func (h *QuoteHandler) Complete(c *gin.Context) {
	if err := h.quotes.Complete(c.Request.Context(), types.ID(c.Param("id"))); err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": quote.StatusCompleted})
}

type cancelReq struct {
	Reason string `json:"reason"`
}

func (h *QuoteHandler) Cancel(c *gin.Context) {
	var req cancelReq
	_ = c.ShouldBindJSON(&req)
	if req.Reason == "" {
		req.Reason = "user_cancel"
	}
	err := h.quotes.Cancel(c.Request.Context(), quote.CancelCommand{
		QuoteID:   types.ID(c.Param("id")),
		ActorType: "customer",
		Reason:    req.Reason,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": quote.StatusCancelled})
}

type repriceReq struct {
	PassengerCount *int            `json:"passenger_count"`
	Lines          []lineReq       `json:"lines"`
	AmenityIDs     *[]string       `json:"amenity_ids"`
	Itinerary      *fare.Itinerary `json:"itinerary"`
	Reason         string          `json:"reason"`
}

func (h *QuoteHandler) Reprice(c *gin.Context) {
	var req repriceReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	cmd := quote.RepriceCommand{
		QuoteID:        types.ID(c.Param("id")),
		PassengerCount: req.PassengerCount,
		Itinerary:      req.Itinerary,
		Reason:         req.Reason,
	}
	if req.Lines != nil {
		cmd.Lines = toLineRequests(req.Lines)
	}
	if req.AmenityIDs != nil {
		ids := toIDs(*req.AmenityIDs)
		cmd.AmenityIDs = &ids
	}
	q, delta, err := h.quotes.Reprice(c.Request.Context(), cmd)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{
		"quote": quoteView(q),
		"delta": gin.H{"amount": delta.Float(), "currency": delta.Currency},
	})
}

func (h *QuoteHandler) Charges(c *gin.Context) {
	charges, err := h.quotes.Charges(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	out := make([]gin.H, 0, len(charges))
	for _, ch := range charges {
		out = append(out, gin.H{
			"kind":       ch.Kind,
			"amount":     ch.Amount.Float(),
			"currency":   ch.Amount.Currency,
			"reason":     ch.Reason,
			"created_at": ch.CreatedAt,
		})
	}
	writeJSON(c, http.StatusOK, gin.H{"charges": out})
}

func (h *QuoteHandler) Unassign(c *gin.Context) {
	if err := h.quotes.Unassign(c.Request.Context(), types.ID(c.Param("id"))); err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": quote.StatusConfirmed})
}

func quoteView(q *quote.Quote) gin.H {
	lines := make([]gin.H, 0, len(q.Lines))
	for _, l := range q.Lines {
		lines = append(lines, gin.H{
			"vehicle_id": l.Vehicle.ID,
			"name":       l.Vehicle.Name,
			"capacity":   l.Vehicle.Capacity,
			"quantity":   l.Quantity,
		})
	}
	view := gin.H{
		"quote_id":        q.ID,
		"customer_id":     q.CustomerID,
		"status":          q.Status,
		"passenger_count": q.PassengerCount,
		"itinerary":       q.Itinerary,
		"lines":           lines,
		"breakdown":       q.Breakdown,
		"total":           gin.H{"amount": q.Total.Float(), "currency": q.Total.Currency},
		"window_start":    q.WindowStart,
		"window_end":      q.WindowEnd,
		"created_at":      q.CreatedAt,
	}
	if q.DriverID != nil {
		view["driver_id"] = *q.DriverID
	}
	return view
}

func toLineRequests(in []lineReq) []quote.LineRequest {
	out := make([]quote.LineRequest, len(in))
	for i, l := range in {
		out[i] = quote.LineRequest{VehicleID: types.ID(l.VehicleID), Quantity: l.Quantity}
	}
	return out
}

func toIDs(in []string) []types.ID {
	out := make([]types.ID, len(in))
	for i, s := range in {
		out[i] = types.ID(s)
	}
	return out
}
