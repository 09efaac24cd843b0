// README: HTTP router registration; delegates to module services.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"charter/internal/ai"
	"charter/internal/http/handlers"
	"charter/internal/http/middleware"
	"charter/internal/infra"
	"charter/internal/modules/allocation"
	"charter/internal/modules/dispatch"
	"charter/internal/modules/quote"
)

type RouterDeps struct {
	Quotes     *quote.Service
	Allocation *allocation.Service
	Fleet      *allocation.Store
	Dispatch   *dispatch.Service
	Drivers    *dispatch.Store
	Draft      *ai.GeminiProvider
	Verifier   infra.TokenVerifier
}

func NewRouter(deps RouterDeps) http.Handler {
	r := gin.New()
	r.Use(middleware.Logging(), middleware.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	api := r.Group("/api", middleware.Auth(deps.Verifier))

	quoteHandler := handlers.NewQuoteHandler(deps.Quotes)
	api.POST("/quotes", quoteHandler.Create)
	api.GET("/quotes/:id", quoteHandler.Get)
	api.POST("/quotes/:id/confirm", quoteHandler.Confirm)
	api.POST("/quotes/:id/cancel", quoteHandler.Cancel)
	api.POST("/quotes/:id/complete", quoteHandler.Complete)
	api.POST("/quotes/:id/reprice", quoteHandler.Reprice)
	api.GET("/quotes/:id/charges", quoteHandler.Charges)

	dispatchHandler := handlers.NewDispatchHandler(deps.Quotes, deps.Dispatch, deps.Drivers)
	api.POST("/quotes/:id/assign", dispatchHandler.Assign)
	api.POST("/quotes/:id/assign-check", dispatchHandler.Check)
	api.POST("/quotes/:id/unassign", quoteHandler.Unassign)
	api.PUT("/drivers/:id/availability", dispatchHandler.SetAvailability)
	api.GET("/drivers/available", dispatchHandler.ListAvailable)

	recHandler := handlers.NewRecommendationHandler(deps.Allocation, deps.Fleet, deps.Quotes)
	api.POST("/recommendations", recHandler.Recommend)
	api.GET("/recommendations/remedy", recHandler.Remedy)

	draftHandler := handlers.NewDraftHandler(deps.Draft)
	api.POST("/drafts", draftHandler.Draft)

	return r
}
