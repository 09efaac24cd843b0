// README: Entry point; loads config, wires services, starts HTTP server and background sweep.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"charter/internal/ai"
	"charter/internal/config"
	httptransport "charter/internal/http"
	"charter/internal/infra"
	"charter/internal/maps"
	"charter/internal/modules/allocation"
	"charter/internal/modules/dispatch"
	"charter/internal/modules/fare"
	"charter/internal/modules/quote"
	"charter/internal/notify"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var verifier infra.TokenVerifier
	if cfg.Firebase.ProjectID != "" {
		verifier, err = infra.NewFirebaseVerifier(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
		if err != nil {
			log.Fatalf("firebase init: %v", err)
		}
	} else {
		log.Print("CHARTER_FIREBASE_PROJECT_ID not set, auth disabled")
	}

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatal(err)
	}

	redisClient := infra.NewRedis(cfg.Redis.Addr)

	routeSvc, err := maps.NewRouteService(cfg.Maps.APIKey)
	if err != nil {
		log.Fatalf("maps init: %v", err)
	}
	if cfg.Maps.APIKey == "" {
		log.Print("MAPS_API_KEY not set, using distance estimator")
	}

	var draftProvider *ai.GeminiProvider
	if cfg.AI.GeminiKey != "" {
		draftProvider, err = ai.NewGeminiProvider(ctx, cfg.AI.GeminiKey)
		if err != nil {
			log.Fatalf("gemini init: %v", err)
		}
		defer draftProvider.Close()
	}

	notifySvc := notify.NewService()

	allocStore := allocation.NewStore(dbPool)
	allocSvc := allocation.NewService(cfg.Allocation)

	fareStore := fare.NewStore(dbPool)
	fareSvc := fare.NewService()

	quoteStore := quote.NewSQLStore(dbPool)
	quoteSvc := quote.NewService(quoteStore, allocStore, fareStore, fareStore, routeSvc, fareSvc, notifySvc, cfg.Currency)

	dispatchStore := dispatch.NewStore(dbPool, redisClient)
	dispatchSvc := dispatch.NewService(dispatchStore, dispatchStore, quoteSvc, fareSvc, notifySvc)

	handler := httptransport.NewRouter(httptransport.RouterDeps{
		Quotes:     quoteSvc,
		Allocation: allocSvc,
		Fleet:      allocStore,
		Dispatch:   dispatchSvc,
		Drivers:    dispatchStore,
		Draft:      draftProvider,
		Verifier:   verifier,
	})

	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: handler}

	go dispatchSvc.RunPendingQuoteSweep(ctx, cfg.Sweep)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Printf("charter-api listening on %s", cfg.HTTP.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
