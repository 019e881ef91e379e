package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"farmaledger.org/internal/coa"
	"farmaledger.org/internal/httpapi"
	"farmaledger.org/internal/journal"
	"farmaledger.org/internal/landedcost"
	"farmaledger.org/internal/obs"
	"farmaledger.org/internal/report"
	"farmaledger.org/internal/store/pg"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	addr := os.Getenv("FARMALEDGER_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	deps := httpapi.Deps{}
	probe := httpapi.ReadyProbe{}

	if dsn := os.Getenv("FARMALEDGER_PG_DSN"); dsn != "" {
		store, err := pg.Open(dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		defer store.Close()
		probe.DB = store.DB()
		deps.Entries = store
		deps.Accounts = store
		deps.Parties = store
		deps.Batches = store
		deps.Engine = journal.NewEngine(store, store, store, journal.ChartRefs{})
		deps.Reports = report.NewCompiler(store, store)
	} else {
		// No DSN: run fully in-memory, useful for local development.
		store := journal.NewInMemory()
		registry := coa.NewInMemory(store)
		deps.Entries = store
		deps.Accounts = registry
		deps.Parties = store
		deps.Batches = landedcost.NewInMemory()
		deps.Engine = journal.NewEngine(store, registry, store, journal.ChartRefs{})
		deps.Reports = report.NewCompiler(store, registry)
		log.Print("FARMALEDGER_PG_DSN not set, using in-memory stores")
	}

	api := httpapi.New(probe, version, deps)

	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting farmaledger-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	log.Println("Stopped")
}
