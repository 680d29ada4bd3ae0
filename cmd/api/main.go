package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"kurylys.org/internal/audit"
	"kurylys.org/internal/auth"
	"kurylys.org/internal/httpapi"
	"kurylys.org/internal/obs"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	dsn := os.Getenv("KURYLYS_PG_DSN")
	if dsn == "" {
		log.Fatal("KURYLYS_PG_DSN is required")
	}
	secret := os.Getenv("KURYLYS_AUTH_SECRET")
	if secret == "" {
		log.Fatal("KURYLYS_AUTH_SECRET is required")
	}
	addr := os.Getenv("KURYLYS_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	var opts []auth.Option
	if raw := os.Getenv("KURYLYS_TOKEN_TTL"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil {
			log.Fatalf("KURYLYS_TOKEN_TTL: %v", err)
		}
		opts = append(opts, auth.WithTokenTTL(ttl))
	}
	svc, err := auth.NewService(auth.NewPGStore(db), secret, opts...)
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}

	audits := audit.NewPGStore(db)
	recorder := audit.NewRecorder(audits)

	retentionCtx, stopRetention := context.WithCancel(context.Background())
	recorder.StartRetention(retentionCtx, 24*time.Hour, audit.DefaultRetention)

	api := httpapi.New(svc, recorder, audits, httpapi.ReadyProbe{DB: db}, version)

	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting kurylys-api %s on %s", version, srv.Addr)

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
	stopRetention()
	// Drain pending audit writes before the db handle goes away.
	recorder.Close()
	_ = db.Close()
	log.Println("Stopped")
}
