// Command server runs the raffle HTTP API and the reservation expiry sweep.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"rifa/internal/audit"
	"rifa/internal/auth"
	authhandler "rifa/internal/auth/handler"
	authstore "rifa/internal/auth/store"
	"rifa/internal/notify"
	numberstore "rifa/internal/number/store"
	"rifa/internal/platform/config"
	"rifa/internal/platform/httpserver"
	"rifa/internal/platform/logger"
	"rifa/internal/platform/metrics"
	"rifa/internal/platform/postgres"
	platformredis "rifa/internal/platform/redis"
	rafflehandler "rifa/internal/raffle/handler"
	raffleservice "rifa/internal/raffle/service"
	rafflestore "rifa/internal/raffle/store"
	"rifa/internal/sweep"
	tickethandler "rifa/internal/ticket/handler"
	ticketservice "rifa/internal/ticket/service"
	ticketstore "rifa/internal/ticket/store"
	httptransport "rifa/internal/transport/http"
)

func main() {
	createUser := flag.String("create-user", "", "create a seller account with the given username and exit")
	password := flag.String("password", "", "password for -create-user")
	flag.Parse()

	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("postgres connect failed", "error", err.Error())
		os.Exit(1)
	}
	defer db.Close()
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		log.Error("schema migration failed", "error", err.Error())
		os.Exit(1)
	}

	userStore := authstore.NewPostgresUsers(db)

	// Redis backs token revocation when configured; Postgres otherwise.
	var revocations auth.RevocationList = authstore.NewPostgresRevocations(db)
	if cfg.RedisURL != "" {
		rc, err := platformredis.New(ctx, cfg.RedisURL)
		if err != nil {
			log.Error("redis connect failed", "error", err.Error())
			os.Exit(1)
		}
		defer rc.Close()
		revocations = authstore.NewRedisRevocations(rc)
	}

	authSvc := auth.NewService(userStore, revocations, []byte(cfg.JWTSigningKey), cfg.TokenTTL)

	if *createUser != "" {
		if _, err := authSvc.CreateUser(ctx, *createUser, *password); err != nil {
			log.Error("create user failed", "username", *createUser, "error", err.Error())
			os.Exit(1)
		}
		log.Info("user created", "username", *createUser)
		return
	}

	var sink audit.Sink = audit.NewLogSink(log)
	if cfg.KafkaBrokers != "" {
		sink, err = audit.NewKafkaSink(strings.Split(cfg.KafkaBrokers, ","), cfg.KafkaTopic, log)
		if err != nil {
			log.Error("kafka connect failed", "error", err.Error())
			os.Exit(1)
		}
	}
	trail := audit.NewPublisher(sink)
	defer trail.Close()

	zone, err := time.LoadLocation(cfg.ExpiryTimeZone)
	if err != nil {
		log.Warn("unknown expiry time zone, falling back to UTC", "zone", cfg.ExpiryTimeZone)
		zone = time.UTC
	}

	var notifier ticketservice.Notifier
	if cfg.WhatsAppAccessToken != "" && cfg.WhatsAppPhoneNumberID != "" {
		notifier = notify.NewWhatsApp(cfg.WhatsAppAccessToken, cfg.WhatsAppPhoneNumberID, log)
	}

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		log.Error("create upload dir failed", "dir", cfg.UploadDir, "error", err.Error())
		os.Exit(1)
	}

	m := metrics.New()
	raffles := rafflestore.NewPostgres(db)
	tickets := ticketstore.NewPostgres(db)
	numbers := numberstore.NewPostgres(db)

	raffleSvc := raffleservice.NewService(newRafflePostgresTx(db), raffles, numbers, tickets, m)
	ticketSvc := ticketservice.NewService(ticketservice.Deps{
		Tx:         newTicketPostgresTx(db),
		Tickets:    tickets,
		Raffles:    raffles,
		Users:      authSvc,
		Notifier:   notifier,
		Audit:      trail,
		Metrics:    m,
		Logger:     log,
		ExpiryZone: zone,
		Grace:      cfg.GraceWindow,
	})

	router := httptransport.New(httptransport.Deps{
		Logger:       log,
		Metrics:      m,
		JWTValidator: authSvc,
		Auth:         authhandler.New(authSvc, log),
		Raffles:      rafflehandler.New(raffleSvc, log),
		Tickets:      tickethandler.New(ticketSvc, cfg.UploadDir, log),
	})

	srv := httpserver.New(cfg.Addr, router)
	sweeper := sweep.New(newSweepPostgresTx(db), cfg.SweepInterval, trail, m, log)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := sweeper.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited", "error", err.Error())
		os.Exit(1)
	}
	log.Info("server stopped")
}
