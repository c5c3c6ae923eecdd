package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"profilecheck/internal/accounting"
	jwttoken "profilecheck/internal/jwt_token"
	"profilecheck/internal/ledger"
	"profilecheck/internal/ledger/kv"
	"profilecheck/internal/platform/config"
	"profilecheck/internal/platform/httpserver"
	"profilecheck/internal/platform/logger"
	platformmetrics "profilecheck/internal/platform/metrics"
	"profilecheck/internal/verification"
	verificationhandler "profilecheck/internal/verification/handler"
	verificationmetrics "profilecheck/internal/verification/metrics"
	"profilecheck/pkg/platform/audit/publisher"
	"profilecheck/pkg/platform/httputil"
	authmw "profilecheck/pkg/platform/middleware/auth"
	"profilecheck/pkg/platform/middleware/metadata"
	request "profilecheck/pkg/platform/middleware/request"
	"profilecheck/pkg/platform/middleware/requesttime"
)

const usageSampleInterval = 15 * time.Second

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	configPath := flag.String("config", os.Getenv("PROFILECHECK_CONFIG"), "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	infra := newInfra(cfg, log)
	defer infra.Close()

	backend, err := infra.kvBackend(ctx)
	if err != nil {
		return err
	}
	store := kv.NewStore(backend, kv.WithTxTimeout(cfg.Storage.TxTimeout))
	records := ledger.New(store)

	rate, err := cfg.Verification.Rate()
	if err != nil {
		return err
	}
	client, endpoints, err := infra.registryClient()
	if err != nil {
		return err
	}
	transferer, err := infra.transferer(ctx)
	if err != nil {
		return err
	}
	auditStore, err := infra.auditStore(ctx)
	if err != nil {
		return err
	}
	auditPublisher := publisher.NewPublisher(auditStore,
		publisher.WithAsyncBuffer(cfg.Audit.Buffer),
		publisher.WithLogger(log),
	)
	defer auditPublisher.Close()

	revocations, err := infra.revocationList(ctx)
	if err != nil {
		return err
	}

	svc, err := verification.New(records, accounting.New(rate), client, transferer,
		verification.WithLogger(log),
		verification.WithMetrics(verificationmetrics.New()),
		verification.WithAuditPublisher(auditPublisher),
		verification.WithQueryBudget(cfg.Verification.QueryBudget),
		verification.WithTracker(verification.NewTracker(cfg.Verification.Retention)),
		verification.WithEndpoints(endpoints),
	)
	if err != nil {
		return err
	}

	jwtService := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.Issuer, cfg.Auth.Audience)
	requireAuth := authmw.RequireAuth(jwttoken.NewJWTServiceAdapter(jwtService), revocations, log)

	appMetrics := platformmetrics.New()
	router := newRouter(log, appMetrics, infra)
	verificationhandler.New(svc, log, requireAuth).Register(router)
	jwttoken.NewHandler(revocations, log, requireAuth).Register(router)

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return err
	}
	srv := httpserver.New(cfg.Server.Addr, router)

	log.Info("starting profilecheck",
		"addr", ln.Addr().String(),
		"storage", cfg.Storage.Backend,
		"registry", cfg.Registry.Mode,
		"settlement", cfg.Settlement.Sink,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpserver.Serve(gctx, srv, ln, cfg.Server.ShutdownTimeout)
	})
	g.Go(func() error {
		sampleUsage(gctx, records, appMetrics, log)
		return nil
	})
	err = g.Wait()

	// Continuations already committed to the ledger still owe their refunds.
	drainCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if werr := svc.Wait(drainCtx); werr != nil {
		log.Warn("verifications still pending at shutdown", "error", werr)
	}
	return err
}

func newRouter(log *slog.Logger, m *platformmetrics.Metrics, infra *infra) chi.Router {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(chimw.Recoverer)
	r.Use(m.Instrument)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		status := map[string]string{"status": "ok"}
		code := http.StatusOK
		for name, check := range infra.health {
			if err := check(ctx); err != nil {
				log.WarnContext(ctx, "health check failed", "dependency", name, "error", err)
				status[name] = "unavailable"
				status["status"] = "degraded"
				code = http.StatusServiceUnavailable
				continue
			}
			status[name] = "ok"
		}
		httputil.WriteJSON(w, code, status)
	})
	return r
}

func sampleUsage(ctx context.Context, records *ledger.Ledger, m *platformmetrics.Metrics, log *slog.Logger) {
	ticker := time.NewTicker(usageSampleInterval)
	defer ticker.Stop()
	for {
		usage, err := records.Usage(ctx)
		switch {
		case err == nil:
			m.SetLedgerUsage(usage)
		case !errors.Is(err, context.Canceled):
			log.WarnContext(ctx, "failed to sample ledger usage", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
