/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/recruitd/internal/api"
	"github.com/friendsincode/recruitd/internal/audit"
	"github.com/friendsincode/recruitd/internal/availability"
	"github.com/friendsincode/recruitd/internal/booking"
	"github.com/friendsincode/recruitd/internal/cache"
	"github.com/friendsincode/recruitd/internal/config"
	"github.com/friendsincode/recruitd/internal/db"
	"github.com/friendsincode/recruitd/internal/directory"
	"github.com/friendsincode/recruitd/internal/eventbus"
	"github.com/friendsincode/recruitd/internal/lock"
	"github.com/friendsincode/recruitd/internal/pipeline"
	"github.com/friendsincode/recruitd/internal/telemetry"
	"github.com/friendsincode/recruitd/internal/workflow"
)

// Server bundles HTTP and supporting services.
type Server struct {
	cfg           *config.Config
	logger        zerolog.Logger
	router        chi.Router
	httpServer    *http.Server
	metricsServer *http.Server
	closers       []func() error

	db        *gorm.DB
	cache     *cache.Cache
	bus       eventbus.Transport
	dir       *directory.Service
	auditSvc  *audit.Service
	api       *api.API

	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
}

// New constructs the server and wires dependencies.
func New(cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(securityHeadersMiddleware)
	router.Use(telemetry.TracingMiddleware("recruitd-api"))
	router.Use(telemetry.MetricsMiddleware)
	router.Use(middleware.Timeout(cfg.RequestTimeout))

	srv := &Server{
		cfg:    cfg,
		logger: logger,
		router: router,
	}

	if err := srv.initDependencies(); err != nil {
		_ = srv.Close()
		return nil, err
	}

	srv.configureRoutes()
	srv.startBackgroundWorkers()

	srv.httpServer = &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           srv.router,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       cfg.RequestTimeout,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	if cfg.MetricsBind != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", telemetry.Handler())
		srv.metricsServer = &http.Server{
			Addr:              cfg.MetricsBind,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	return srv, nil
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		w.Header().Set("Cache-Control", "no-store")

		// Only advertise HSTS for requests served over HTTPS.
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) initDependencies() error {
	database, err := db.Connect(s.cfg)
	if err != nil {
		return err
	}
	s.db = database
	s.DeferClose(func() error { return db.Close(database) })

	if err := db.Migrate(database); err != nil {
		return err
	}

	catalogue, err := workflow.Load(s.cfg.WorkflowFile)
	if err != nil {
		return err
	}
	s.logger.Info().Int("stages", len(catalogue.Stages())).Str("file", s.cfg.WorkflowFile).Msg("workflow catalogue loaded")

	bus, err := eventbus.New(s.cfg, s.logger)
	if err != nil {
		return fmt.Errorf("event transport: %w", err)
	}
	s.bus = bus
	s.DeferClose(bus.Close)

	if s.cfg.CacheEnabled {
		cacheCfg := cache.DefaultConfig()
		cacheCfg.RedisAddr = s.cfg.RedisAddr
		cacheCfg.RedisPassword = s.cfg.RedisPassword
		cacheCfg.RedisDB = s.cfg.RedisDB
		directoryCache, err := cache.New(cacheCfg, s.logger)
		if err != nil {
			s.logger.Warn().Err(err).Msg("cache initialization failed, continuing without cache")
		} else {
			s.cache = directoryCache
			s.DeferClose(directoryCache.Close)
		}
	}

	locker, err := s.newLocker()
	if err != nil {
		return err
	}

	s.dir = directory.NewService(database, s.cache, bus, s.logger)

	ledger := booking.NewLedger(database, s.dir, locker, bus, booking.Config{
		DefaultDurationMinutes: s.cfg.DefaultDurationMinutes,
		MaxDurationMinutes:     s.cfg.MaxDurationMinutes,
	}, s.logger)

	avail, err := availability.NewService(s.dir, ledger, availability.Config{
		SlotMinutes:    s.cfg.SlotMinutes,
		MaxRangeDays:   s.cfg.MaxRangeDays,
		RoomHoursStart: s.cfg.RoomHoursStart,
		RoomHoursEnd:   s.cfg.RoomHoursEnd,
	}, s.logger)
	if err != nil {
		return fmt.Errorf("availability: %w", err)
	}

	orch := pipeline.NewOrchestrator(database, workflow.NewEngine(catalogue), ledger, bus, s.logger)

	s.auditSvc = audit.NewService(database, bus, s.logger)
	s.api = api.New(s.dir, ledger, avail, orch, catalogue, s.auditSvc, s.logger)

	return nil
}

// newLocker picks the booking write serializer. The redis locker only
// matters when several instances share one database.
func (s *Server) newLocker() (lock.Locker, error) {
	switch s.cfg.LockBackend {
	case config.LockRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     s.cfg.RedisAddr,
			Password: s.cfg.RedisPassword,
			DB:       s.cfg.RedisDB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis lock backend: %w", err)
		}
		s.DeferClose(client.Close)
		s.logger.Info().Str("redis_addr", s.cfg.RedisAddr).Dur("lease", s.cfg.LockTTL).Msg("distributed booking locks enabled")
		return lock.NewRedis(client, lock.RedisConfig{KeyPrefix: "recruitd:lock:", Lease: s.cfg.LockTTL}, s.logger), nil
	default:
		return lock.NewLocal(), nil
	}
}

// HTTPServer exposes the underlying net/http server.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// MetricsServer returns the Prometheus listener, or nil when metrics are
// served on the API router only.
func (s *Server) MetricsServer() *http.Server {
	return s.metricsServer
}

// Close releases owned resources in reverse order.
func (s *Server) Close() error {
	s.stopBackgroundWorkers()

	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.closers = nil
	return firstErr
}

// DeferClose registers a cleanup hook.
func (s *Server) DeferClose(fn func() error) {
	s.closers = append(s.closers, fn)
}

func (s *Server) startBackgroundWorkers() {
	ctx, cancel := context.WithCancel(context.Background())
	s.bgCancel = cancel

	// Start database metrics updater
	if s.db != nil {
		s.bgWG.Add(1)
		go func() {
			defer s.bgWG.Done()
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					db.UpdateConnectionMetrics(s.db)
				}
			}
		}()
	}

	if s.auditSvc != nil {
		s.bgWG.Add(1)
		go func() {
			defer s.bgWG.Done()
			s.auditSvc.Start(ctx)
		}()
	}

	if s.cache != nil && s.dir != nil {
		s.bgWG.Add(1)
		go func() {
			defer s.bgWG.Done()
			s.dir.WatchInvalidations(ctx)
		}()
	}
}

func (s *Server) stopBackgroundWorkers() {
	if s.bgCancel == nil {
		return
	}
	s.bgCancel()
	s.bgWG.Wait()
	s.bgCancel = nil
}

func (s *Server) configureRoutes() {
	s.router.Get("/healthz", s.handleHealthz)

	if s.cfg.MetricsBind == "" {
		s.router.Handle("/metrics", telemetry.Handler())
	}

	s.api.Routes(s.router)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(r.Context())
	}
	if err != nil {
		s.logger.Warn().Err(err).Msg("health check: database unreachable")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"degraded","database":"unreachable"}`))
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok","database":"ok"}`))
}
