package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/savemedha/outreach-api/internal/callback"
	cbrepo "github.com/savemedha/outreach-api/internal/callback/repo"
	"github.com/savemedha/outreach-api/internal/contact"
	ctrepo "github.com/savemedha/outreach-api/internal/contact/repo"
	"github.com/savemedha/outreach-api/internal/newsletter"
	nlrepo "github.com/savemedha/outreach-api/internal/newsletter/repo"
	"github.com/savemedha/outreach-api/internal/ratelimit"
	"github.com/savemedha/outreach-api/internal/router"
	"github.com/savemedha/outreach-api/internal/session"
	"github.com/savemedha/outreach-api/internal/user"
	userrepo "github.com/savemedha/outreach-api/internal/user/repo"
	"github.com/savemedha/outreach-api/pkg/database"
	"github.com/savemedha/outreach-api/pkg/utilities"
)

type stores struct {
	users      user.Store
	newsletter newsletter.Store
	contacts   contact.Store
	callbacks  callback.Store
	ping       func(ctx context.Context) error
	close      func(ctx context.Context) error
}

func openMongo(ctx context.Context, cfg database.Config) (*stores, error) {
	client, db, err := database.ConnectMongo(cfg)
	if err != nil {
		return nil, err
	}
	users := userrepo.NewMongoRepo(db)
	if err := users.EnsureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("users indexes: %w", err)
	}
	subs := nlrepo.NewMongoRepo(db)
	if err := subs.EnsureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("newsletter indexes: %w", err)
	}
	contacts := ctrepo.NewMongoRepo(db)
	if err := contacts.EnsureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("contact indexes: %w", err)
	}
	callbacks := cbrepo.NewMongoRepo(db)
	if err := callbacks.EnsureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("callback indexes: %w", err)
	}
	return &stores{
		users:      users,
		newsletter: subs,
		contacts:   contacts,
		callbacks:  callbacks,
		ping:       func(ctx context.Context) error { return client.Ping(ctx, nil) },
		close:      client.Disconnect,
	}, nil
}

func openPostgres(ctx context.Context, cfg database.Config) (*stores, error) {
	sqlDB, err := database.Connect(cfg)
	if err != nil {
		return nil, err
	}
	// wrap with sqlx for the repos
	db := sqlx.NewDb(sqlDB, "postgres")
	users := userrepo.NewPostgresRepo(db)
	if err := users.EnsureTable(ctx); err != nil {
		return nil, fmt.Errorf("accounts table: %w", err)
	}
	subs := nlrepo.NewPostgresRepo(db)
	if err := subs.EnsureTable(ctx); err != nil {
		return nil, fmt.Errorf("subscriptions table: %w", err)
	}
	contacts := ctrepo.NewPostgresRepo(db)
	if err := contacts.EnsureTable(ctx); err != nil {
		return nil, fmt.Errorf("contacts table: %w", err)
	}
	callbacks := cbrepo.NewPostgresRepo(db)
	if err := callbacks.EnsureTable(ctx); err != nil {
		return nil, fmt.Errorf("callback_requests table: %w", err)
	}
	return &stores{
		users:      users,
		newsletter: subs,
		contacts:   contacts,
		callbacks:  callbacks,
		ping:       db.PingContext,
		close:      func(context.Context) error { return db.Close() },
	}, nil
}

func openStores(ctx context.Context, cfg database.Config) (*stores, error) {
	switch cfg.Driver {
	case database.DriverMongo:
		return openMongo(ctx, cfg)
	case database.DriverPostgres:
		return openPostgres(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q", cfg.Driver)
	}
}

func main() {
	// best-effort: without a .env file the real environment is used
	_ = godotenv.Load()

	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Info("starting outreach-api")

	sessCfg := session.ConfigFromEnv()
	if sessCfg.Secret == "" {
		sugar.Error("JWT_SECRET is not set; login, registration and protected routes will fail")
	}

	dbCfg := database.ConfigFromEnv()
	initCtx, cancelInit := context.WithTimeout(context.Background(), dbCfg.Timeout)
	st, err := openStores(initCtx, dbCfg)
	cancelInit()
	if err != nil {
		sugar.Fatalf("db connect (%s): %v", dbCfg.Driver, err)
	}
	sugar.Infow("store ready", "driver", dbCfg.Driver)

	limCfg := ratelimit.ConfigFromEnv()
	limiter, closeLimiter, err := ratelimit.New(limCfg)
	if err != nil {
		sugar.Warnw("redis unavailable, falling back to in-memory rate limiting", "err", err)
		limiter, closeLimiter = ratelimit.NewMemoryLimiter(limCfg.Limit, limCfg.Window), func() error { return nil }
	}
	defer closeLimiter()

	auth := session.NewAuthority(st.users, nil, nil, nil, sugar, sessCfg)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	httpCfg := router.ConfigFromEnv()
	handler := router.RegisterRoutes(router.Deps{
		Logger:      sugar,
		Auth:        auth,
		Users:       user.NewHandler(user.NewUserService(st.users, auth), sugar),
		Newsletter:  newsletter.NewHandler(newsletter.NewService(st.newsletter), sugar),
		Contact:     contact.NewHandler(contact.NewService(st.contacts), sugar),
		Callback:    callback.NewHandler(callback.NewService(st.callbacks), sugar),
		Limiter:     limiter,
		LimitConfig: limCfg,
		Registry:    reg,
		Config:      httpCfg,
	})
	srv := &http.Server{
		Addr:              httpCfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()
	sugar.Infow("service is running", "addr", httpCfg.Addr)

	<-ctx.Done()
	shutdown(sugar, srv, st)
}

func shutdown(sugar *zap.SugaredLogger, srv *http.Server, st *stores) {
	sugar.Info("shutting down")

	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}
	if err := st.ping(doneCtx); err != nil {
		sugar.Warnf("db ping on shutdown failed: %v", err)
	}
	if err := st.close(doneCtx); err != nil {
		sugar.Warnf("db close failed: %v", err)
	}
	sugar.Info("goodbye")
}
