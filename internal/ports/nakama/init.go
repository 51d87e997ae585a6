package nakama

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"blackjack/internal/advisor"
	"blackjack/internal/app"
	"blackjack/internal/config"
	"blackjack/internal/metrics"
	"blackjack/internal/ports"
	"blackjack/internal/ports/oracle"
	"blackjack/internal/store"

	"github.com/heroiclabs/nakama-common/runtime"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// InitModule wires the blackjack engine and its RPCs into the Nakama runtime.
func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	if err := config.LoadEngineConfig(EngineConfigPath); err != nil {
		logger.Warn("InitModule: Could not load engine config, using defaults: %v", err)
	}
	cfg := *config.GetEngineConfig()
	env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)
	cfg.ApplyEnv(env)

	zl, err := zap.NewProduction()
	if err != nil {
		logger.Warn("InitModule: zap logger unavailable, engine logs disabled: %v", err)
		zl = zap.NewNop()
	}

	svc, st, err := newEngine(&cfg, zl)
	if err != nil {
		return err
	}
	if err := st.Start(); err != nil {
		return err
	}
	if cfg.MetricsAddr != "" {
		serveMetrics(cfg.MetricsAddr, logger)
	}
	if err := RegisterRPCs(initializer, svc); err != nil {
		return err
	}

	logger.Info("Blackjack Go module loaded (default variant %s, oracle enabled: %t).", cfg.DefaultVariant, cfg.OracleURL != "")
	return nil
}

// newEngine builds the session service and its store from cfg.
func newEngine(cfg *config.EngineConfig, logger *zap.Logger, opts ...app.Option) (*app.Service, *store.Store, error) {
	var port ports.OraclePort
	if cfg.OracleURL != "" {
		adapter, err := oracle.NewHTTPAdapter(nil, cfg.OracleURL, cfg.OracleAPIKey, cfg.OracleModel)
		if err != nil {
			return nil, nil, err
		}
		port = adapter
	}

	var limiter *rate.Limiter
	if cfg.OracleRatePerSecond > 0 {
		burst := cfg.OracleBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.OracleRatePerSecond), burst)
	}

	gw := advisor.NewGateway(port, advisor.Options{
		Timeout: cfg.OracleTimeout(),
		Limiter: limiter,
		Logger:  logger.Named("advisor"),
	})
	st := store.New(store.Options{
		TTL:           cfg.SessionTTL(),
		FinishedGrace: cfg.FinishedGrace(),
		SweepInterval: cfg.SweepInterval(),
		MaxSessions:   cfg.MaxSessions,
		Logger:        logger.Named("store"),
	})
	opts = append([]app.Option{app.WithLogger(logger.Named("engine"))}, opts...)
	svc := app.NewService(st, gw, cfg, opts...)
	return svc, st, nil
}

// serveMetrics exposes the engine collectors on addr in the background.
func serveMetrics(addr string, logger runtime.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics listener on %s stopped: %v", addr, err)
		}
	}()
	logger.Info("Serving engine metrics on %s/metrics", addr)
}
