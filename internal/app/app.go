// Package app assembles the server: configuration, logging, the oracle
// client with its middleware chain, archival backends, the session
// registry and the HTTP/websocket surface.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"twentyq/internal/archive"
	"twentyq/internal/config"
	"twentyq/internal/game"
	"twentyq/internal/oracle"
	"twentyq/internal/server"
	"twentyq/internal/turn"
)

// Options are CLI-level overrides applied on top of the environment
// configuration. Zero values mean "keep the configured value".
type Options struct {
	Port         string
	Provider     string
	Model        string
	MaxQuestions int
	Verbose      bool
}

type App struct {
	cfg    *config.Config
	log    *zap.Logger
	oracle oracle.Client
	store  *archive.Store
	server *server.Server

	sweepCancel context.CancelFunc
}

func New(opts Options) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	applyOverrides(cfg, opts)

	log, err := newLogger(cfg.Env, opts.Verbose)
	if err != nil {
		return nil, err
	}

	cli, err := newOracle(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to init oracle client: %w", err)
	}

	store := archive.NewFromEnv(cfg.Archive.Path)
	archiver := archive.Multi{store}
	if cfg.Archive.S3.Enabled {
		s3, err := archive.NewS3Store(archive.S3Config{
			Endpoint:  cfg.Archive.S3.Endpoint,
			Region:    cfg.Archive.S3.Region,
			AccessKey: cfg.Archive.S3.AccessKey,
			SecretKey: cfg.Archive.S3.SecretKey,
			Bucket:    cfg.Archive.S3.Bucket,
			UseSSL:    cfg.Archive.S3.UseSSL,
		})
		if err != nil {
			log.Warn("s3 archive disabled", zap.Error(err))
		} else {
			archiver = append(archiver, s3)
		}
	}

	pol := game.DefaultPolicy()
	if cfg.Session.MaxQuestions > 0 {
		pol.MaxQuestions = cfg.Session.MaxQuestions
	}

	ctrl := turn.NewController(cli, pol, archiver, log)
	reg := turn.NewRegistry(cfg.Session.IdleTimeout, log)

	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	go reg.Run(sweepCtx, cfg.Session.SweepInterval, func(ctx context.Context, sess *game.Session) {
		_ = ctrl.Abandon(ctx, sess)
	})

	mux := server.NewMux(
		server.NewGameHandler(ctrl, reg, log),
		server.NewWSHandler(ctrl, reg, log),
	)
	srv := server.New(cfg.Port, mux, log)

	log.Info("configured",
		zap.String("oracle", cli.Name()),
		zap.Int("max_questions", pol.MaxQuestions),
		zap.String("addr", cfg.Port),
	)

	return &App{
		cfg:         cfg,
		log:         log,
		oracle:      cli,
		store:       store,
		server:      srv,
		sweepCancel: sweepCancel,
	}, nil
}

func (a *App) Start() error {
	return a.server.Start()
}

func (a *App) Shutdown(ctx context.Context) error {
	a.sweepCancel()
	err := a.server.Shutdown(ctx)
	_ = a.oracle.Close()
	_ = a.store.Close()
	_ = a.log.Sync()
	return err
}

func applyOverrides(cfg *config.Config, opts Options) {
	if opts.Port != "" {
		if !strings.HasPrefix(opts.Port, ":") {
			opts.Port = ":" + opts.Port
		}
		cfg.Port = opts.Port
	}
	if opts.Provider != "" {
		cfg.Oracle.Provider = strings.ToLower(opts.Provider)
	}
	if opts.Model != "" {
		cfg.Oracle.Model = opts.Model
	}
	if opts.MaxQuestions > 0 {
		cfg.Session.MaxQuestions = opts.MaxQuestions
	}
}

func newLogger(env string, verbose bool) (*zap.Logger, error) {
	if strings.EqualFold(env, "local") {
		return zap.NewDevelopment()
	}
	zcfg := zap.NewProductionConfig()
	if verbose {
		zcfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return zcfg.Build()
}

// newOracle builds the configured backend and wraps it with the standard
// middleware chain. Order matters: the timeout bounds each attempt made
// by the retrier, and the rate limiter gates every attempt.
func newOracle(cfg *config.Config, log *zap.Logger) (oracle.Client, error) {
	var inner oracle.Client
	switch cfg.Oracle.Provider {
	case "gemini":
		cli, err := oracle.NewGeminiClient(context.Background(), cfg.Oracle.Model, cfg.Oracle.Temperature, int32(cfg.Oracle.MaxOutputTokens))
		if err != nil {
			return nil, err
		}
		inner = cli
	case "groq":
		inner = oracle.NewGroqClient("", cfg.Oracle.Model, cfg.Oracle.Temperature, cfg.Oracle.MaxOutputTokens)
	case "fake":
		// Scripted backend for local poking without an API key.
		inner = oracle.NewFakeClient()
	default:
		return nil, fmt.Errorf("unknown oracle provider %q", cfg.Oracle.Provider)
	}

	return oracle.Wrap(inner,
		oracle.Logging(log),
		oracle.Retry(cfg.Oracle.Retries+1, 300*time.Millisecond),
		oracle.RateLimit(cfg.Oracle.RPS, cfg.Oracle.Burst),
		oracle.Timeout(cfg.Oracle.Timeout),
	), nil
}
