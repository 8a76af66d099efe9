// Command tunequiz is the main entrypoint for the song quiz service.
// It:
//   - Loads configuration and initializes structured logging.
//   - Loads the song catalog from CSV (fail-fast on malformed rows).
//   - Optionally connects to Postgres for the answer audit trail.
//   - Starts the chat bridge, the round watcher, and the token refresher.
//   - Exposes the HTTP API with game control, /healthz, and /metrics.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // G108: pprof endpoints enabled only when ENABLE_PPROF=1
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/oauth2"

	"github.com/onnwee/tunequiz/catalog"
	"github.com/onnwee/tunequiz/chat"
	"github.com/onnwee/tunequiz/config"
	"github.com/onnwee/tunequiz/db"
	"github.com/onnwee/tunequiz/game"
	"github.com/onnwee/tunequiz/server"
	"github.com/onnwee/tunequiz/telemetry"
	"github.com/onnwee/tunequiz/twitchapi"
	"github.com/onnwee/tunequiz/youtubeapi"
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load()

	// Configure logging (level + format). Defaults: level=info, format=text.
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		// unknown level -> keep info but note once using temporary logger
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	format := strings.ToLower(os.Getenv("LOG_FORMAT")) // text | json
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	default:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialized", slog.String("level", lvl.String()), slog.String("format", map[bool]string{true: "json", false: "text"}[format == "json"]))

	// Config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	// Metrics / telemetry init
	telemetry.Init()

	// Initialize OpenTelemetry tracing (optional; requires OTEL_EXPORTER_OTLP_ENDPOINT)
	shutdown, err := telemetry.InitTracing("tunequiz", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdown()

	// Song catalog: a malformed CSV aborts startup rather than surfacing as a
	// broken round mid-show.
	songs, err := catalog.Load(cfg.SongsCSV)
	if err != nil {
		slog.Error("catalog load failed", slog.String("path", cfg.SongsCSV), slog.Any("err", err))
		os.Exit(1)
	}
	slog.Info("catalog loaded", slog.String("path", cfg.SongsCSV), slog.Int("songs", songs.Len()))

	// Root context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Optional answer audit store
	var (
		database *sql.DB
		store    *db.Store
	)
	if cfg.DBDsn != "" {
		database, err = db.Connect(ctx, cfg.DBDsn)
		if err != nil {
			slog.Error("failed to open db", slog.Any("err", err))
			os.Exit(1)
		}
		defer func() {
			if err := database.Close(); err != nil {
				slog.Error("failed to close database", slog.Any("err", err))
			}
		}()
		slog.Info("running database migrations", slog.String("component", "db_migrate"))
		if err := db.RunMigrations(database); err != nil {
			slog.Error("failed to migrate db", slog.Any("err", err))
			os.Exit(1)
		}
		store = db.NewStore(database)
	} else {
		slog.Info("answer audit disabled (DB_DSN not set)")
	}

	// Game engine
	opts := game.Options{
		Quorum:     cfg.Quorum,
		CloseAfter: cfg.RoundCloseAfter,
		Points:     cfg.Points,
		Shuffle:    cfg.Shuffle,
	}
	if store != nil {
		opts.Recorder = store
	}
	engine := game.New(songs, opts)
	go game.StartRoundWatcher(ctx, engine)

	// Optional catalog verification against the YouTube Data API
	if cfg.YTAPIKey != "" {
		go func() {
			vctx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()
			youtubeapi.VerifyAndLog(vctx, cfg.YTAPIKey, songs)
		}()
	}

	// Token store, seeded from env and updated by the OAuth callback and the
	// background refresher.
	tokens := twitchapi.NewStore()
	tokens.Seed(cfg.TwitchOAuthToken, cfg.TwitchRefreshToken)

	var oauthCfg *oauth2.Config
	if cfg.TwitchClientID != "" && cfg.TwitchClientSecret != "" {
		oauthCfg = twitchapi.NewOAuthConfig(cfg.TwitchClientID, cfg.TwitchClientSecret, cfg.TwitchRedirectURI, cfg.TwitchScopes)
		twitchapi.StartRefresher(ctx, tokens, oauthCfg, 5*time.Minute, 15*time.Minute)
	}

	// Validate the seeded token once so a dead credential shows up in the logs
	// at startup instead of as a silent reconnect loop.
	if tok, ok := tokens.Token(); ok {
		vctx, cancel := context.WithTimeout(ctx, 8*time.Second)
		if res, err := twitchapi.Validate(vctx, tok, nil); err != nil {
			slog.Warn("twitch token validation failed", slog.Any("err", err))
		} else {
			slog.Info("twitch token valid", slog.String("login", res.Login), slog.Int("expires_in", res.ExpiresIn))
		}
		cancel()
	}

	// Chat bridge
	var bridge *chat.Bridge
	if err := cfg.ValidateChatReady(); err == nil {
		bridge = chat.New(engine, cfg.TwitchChannel, cfg.TwitchBotUsername, tokens)
		go bridge.Run(ctx)
	} else {
		slog.Info("chat bridge disabled", slog.Any("reason", err))
	}

	// Enable pprof profiling endpoints in debug mode (ENABLE_PPROF=1)
	if os.Getenv("ENABLE_PPROF") == "1" {
		pprofAddr := os.Getenv("PPROF_ADDR")
		if pprofAddr == "" {
			pprofAddr = "localhost:6060"
		}
		go func() {
			slog.Info("pprof profiling enabled", slog.String("addr", pprofAddr))
			// Use an http.Server with timeouts to satisfy G114 and avoid DoS risks
			srv := &http.Server{
				Addr:              pprofAddr,
				Handler:           nil, // default mux exposes /debug/pprof
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       10 * time.Second,
				WriteTimeout:      10 * time.Second,
				IdleTimeout:       60 * time.Second,
			}
			if err := srv.ListenAndServe(); err != nil {
				slog.Error("pprof server error", slog.Any("err", err))
			}
		}()
	}

	// HTTP server (game API, health, metrics)
	deps := server.Deps{
		Engine:   engine,
		Bridge:   bridge,
		Tokens:   tokens,
		OAuth:    oauthCfg,
		DB:       database,
		Store:    store,
		SongsCSV: cfg.SongsCSV,
	}
	go func() {
		if err := server.Start(ctx, deps, cfg.HTTPAddr); err != nil {
			slog.Error("http server exited with error", slog.Any("err", err))
		}
	}()

	// Block until shutdown signal
	<-ctx.Done()
	slog.Info("shutting down")
}
