package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/protomem/credit-bank/internal/auth"
	"github.com/protomem/credit-bank/internal/database"
	"github.com/protomem/credit-bank/internal/env"
	"github.com/protomem/credit-bank/internal/version"
	"github.com/protomem/credit-bank/internal/workflow"
)

var (
	_cfgFile     = flag.String("cfg", "", "path to config file")
	_showVersion = flag.Bool("version", false, "display version and exit")
	_grantSpec   = flag.Uint("grant-spec", 0, "grant specialist privileges to the user with this id and exit")
	_revokeSpec  = flag.Uint("revoke-spec", 0, "revoke specialist privileges from the user with this id and exit")
)

func main() {
	flag.Parse()

	level := new(slog.LevelVar)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	err := run(logger, level)
	if err != nil {
		trace := string(debug.Stack())
		logger.Error(err.Error(), "trace", trace)
		os.Exit(1)
	}
}

type config struct {
	httpHost string
	httpPort int
	logLevel string

	// trustedProxies may set X-Forwarded-For and X-Real-Ip for their clients.
	trustedProxies []string

	db struct {
		dsn         string
		automigrate bool
	}
	jwt struct {
		secret string
		ttl    time.Duration
	}
	authRate struct {
		perSecond float64
		burst     int
	}
}

type application struct {
	config  config
	db      *database.DB
	logger  *slog.Logger
	service *workflow.Service
	issuer  *auth.Issuer
	limiter *ipRateLimiter
	wg      sync.WaitGroup
}

func run(logger *slog.Logger, level *slog.LevelVar) error {
	var cfg config

	if *_showVersion {
		fmt.Printf("version: %s\n", version.Get())
		return nil
	}

	if *_cfgFile != "" {
		err := env.Load(*_cfgFile)
		if err != nil {
			return err
		}
	}

	cfg.httpHost = env.GetString("HTTP_HOST", "localhost")
	cfg.httpPort = env.GetInt("HTTP_PORT", 8080)
	cfg.logLevel = env.GetString("LOG_LEVEL", "debug")
	cfg.trustedProxies = splitList(env.GetString("TRUSTED_PROXIES", ""))
	cfg.db.dsn = env.GetString("DB_DSN", "postgres:postgres@localhost:5432/postgres")
	cfg.db.automigrate = env.GetBool("DB_AUTOMIGRATE", true)
	cfg.jwt.secret = env.GetString("JWT_SECRET", "")
	cfg.jwt.ttl = env.GetDuration("JWT_TTL", time.Hour)
	cfg.authRate.perSecond = float64(env.GetInt("AUTH_RATE_LIMIT", 5))
	cfg.authRate.burst = env.GetInt("AUTH_RATE_BURST", 10)

	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.logLevel))); err != nil {
		return fmt.Errorf("log level: %w", err)
	}

	if cfg.jwt.secret == "" {
		return errors.New("JWT_SECRET must be set")
	}

	db, err := database.New(logger, cfg.db.dsn, cfg.db.automigrate)
	if err != nil {
		return err
	}
	defer db.Close()

	app := &application{
		config:  cfg,
		db:      db,
		logger:  logger,
		service: workflow.New(logger.With("module", "workflow"), db),
		issuer:  auth.NewIssuer(cfg.jwt.secret, cfg.jwt.ttl),
		limiter: newIPRateLimiter(cfg.authRate.perSecond, cfg.authRate.burst),
	}

	switch {
	case *_grantSpec != 0:
		return app.setPrivileged(*_grantSpec, true)
	case *_revokeSpec != 0:
		return app.setPrivileged(*_revokeSpec, false)
	}

	return app.serveHTTP()
}

func (app *application) setPrivileged(userID uint, privileged bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.service.SetPrivileged(ctx, userID, privileged); err != nil {
		return err
	}

	app.logger.Info("user privileges changed", "userId", userID, "isSpec", privileged)

	return nil
}

// serviceFor returns the workflow service logging with the request's trace id.
func (app *application) serviceFor(r *http.Request) *workflow.Service {
	return app.service.WithLogger(app.requestLogger(r))
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
