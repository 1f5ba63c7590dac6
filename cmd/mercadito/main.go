package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	rdb "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/mercadito/internal/app"
	"github.com/dropDatabas3/mercadito/internal/authz"
	"github.com/dropDatabas3/mercadito/internal/cache"
	"github.com/dropDatabas3/mercadito/internal/config"
	"github.com/dropDatabas3/mercadito/internal/email"
	httpx "github.com/dropDatabas3/mercadito/internal/http"
	"github.com/dropDatabas3/mercadito/internal/http/handlers"
	"github.com/dropDatabas3/mercadito/internal/jwt"
	"github.com/dropDatabas3/mercadito/internal/oauth"
	"github.com/dropDatabas3/mercadito/internal/oauth/apple"
	"github.com/dropDatabas3/mercadito/internal/oauth/facebook"
	"github.com/dropDatabas3/mercadito/internal/oauth/google"
	"github.com/dropDatabas3/mercadito/internal/observability/logger"
	"github.com/dropDatabas3/mercadito/internal/otp"
	"github.com/dropDatabas3/mercadito/internal/rate"
	"github.com/dropDatabas3/mercadito/internal/routes"
	"github.com/dropDatabas3/mercadito/internal/session"
	"github.com/dropDatabas3/mercadito/internal/sms"
	"github.com/dropDatabas3/mercadito/internal/store/pg"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("sin .env (%v), sigo con variables del sistema", err)
	}

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Fatalf("config: %v", err)
		}
		if cfg, err = config.Default(); err != nil {
			log.Fatalf("config: %v", err)
		}
	}

	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level})
	defer func() { _ = logger.Sync() }()
	lg := logger.Named("main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ───── storage ─────
	store, err := pg.New(ctx, cfg.Storage.DSN, pg.Config{
		MaxOpenConns:    cfg.Storage.Postgres.MaxOpenConns,
		MinConns:        cfg.Storage.Postgres.MinConns,
		ConnMaxLifetime: cfg.Storage.Postgres.ConnMaxLifetime,
	})
	if err != nil {
		lg.Fatal("postgres init", logger.Err(err))
	}
	defer store.Close()

	// ───── cache ─────
	cacheClient, err := cache.New(cache.Config{
		Kind:       cfg.Cache.Kind,
		Addr:       cfg.Cache.Redis.Addr,
		Password:   cfg.Cache.Redis.Password,
		DB:         cfg.Cache.Redis.DB,
		Prefix:     cfg.Cache.Redis.Prefix,
		DefaultTTL: config.Dur(cfg.Cache.Memory.DefaultTTL),
	})
	if err != nil {
		lg.Fatal("cache init", logger.Err(err))
	}
	defer func() { _ = cacheClient.Close() }()

	// ───── rate limiters ─────
	var global, login, otpLim rate.Limiter
	if cfg.Rate.Enabled {
		newLimiter := func(prefix string, max int, window string) rate.Limiter {
			if rc, ok := cacheClient.(interface{ Raw() *rdb.Client }); ok {
				return rate.NewRedisLimiter(rc.Raw(), prefix, max, config.Dur(window))
			}
			return rate.NewMemoryLimiter(max, config.Dur(window))
		}
		global = newLimiter("rl:", cfg.Rate.MaxRequests, cfg.Rate.Window)
		login = newLimiter("rl:login:", cfg.Rate.Login.Limit, cfg.Rate.Login.Window)
		otpLim = newLimiter("rl:otp:", cfg.Rate.Otp.Limit, cfg.Rate.Otp.Window)
	}

	// ───── core ─────
	issuer := jwt.NewIssuer(cfg.JWT.Issuer, []byte(cfg.JWT.Secret),
		config.Dur(cfg.JWT.AccessTTL), config.Dur(cfg.JWT.RefreshTTL))
	sessions := session.NewStore(store, config.Dur(cfg.Session.TTL))
	perms := authz.NewPermissionResolver(store, cacheClient, 0)
	authorizer := &authz.Authorizer{Issuer: issuer, Sessions: sessions, Perms: perms, Repo: store}

	// ───── otp + salidas ─────
	var mailer email.Sender = email.LogSender{}
	if cfg.SMTP.Host != "" {
		s := email.NewSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.From, cfg.SMTP.Username, cfg.SMTP.Password)
		s.TLSMode = cfg.SMTP.TLS
		s.InsecureSkipVerify = cfg.SMTP.InsecureSkipVerify
		mailer = s
	}
	engine := otp.NewEngine(store, mailer, sms.LogSender{},
		cfg.Otp.CodeLength, config.Dur(cfg.Otp.TTL), cfg.Otp.MaxAttempts)

	// ───── social providers ─────
	var providers []oauth.Provider
	if p := cfg.Providers.Google; p.Enabled {
		providers = append(providers, google.New(p.ClientID, p.ClientSecret, p.RedirectURL))
	}
	if p := cfg.Providers.Facebook; p.Enabled {
		providers = append(providers, facebook.New(p.ClientID, p.ClientSecret, p.RedirectURL))
	}
	if p := cfg.Providers.Apple; p.Enabled {
		ap, err := apple.New(p.ClientID, p.TeamID, p.KeyID, p.RedirectURL, p.PrivateKey)
		if err != nil {
			lg.Fatal("apple provider", logger.Err(err))
		}
		providers = append(providers, ap)
	}
	registry := oauth.NewRegistry(providers...)
	lg.Info("social providers", logger.Any("enabled", registry.Names()))

	c := &app.Container{
		Cfg:          cfg,
		Store:        store,
		Cache:        cacheClient,
		Issuer:       issuer,
		Sessions:     sessions,
		Authz:        authorizer,
		Otp:          engine,
		Providers:    registry,
		Linker:       oauth.NewLinker(store),
		States:       oauth.NewStateSigner([]byte(cfg.JWT.Secret)),
		Routes:       routes.NewRegistry(routes.Table),
		Limiter:      global,
		LoginLimiter: login,
		OtpLimiter:   otpLim,
	}

	metricsHandler, err := httpx.RegisterMetrics(httpx.MetricsConfig{Pool: store.Pool})
	if err != nil {
		lg.Fatal("metrics init", logger.Err(err))
	}

	handler := handlers.NewRouter(c, metricsHandler)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpx.Serve(gctx, cfg.Server.Addr, handler)
	})
	if err := g.Wait(); err != nil {
		lg.Fatal("server exited", logger.Err(err))
	}
	lg.Info("bye")
}
