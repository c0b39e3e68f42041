package cli

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/phdlabs/admind/internal/cache"
	"github.com/phdlabs/admind/internal/config"
	"github.com/phdlabs/admind/internal/server"
	"github.com/phdlabs/admind/internal/service"
)

const banner = `
             _           _           _
  __ _  __| |_ __ ___ (_)_ __   __| |
 / _' |/ _' | '_ ' _ \| | '_ \ / _' |
| (_| | (_| | | | | | | | | | | (_| |
 \__,_|\__,_|_| |_| |_|_|_| |_|\__,_|
`

func newServeCmd() *cobra.Command {
	var (
		port       int
		host       string
		noUI       bool
		dev        bool
		production bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the admind API server",
		Long:  "Start the HTTP server that exposes the REST API, the console and the OpenAPI document.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if dev {
				cfg.Logging.Level = "debug"
			}
			return runServe(cmd.Context(), cfg, !noUI, production)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "HTTP listen port")
	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "HTTP listen host")
	cmd.Flags().BoolVar(&noUI, "no-ui", false, "Disable the console")
	cmd.Flags().BoolVar(&dev, "dev", false, "Enable development mode (verbose logging)")
	cmd.Flags().BoolVar(&production, "production", false, "Redirect to HTTPS and send HSTS headers")

	return cmd
}

func runServe(ctx context.Context, cfg *config.YAMLConfig, enableUI, production bool) error {
	fmt.Print(banner)
	fmt.Println()

	logger := newLogger(cfg.Logging, os.Stderr)
	slog.SetDefault(logger)

	// 1. Open the store and apply migrations
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	logger.Info("store initialized", "driver", cfg.Database.Driver, "data_dir", resolveDataDir())

	// 2. Privilege cache, shared through Redis when configured
	privileges, rdb := newPrivilegeCache(ctx, cfg, store, logger)
	if rdb != nil {
		defer rdb.Close()
	}

	// 3. Auth service
	secret := cfg.Auth.JWTSecret
	if secret == "" {
		secret = randomSecret()
		logger.Warn("auth.jwt_secret is not set; using a random secret, sessions end on restart")
	}
	authSvc := service.NewAuthService(store, secret)
	authSvc.SetTokenTTL(
		config.Duration(cfg.Auth.AccessTTL, service.DefaultAccessTTL),
		config.Duration(cfg.Auth.RefreshTTL, service.DefaultRefreshTTL),
	)
	authSvc.SetPrivilegeCache(privileges)

	// 4. First run check
	hasAdmin, err := store.HasAnyAdmin(ctx)
	if err != nil {
		logger.Warn("failed to check for admin", "error", err)
	}
	if !hasAdmin {
		logger.Warn("no admin account found - run: admind admin create")
	}

	// 5. Build and start HTTP server
	srvCfg := server.DefaultConfig()
	srvCfg.Host = cfg.Server.Host
	srvCfg.Port = cfg.Server.Port
	srvCfg.ShutdownTimeout = config.Duration(cfg.Server.ShutdownTimeout, srvCfg.ShutdownTimeout)
	srvCfg.MaxBodySize = config.ByteSize(cfg.Server.MaxBodySize, srvCfg.MaxBodySize)
	srvCfg.EnableUI = enableUI
	srvCfg.SecureCookies = cfg.Server.SecureCookies || production
	srvCfg.Production = production
	if len(cfg.Server.CORS.Origins) > 0 {
		srvCfg.CORSOrigins = cfg.Server.CORS.Origins
	}
	if cfg.Auth.LoginRateLimit > 0 {
		srvCfg.LoginRateLimit = cfg.Auth.LoginRateLimit
	}
	srvCfg.UploadDir = cfg.Server.UploadDir
	if srvCfg.UploadDir == "" {
		srvCfg.UploadDir = filepath.Join(resolveDataDir(), "uploads")
	}

	srv, err := server.New(srvCfg, store, authSvc, rdb, logger)
	if err != nil {
		return fmt.Errorf("init server: %w", err)
	}

	base := fmt.Sprintf("http://%s:%d", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("→ admind %s\n", versionString())
	fmt.Printf("→ Listening on %s\n", base)
	if enableUI {
		fmt.Printf("→ Console:    %s/login\n", base)
	}
	fmt.Printf("→ API:        %s/api/v1\n", base)
	fmt.Printf("→ OpenAPI:    %s/openapi.json\n", base)
	fmt.Printf("→ Health:     %s/healthz\n", base)
	fmt.Println()

	return srv.ListenAndServe()
}

// newPrivilegeCache connects to Redis when cache.redis_addr is set. An
// unreachable Redis degrades to the in-process cache.
func newPrivilegeCache(ctx context.Context, cfg *config.YAMLConfig, store *config.Store, logger *slog.Logger) (*service.PrivilegeCache, *redis.Client) {
	ttl := config.Duration(cfg.Cache.TTL, 0)
	if cfg.Cache.RedisAddr == "" {
		return service.NewPrivilegeCache(store, nil, ttl), nil
	}
	rdb, err := cache.New(ctx, cfg.Cache.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, caching privileges in process", "error", err)
		return service.NewPrivilegeCache(store, nil, ttl), nil
	}
	logger.Info("privilege cache backed by redis", "addr", cfg.Cache.RedisAddr)
	return service.NewPrivilegeCache(store, rdb, ttl), rdb
}

func randomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}
