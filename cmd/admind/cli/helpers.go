package cli

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/phdlabs/admind/internal/client"
	"github.com/phdlabs/admind/internal/config"
	"github.com/phdlabs/admind/internal/session"
)

// dataDir holds the --data-dir persistent flag value (set on root command).
var dataDir string

// defaultServerURL is where login points when neither --url nor a saved
// session names a server.
const defaultServerURL = "http://localhost:8080"

// resolveDataDir returns the data directory from --data-dir flag,
// ADMIND_DATA_DIR env var, or ~/.admind as fallback.
func resolveDataDir() string {
	if dataDir != "" {
		return dataDir
	}
	if envDir := os.Getenv("ADMIND_DATA_DIR"); envDir != "" {
		return envDir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".admind")
}

// loadSettings returns the effective configuration: defaults, overlaid by the
// config file viper found, overlaid by ADMIND_* environment variables.
func loadSettings() (*config.YAMLConfig, error) {
	cfg := config.DefaultYAMLConfig()
	if path := viper.ConfigFileUsed(); path != "" {
		loaded, err := config.LoadYAMLConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	applyEnv(cfg)
	return cfg, nil
}

// applyEnv overrides cfg with the environment. A separate viper instance is
// used so IsSet only reports variables, not keys from the config file.
func applyEnv(cfg *config.YAMLConfig) {
	env := viper.New()
	env.SetEnvPrefix("ADMIND")
	env.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	env.AutomaticEnv()

	strs := map[string]*string{
		"server.host":             &cfg.Server.Host,
		"server.max_body_size":    &cfg.Server.MaxBodySize,
		"server.shutdown_timeout": &cfg.Server.ShutdownTimeout,
		"server.upload_dir":       &cfg.Server.UploadDir,
		"auth.jwt_secret":         &cfg.Auth.JWTSecret,
		"auth.access_ttl":         &cfg.Auth.AccessTTL,
		"auth.refresh_ttl":        &cfg.Auth.RefreshTTL,
		"database.driver":         &cfg.Database.Driver,
		"database.dsn":            &cfg.Database.DSN,
		"cache.redis_addr":        &cfg.Cache.RedisAddr,
		"cache.ttl":               &cfg.Cache.TTL,
		"mcp.transport":           &cfg.MCP.Transport,
		"logging.level":           &cfg.Logging.Level,
		"logging.format":          &cfg.Logging.Format,
	}
	for key, dst := range strs {
		if env.IsSet(key) {
			*dst = env.GetString(key)
		}
	}

	ints := map[string]*int{
		"server.port":           &cfg.Server.Port,
		"auth.login_rate_limit": &cfg.Auth.LoginRateLimit,
	}
	for key, dst := range ints {
		if env.IsSet(key) {
			*dst = env.GetInt(key)
		}
	}

	bools := map[string]*bool{
		"server.secure_cookies": &cfg.Server.SecureCookies,
		"mcp.enabled":           &cfg.MCP.Enabled,
	}
	for key, dst := range bools {
		if env.IsSet(key) {
			*dst = env.GetBool(key)
		}
	}

	if env.IsSet("server.cors.origins") {
		var origins []string
		for _, o := range strings.Split(env.GetString("server.cors.origins"), ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.Server.CORS.Origins = origins
	}
}

// openStore opens the configured database, the SQLite file in the data
// directory unless a DSN is configured.
func openStore(cfg *config.YAMLConfig) (*config.Store, error) {
	store, err := config.Open(config.Options{
		Driver:  cfg.Database.Driver,
		DSN:     cfg.Database.DSN,
		DataDir: resolveDataDir(),
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return store, nil
}

// newLogger builds the slog logger described by the logging settings.
func newLogger(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// openClient opens the session in the data directory and returns a client for
// serverURL, or for the server the session last signed in to when empty.
func openClient(serverURL string) (*client.Client, error) {
	sess, err := session.Open(resolveDataDir())
	if err != nil {
		return nil, err
	}
	if serverURL == "" {
		serverURL = sess.Load().BaseURL
	}
	if serverURL == "" {
		serverURL = defaultServerURL
	}
	return client.New(serverURL, sess), nil
}

// readPassword prompts for a password without echo.
func readPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(pw), nil
}

// readLine prompts for a line of input.
func readLine(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// versionString returns the display version of the running binary.
func versionString() string {
	return displayVersion(appVersion)
}

func displayVersion(v string) string {
	if v == "" || v == "dev" {
		return "dev"
	}
	if strings.HasPrefix(v, "v") {
		return v
	}
	return "v" + v
}
