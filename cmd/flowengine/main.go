package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/atendify/flowengine/internal/api"
	"github.com/atendify/flowengine/internal/flow"
	"github.com/atendify/flowengine/internal/lockfile"
	"github.com/atendify/flowengine/internal/metric"
	"github.com/atendify/flowengine/internal/store"
	"github.com/atendify/flowengine/internal/util"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for flowengine state data
	DefaultStateDir = "/var/lib/flowengine"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "flowengine.db"
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()

	flags := parseCommandLineFlags(config)

	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	// For file-based storage a second instance writing the same database
	// would break the one-writer-per-conversation guarantee, so guard the
	// state directory with a lock file.
	if store.DetectDSNType(*flags.dbDSN) == "sqlite" {
		lock, err := lockfile.Acquire(filepath.Dir(*flags.dbDSN))
		if err != nil {
			slog.Error("Failed to acquire instance lock", "error", err)
			os.Exit(1)
		}
		defer lock.Release()
	}

	st, err := openStore(flags)
	if err != nil {
		slog.Error("Failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	metrics := metric.New()
	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		slog.Error("Failed to register metrics", "error", err)
		os.Exit(1)
	}

	runner := flow.NewRunner(st, st,
		flow.WithMetrics(metrics),
		flow.WithMaxHops(*flags.maxHops),
	)

	server := api.NewServer(runner, st, buildAPIOptions(flags)...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Bootstrapping flowengine", "state_dir", *flags.stateDir, "dsn_type", store.DetectDSNType(*flags.dbDSN), "api_addr", *flags.apiAddr, "max_hops", *flags.maxHops)
	if err := server.Run(ctx); err != nil {
		slog.Error("flowengine failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("flowengine exited successfully")
}

// Config holds environment configuration
type Config struct {
	DatabaseURL string
	StateDir    string
	APIAddr     string
	MaxHops     int
}

// Flags holds command line flag values
type Flags struct {
	stateDir *string
	dbDSN    *string
	apiAddr  *string
	maxHops  *int
}

// initializeLogger sets up structured logging; $FLOWENGINE_DEBUG=false drops
// the level to info
func initializeLogger() {
	level := slog.LevelInfo
	if util.ParseBoolEnv("FLOWENGINE_DEBUG", true) {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		StateDir:    os.Getenv("FLOWENGINE_STATE_DIR"),
		APIAddr:     os.Getenv("API_ADDR"),
		MaxHops:     util.ParseIntEnv("FLOWENGINE_MAX_HOPS", flow.DefaultMaxHops),
	}

	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No FLOWENGINE_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	} else {
		slog.Debug("FLOWENGINE_STATE_DIR found in environment", "state_dir", config.StateDir)
	}

	// If no database URL is provided, default to SQLite in the state directory
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	slog.Debug("environment variables loaded",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"FLOWENGINE_STATE_DIR", config.StateDir,
		"API_ADDR", config.APIAddr,
		"FLOWENGINE_MAX_HOPS", config.MaxHops)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir: flag.String("state-dir", config.StateDir, "state directory for flowengine data (overrides $FLOWENGINE_STATE_DIR)"),
		dbDSN:    flag.String("db-dsn", config.DatabaseURL, "database DSN: SQLite file path, postgres:// URL or redis:// URL (overrides $DATABASE_URL)"),
		apiAddr:  flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		maxHops:  flag.Int("max-hops", config.MaxHops, "auto-advance bound per conversation turn (overrides $FLOWENGINE_MAX_HOPS)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"apiAddr", *flags.apiAddr,
		"maxHops", *flags.maxHops)

	// Update database DSN if not explicitly set but state directory is provided
	if *flags.dbDSN == config.DatabaseURL && config.DatabaseURL == filepath.Join(config.StateDir, DefaultDBFileName) && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "dsn_updated", true, "old_state_dir", config.StateDir, "new_state_dir", *flags.stateDir)
	}

	return flags
}

// ensureDirectoriesExist creates necessary directories for file-based storage
func ensureDirectoriesExist(flags Flags) error {
	if store.DetectDSNType(*flags.dbDSN) != "sqlite" {
		return nil
	}
	stateDir := filepath.Dir(*flags.dbDSN)
	slog.Debug("Creating state directory for file-based database", "state_dir", stateDir)
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		slog.Error("Failed to create state directory", "error", err, "state_dir", stateDir)
		return err
	}
	return nil
}

// openStore selects and opens the storage backend from the configured DSN.
func openStore(flags Flags) (store.Store, error) {
	switch store.DetectDSNType(*flags.dbDSN) {
	case "postgres":
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store", "dsn_type", "postgres")
		return store.NewPostgresStore(store.WithPostgresDSN(*flags.dbDSN))
	case "redis":
		slog.Debug("Detected Redis DSN, configuring Redis store", "dsn_type", "redis")
		return store.NewRedisStore(store.WithRedisDSN(*flags.dbDSN))
	default:
		slog.Debug("Detected SQLite DSN, configuring SQLite store", "dsn_type", "sqlite", "db_path", *flags.dbDSN)
		return store.NewSQLiteStore(store.WithSQLiteDSN(*flags.dbDSN))
	}
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags) []api.Option {
	var apiOpts []api.Option
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	return apiOpts
}
