package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/NeuroPulse-App/neuropulse/internal/api"
	"github.com/NeuroPulse-App/neuropulse/internal/chat"
	"github.com/NeuroPulse-App/neuropulse/internal/genai"
	"github.com/NeuroPulse-App/neuropulse/internal/hub"
	"github.com/NeuroPulse-App/neuropulse/internal/messaging"
	"github.com/NeuroPulse-App/neuropulse/internal/notify"
	"github.com/NeuroPulse-App/neuropulse/internal/pipeline"
	"github.com/NeuroPulse-App/neuropulse/internal/scheduler"
	signalsrc "github.com/NeuroPulse-App/neuropulse/internal/signal"
	"github.com/NeuroPulse-App/neuropulse/internal/state"
	"github.com/NeuroPulse-App/neuropulse/internal/store"
	"github.com/NeuroPulse-App/neuropulse/internal/util"
	"github.com/joho/godotenv"
)

// Default configuration constants
const (
	// DefaultAPIAddr is the default HTTP listen address.
	DefaultAPIAddr = ":8080"
	// DefaultDBFileName is the default SQLite database path.
	DefaultDBFileName = "neuropulse.db"
)

// Config holds environment configuration.
type Config struct {
	APIAddr          string
	DBDriver         string
	DatabaseDSN      string
	RedisAddr        string
	CheckinSchedule  string
	NeuroBraveURL    string
	NeuroBraveAPIKey string
	NeurospeedURL    string
	NeurospeedAPIKey string
	TwilioSID        string
	TwilioToken      string
	TwilioFrom       string
	AlertRecipient   string
}

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	slog.Info("Bootstrapping NeuroPulse with configured modules")
	if err := run(config, flags); err != nil {
		slog.Error("NeuroPulse failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("NeuroPulse exited successfully")
}

// initializeLogger sets up structured logging.
func initializeLogger() {
	level := slog.LevelInfo
	if util.ParseBoolEnv("NEUROPULSE_DEBUG", false) {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file.
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		APIAddr:          os.Getenv("API_ADDR"),
		DBDriver:         os.Getenv("DB_DRIVER"),
		DatabaseDSN:      os.Getenv("DATABASE_URL"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		CheckinSchedule:  os.Getenv("CHECKIN_SCHEDULE"),
		NeuroBraveURL:    os.Getenv("NEUROBRAVE_WS_URL"),
		NeuroBraveAPIKey: os.Getenv("NEUROBRAVE_API_KEY"),
		NeurospeedURL:    os.Getenv("NEUROSPEED_WS_URL"),
		NeurospeedAPIKey: os.Getenv("NEUROSPEED_API_KEY"),
		TwilioSID:        os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioToken:      os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFrom:       os.Getenv("TWILIO_FROM_NUMBER"),
		AlertRecipient:   os.Getenv("ALERT_RECIPIENT"),
	}

	if config.APIAddr == "" {
		config.APIAddr = DefaultAPIAddr
	}
	return config
}

// Flags holds command line flag values.
type Flags struct {
	apiAddr *string
	dbDSN   *string
}

// parseCommandLineFlags parses flags, using environment values as defaults.
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		apiAddr: flag.String("addr", config.APIAddr, "HTTP listen address"),
		dbDSN:   flag.String("db-dsn", config.DatabaseDSN, "database connection string"),
	}
	flag.Parse()
	return flags
}

func run(config Config, flags Flags) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Shared state store: the single slot every component reads.
	states := state.NewStore()

	// Conversation persistence: postgres > sqlite > in-memory.
	conv, closeConv := buildConversationStore(config.DBDriver, *flags.dbDSN)
	defer closeConv()

	// Memory keyed store: redis when configured, else in-memory.
	mem, closeMem := buildMemoryStore(config.RedisAddr)
	defer closeMem()

	// Notification engine, with SMS escalation when Twilio is configured.
	engineCfg := notify.Config{}
	if config.TwilioSID != "" && config.TwilioToken != "" && config.AlertRecipient != "" {
		sender, err := messaging.NewTwilioSender(config.TwilioSID, config.TwilioToken, config.TwilioFrom)
		if err != nil {
			slog.Warn("Twilio escalation disabled", "error", err)
		} else {
			engineCfg.AlertSender = sender
			engineCfg.AlertRecipient = config.AlertRecipient
			slog.Info("Twilio escalation enabled", "recipient", config.AlertRecipient)
		}
	}
	engine := notify.NewEngine(engineCfg)

	// Chat collaborator is optional; without an API key the websocket simply
	// ignores chat traffic.
	var chatSvc *chat.Service
	if gaClient, err := genai.NewClient(); err != nil {
		slog.Warn("GenAI chat disabled", "error", err)
	} else {
		chatSvc = chat.NewService(gaClient, states, conv)
	}

	var chatResponder hub.ChatResponder
	if chatSvc != nil {
		chatResponder = chatSvc
	}
	h := hub.New(states, engine, chatResponder)
	go h.Run(ctx)

	// Signal source: bridge if credentialed, else simulator. Decided once.
	source := signalsrc.Select(signalsrc.Config{
		NeuroBraveURL:    config.NeuroBraveURL,
		NeuroBraveAPIKey: config.NeuroBraveAPIKey,
		NeurospeedURL:    config.NeurospeedURL,
		NeurospeedAPIKey: config.NeurospeedAPIKey,
		SampleInterval:   util.ParseDurationEnv("SAMPLE_INTERVAL", signalsrc.DefaultSampleInterval),
	})
	runner := pipeline.NewRunner(source, states, engine, h)
	go func() {
		if err := runner.Run(ctx); err != nil && ctx.Err() == nil {
			slog.Error("pipeline stopped", "error", err)
		}
	}()

	// Optional cron wellness check-ins.
	if config.CheckinSchedule != "" {
		sched := scheduler.NewScheduler()
		defer sched.Stop()
		err := sched.AddJob(config.CheckinSchedule, func() {
			if h.ConnectionCount() == 0 {
				return
			}
			h.BroadcastNotification(engine.CheckIn())
		})
		if err != nil {
			slog.Error("invalid CHECKIN_SCHEDULE, check-ins disabled", "error", err, "schedule", config.CheckinSchedule)
		} else {
			slog.Info("scheduled wellness check-ins enabled", "schedule", config.CheckinSchedule)
		}
	}

	server := api.NewServer(*flags.apiAddr, h, states, engine, conv, mem, chatSvc)
	return server.Run(ctx)
}

// buildMemoryStore selects the keyed memory backend from configuration.
func buildMemoryStore(redisAddr string) (*store.MemoryReconciler, func()) {
	if redisAddr != "" {
		st, err := store.NewRedisMemoryStore(store.RedisConfig{Addr: redisAddr})
		if err != nil {
			slog.Error("failed to connect to Redis, falling back to in-memory memory store", "error", err)
			return store.NewMemoryReconciler(store.NewInMemoryStore()), func() {}
		}
		slog.Info("using Redis memory store", "addr", redisAddr)
		return store.NewMemoryReconciler(st), func() { st.Close() }
	}
	return store.NewMemoryReconciler(store.NewInMemoryStore()), func() {}
}

// buildConversationStore selects the persistence backend from configuration.
func buildConversationStore(driver, dsn string) (store.ConversationStore, func()) {
	switch {
	case driver == "postgres" && dsn != "":
		st, err := store.NewPostgresStore(store.WithDSN(dsn))
		if err != nil {
			slog.Error("failed to open Postgres store, falling back to in-memory", "error", err)
			return store.NewInMemoryStore(), func() {}
		}
		slog.Info("using Postgres conversation store")
		return st, func() { st.Close() }
	case dsn != "":
		st, err := store.NewSQLiteStore(store.WithDSN(dsn))
		if err != nil {
			slog.Error("failed to open SQLite store, falling back to in-memory", "error", err)
			return store.NewInMemoryStore(), func() {}
		}
		slog.Info("using SQLite conversation store", "path", dsn)
		return st, func() { st.Close() }
	default:
		slog.Info("no DATABASE_URL configured, using in-memory conversation store")
		return store.NewInMemoryStore(), func() {}
	}
}
