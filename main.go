package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"relaybridge/database"
	"relaybridge/relay"
	"relaybridge/state"
	"relaybridge/telegram"
	"relaybridge/utils"

	"go.uber.org/zap"
)

func main() {
	// Load configuration file
	cfg := &state.Config{}
	cfg.SetDefaults()

	if len(os.Args) > 1 {
		cfg.Path = os.Args[1]
	}

	err := cfg.LoadConfig()
	if err != nil {
		panic(fmt.Errorf("failed to load config file: %s", err))
	}
	if err = cfg.LoadEnv(); err != nil {
		panic(fmt.Errorf("failed to load environment: %s", err))
	}
	if err = cfg.Validate(); err != nil {
		panic(err)
	}

	st := state.New(cfg)

	if cfg.DebugMode {
		developmentConfig := zap.NewDevelopmentConfig()
		developmentConfig.OutputPaths = append(developmentConfig.OutputPaths, "debug.log")
		st.Logger, err = developmentConfig.Build()
		if err != nil {
			panic(fmt.Errorf("failed to initialize development logger: %s", err))
		}
		st.Logger = st.Logger.Named("RelayBridge_Dev")
	} else {
		productionConfig := zap.NewProductionConfig()
		st.Logger, err = productionConfig.Build()
		if err != nil {
			panic(fmt.Errorf("failed to initialize production logger: %s", err))
		}
		st.Logger = st.Logger.Named("RelayBridge")
	}
	logger := st.Logger
	defer logger.Sync()

	logger.Debug("loaded config file and started logger",
		zap.String("config_path", cfg.Path),
		zap.Bool("development_mode", cfg.DebugMode),
		zap.Int("seed_admins", len(cfg.Telegram.AdminIDs)),
	)

	// Create local location for time
	locLoc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		logger.Fatal("failed to set time zone",
			zap.String("time_zone", cfg.TimeZone),
			zap.Error(err),
		)
	}
	st.LocalLocation = locLoc

	// Setup database
	db, err := database.Connect(cfg, logger)
	if err != nil {
		logger.Fatal("could not connect to database",
			zap.Error(err),
		)
	}
	st.Database = db

	store := database.NewStore(db)
	if err = store.AutoMigrate(); err != nil {
		logger.Fatal("could not migrate database tables",
			zap.Error(err),
		)
	}

	if err = telegram.NewTelegramClient(st); err != nil {
		logger.Fatal("failed to initialize telegram client",
			zap.Error(err),
		)
	}

	sender := telegram.NewBotSender(st.TelegramBot)
	router := relay.NewRouter(relay.RouterOpts{
		Registry:             relay.NewRegistry(cfg.Telegram.AdminIDs...),
		Pending:              relay.NewPendingTable(),
		Sender:               sender,
		Envelopes:            store,
		Logger:               logger.Named("relay"),
		BroadcastConcurrency: cfg.Telegram.BroadcastConcurrency,
		Status:               st.Uptime,
	})
	if len(router.Admins()) == 0 {
		logger.Warn("no administrators configured, complaints will only be acknowledged")
	}

	bridge := telegram.NewBridge(st, router, store)
	bridge.AddTelegramHandlers(st.TelegramDispatcher)

	if cfg.Telegram.RemoveBotCommands {
		err = utils.TgRegisterBotCommands(st.TelegramBot)
		if err != nil {
			logger.Error("failed to set my commands to empty",
				zap.Error(err),
			)
		}
	} else {
		err = utils.TgRegisterBotCommands(st.TelegramBot, st.TelegramCommands...)
		if err != nil {
			logger.Error("failed to set my commands",
				zap.Error(err),
			)
		}
	}

	st.StartTime = time.Now().UTC()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !cfg.Telegram.SkipStartupMessage {
		bridge.SendStartupMessage(ctx, sender)
	}

	if err = telegram.StartPolling(st); err != nil {
		logger.Fatal("failed to start polling",
			zap.Error(err),
		)
	}
	logger.Info("relay bridge started",
		zap.String("version", state.RELAYBRIDGE_VERSION),
	)

	<-ctx.Done()
	logger.Info("shutting down")
	if err = st.TelegramUpdater.Stop(); err != nil {
		logger.Error("failed to stop updater",
			zap.Error(err),
		)
	}
	if sqlDB, err := st.Database.DB(); err == nil {
		if err = sqlDB.Close(); err != nil {
			logger.Error("failed to close database",
				zap.Error(err),
			)
		}
	}
}
