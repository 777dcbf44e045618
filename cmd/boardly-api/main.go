package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/boardlyhq/boardly/backend/internal/board"
	"github.com/boardlyhq/boardly/backend/internal/config"
	"github.com/boardlyhq/boardly/backend/internal/database"
	"github.com/boardlyhq/boardly/backend/internal/logging"
	"github.com/boardlyhq/boardly/backend/internal/server"
)

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "boardly-api",
		Short: "Boardly collaborative whiteboard backend service",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().Int("history-depth", defaults.GetInt("history.depth"), "Undo/redo stack depth per room")
	cmd.PersistentFlags().Int("chat-log-limit", defaults.GetInt("chat.log_limit"), "Retained chat messages per room")
	cmd.PersistentFlags().Duration("room-grace-period", defaults.GetDuration("room.grace_period"), "How long an empty room survives before teardown")
	cmd.PersistentFlags().Duration("typing-idle-timeout", defaults.GetDuration("typing.idle_timeout"), "Idle time before a typing indicator expires")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "history.depth", "history-depth")
	bindFlag(cmd, "chat.log_limit", "chat-log-limit")
	bindFlag(cmd, "room.grace_period", "room-grace-period")
	bindFlag(cmd, "typing.idle_timeout", "typing-idle-timeout")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	store, err := board.NewStore(board.StoreConfig{
		Database: db,
		Clock:    time.Now,
	})
	if err != nil {
		return err
	}

	registry := board.NewRegistry(board.RegistryConfig{
		HistoryDepth:      appConfig.HistoryDepth,
		ChatLogLimit:      appConfig.ChatLogLimit,
		GracePeriod:       appConfig.RoomGracePeriod,
		TypingIdleTimeout: appConfig.TypingIdleTimeout,
		Clock:             time.Now,
		Logger:            logger,
	})

	handler, err := server.NewHTTPHandler(server.Dependencies{
		Registry: registry,
		Store:    store,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    appConfig.HTTPAddress,
		Handler: handler,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", appConfig.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
