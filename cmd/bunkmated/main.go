package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bunkmate-app/bunkmate/backend/internal/config"
	"github.com/bunkmate-app/bunkmate/backend/internal/database"
	"github.com/bunkmate-app/bunkmate/backend/internal/logging"
	"github.com/bunkmate-app/bunkmate/backend/internal/room"
	"github.com/bunkmate-app/bunkmate/backend/internal/server"
	"github.com/bunkmate-app/bunkmate/backend/internal/store"
	"github.com/bunkmate-app/bunkmate/backend/internal/transport"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "bunkmated",
		Short: "Bunkmate room sync daemon",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd.Context())
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
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "Local API listen address")
	cmd.PersistentFlags().String("broker-url", defaults.GetString("broker.url"), "MQTT broker URL")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("user-name", "", "Display name of this device's identity")
	cmd.PersistentFlags().String("room-code", "", "Class code of the room to join")
	cmd.PersistentFlags().Int("target-days", defaults.GetInt("user.target_days"), "Weekly attendance goal (1-7)")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "broker.url", "broker-url")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "user.name", "user-name")
	bindFlag(cmd, "room.code", "room-code")
	bindFlag(cmd, "user.target_days", "target-days")
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

func runDaemon(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.New(appConfig.LogLevel)
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

	repo, err := store.New(store.Config{Database: db, Logger: logger})
	if err != nil {
		return err
	}
	// Malformed persisted data should stop the daemon here, not mid-session.
	if err := repo.Warm(); err != nil {
		return err
	}

	registry, err := room.NewRegistry(repo, room.NewUUIDProvider(), time.Now)
	if err != nil {
		return err
	}
	identity, err := registry.EnsureIdentity(appConfig.UserName, appConfig.ClassCode, appConfig.TargetDaysPerWeek)
	if err != nil {
		return err
	}

	broker, err := transport.New(transport.Config{
		BrokerURL: appConfig.BrokerURL,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	hub := server.NewUpdateHub()
	session, err := room.NewSession(room.Config{
		Store:     repo,
		Transport: broker,
		User:      identity,
		Logger:    logger,
		Clock:     time.Now,
		IDs:       room.NewUUIDProvider(),
		OnUpdate:  hub.Publish,
	})
	if err != nil {
		return err
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := session.Start(signalCtx); err != nil {
		return err
	}
	defer session.Close()

	handler, err := server.NewHTTPHandler(server.Dependencies{
		Session: session,
		Hub:     hub,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    appConfig.HTTPAddress,
		Handler: handler,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("local api starting",
			zap.String("address", appConfig.HTTPAddress),
			zap.String("class_code", identity.ClassCode))
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
