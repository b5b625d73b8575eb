package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"waweb/pkg/bootstrap"
	"waweb/pkg/logging"
)

const serviceName = "chat-service"

func main() {
	var configFile string

	rootCmd := &cobra.Command{
		Use:   serviceName,
		Short: "WhatsApp webhook ingestion and chat message service",
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file (required)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		Run: func(cmd *cobra.Command, args []string) {
			runServe(configFile)
		},
	}

	var ingestDir string
	ingestCmd := &cobra.Command{
		Use:   "ingest",
		Short: "Reprocess saved webhook payload files",
		Run: func(cmd *cobra.Command, args []string) {
			runIngest(configFile, ingestDir)
		},
	}
	ingestCmd.Flags().StringVar(&ingestDir, "dir", ".", "directory containing *.json payload files")

	rootCmd.AddCommand(serveCmd, ingestCmd)

	if err := rootCmd.Execute(); err != nil {
		logging.NewEarlyLog().Error("command failed: %v", err)
	}
}

func resolveConfigFile(configFile string) string {
	if configFile == "" {
		configFile = os.Getenv("CONFIG_FILE")
	}
	if configFile == "" {
		logging.NewEarlyLog().Error("Config file is required. Use --config flag or CONFIG_FILE environment variable")
	}
	return configFile
}

func runServe(configFile string) {
	base := bootstrap.NewBase(resolveConfigFile(configFile), serviceName)
	defer base.Logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := NewApplication(base)
	if err := app.Initialize(ctx); err != nil {
		base.Logger.Fatalf("initialization failed: %v", err)
	}

	if err := app.Run(ctx); err != nil {
		base.Logger.Errorw("service exited with error", "error", err)
	}

	app.Shutdown()
}

func runIngest(configFile, dir string) {
	base := bootstrap.NewBase(resolveConfigFile(configFile), serviceName)
	defer base.Logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := NewApplication(base)
	if err := app.Initialize(ctx); err != nil {
		base.Logger.Fatalf("initialization failed: %v", err)
	}
	defer app.Shutdown()

	if err := app.Ingest(ctx, dir); err != nil {
		base.Logger.Fatalf("ingest failed: %v", err)
	}
}
