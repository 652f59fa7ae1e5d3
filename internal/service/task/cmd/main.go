package main

import (
	"context"
	"fmt"
	"os"

	"taskflow/internal/pkg/database"
	"taskflow/internal/pkg/logger"
	"taskflow/internal/service/task"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

var (
	version = "1.0.0"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "task-service",
	Short: "Task lifecycle service",
	Long:  `Task service with CRUD operations, background job processing and overdue sweeping.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the task HTTP API",
	Run: func(cmd *cobra.Command, args []string) {
		runApp(task.ServerApp)
	},
}

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the job worker pool and overdue sweeper",
	Run: func(cmd *cobra.Command, args []string) {
		runApp(task.WorkerApp)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run task database migrations",
	Run: func(cmd *cobra.Command, args []string) {
		runMigrations()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Task Service Version: %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(versionCmd)
}

func runApp(opts fx.Option) {
	app := fx.New(
		opts,
		fx.NopLogger,
	)

	startCtx, cancel := context.WithTimeout(context.Background(), fx.DefaultTimeout)
	defer cancel()

	if err := app.Start(startCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start task service: %v\n", err)
		os.Exit(1)
	}

	<-app.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), fx.DefaultTimeout)
	defer cancel()

	if err := app.Stop(stopCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to stop task service: %v\n", err)
		os.Exit(1)
	}
}

func runMigrations() {
	fmt.Println("Running task service migrations...")

	var log *logger.Logger
	var db *database.Database

	app := fx.New(
		task.ServerApp,
		fx.NopLogger,
		fx.Invoke(func(logger *logger.Logger, database *database.Database) {
			log = logger
			db = database
		}),
	)

	startCtx, cancel := context.WithTimeout(context.Background(), fx.DefaultTimeout)
	defer cancel()

	if err := app.Start(startCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}

	if err := task.RunMigrations(db, log); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to run migrations: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Task migrations completed successfully!")

	stopCtx, cancel := context.WithTimeout(context.Background(), fx.DefaultTimeout)
	defer cancel()

	if err := app.Stop(stopCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to stop: %v\n", err)
		os.Exit(1)
	}
}
