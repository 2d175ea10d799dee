package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/harshithgowdakt/mtqueue/internal/config"
	"github.com/harshithgowdakt/mtqueue/internal/logging"
	"github.com/harshithgowdakt/mtqueue/internal/queue"
	"github.com/harshithgowdakt/mtqueue/internal/server"
	"github.com/harshithgowdakt/mtqueue/internal/storagecollab"
	"github.com/harshithgowdakt/mtqueue/internal/worker"
	"github.com/harshithgowdakt/mtqueue/internal/zkclient"
)

var rootCmd = &cobra.Command{
	Use:   "mtqueue",
	Short: "Per-replica replication queue for a MergeTree-style table",
}

func main() {
	rootCmd.AddCommand(serveCmd, statusCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run this replica's log puller, mutation tracker, and execution loop",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print this replica's queue status as JSON, querying its own HTTP endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		return runStatus(addr)
	},
}

func init() {
	statusCmd.Flags().String("addr", "http://127.0.0.1:8080", "base URL of a running mtqueue serve instance")
}

func runServe() error {
	cfg, err := config.Load("MTQUEUE_")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logging.New(cfg.Table, cfg.Replica)

	client, err := zkclient.Connect(cfg.ZKEnsemble, cfg.ZKSessionTimeout)
	if err != nil {
		return fmt.Errorf("connecting to coordination service: %w", err)
	}
	defer client.Close()

	db, err := storagecollab.NewDatabase(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	if err := db.LoadMetadata(); err != nil {
		return fmt.Errorf("loading table metadata: %w", err)
	}
	table, ok := db.GetTable(cfg.Table)
	if !ok {
		return fmt.Errorf("table %q not found under %s; create it before starting the replica", cfg.Table, cfg.DataDir)
	}

	zPath := "/tables/" + cfg.Table
	rPath := zPath + "/replicas/" + cfg.Replica

	q := queue.New(cfg.Table, cfg.Replica, client)
	tracker := queue.NewMutationTracker(client, q, zPath)
	puller := queue.NewLogPuller(client, q, tracker, zPath, rPath)

	w := worker.New(q, table, puller, tracker, nil, log, cfg.TickInterval)
	srv := server.NewServer(q, cfg.ListenAddr, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutting down")
		cancel()
	}()

	errCh := make(chan error, 2)
	go func() { errCh <- w.Run(ctx) }()
	go func() { errCh <- srv.Start(ctx) }()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}
	return nil
}
