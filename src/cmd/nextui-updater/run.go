package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yhonda-ohishi-pub-dev/nextui-updater/src/internal/api"
	"github.com/yhonda-ohishi-pub-dev/nextui-updater/src/internal/github"
	"github.com/yhonda-ohishi-pub-dev/nextui-updater/src/internal/history"
	"github.com/yhonda-ohishi-pub-dev/nextui-updater/src/internal/poller"
	"github.com/yhonda-ohishi-pub-dev/nextui-updater/src/internal/process"
	"github.com/yhonda-ohishi-pub-dev/nextui-updater/src/internal/state"
	"github.com/yhonda-ohishi-pub-dev/nextui-updater/src/internal/update"
	"github.com/yhonda-ohishi-pub-dev/nextui-updater/src/internal/webhook"
)

var skipSelfUpdate bool

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Self-update, check for NextUI releases and serve the observer API",
		RunE:  runRun,
	}
	return cmd
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&skipSelfUpdate, "skip-self-update", false, "Do not update the updater itself on startup")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, logCloser, err := setup()
	if err != nil {
		return err
	}
	defer logCloser.Close()

	if skipSelfUpdate {
		cfg.Updater.SkipSelfUpdate = true
	}

	pidFile := process.NewPIDFile(filepath.Join(cfg.DataDir, "updater.pid"))
	if err := pidFile.Acquire(); err != nil {
		return err
	}
	defer pidFile.Release()

	store, err := history.Open(cfg.DataDir, cfg.History.MaxRecords)
	if err != nil {
		return fmt.Errorf("failed to open update journal: %w", err)
	}
	defer store.Close()

	st := state.NewManager()
	updater := update.NewManager(cfg, github.NewClient(cfg.GitHub), st, store, version)

	var grpcLis net.Listener
	if cfg.API.Enabled && cfg.API.GRPCListen != "" {
		grpcLis, err = net.Listen("tcp", cfg.API.GRPCListen)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", cfg.API.GRPCListen, err)
		}
	}

	// Self-update and first check hold the task slot before anything can request another task
	if err := updater.BeginStartup(context.Background()); err != nil {
		return fmt.Errorf("failed to start startup task: %w", err)
	}

	// Initialize observer API servers
	var httpServer *http.Server
	var grpcServer *api.GRPCServer
	if cfg.API.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/", api.NewServer(st, updater, store))
		webhookHandler := webhook.NewHandler(updater, cfg.Firmware.Repository, cfg.API.WebhookSecret)
		mux.HandleFunc("/webhook/github", webhookHandler.HandleGitHubWebhook)

		httpServer = &http.Server{
			Addr:              cfg.API.Listen,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			log.Infof("REST API listening on %s", cfg.API.Listen)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorf("REST API server error: %v", err)
			}
		}()

		if grpcLis != nil {
			grpcServer = api.NewGRPCServer(st)
			go func() {
				if err := grpcServer.Serve(grpcLis); err != nil {
					log.Errorf("gRPC server error: %v", err)
				}
			}()
		}
	}

	if cfg.Poll.Enabled {
		releasePoller := poller.NewReleasePoller(cfg.Poll.Interval, updater)
		releasePoller.Start()
		defer releasePoller.Stop()
	}

	// Without an observer there is nothing left to do after startup
	if !cfg.API.Enabled && !cfg.Poll.Enabled {
		updater.Wait()
		if msg := st.Error(); msg != "" {
			return errors.New(msg)
		}
		return nil
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

loop:
	for {
		select {
		case sig := <-sigChan:
			log.Infof("Received %v, shutting down", sig)
			break loop
		case <-ticker.C:
			if st.ShouldQuit() && !st.Busy() {
				log.Info("Quit requested, shutting down")
				break loop
			}
		}
	}

	if httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			log.Warnf("REST API shutdown: %v", err)
		}
	}
	if grpcServer != nil {
		grpcServer.Stop()
	}
	return nil
}
