package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/yhonda-ohishi-pub-dev/nextui-updater/src/internal/api"
	"github.com/yhonda-ohishi-pub-dev/nextui-updater/src/internal/reflection"
	"github.com/yhonda-ohishi-pub-dev/nextui-updater/src/pkg/models"
)

var (
	server     string
	grpcServer string
)

func main() {
	root := &cobra.Command{
		Use:          "update-client",
		Short:        "Talks to a running nextui-updater",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&server, "server", "http://127.0.0.1:8380", "REST API base URL")
	root.PersistentFlags().StringVar(&grpcServer, "grpc", "127.0.0.1:8381", "gRPC server address")

	root.AddCommand(statusCmd(), checkCmd(), updateCmd(), selectCmd(), historyCmd(), quitCmd(), healthCmd(), servicesCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the updater state",
		RunE: func(cmd *cobra.Command, args []string) error {
			var s models.Snapshot
			if err := call(http.MethodGet, "/api/v1/state", nil, &s); err != nil {
				return err
			}

			fmt.Printf("Installed: %s\n", s.InstalledVersion)
			if s.LatestTag != nil {
				fmt.Printf("Latest:    %s (%s)\n", s.LatestTag.Name, s.LatestTag.Commit.SHA)
			}
			fmt.Printf("Up to date: %v\n", s.UpToDate)
			if s.Operation != nil {
				if s.Operation.Progress.Kind == models.ProgressDeterminate {
					fmt.Printf("Operation: %s %.0f%%\n", s.Operation.Label, s.Operation.Progress.Fraction*100)
				} else {
					fmt.Printf("Operation: %s\n", s.Operation.Label)
				}
			}
			if s.Error != "" {
				fmt.Printf("Error: %s\n", s.Error)
			}
			for i, e := range s.Entries {
				cursor := " "
				if s.Selection.Open && i == s.Selection.Index {
					cursor = ">"
				}
				installed := ""
				if i == s.InstalledIndex {
					installed = " (installed)"
				}
				fmt.Printf("%s %2d %s%s\n", cursor, i, e.Tag.Name, installed)
			}
			return nil
		},
	}
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Start a release check",
		RunE: func(cmd *cobra.Command, args []string) error {
			return post("/api/v1/check", nil)
		},
	}
}

func updateCmd() *cobra.Command {
	var full bool
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Install the selected (or latest) release and reboot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return post("/api/v1/update", api.UpdateRequest{Full: full})
		},
	}
	cmd.Flags().BoolVar(&full, "full", false, "Full update instead of quick update")
	return cmd
}

func selectCmd() *cobra.Command {
	var acceptDowngrade bool
	cmd := &cobra.Command{
		Use:   "select <index>",
		Short: "Open the release selector at index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid index %q", args[0])
			}
			open := true
			req := api.SelectionRequest{Index: &index, Open: &open, AcceptDowngrade: &acceptDowngrade}

			var sel models.ReleaseSelection
			if err := call(http.MethodPost, "/api/v1/selection", req, &sel); err != nil {
				return err
			}
			fmt.Printf("Selected index %d (downgrade accepted: %v)\n", sel.Index, sel.DowngradeAccepted)
			return nil
		},
	}
	cmd.Flags().BoolVar(&acceptDowngrade, "accept-downgrade", false, "Acknowledge that the release is older than the installed one")
	return cmd
}

func historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show recent checks and updates",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp struct {
				Records []models.HistoryRecord `json:"records"`
			}
			if err := call(http.MethodGet, "/api/v1/history", nil, &resp); err != nil {
				return err
			}
			for _, r := range resp.Records {
				result := "ok"
				if !r.Success {
					result = "failed: " + r.Error
				}
				fmt.Printf("%-14s %-12s %-10s %s\n", humanize.Time(r.FinishedAt), r.Kind, r.Tag, result)
			}
			return nil
		},
	}
}

func quitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quit",
		Short: "Ask the updater to exit once idle",
		RunE: func(cmd *cobra.Command, args []string) error {
			return post("/api/v1/quit", nil)
		},
	}
}

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Query the gRPC health service",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := grpc.NewClient(grpcServer, grpc.WithTransportCredentials(insecure.NewCredentials()))
			if err != nil {
				return fmt.Errorf("failed to connect: %w", err)
			}
			defer conn.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: api.UpdaterService})
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			fmt.Println(resp.GetStatus())
			return nil
		},
	}
}

func servicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "services",
		Short: "List the gRPC services exposed by the updater",
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := reflection.NewClient().ListServices(context.Background(), grpcServer)
			if err != nil {
				return err
			}
			for _, svc := range services {
				fmt.Println(svc.Name)
				for _, m := range svc.Methods {
					fmt.Printf("  %s(%s) returns %s\n", m.Name, m.InputType, m.OutputType)
				}
			}
			return nil
		},
	}
}

// call sends body as JSON and decodes the response into out when out is non-nil
func call(method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, server+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach updater: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s (HTTP %d)", apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}

	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

// post sends a command and prints the message the updater answers with
func post(path string, body interface{}) error {
	var resp struct {
		Message string `json:"message"`
	}
	if err := call(http.MethodPost, path, body, &resp); err != nil {
		return err
	}
	fmt.Println(resp.Message)
	return nil
}
