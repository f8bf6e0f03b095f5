package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yhonda-ohishi-pub-dev/nextui-updater/src/internal/config"
	"github.com/yhonda-ohishi-pub-dev/nextui-updater/src/internal/github"
	"github.com/yhonda-ohishi-pub-dev/nextui-updater/src/internal/history"
	"github.com/yhonda-ohishi-pub-dev/nextui-updater/src/internal/state"
	"github.com/yhonda-ohishi-pub-dev/nextui-updater/src/internal/update"
	"github.com/yhonda-ohishi-pub-dev/nextui-updater/src/pkg/models"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "List NextUI releases and show which one is installed",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logCloser, err := setup()
			if err != nil {
				return err
			}
			defer logCloser.Close()

			st := state.NewManager()
			updater := update.NewManager(cfg, github.NewClient(cfg.GitHub), st, nil, version)
			updater.LoadInstalledVersion()
			if err := updater.CheckReleases(cmd.Context()); err != nil {
				return err
			}

			printReleases(cmd.OutOrStdout(), st.Snapshot())
			return nil
		},
	}
}

func newUpdateCmd() *cobra.Command {
	var full, acceptDowngrade bool
	var index int

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Install a NextUI release and reboot",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logCloser, err := setup()
			if err != nil {
				return err
			}
			defer logCloser.Close()

			store, err := history.Open(cfg.DataDir, cfg.History.MaxRecords)
			if err != nil {
				return fmt.Errorf("failed to open update journal: %w", err)
			}
			defer store.Close()

			st := state.NewManager()
			updater := update.NewManager(cfg, github.NewClient(cfg.GitHub), st, store, version)
			updater.LoadInstalledVersion()
			if err := updater.CheckReleases(cmd.Context()); err != nil {
				return err
			}

			if index != -1 {
				if err := st.SelectRelease(index); err != nil {
					return fmt.Errorf("invalid --index: %w", err)
				}
			}
			st.AcceptDowngrade(acceptDowngrade)

			if err := updater.StartUpdate(full); err != nil {
				return err
			}
			followProgress(cmd.Context(), cmd.OutOrStdout(), st)
			updater.Wait()

			if msg := st.Error(); msg != "" {
				return errors.New(msg)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&full, "full", false, "Extract the whole release instead of only the boot bundle")
	cmd.Flags().IntVar(&index, "index", -1, "Release index from 'check' to install (default: latest)")
	cmd.Flags().BoolVar(&acceptDowngrade, "accept-downgrade", false, "Allow installing a release older than the installed one")
	return cmd
}

func newTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token [value]",
		Short: "Store or clear the GitHub API token used for release lookups",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			value := ""
			if len(args) == 1 {
				value = args[0]
			}
			path := config.EnvFilePath(cfg)
			if err := config.SaveEnvValue(path, config.EnvGitHubToken, value); err != nil {
				return err
			}

			if value == "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Token cleared from %s\n", path)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Token saved to %s\n", path)
			}
			return nil
		},
	}
}

func printReleases(out io.Writer, s models.Snapshot) {
	installed := s.InstalledVersion
	if installed == "" {
		installed = "unknown"
	}
	fmt.Fprintf(out, "Installed: %s\n", installed)
	if s.UpToDate {
		fmt.Fprintln(out, "NextUI is up to date")
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "INDEX\tTAG\tCOMMIT\tPUBLISHED\t")
	for i, e := range s.Entries {
		marker := ""
		if i == s.InstalledIndex {
			marker = " (installed)"
		}
		published := "-"
		if e.Release.PublishedAt != nil {
			published = humanize.Time(*e.Release.PublishedAt)
		}
		sha := e.Tag.Commit.SHA
		if len(sha) > 7 {
			sha = sha[:7]
		}
		fmt.Fprintf(w, "%d\t%s%s\t%s\t%s\t\n", i, e.Tag.Name, marker, sha, published)
	}
	w.Flush()
}

// followProgress prints label and progress changes until the task is done
func followProgress(ctx context.Context, out io.Writer, st *state.Manager) {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	last := ""
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		line := ""
		if op, ok := st.CurrentOperation(); ok {
			line = op.Label
			if op.Progress.Kind == models.ProgressDeterminate {
				line = fmt.Sprintf("%s %3.0f%%", op.Label, op.Progress.Fraction*100)
			}
		}
		if line != "" && line != last {
			fmt.Fprintln(out, line)
			last = line
		}
		if !st.Busy() {
			log.Debug("Update task finished")
			return
		}
	}
}
