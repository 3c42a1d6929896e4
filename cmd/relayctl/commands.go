package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/relaydesk/relay-go/api"
	"github.com/relaydesk/relay-go/config"
)

// buildSDK loads configuration and assembles the client stack. The
// returned cleanup must run before process exit so telemetry flushes.
func buildSDK(ctx context.Context, configPath string) (*config.SDK, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	sdk, err := config.Build(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = sdk.Close(shutdownCtx)
	}
	return sdk, cleanup, nil
}

func newHealthCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Run a one-shot backend health check",
		RunE: func(cmd *cobra.Command, args []string) error {
			sdk, cleanup, err := buildSDK(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			status := sdk.API.CheckHealth(cmd.Context())
			if !status.IsHealthy {
				return fmt.Errorf("backend unhealthy: %s", status.Error)
			}

			latency, err := sdk.API.Ping(cmd.Context())
			if err != nil {
				fmt.Printf("healthy (%s), ping failed: %v\n", status.Status, err)
				return nil
			}
			fmt.Printf("healthy (%s), ping %s\n", status.Status, latency.Round(time.Millisecond))
			return nil
		},
	}
}

func newWatchCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch backend connectivity until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			sdk, cleanup, err := buildSDK(ctx, *configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			updates, unsubscribe := sdk.Monitor.Subscribe()
			defer unsubscribe()

			fmt.Println("watching, ctrl-c to stop")
			for {
				select {
				case <-ctx.Done():
					return nil
				case state := <-updates:
					line := fmt.Sprintf("%s  %s", time.Now().Format(time.TimeOnly), state.Status)
					if state.LastError != nil {
						line += "  " + state.LastError.Error()
					}
					fmt.Println(line)
				}
			}
		},
	}
}

func newChatCmd(configPath *string) *cobra.Command {
	var message, provider, model string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Send one chat message and print the reply",
		RunE: func(cmd *cobra.Command, args []string) error {
			if message == "" {
				return fmt.Errorf("-m is required")
			}

			sdk, cleanup, err := buildSDK(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			resp, err := sdk.API.Chat(cmd.Context(), api.ChatRequest{
				Message:  message,
				Provider: provider,
				Model:    model,
			})
			if err != nil {
				return err
			}

			fmt.Println(resp.Content)
			fmt.Fprintf(os.Stderr, "[%s/%s, %d tokens]\n", resp.Provider, resp.Model, resp.Usage.TotalTokens)
			return nil
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "message to send")
	cmd.Flags().StringVar(&provider, "provider", "", "provider override")
	cmd.Flags().StringVar(&model, "model", "", "model override")
	return cmd
}

func newUploadCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <dir>",
		Short: "Upload a directory as a project and print its ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := collectFiles(args[0])
			if err != nil {
				return err
			}

			sdk, cleanup, err := buildSDK(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			project, err := sdk.API.UploadFiles(cmd.Context(), filepath.Base(args[0]), files)
			if err != nil {
				return err
			}
			fmt.Printf("uploaded %s: %d files, project %s\n", project.Name, project.FileCount, project.ID)
			return nil
		},
	}
}

func newStatusCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print server info, provider availability, and usage stats",
		RunE: func(cmd *cobra.Command, args []string) error {
			sdk, cleanup, err := buildSDK(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			snap, err := sdk.API.Snapshot(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Printf("server  %s (%s), up %ds\n", snap.Info.Version, snap.Info.Status, snap.Info.Uptime)
			for name, p := range snap.Providers {
				mark := "down"
				if p.Available {
					mark = "up"
				}
				fmt.Printf("provider %-12s %s\n", name, mark)
			}
			if snap.Stats != nil {
				fmt.Printf("stats   %d requests, %d conversations, %d tokens\n",
					snap.Stats.Requests, snap.Stats.Conversations, snap.Stats.TokensUsed)
			}
			return nil
		},
	}
}

// collectFiles reads every regular file under dir, concurrently, capped
// at a handful of readers.
func collectFiles(dir string) ([]api.File, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no files under %s", dir)
	}

	files := make([]api.File, len(paths))
	g := new(errgroup.Group)
	g.SetLimit(8)
	for i, path := range paths {
		g.Go(func() error {
			content, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}
			rel, err := filepath.Rel(dir, path)
			if err != nil {
				rel = filepath.Base(path)
			}
			files[i] = api.File{Name: rel, Content: content}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}
