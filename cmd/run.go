package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/norrisp90/geneticai/internal/agent"
	"github.com/norrisp90/geneticai/internal/gateway"
	"github.com/norrisp90/geneticai/internal/session"
	"github.com/norrisp90/geneticai/internal/settings"
)

var (
	runHeadless bool
	runHost     string
	runPort     int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Launch the chat gateway",
	Long:  "Load the settings document, resolve the launch environment and serve the chat gateway",
	Run:   runRun,
}

// agentBackend adapts the agents API client to the gateway's view of a
// conversational backend.
type agentBackend struct {
	*agent.Client
}

func (b agentBackend) CreateThread(ctx context.Context) (string, error) {
	thread, err := b.Client.CreateThread(ctx)
	if err != nil {
		return "", err
	}
	return thread.ID, nil
}

func runRun(cmd *cobra.Command, args []string) {
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("[error] failed to get current directory: %v", err)))
		os.Exit(1)
	}

	cfg, err := settings.LoadOrDefault(cwd)
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("[error] %v", err)))
		os.Exit(1)
	}

	rt, err := settings.ResolveRuntime()
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("[error] %v", err)))
		os.Exit(1)
	}
	if cmd.Flags().Changed("host") {
		rt.Host = runHost
	}
	if cmd.Flags().Changed("port") {
		rt.Port = runPort
	}

	// every user_env variable must exist before anything serves
	if missing := settings.CheckUserEnv(cfg); len(missing) > 0 {
		fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("[error] missing required environment variables: %s", strings.Join(missing, ", "))))
		os.Exit(1)
	}

	if !runHeadless {
		fmt.Println(titleStyle.Render(fmt.Sprintf("==> launching %s", cfg.UI.Name)))
		fmt.Println()
		fmt.Printf("    %s %s\n", dimStyle.Render("bind:"), valueStyle.Render(rt.Addr()))
		fmt.Printf("    %s %s\n", dimStyle.Render("agent:"), valueStyle.Render(rt.AgentID))
		fmt.Println()
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	client, err := agent.NewClient(rt.ProjectEndpoint, rt.AgentID, rt.Token)
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("[error] %v", err)))
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// an unreachable backend degrades the gateway, it does not stop the
	// launch; sessions surface the failure and retry on first message
	initCtx, initCancel := context.WithTimeout(ctx, 30*time.Second)
	agentInfo, err := client.GetAgent(initCtx)
	initCancel()
	if err != nil {
		logger.Error("agent initialization failed", "err", err)
		if !runHeadless {
			fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("[error] failed to connect to agent: %v", err)))
			fmt.Println(dimStyle.Render("  starting degraded; the connection will be retried on first use"))
		}
	} else {
		logger.Info("connected to agent", "agent", agentInfo.ID, "model", agentInfo.Model)
	}

	sessions := session.NewRegistry(time.Duration(cfg.Project.SessionTimeout) * time.Second)
	sessions.Start(ctx)

	handler := gateway.NewChatHandler(cfg, agentBackend{client}, sessions, logger)
	srv := gateway.NewServer(rt.Addr(), cfg, handler, logger)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("gateway failed", "err", err)
			cancel()
		}
	}()

	if !runHeadless {
		fmt.Println(successStyle.Render("  [done] gateway is up"))
		fmt.Println()
		fmt.Printf("    %s %s\n", dimStyle.Render("chat api:"), infoStyle.Render(fmt.Sprintf("http://%s/api/v1", rt.Addr())))
		fmt.Printf("    %s %s\n", dimStyle.Render("metrics:"), infoStyle.Render(fmt.Sprintf("http://%s/metrics", rt.Addr())))
		fmt.Println()
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	exitCode := 0
	select {
	case <-stop:
		logger.Info("shutdown signal received")
	case <-ctx.Done():
		logger.Info("context cancelled")
		exitCode = 1
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("gateway shutdown error", "err", err)
	}

	logger.Info("gateway stopped")
	os.Exit(exitCode)
}

func init() {
	runCmd.Flags().BoolVar(&runHeadless, "headless", false, "run without interactive console output")
	runCmd.Flags().StringVar(&runHost, "host", "0.0.0.0", "bind address (overrides HOST)")
	runCmd.Flags().IntVar(&runPort, "port", 8000, "listen port (overrides PORT)")
	rootCmd.AddCommand(runCmd)
}
