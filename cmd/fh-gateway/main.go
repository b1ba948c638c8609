// Command fh-gateway runs the FutureHouse dispatch gateway.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"phobos.org.uk/fhgate/internal/config"
	"phobos.org.uk/fhgate/internal/gateway"
	"phobos.org.uk/fhgate/internal/logging"
	"phobos.org.uk/fhgate/internal/platform"
	"phobos.org.uk/fhgate/internal/server"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:           "fh-gateway",
		Short:         "HTTP gateway for FutureHouse research agents",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newVersionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
		bind       string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Port = port
			}
			if bind != "" {
				cfg.Bind = bind
			}

			log := logging.New(logging.Config{
				Component: "gateway",
				Level:     logging.ParseLevel(cfg.LogLevel),
			})

			// Missing credentials are fatal at construction; there is no
			// degraded mode without an API key.
			client, err := platform.NewHTTPClient(platform.ClientConfig{
				BaseURL:      cfg.Platform.BaseURL,
				APIKey:       cfg.ResolveAPIKey(),
				PollInterval: cfg.Platform.PollInterval,
				Timeout:      cfg.Platform.Timeout,
				Logger:       log,
			})
			if err != nil {
				return err
			}

			svc := gateway.NewService(client, log)
			srv := server.New(cfg, svc, version, log)

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			go func() {
				<-sigCh
				fmt.Fprintf(os.Stderr, "\nShutting down...\n")
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
				os.Exit(0)
			}()

			return srv.Start()
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to config file")
	cmd.Flags().IntVar(&port, "port", 0, "Port to listen on (overrides config)")
	cmd.Flags().StringVar(&bind, "bind", "", "Address to bind to (overrides config)")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the gateway version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}
