package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/shivavenkatesh/voodoo/internal/server"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	servePort int
	serveHost string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP server so other tools can classify discoveries and feed
sessions into the shared pattern store.

Examples:
  voodoo serve
  voodoo serve --port 3740
  voodoo serve --host 0.0.0.0 --port 8080`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (default from config)")
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	svc, err := initService(context.Background())
	if err != nil {
		return err
	}
	defer svc.Close()

	host := cfg.Server.Host
	if serveHost != "" {
		host = serveHost
	}
	port := cfg.Server.Port
	if servePort != 0 {
		port = servePort
	}

	srv := server.New(svc, server.Config{
		Host:   host,
		Port:   port,
		Logger: logger,
	})

	// Handle graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-done
		fmt.Println("\nShutting down...")
		if err := srv.Shutdown(); err != nil {
			logger.Warn("shutdown failed", zap.Error(err))
		}
	}()

	addr := fmt.Sprintf("%s:%d", host, port)
	fmt.Printf("voodoo server listening on %s\n", cyan("http://"+addr))
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()
	fmt.Println("Endpoints:")
	fmt.Println("  POST /learn       - Merge a discovery into the pattern store")
	fmt.Println("  POST /classify    - Classify a discovery")
	fmt.Println("  POST /enhance     - Annotate a discovery with learned patterns")
	fmt.Println("  GET  /patterns    - Pattern store document")
	fmt.Println("  GET  /history     - Analyzed plugins")
	fmt.Println("  GET  /stats       - Learning statistics")
	fmt.Println("  GET  /health      - Health check")

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
