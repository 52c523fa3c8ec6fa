package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/claro-ai/claro/internal/server"
)

var serveAllowAll bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the claro HTTP API server",
	Long:  `Starts the HTTP API server: document upload, analysis, and chat over the user's documents.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := buildApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		srv := server.New(server.Config{
			Port:          cfg.Port,
			AllowAll:      serveAllowAll,
			HistoryWindow: cfg.HistoryWindow,
		}, a.store, a.pipe, a.texts, a.summarizer)

		// Shut down cleanly on SIGINT/SIGTERM.
		done := make(chan error, 1)
		go func() { done <- srv.Start() }()

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

		select {
		case err := <-done:
			if err != nil && err != http.ErrServerClosed {
				return err
			}
		case <-sig:
			fmt.Fprintln(os.Stderr, "shutting down...")
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveAllowAll, "allow-all-origins", false, "allow all CORS origins (dev mode)")
	rootCmd.AddCommand(serveCmd)
}
