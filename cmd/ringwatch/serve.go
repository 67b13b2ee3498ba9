package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	ringwatch "github.com/ypk/ringwatch"
	"github.com/ypk/ringwatch/internal/archive"
	"github.com/ypk/ringwatch/internal/viewer"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the clip viewer web page",
	Long: `Runs the read-only web interface over the archive directory. Safe to
run alongside the monitor; it only ever reads the directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		store, err := archive.NewStore(cfg.Video.Dir, cfg.Video.MaxStorageGB)
		if err != nil {
			return err
		}

		templateFS, err := fs.Sub(ringwatch.TemplateFS, "templates")
		if err != nil {
			return err
		}

		h := viewer.New(store, templateFS, cfg.Viewer.PasswordHash)
		rl := viewer.NewRateLimiter(5, 20)
		defer rl.Stop()

		srv := &http.Server{
			Addr:    cfg.Viewer.ListenAddr,
			Handler: h.Routes(rl),
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		go func() {
			<-ctx.Done()
			slog.Info("shutting down viewer")
			srv.Shutdown(context.Background())
		}()

		slog.Info("viewer listening",
			"addr", cfg.Viewer.ListenAddr,
			"archive", store.Root(),
			"auth", cfg.Viewer.PasswordHash != "")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
