package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ypk/ringwatch/internal/archive"
	"github.com/ypk/ringwatch/internal/config"
	"github.com/ypk/ringwatch/internal/monitor"
	"github.com/ypk/ringwatch/internal/notify"
	"github.com/ypk/ringwatch/internal/ring"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Run the event monitor daemon",
	Long: `Polls every device's event history on a fixed interval, notifies on
new events through the configured channel, and archives recordings when
video downloads are enabled. Stops cleanly on SIGINT/SIGTERM, sending a
final stopped notification.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Ring.Username == "" || cfg.Ring.Password == "" {
			return errors.New("RING_USERNAME and RING_PASSWORD are required")
		}

		notifier, err := buildNotifier(cfg)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		client := ring.New(ring.Config{
			Username:  cfg.Ring.Username,
			Password:  cfg.Ring.Password,
			TokenFile: cfg.Ring.TokenFile,
		})
		if err := authenticate(ctx, client); err != nil {
			return fmt.Errorf("ring authentication: %w", err)
		}
		slog.Info("authenticated with ring", "token_file", cfg.Ring.TokenFile)

		var store *archive.Store
		if cfg.Video.Enabled {
			store, err = archive.NewStore(cfg.Video.Dir, cfg.Video.MaxStorageGB)
			if err != nil {
				return err
			}
			slog.Info("video downloads enabled",
				"dir", store.Root(), "max_storage_gb", cfg.Video.MaxStorageGB)
		}

		m := monitor.New(client, notifier, store, monitor.Options{
			Interval:     cfg.Monitor.Interval,
			HistoryLimit: cfg.Monitor.HistoryLimit,
			ReadyWait:    5 * time.Second,
		})
		return m.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}

// buildNotifier picks exactly one channel: Pushover when configured,
// otherwise Twilio.
func buildNotifier(cfg *config.Config) (notify.Notifier, error) {
	switch {
	case cfg.Pushover.Enabled():
		slog.Info("notifications via pushover")
		return notify.NewPushover(cfg.Pushover.UserKey, cfg.Pushover.APIToken, ""), nil
	case cfg.Twilio.Enabled():
		slog.Info("notifications via twilio sms", "to", cfg.Twilio.To)
		return notify.NewTwilio(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken,
			cfg.Twilio.From, cfg.Twilio.To, ""), nil
	default:
		return nil, errors.New("no notification channel configured: set PUSHOVER_USER_KEY/PUSHOVER_API_TOKEN or the TWILIO_* variables")
	}
}

// authenticate logs in, prompting once for a 2FA code if Ring demands one.
func authenticate(ctx context.Context, client *ring.Client) error {
	err := client.Authenticate(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ring.ErrTwoFactorRequired) {
		return err
	}

	fmt.Println("Ring requires two-factor authentication.")
	fmt.Println("Check the Ring app or your email for a code.")
	fmt.Print("Enter 2FA code: ")

	line, readErr := bufio.NewReader(os.Stdin).ReadString('\n')
	if readErr != nil {
		return fmt.Errorf("read 2fa code: %w", readErr)
	}
	code := strings.TrimSpace(line)
	if code == "" {
		return errors.New("no 2fa code entered")
	}

	if err := client.AuthenticateWithCode(ctx, code); err != nil {
		return fmt.Errorf("two-factor authentication failed: %w", err)
	}
	return nil
}
