package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ypk/ringwatch/internal/ring"
)

var devicesJSON bool

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List registered devices and their most recent event",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Ring.Username == "" || cfg.Ring.Password == "" {
			return errors.New("RING_USERNAME and RING_PASSWORD are required")
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

		devices, err := client.Devices(ctx)
		if err != nil {
			return err
		}

		type deviceReport struct {
			ID        int64       `json:"id"`
			Name      string      `json:"name"`
			Kind      string      `json:"kind"`
			Doorbell  bool        `json:"doorbell"`
			LastEvent *ring.Event `json:"last_event,omitempty"`
		}

		reports := make([]deviceReport, 0, len(devices))
		for _, d := range devices {
			rep := deviceReport{ID: d.ID, Name: d.Name(), Kind: d.Kind, Doorbell: d.Doorbell}
			events, err := client.History(ctx, d.ID, 1)
			if err == nil && len(events) > 0 {
				rep.LastEvent = &events[0]
			}
			reports = append(reports, rep)
		}

		if devicesJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(reports)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tKIND\tTYPE\tLAST EVENT")
		for _, rep := range reports {
			devType := "camera"
			if rep.Doorbell {
				devType = "doorbell"
			}
			last := "none"
			if rep.LastEvent != nil {
				last = fmt.Sprintf("%s at %s (id %d)",
					rep.LastEvent.Kind,
					rep.LastEvent.CreatedAt.Local().Format(time.DateTime),
					rep.LastEvent.ID)
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", rep.ID, rep.Name, rep.Kind, devType, last)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(devicesCmd)
	devicesCmd.Flags().BoolVar(&devicesJSON, "json", false, "Output as JSON")
}
