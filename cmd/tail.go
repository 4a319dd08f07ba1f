package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/AbhiRohit459/Real-Time-Music-Collaboration-Platform/client"
	"github.com/AbhiRohit459/Real-Time-Music-Collaboration-Platform/config"
	"github.com/AbhiRohit459/Real-Time-Music-Collaboration-Platform/event"
	"github.com/AbhiRohit459/Real-Time-Music-Collaboration-Platform/logging"
)

var tailRetries int

func init() {
	tailCmd.Flags().IntVar(&tailRetries, "retries", 5, "dial attempts after the first")
	rootCmd.AddCommand(tailCmd)
}

var tailCmd = &cobra.Command{
	Use:   "tail <ws-url> <project-id>",
	Short: "Joins a project room and prints every frame it sees",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		log, err := logging.New(cfg.Log)
		if err != nil {
			return err
		}
		defer log.Sync() //nolint:errcheck

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		w := cmd.OutOrStdout()
		session, err := client.Dial(ctx, client.Config{
			URL:         args[0],
			ProjectID:   args[1],
			DialRetries: tailRetries,
			Log:         log,
			OnFrame: func(f event.Frame) {
				fmt.Fprintf(w, "%s %s\n", f.Type, f.Payload)
			},
		}, nil)
		if err != nil {
			return err
		}
		log.Info("watching project", zap.String("project", args[1]), zap.String("session", session.ID()))

		select {
		case <-ctx.Done():
			return session.Close()
		case <-session.Done():
			log.Info("relay closed the connection")
			return nil
		}
	},
}
