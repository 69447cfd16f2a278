package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/breeze-rmm/micwatch/internal/logging"
	"github.com/breeze-rmm/micwatch/internal/micstatus"
	"github.com/breeze-rmm/micwatch/pkg/models"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream microphone activity changes",
	Long: `Stream microphone activity changes until interrupted or until --duration
elapses. Informational events (such as a pending permission prompt) are
printed alongside status changes and never end the stream.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		duration, _ := cmd.Flags().GetDuration("duration")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if duration > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, duration)
			defer cancel()
		}

		return runWatch(ctx, cmd, micstatus.New(facade,
			micstatus.WithLogger(logging.L("micstatus")),
			micstatus.WithStopGrace(cfg.StopGrace),
		))
	},
}

func runWatch(ctx context.Context, cmd *cobra.Command, emitter *micstatus.Emitter) error {
	sub := emitter.Subscribe(cfg.EventBuffer)
	defer sub.Close()
	unlisten := emitter.On(func(ev models.MonitorEvent) {
		log.Debug("mic event", zap.String("kind", string(ev.Kind)), zap.Bool("active", ev.Active), zap.String("message", ev.Message))
	})
	defer unlisten()

	if err := emitter.Start(); err != nil {
		return fmt.Errorf("failed to start monitoring: %w", err)
	}
	defer func() {
		if err := emitter.Stop(); err != nil {
			log.Warn("stop monitoring", zap.NamedError(logging.KeyError, err))
		}
		log.Info("stopped watching microphone",
			zap.Time("stopped_at", emitter.StoppedAt()),
			zap.Uint64("late_callbacks_dropped", emitter.Dropped()))
	}()
	log.Info("watching microphone", zap.String(logging.KeySession, emitter.SessionID()))

	out := cmd.OutOrStdout()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-sub.C():
			if err := writeEvent(out, cfg.OutputFormat, ev); err != nil {
				return err
			}
		}
	}
}

func init() {
	watchCmd.Flags().Duration("duration", 0, "Stop after this long (0 watches until interrupted)")
}
