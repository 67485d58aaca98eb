package worker

import (
	"context"
	"log/slog"
	"time"

	"stayhub/internal/usecase/commands"

	"github.com/go-co-op/gocron/v2"
)

// HoldReaper runs the abandoned-hold sweep on a fixed interval. It is the
// liveness guarantee for the availability ledger: even if the client vanishes
// and the processor never reports, expired holds release their dates.
type HoldReaper struct {
	scheduler gocron.Scheduler
	reaper    commands.ReaperCommands
	interval  time.Duration
}

func NewHoldReaper(reaper commands.ReaperCommands, interval time.Duration) (*HoldReaper, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	return &HoldReaper{
		scheduler: scheduler,
		reaper:    reaper,
		interval:  interval,
	}, nil
}

func (w *HoldReaper) Start(ctx context.Context) error {
	_, err := w.scheduler.NewJob(
		gocron.DurationJob(w.interval),
		gocron.NewTask(w.runSweep),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return err
	}

	w.scheduler.Start()
	slog.Info("hold reaper started", "interval", w.interval.String())
	return nil
}

func (w *HoldReaper) Stop(ctx context.Context) error {
	return w.scheduler.Shutdown()
}

func (w *HoldReaper) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), w.interval)
	defer cancel()

	if _, err := w.reaper.ReapAbandoned(ctx); err != nil {
		slog.Error("hold reaper sweep failed", "error", err.Error())
	}
}
