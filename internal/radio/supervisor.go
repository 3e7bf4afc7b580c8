package radio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Supervisor runs the rotation loop of a single channel. Each cycle it lists
// the channel's audio directory once and then, for every quality profile in
// order, picks a track, runs a transcoder for one rotation interval and stops
// it. Stop waits for the process to exit before the next launch, so two
// transcoders never write the same output directory at once.
type Supervisor struct {
	station *Station
	channel ChannelID
	title   string
	log     *slog.Logger
}

// Channel is the channel this supervisor owns.
func (s *Supervisor) Channel() ChannelID { return s.channel }

// Run loops until ctx is cancelled, returning nil, or until a transcoder
// cannot be launched within the configured attempts, returning an error
// wrapping ErrSupervisorFailed and the *LaunchError.
func (s *Supervisor) Run(ctx context.Context) error {
	cfg := s.station.cfg
	status := s.station.status

	s.log.Info("channel supervisor started", slog.String("title", s.title))
	for {
		status.SetState(s.channel, StateSelecting)
		tracks := s.listTracks()

		for _, q := range cfg.Qualities {
			if err := s.streamSlot(ctx, tracks, q); err != nil {
				if ctx.Err() != nil {
					return s.stopped()
				}
				err = fmt.Errorf("%w: %w", ErrSupervisorFailed, err)
				status.SetFailed(s.channel, err)
				s.log.Error("channel supervisor terminated",
					slog.String("state", string(StateFailed)),
					slog.String("error", err.Error()))
				return err
			}
			if ctx.Err() != nil {
				return s.stopped()
			}
		}

		status.IncRotations(s.channel)
		if m := s.station.metrics; m != nil {
			m.IncRotations(string(s.channel))
		}
	}
}

func (s *Supervisor) stopped() error {
	s.station.status.SetState(s.channel, StateStopped)
	s.log.Info("channel supervisor stopped", slog.String("state", string(StateStopped)))
	return nil
}

// listTracks re-reads the audio directory so new files join the next cycle.
func (s *Supervisor) listTracks() []string {
	dir := s.station.cfg.AudioDir(s.channel)
	tracks, err := s.station.selector.Tracks(dir)
	if err != nil {
		s.log.Warn("audio directory unreadable, using silence",
			slog.String("dir", dir), slog.String("error", err.Error()))
		return nil
	}
	if len(tracks) == 0 {
		s.log.Debug("no audio files, using silence", slog.String("dir", dir))
	}
	return tracks
}

// streamSlot owns the (channel, q) output directory for one rotation
// interval. A non-nil error means the launch was abandoned.
func (s *Supervisor) streamSlot(ctx context.Context, tracks []string, q Quality) error {
	cfg := s.station.cfg
	status := s.station.status
	log := s.log.With(slog.String("quality", string(q.ID)))

	status.SetState(s.channel, StateSelecting)
	track := s.station.selector.Pick(tracks)

	proc, runID, err := s.launchWithRetry(ctx, log, track, q)
	if err != nil {
		return err
	}

	status.SetState(s.channel, StateStreaming)
	status.StartSlot(s.channel, SlotStatus{
		Quality:   q.ID,
		Track:     track,
		RunID:     runID,
		PID:       proc.PID(),
		StartedAt: time.Now().UTC(),
	})
	log = log.With(slog.String("run_id", runID), slog.Int("pid", proc.PID()))
	log.Info("streaming",
		slog.String("track", filepath.Base(track)),
		slog.String("title", s.title))

	s.wait(ctx, log, proc, q)

	status.SetState(s.channel, StateCycling)
	forced, err := proc.Stop(cfg.StopTimeout)
	status.EndSlot(s.channel, q.ID)
	switch {
	case err != nil:
		log.Error("transcoder stop failed", slog.String("error", err.Error()))
	case forced:
		log.Warn("transcoder ignored terminate, killed", slog.Duration("timeout", cfg.StopTimeout))
		if m := s.station.metrics; m != nil {
			m.IncForcedKills(string(s.channel), string(q.ID))
		}
	default:
		log.Debug("transcoder stopped")
	}
	return nil
}

// wait blocks for one rotation interval or until ctx is done. An early exit
// of the transcoder ends its slot and is logged but does not shorten the
// interval.
func (s *Supervisor) wait(ctx context.Context, log *slog.Logger, proc Process, q Quality) {
	timer := time.NewTimer(s.station.cfg.RotationInterval)
	defer timer.Stop()

	done := proc.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			return
		case <-done:
			done = nil
			s.station.status.EndSlot(s.channel, q.ID)
			attrs := []any{}
			if err := proc.Err(); err != nil {
				attrs = append(attrs, slog.String("error", err.Error()))
				s.station.status.SetError(s.channel, err)
			}
			log.Warn("transcoder exited before rotation", attrs...)
		}
	}
}

func (s *Supervisor) launchWithRetry(ctx context.Context, log *slog.Logger, track string, q Quality) (Process, string, error) {
	cfg := s.station.cfg
	backoff := cfg.LaunchBackoff

	for attempt := 1; ; attempt++ {
		runID := s.station.newRunID()
		proc, err := s.launch(ctx, track, q, runID)
		if err == nil {
			if m := s.station.metrics; m != nil {
				m.IncLaunches(string(s.channel), string(q.ID))
			}
			return proc, runID, nil
		}
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}

		lerr := &LaunchError{Channel: s.channel, Quality: q.ID, Attempt: attempt, Err: err}
		s.station.status.SetError(s.channel, lerr)
		if m := s.station.metrics; m != nil {
			m.IncLaunchFailures(string(s.channel), string(q.ID))
		}
		if attempt >= cfg.LaunchMaxAttempts {
			return nil, "", lerr
		}
		log.Warn("transcoder launch failed, retrying",
			slog.Int("attempt", attempt),
			slog.Duration("backoff", backoff),
			slog.String("error", err.Error()))

		if !sleepCtx(ctx, backoff) {
			return nil, "", ctx.Err()
		}
		backoff = min(backoff*2, maxLaunchBackoff)
	}
}

func (s *Supervisor) launch(ctx context.Context, track string, q Quality, runID string) (Process, error) {
	out := s.station.cfg.OutputDir(s.channel, q.ID)
	if err := os.MkdirAll(out, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	args := s.station.builder.Build(track, out, q, s.title)
	proc, err := s.station.launcher.Launch(ctx, LaunchSpec{
		Channel: s.channel,
		Quality: q.ID,
		RunID:   runID,
		Args:    args,
	})
	if err != nil {
		return nil, err
	}
	if proc == nil {
		return nil, errors.New("launcher returned no process")
	}
	return proc, nil
}

// sleepCtx sleeps for d and reports false if ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
