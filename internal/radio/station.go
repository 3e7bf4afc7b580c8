package radio

import (
	"context"
	"log/slog"
	"sync"

	"hls-radio/internal/platform/metrics"

	"github.com/google/uuid"
)

// Station owns one Supervisor per configured channel.
type Station struct {
	cfg      *Config
	selector *Selector
	builder  CommandBuilder
	launcher Launcher
	status   *Status
	metrics  *metrics.Metrics
	log      *slog.Logger
	newRunID func() string

	supervisors []*Supervisor
}

// NewStation wires the shared selector, command builder and launcher into a
// supervisor for every channel in cfg. m may be nil to disable metrics.
func NewStation(cfg *Config, launcher Launcher, status *Status, m *metrics.Metrics, log *slog.Logger) *Station {
	st := &Station{
		cfg:      cfg,
		selector: NewSelector(cfg.AudioExtensions, cfg.SilenceFile),
		builder:  CommandBuilder{SilenceFile: cfg.SilenceFile},
		launcher: launcher,
		status:   status,
		metrics:  m,
		log:      log,
		newRunID: uuid.NewString,
	}
	for i, ch := range cfg.Channels {
		st.supervisors = append(st.supervisors, &Supervisor{
			station: st,
			channel: ch,
			title:   cfg.Title(i),
			log:     log.With(slog.String("channel", string(ch))),
		})
	}
	return st
}

// Supervisors returns the per-channel supervisors in configured order.
func (st *Station) Supervisors() []*Supervisor {
	return st.supervisors
}

// Run starts every supervisor concurrently and blocks until all of them have
// returned. A supervisor that fails is logged and left stopped; the others
// keep running. Cancelling ctx stops every supervisor and its transcoder.
func (st *Station) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, sup := range st.supervisors {
		wg.Add(1)
		go func(sup *Supervisor) {
			defer wg.Done()
			if err := sup.Run(ctx); err != nil {
				st.log.Error("channel offline",
					slog.String("channel", string(sup.Channel())),
					slog.String("error", err.Error()))
			}
		}(sup)
	}
	st.log.Info("station started", slog.Int("channels", len(st.supervisors)))
	wg.Wait()
	st.log.Info("station stopped")
}
