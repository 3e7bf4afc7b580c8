package radio

import "time"

// ChannelID names a configured channel (e.g. "ch1").
type ChannelID string

// QualityID is the key of a quality profile (e.g. "hq", "lq").
type QualityID string

// Quality is one bitrate variant shared by every channel.
type Quality struct {
	ID         QualityID
	Bitrate    int // bits per second
	SampleRate int // Hz
}

// State is the lifecycle state of a channel supervisor.
type State string

const (
	StatePending   State = "pending"
	StateSelecting State = "selecting"
	StateStreaming State = "streaming"
	StateCycling   State = "cycling"
	StateStopped   State = "stopped"
	StateFailed    State = "failed"
)

// Running reports whether a supervisor in this state is still looping.
func (s State) Running() bool {
	switch s {
	case StateSelecting, StateStreaming, StateCycling:
		return true
	}
	return false
}

// SlotStatus describes the transcoder currently owning a (channel, quality)
// output directory.
type SlotStatus struct {
	Quality   QualityID `json:"quality"`
	Active    bool      `json:"active"`
	Track     string    `json:"track,omitempty"`
	RunID     string    `json:"run_id,omitempty"`
	PID       int       `json:"pid,omitempty"`
	StartedAt time.Time `json:"started_at,omitzero"`
}

// ChannelStatus is a point-in-time view of one channel supervisor.
type ChannelStatus struct {
	Channel   ChannelID    `json:"channel"`
	Title     string       `json:"title"`
	State     State        `json:"state"`
	Rotations int64        `json:"rotations"`
	LastError string       `json:"last_error,omitempty"`
	Slots     []SlotStatus `json:"slots"`
}
