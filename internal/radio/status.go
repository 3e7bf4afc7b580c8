package radio

import "sync"

// Status is a concurrency-safe registry of supervisor and slot state.
// Supervisors write to it; the HTTP layer and metrics only read snapshots.
type Status struct {
	mu        sync.RWMutex
	order     []ChannelID
	qualities []QualityID
	channels  map[ChannelID]*channelRecord
}

type channelRecord struct {
	status ChannelStatus
	slots  map[QualityID]*SlotStatus
}

// NewStatus returns a registry pre-populated with every configured channel
// in the pending state.
func NewStatus(cfg *Config) *Status {
	s := &Status{channels: make(map[ChannelID]*channelRecord)}
	for _, q := range cfg.Qualities {
		s.qualities = append(s.qualities, q.ID)
	}
	for i, ch := range cfg.Channels {
		rec := s.getOrCreateLocked(ch)
		rec.status.Title = cfg.Title(i)
	}
	return s
}

// SetState records the supervisor state for ch.
func (s *Status) SetState(ch ChannelID, state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getOrCreateLocked(ch).status.State = state
}

// SetFailed moves ch to the failed state with err as its last error.
func (s *Status) SetFailed(ch ChannelID, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.getOrCreateLocked(ch)
	rec.status.State = StateFailed
	if err != nil {
		rec.status.LastError = err.Error()
	}
}

// SetError records a non-terminal error for ch.
func (s *Status) SetError(ch ChannelID, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.getOrCreateLocked(ch).status.LastError = err.Error()
	}
}

// StartSlot marks the (ch, slot.Quality) transcoder as active. A successful
// launch clears the channel's last error.
func (s *Status) StartSlot(ch ChannelID, slot SlotStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot.Active = true
	rec := s.getOrCreateLocked(ch)
	rec.status.LastError = ""
	rec.slots[slot.Quality] = &slot
}

// EndSlot marks the (ch, q) transcoder as gone. The last track and run ID
// are kept for inspection.
func (s *Status) EndSlot(ch ChannelID, q QualityID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slot, ok := s.getOrCreateLocked(ch).slots[q]; ok {
		slot.Active = false
		slot.PID = 0
	}
}

// IncRotations counts one completed pass over all qualities for ch.
func (s *Status) IncRotations(ch ChannelID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getOrCreateLocked(ch).status.Rotations++
}

// Channel returns a copy of ch's status.
func (s *Status) Channel(ch ChannelID) (ChannelStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.channels[ch]
	if !ok {
		return ChannelStatus{}, false
	}
	return s.copyLocked(rec), true
}

// Snapshot returns copies of every channel in configured order.
func (s *Status) Snapshot() []ChannelStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ChannelStatus, 0, len(s.order))
	for _, ch := range s.order {
		out = append(out, s.copyLocked(s.channels[ch]))
	}
	return out
}

// ActiveTranscoders counts slots with a live transcoder.
func (s *Status) ActiveTranscoders() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, rec := range s.channels {
		for _, slot := range rec.slots {
			if slot.Active {
				n++
			}
		}
	}
	return n
}

// RunningSupervisors counts channels whose supervisor is still looping.
func (s *Status) RunningSupervisors() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, rec := range s.channels {
		if rec.status.State.Running() {
			n++
		}
	}
	return n
}

// getOrCreateLocked returns the record for ch, creating it when missing.
// Caller must hold s.mu in write mode.
func (s *Status) getOrCreateLocked(ch ChannelID) *channelRecord {
	if rec, ok := s.channels[ch]; ok {
		return rec
	}
	rec := &channelRecord{
		status: ChannelStatus{Channel: ch, Title: string(ch), State: StatePending},
		slots:  make(map[QualityID]*SlotStatus),
	}
	s.channels[ch] = rec
	s.order = append(s.order, ch)
	return rec
}

// copyLocked builds a detached ChannelStatus with slots in quality order.
// Caller must hold s.mu.
func (s *Status) copyLocked(rec *channelRecord) ChannelStatus {
	out := rec.status
	out.Slots = make([]SlotStatus, 0, len(rec.slots))
	for _, q := range s.qualities {
		if slot, ok := rec.slots[q]; ok {
			out.Slots = append(out.Slots, *slot)
		}
	}
	return out
}
