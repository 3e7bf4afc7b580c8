package radio

import (
	"errors"
	"sync"
	"testing"
)

func TestNewStatus(t *testing.T) {
	cfg := NewConfig(t.TempDir())
	cfg.Titles = []string{"Morning"}
	s := NewStatus(cfg)

	snap := s.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("expected 2 channels, got %d", len(snap))
	}
	if snap[0].Channel != "ch1" || snap[0].Title != "Morning" || snap[0].State != StatePending {
		t.Errorf("ch1: %+v", snap[0])
	}
	if snap[1].Channel != "ch2" || snap[1].Title != "ch2" {
		t.Errorf("ch2: %+v", snap[1])
	}
	if s.RunningSupervisors() != 0 || s.ActiveTranscoders() != 0 {
		t.Error("nothing should be running yet")
	}
}

func TestStatus_slots(t *testing.T) {
	s := NewStatus(NewConfig(t.TempDir()))

	s.SetState("ch1", StateStreaming)
	s.StartSlot("ch1", SlotStatus{Quality: "lq", Track: "/a.mp3", RunID: "r1", PID: 42})
	s.StartSlot("ch1", SlotStatus{Quality: "hq", Track: "/b.mp3", RunID: "r2", PID: 43})

	if got := s.ActiveTranscoders(); got != 2 {
		t.Errorf("active: %d", got)
	}
	if got := s.RunningSupervisors(); got != 1 {
		t.Errorf("running: %d", got)
	}

	ch, ok := s.Channel("ch1")
	if !ok || len(ch.Slots) != 2 {
		t.Fatalf("Channel: ok=%v %+v", ok, ch)
	}
	if ch.Slots[0].Quality != "hq" || ch.Slots[1].Quality != "lq" {
		t.Errorf("slots should follow quality order: %+v", ch.Slots)
	}

	s.EndSlot("ch1", "hq")
	ch, _ = s.Channel("ch1")
	if ch.Slots[0].Active || ch.Slots[0].PID != 0 || ch.Slots[0].Track != "/b.mp3" {
		t.Errorf("ended slot: %+v", ch.Slots[0])
	}
	if got := s.ActiveTranscoders(); got != 1 {
		t.Errorf("active after end: %d", got)
	}
}

func TestStatus_failed_and_rotations(t *testing.T) {
	s := NewStatus(NewConfig(t.TempDir()))
	s.IncRotations("ch2")
	s.IncRotations("ch2")
	s.SetFailed("ch2", errors.New("ffmpeg missing"))

	ch, _ := s.Channel("ch2")
	if ch.State != StateFailed || ch.LastError != "ffmpeg missing" || ch.Rotations != 2 {
		t.Errorf("ch2: %+v", ch)
	}
	if _, ok := s.Channel("bogus"); ok {
		t.Error("unknown channel should not be found")
	}
}

func TestStatus_StartSlot_clears_last_error(t *testing.T) {
	s := NewStatus(NewConfig(t.TempDir()))
	s.SetError("ch1", errors.New("launch attempt 1 failed"))
	if ch, _ := s.Channel("ch1"); ch.LastError == "" {
		t.Fatal("error not recorded")
	}

	s.StartSlot("ch1", SlotStatus{Quality: "hq", PID: 9})
	if ch, _ := s.Channel("ch1"); ch.LastError != "" {
		t.Errorf("recovered error still reported: %q", ch.LastError)
	}
}

func TestStatus_snapshot_is_a_copy(t *testing.T) {
	s := NewStatus(NewConfig(t.TempDir()))
	s.StartSlot("ch1", SlotStatus{Quality: "hq", Track: "/a.mp3"})

	snap := s.Snapshot()
	snap[0].Slots[0].Track = "mutated"
	snap[0].State = StateFailed

	ch, _ := s.Channel("ch1")
	if ch.Slots[0].Track != "/a.mp3" || ch.State != StatePending {
		t.Errorf("registry changed through snapshot: %+v", ch)
	}
}

func TestStatus_concurrent_access(t *testing.T) {
	s := NewStatus(NewConfig(t.TempDir()))
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ch := ChannelID("ch1")
			if i%2 == 0 {
				ch = "ch2"
			}
			for j := 0; j < 100; j++ {
				s.SetState(ch, StateStreaming)
				s.StartSlot(ch, SlotStatus{Quality: "hq"})
				_ = s.Snapshot()
				_ = s.ActiveTranscoders()
				s.EndSlot(ch, "hq")
				s.IncRotations(ch)
			}
		}(i)
	}
	wg.Wait()

	var total int64
	for _, ch := range s.Snapshot() {
		total += ch.Rotations
	}
	if total != 800 {
		t.Errorf("expected 800 rotations, got %d", total)
	}
}
