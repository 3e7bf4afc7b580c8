package radio

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Defaults applied by NewConfig.
const (
	DefaultRotationInterval  = 5 * time.Minute  // time each transcoder streams one track
	DefaultStopTimeout       = 10 * time.Second // grace period before a stop escalates to kill
	DefaultLaunchMaxAttempts = 5
	DefaultLaunchBackoff     = 2 * time.Second // first delay between launch attempts, doubled after each

	// maxLaunchBackoff caps the doubling delay between launch attempts.
	maxLaunchBackoff = 30 * time.Second
)

// DefaultAudioExtensions are the file suffixes eligible for playback.
var DefaultAudioExtensions = []string{".mp3", ".wav"}

// DefaultQualities returns the stock profiles, highest first.
func DefaultQualities() []Quality {
	return []Quality{
		{ID: "hq", Bitrate: 256_000, SampleRate: 44100},
		{ID: "lq", Bitrate: 64_000, SampleRate: 22050},
	}
}

// Config is the relay configuration. It is built once at startup and shared
// read-only by every component.
type Config struct {
	Channels  []ChannelID
	Qualities []Quality // iteration order of each rotation cycle
	Titles    []string  // display titles by channel index

	ChannelDir  string // one audio subdirectory per channel
	SilenceFile string // background bed and empty-directory fallback
	StreamDir   string // output root: <StreamDir>/<channel>/<quality>/

	AudioExtensions []string
	FFmpegPath      string

	RotationInterval  time.Duration
	StopTimeout       time.Duration
	LaunchMaxAttempts int
	LaunchBackoff     time.Duration
}

// NewConfig returns a Config rooted at baseDir with the stock channels,
// profiles and timings. Callers override fields before calling Validate.
func NewConfig(baseDir string) *Config {
	return &Config{
		Channels:          []ChannelID{"ch1", "ch2"},
		Qualities:         DefaultQualities(),
		Titles:            append([]string(nil), fallbackTitles...),
		ChannelDir:        filepath.Join(baseDir, "channels"),
		SilenceFile:       filepath.Join(baseDir, "silence.wav"),
		StreamDir:         filepath.Join(baseDir, "streams"),
		AudioExtensions:   append([]string(nil), DefaultAudioExtensions...),
		FFmpegPath:        "ffmpeg",
		RotationInterval:  DefaultRotationInterval,
		StopTimeout:       DefaultStopTimeout,
		LaunchMaxAttempts: DefaultLaunchMaxAttempts,
		LaunchBackoff:     DefaultLaunchBackoff,
	}
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	if len(c.Channels) == 0 {
		return errors.New("config: no channels configured")
	}
	seen := make(map[ChannelID]bool, len(c.Channels))
	for _, ch := range c.Channels {
		if !validPathElement(string(ch)) {
			return fmt.Errorf("config: invalid channel name %q", ch)
		}
		if seen[ch] {
			return fmt.Errorf("config: duplicate channel %q", ch)
		}
		seen[ch] = true
	}

	if len(c.Qualities) == 0 {
		return errors.New("config: no quality profiles configured")
	}
	keys := make(map[QualityID]bool, len(c.Qualities))
	for _, q := range c.Qualities {
		if !validPathElement(string(q.ID)) {
			return fmt.Errorf("config: invalid quality key %q", q.ID)
		}
		if keys[q.ID] {
			return fmt.Errorf("config: duplicate quality %q", q.ID)
		}
		if q.Bitrate <= 0 || q.SampleRate <= 0 {
			return fmt.Errorf("config: quality %q needs a positive bitrate and sample rate", q.ID)
		}
		keys[q.ID] = true
	}

	if c.SilenceFile == "" || c.StreamDir == "" || c.ChannelDir == "" {
		return errors.New("config: channel dir, silence file and stream dir are required")
	}
	if c.FFmpegPath == "" {
		return errors.New("config: transcoder path is required")
	}
	if c.RotationInterval <= 0 || c.StopTimeout <= 0 || c.LaunchBackoff <= 0 {
		return errors.New("config: intervals must be positive")
	}
	if c.LaunchMaxAttempts < 1 {
		return errors.New("config: at least one launch attempt is required")
	}
	return nil
}

// validPathElement reports whether name can be used as a single directory
// name under the stream root.
func validPathElement(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.ContainsAny(name, `/\`)
}

// HasChannel reports whether ch is configured.
func (c *Config) HasChannel(ch ChannelID) bool {
	for _, known := range c.Channels {
		if known == ch {
			return true
		}
	}
	return false
}

// Quality looks up a profile by key.
func (c *Config) Quality(id QualityID) (Quality, bool) {
	for _, q := range c.Qualities {
		if q.ID == id {
			return q, true
		}
	}
	return Quality{}, false
}

// Highest returns the profile with the largest bitrate; the earliest
// configured one wins a tie.
func (c *Config) Highest() Quality {
	var best Quality
	for i, q := range c.Qualities {
		if i == 0 || q.Bitrate > best.Bitrate {
			best = q
		}
	}
	return best
}

// Title returns the display title for the channel at index, falling back to
// the channel name when no non-empty title is configured there.
func (c *Config) Title(index int) string {
	if index >= 0 && index < len(c.Titles) && c.Titles[index] != "" {
		return c.Titles[index]
	}
	if index >= 0 && index < len(c.Channels) {
		return string(c.Channels[index])
	}
	return ""
}

// AudioDir is the source directory for ch.
func (c *Config) AudioDir(ch ChannelID) string {
	return filepath.Join(c.ChannelDir, string(ch))
}

// OutputDir is the stream output directory for (ch, q).
func (c *Config) OutputDir(ch ChannelID, q QualityID) string {
	return filepath.Join(c.StreamDir, string(ch), string(q))
}

// ParseQualities parses an ordered "key:bitrate:samplerate" list, e.g.
// "hq:256k:44100,lq:64k:22050".
func ParseQualities(s string) ([]Quality, error) {
	var out []Quality
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		parts := strings.Split(item, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("quality %q: want key:bitrate:samplerate", item)
		}
		bitrate, err := ParseBitrate(parts[1])
		if err != nil {
			return nil, fmt.Errorf("quality %q: %w", item, err)
		}
		rate, err := strconv.Atoi(strings.TrimSpace(parts[2]))
		if err != nil || rate <= 0 {
			return nil, fmt.Errorf("quality %q: invalid sample rate %q", item, parts[2])
		}
		out = append(out, Quality{
			ID:         QualityID(strings.TrimSpace(parts[0])),
			Bitrate:    bitrate,
			SampleRate: rate,
		})
	}
	if len(out) == 0 {
		return nil, errors.New("no quality profiles")
	}
	return out, nil
}

// ParseBitrate accepts "256k", "1M" or a plain bits-per-second integer.
func ParseBitrate(s string) (int, error) {
	s = strings.TrimSpace(s)
	mult := 1
	switch {
	case strings.HasSuffix(s, "k"), strings.HasSuffix(s, "K"):
		mult, s = 1000, s[:len(s)-1]
	case strings.HasSuffix(s, "M"):
		mult, s = 1_000_000, s[:len(s)-1]
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid bitrate %q", s)
	}
	return n * mult, nil
}

// FormatBitrate renders a bitrate the way ffmpeg's -b:a expects it.
func FormatBitrate(bps int) string {
	if bps%1000 == 0 {
		return strconv.Itoa(bps/1000) + "k"
	}
	return strconv.Itoa(bps)
}
