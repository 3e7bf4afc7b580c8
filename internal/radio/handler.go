package radio

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"hls-radio/internal/platform/metrics"

	"github.com/go-chi/chi/v5"
)

const (
	playlistContentType = "application/vnd.apple.mpegurl"
	invalidResourceBody = "Invalid channel or quality"
)

var contentTypes = map[string]string{
	".m3u8": playlistContentType,
	".ts":   "video/mp2t",
	".aac":  "audio/aac",
	".m4s":  "video/iso.segment",
}

// Handler serves the files written by the transcoders, plus the variant
// playlist and the supervisor status.
type Handler struct {
	cfg     *Config
	status  *Status
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewHandler returns a Handler over cfg's stream output root. Metrics may be
// nil.
func NewHandler(cfg *Config, status *Status, log *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{cfg: cfg, status: status, log: log, metrics: m}
}

// Routes registers the stream routes on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/status", h.GetStatus)
	r.Route("/stream/{channel}", func(r chi.Router) {
		r.Get("/master.m3u8", h.GetMasterPlaylist)
		r.Get("/index.m3u8", h.GetDefaultPlaylist)
		r.Get("/{segment}", h.GetDefaultSegment)
		r.Get("/{quality}/index.m3u8", h.GetPlaylist)
		r.Get("/{quality}/{segment}", h.GetSegment)
	})
}

// GetPlaylist handles GET /stream/{channel}/{quality}/index.m3u8.
func (h *Handler) GetPlaylist(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, chi.URLParam(r, "quality"), PlaylistName)
}

// GetSegment handles GET /stream/{channel}/{quality}/{segment}.
func (h *Handler) GetSegment(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, chi.URLParam(r, "quality"), chi.URLParam(r, "segment"))
}

// GetDefaultPlaylist handles GET /stream/{channel}/index.m3u8, an alias for
// the highest quality playlist.
func (h *Handler) GetDefaultPlaylist(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, string(h.cfg.Highest().ID), PlaylistName)
}

// GetDefaultSegment handles GET /stream/{channel}/{segment} against the
// highest quality output.
func (h *Handler) GetDefaultSegment(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, string(h.cfg.Highest().ID), chi.URLParam(r, "segment"))
}

// GetMasterPlaylist handles GET /stream/{channel}/master.m3u8.
func (h *Handler) GetMasterPlaylist(w http.ResponseWriter, r *http.Request) {
	if !h.cfg.HasChannel(ChannelID(chi.URLParam(r, "channel"))) {
		http.Error(w, invalidResourceBody, http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", playlistContentType)
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(BuildMasterPlaylist(h.cfg.Qualities)))
}

// GetStatus handles GET /status.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.status.Snapshot()); err != nil {
		h.log.Error("encode status failed", slog.String("error", err.Error()))
	}
}

// Resolve maps a request's channel, quality and file name onto a path inside
// the stream output root.
func (h *Handler) Resolve(channel, quality, name string) (string, error) {
	ch := ChannelID(channel)
	if !h.cfg.HasChannel(ch) {
		return "", ErrUnknownChannel
	}
	q, ok := h.cfg.Quality(QualityID(quality))
	if !ok {
		return "", ErrUnknownQuality
	}
	if !validResourceName(name) {
		return "", ErrInvalidResource
	}
	return filepath.Join(h.cfg.OutputDir(ch, q.ID), name), nil
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request, quality, name string) {
	channel := chi.URLParam(r, "channel")
	path, err := h.Resolve(channel, quality, name)
	if err != nil {
		h.log.Debug("stream request rejected",
			slog.String("channel", channel),
			slog.String("quality", quality),
			slog.String("name", name),
			slog.String("error", err.Error()))
		if errors.Is(err, ErrInvalidResource) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, invalidResourceBody, http.StatusNotFound)
		return
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			http.NotFound(w, r)
			return
		}
		h.log.Error("open stream file failed", slog.String("path", path), slog.String("error", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}

	ext := strings.ToLower(filepath.Ext(name))
	if ct, ok := contentTypes[ext]; ok {
		w.Header().Set("Content-Type", ct)
	}
	kind := "segment"
	if ext == ".m3u8" {
		kind = "playlist"
		w.Header().Set("Cache-Control", "no-cache")
	}
	if h.metrics != nil {
		h.metrics.IncFilesServed(channel, quality, kind)
	}
	http.ServeContent(w, r, name, info.ModTime(), f)
}

// validResourceName accepts a single, non-hidden path element.
func validResourceName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return false
	}
	return filepath.Base(name) == name
}
