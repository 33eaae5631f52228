package api

import (
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/piotrcurious/Bluedisplay-piano/internal/dac"
	"github.com/piotrcurious/Bluedisplay-piano/internal/instrument"
	"github.com/piotrcurious/Bluedisplay-piano/internal/tone"
)

// Source names key events injected over HTTP.
const Source = "api"

const defaultCaptureSec = 1.0

type noteResponse struct {
	Name string `json:"name"`
	Freq int    `json:"frequencyHz"`
}

type stateResponse struct {
	Sounding        bool    `json:"sounding"`
	Label           string  `json:"label,omitempty"`
	FrequencyHz     int     `json:"frequencyHz"`
	Samples         uint64  `json:"samples"`
	PeriodsComplete uint64  `json:"periodsCompleted"`
	PeriodsAborted  uint64  `json:"periodsAborted"`
	DACWriteErrors  uint64  `json:"dacWriteErrors"`
	CaptureSec      float64 `json:"captureSec"`
}

// Server exposes the instrument over HTTP for inspection and testing
// without a display attached.
type Server struct {
	inst    *instrument.Instrument
	capture *dac.Capture
	stats   *tone.Stats
	apiKey  string
	logger  *zap.Logger
}

// New creates the API server. When apiKey is set, key presses and releases
// must carry it.
func New(inst *instrument.Instrument, capture *dac.Capture, stats *tone.Stats, apiKey string, logger *zap.Logger) *Server {
	return &Server{inst: inst, capture: capture, stats: stats, apiKey: apiKey, logger: logger}
}

// Handler returns the routed http.Handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.RequestID)
	r.Use(Logging(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", APIKeyHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", s.health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/notes", s.notes)
		r.Get("/state", s.state)
		r.Get("/capture.wav", s.captureWAV)
		r.Route("/keys/{label}", func(r chi.Router) {
			r.Use(RequireAPIKey(s.apiKey))
			r.Post("/press", s.press)
			r.Post("/release", s.release)
		})
	})
	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) notes(w http.ResponseWriter, r *http.Request) {
	table := s.inst.Notes()
	resp := make([]noteResponse, len(table))
	for i, n := range table {
		resp[i] = noteResponse{Name: n.Name, Freq: n.Freq}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) state(w http.ResponseWriter, r *http.Request) {
	label, hz, ok := s.inst.Sounding()
	resp := stateResponse{
		Sounding:        ok,
		Label:           label,
		FrequencyHz:     hz,
		Samples:         s.stats.Samples.Load(),
		PeriodsComplete: s.stats.PeriodsComplete.Load(),
		PeriodsAborted:  s.stats.PeriodsAborted.Load(),
		DACWriteErrors:  s.stats.WriteErrors.Load(),
		CaptureSec:      s.capture.Available(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) press(w http.ResponseWriter, r *http.Request) {
	label := chi.URLParam(r, "label")
	if !s.inst.OnKeyEvent(Source, label, true) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown key: " + label})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) release(w http.ResponseWriter, r *http.Request) {
	s.inst.OnKeyEvent(Source, chi.URLParam(r, "label"), false)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) captureWAV(w http.ResponseWriter, r *http.Request) {
	seconds := defaultCaptureSec
	if v := r.URL.Query().Get("seconds"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil || parsed <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "seconds must be a positive number"})
			return
		}
		seconds = parsed
	}

	// wav encoding seeks back to patch the header, so go through a file
	f, err := os.CreateTemp("", "piano-capture-*.wav")
	if err != nil {
		s.logger.Error("create capture file failed", zap.Error(err))
		http.Error(w, "capture failed", http.StatusInternalServerError)
		return
	}
	defer os.Remove(f.Name())
	defer f.Close()

	n, err := s.capture.WriteWAV(f, seconds)
	if err != nil {
		s.logger.Error("encode capture failed", zap.Error(err))
		http.Error(w, "capture failed", http.StatusInternalServerError)
		return
	}
	if _, err := f.Seek(0, 0); err != nil {
		http.Error(w, "capture failed", http.StatusInternalServerError)
		return
	}

	s.logger.Debug("capture served", zap.Int("samples", n), zap.Float64("seconds", seconds))
	w.Header().Set("Content-Type", "audio/wav")
	http.ServeContent(w, r, "capture.wav", time.Now(), f)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
