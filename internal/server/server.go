// Package server exposes the compiler over HTTP.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	gen "github.com/cbegin/gen-go"
	"github.com/cbegin/gen-go/internal/scores"
)

const (
	maxSourceBytes  = 1 << 20
	requestIDHeader = "X-Request-Id"
)

type Config struct {
	Scores *scores.Library
	// AllowedOrigins defaults to any origin.
	AllowedOrigins []string
	Logger         *slog.Logger
}

type Server struct {
	scores  *scores.Library
	log     *slog.Logger
	handler http.Handler
}

func New(cfg Config) *Server {
	s := &Server{scores: cfg.Scores, log: cfg.Logger}
	if s.scores == nil {
		s.scores = scores.Examples()
	}
	if s.log == nil {
		s.log = slog.Default()
	}

	router := mux.NewRouter().StrictSlash(true)
	router.HandleFunc("/compile", s.handleCompile).Methods(http.MethodPost)
	router.HandleFunc("/playback", s.handlePlayback).Methods(http.MethodPost)
	router.HandleFunc("/midi", s.handleMIDI).Methods(http.MethodPost)
	router.HandleFunc("/chord", s.handleChord).Methods(http.MethodPost)
	router.HandleFunc("/scores", s.handleListScores).Methods(http.MethodGet)
	router.HandleFunc("/scores/{name}", s.handleGetScore).Methods(http.MethodGet)
	router.HandleFunc("/scores/{name}/musicxml", s.handleScoreXML).Methods(http.MethodGet)
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodGet)

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
	})
	sentryHandler := sentryhttp.New(sentryhttp.Options{Repanic: false})

	s.handler = s.requestID(s.logRequests(c.Handler(sentryHandler.Handle(router))))
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

type ctxKey int

const requestIDKey ctxKey = 0

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
			"request_id", requestIDFrom(r.Context()),
		)
	})
}

// compileOptions reads clef, octave, group, transpose and checked from the
// query string. Scores are validated unless checked=false.
func compileOptions(r *http.Request) (gen.CompileOptions, error) {
	q := r.URL.Query()
	opts := gen.CompileOptions{
		Clef:            q.Get("clef"),
		InstrumentGroup: q.Get("group"),
		TransposeKey:    q.Get("transpose"),
		Checked:         true,
	}
	if v := q.Get("octave"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return opts, fmt.Errorf("invalid octave %q", v)
		}
		opts.OctaveShift = n
	}
	if v := q.Get("checked"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, fmt.Errorf("invalid checked %q", v)
		}
		opts.Checked = b
	}
	return opts, nil
}

func readSource(w http.ResponseWriter, r *http.Request) (string, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxSourceBytes))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(body), nil
}

// sourceAndOptions reads a request carrying a score. It writes the error
// response itself and reports false on failure.
func (s *Server) sourceAndOptions(w http.ResponseWriter, r *http.Request) (string, gen.CompileOptions, bool) {
	opts, err := compileOptions(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return "", opts, false
	}
	src, err := readSource(w, r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return "", opts, false
	}
	return src, opts, true
}

func (s *Server) handleCompile(w http.ResponseWriter, r *http.Request) {
	src, opts, ok := s.sourceAndOptions(w, r)
	if !ok {
		return
	}
	xml, err := gen.CompileWithOptions(src, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", gen.MediaType)
	_, _ = io.WriteString(w, xml)
}

func (s *Server) handlePlayback(w http.ResponseWriter, r *http.Request) {
	src, opts, ok := s.sourceAndOptions(w, r)
	if !ok {
		return
	}
	data, err := gen.GeneratePlaybackData(src, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

func (s *Server) handleMIDI(w http.ResponseWriter, r *http.Request) {
	src, opts, ok := s.sourceAndOptions(w, r)
	if !ok {
		return
	}
	data, err := gen.GeneratePlaybackData(src, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	md, err := gen.ReadMetadata(src)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	midiOpts := gen.MIDIOptionsFor(md)
	midiOpts.NoChords = r.URL.Query().Get("chords") == "false"
	var buf bytes.Buffer
	if err := gen.WriteMIDI(&buf, data, midiOpts); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "audio/midi")
	_, _ = buf.WriteTo(w)
}

type chordRequest struct {
	Symbol string `json:"symbol"`
}

type chordResponse struct {
	Symbol    string `json:"symbol"`
	MIDINotes []int  `json:"midiNotes"`
}

func (s *Server) handleChord(w http.ResponseWriter, r *http.Request) {
	var req chordRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSourceBytes)).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	notes := gen.ParseChordSymbol(req.Symbol)
	if notes == nil {
		notes = []int{}
	}
	writeJSON(w, http.StatusOK, chordResponse{Symbol: req.Symbol, MIDINotes: notes})
}

func (s *Server) handleListScores(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.scores.List())
}

type scoreDetail struct {
	scores.Score
	Source string `json:"source"`
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (scores.Score, bool) {
	name := mux.Vars(r)["name"]
	sc, ok := s.scores.Get(name)
	if !ok {
		writeMessage(w, http.StatusNotFound, "no score named "+name)
	}
	return sc, ok
}

func (s *Server) handleGetScore(w http.ResponseWriter, r *http.Request) {
	sc, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, scoreDetail{Score: sc, Source: sc.Source})
}

func (s *Server) handleScoreXML(w http.ResponseWriter, r *http.Request) {
	sc, ok := s.lookup(w, r)
	if !ok {
		return
	}
	opts, err := compileOptions(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	xml, err := gen.CompileWithOptions(sc.Source, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", gen.MediaType)
	_, _ = io.WriteString(w, xml)
}

type errorBody struct {
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
	Measure int    `json:"measure,omitempty"`
}

// writeError maps compiler errors to 422 and reports anything else.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		pe *gen.ParseError
		me *gen.MetadataError
		se *gen.SemanticError
	)
	switch {
	case errors.As(err, &pe):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Message: pe.Message, Line: pe.Line, Column: pe.Column})
	case errors.As(err, &me):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Message: me.Error()})
	case errors.As(err, &se):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{
			Message: fmt.Sprintf("Measure %d: %s", se.Measure, se.Message),
			Measure: se.Measure,
		})
	default:
		hub := sentry.GetHubFromContext(r.Context())
		if hub == nil {
			hub = sentry.CurrentHub()
		}
		hub.CaptureException(err)
		s.log.Error("request failed", "path", r.URL.Path, "request_id", requestIDFrom(r.Context()), "error", err)
		writeMessage(w, http.StatusInternalServerError, "internal error")
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
