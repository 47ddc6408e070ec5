package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gen "github.com/cbegin/gen-go"
	"github.com/cbegin/gen-go/internal/midifile"
	"github.com/cbegin/gen-go/internal/scores"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	lib, err := scores.LoadFS(fstest.MapFS{
		"scale.gen": {Data: []byte("---\ntitle: Scale\n---\nC D E F\nG A B ^C")},
		"short.gen": {Data: []byte("C D E")},
	})
	require.NoError(t, err)
	return New(Config{Scores: lib, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
}

func do(s *Server, method, target string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestCompile(t *testing.T) {
	s := newTestServer(t)
	rec := do(s, http.MethodPost, "/compile", "C D E F")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, gen.MediaType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "<score-partwise")

	rec = do(s, http.MethodPost, "/compile?clef=bass", "C D E F")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<sign>F</sign>")
}

func TestCompileErrors(t *testing.T) {
	s := newTestServer(t)

	rec := do(s, http.MethodPost, "/compile", "C [D E")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, 1, body.Line)
	assert.NotZero(t, body.Column)
	assert.NotEmpty(t, body.Message)

	rec = do(s, http.MethodPost, "/compile", "C D E")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body = decodeError(t, rec)
	assert.Equal(t, 1, body.Measure)
	assert.True(t, strings.HasPrefix(body.Message, "Measure 1: "), body.Message)

	rec = do(s, http.MethodPost, "/compile?checked=false", "C D E")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(s, http.MethodPost, "/compile", "---\ntempo: fast\n---\nC D E F")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.True(t, strings.HasPrefix(decodeError(t, rec).Message, "Invalid metadata: "))

	rec = do(s, http.MethodPost, "/compile?octave=high", "C D E F")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPlayback(t *testing.T) {
	s := newTestServer(t)
	rec := do(s, http.MethodPost, "/playback", "---\ntempo: 90\n---\nC D E F")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var data gen.PlaybackData
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &data))
	assert.Equal(t, 90, data.Tempo)
	require.Len(t, data.Notes, 4)
	assert.Equal(t, 60, data.Notes[0].MIDINote)
	assert.Equal(t, "60_0.000", data.Notes[0].OSMDMatchKey)
}

func TestMIDI(t *testing.T) {
	s := newTestServer(t)
	rec := do(s, http.MethodPost, "/midi", "{C}C D E F")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/midi", rec.Header().Get("Content-Type"))
	notes, err := midifile.ReadNotes(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Len(t, notes, 4+3)

	rec = do(s, http.MethodPost, "/midi?chords=false", "{C}C D E F")
	require.Equal(t, http.StatusOK, rec.Code)
	notes, err = midifile.ReadNotes(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Len(t, notes, 4)
}

func TestChord(t *testing.T) {
	s := newTestServer(t)
	rec := do(s, http.MethodPost, "/chord", `{"symbol":"Am7"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp chordResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []int{57, 60, 64, 67}, resp.MIDINotes)

	rec = do(s, http.MethodPost, "/chord", `{"symbol":"H"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"symbol":"H","midiNotes":[]}`, rec.Body.String())

	rec = do(s, http.MethodPost, "/chord", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScores(t *testing.T) {
	s := newTestServer(t)
	rec := do(s, http.MethodGet, "/scores", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"name":"scale","title":"Scale"},{"name":"short","title":"short"}]`, rec.Body.String())

	rec = do(s, http.MethodGet, "/scores/scale", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var detail map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	assert.Equal(t, "Scale", detail["title"])
	assert.Contains(t, detail["source"], "G A B ^C")

	rec = do(s, http.MethodGet, "/scores/scale/musicxml", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<work-title>Scale</work-title>")

	rec = do(s, http.MethodGet, "/scores/short/musicxml", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	rec = do(s, http.MethodGet, "/scores/short/musicxml?checked=false", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(s, http.MethodGet, "/scores/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRequestID(t *testing.T) {
	s := newTestServer(t)
	rec := do(s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Len(t, rec.Header().Get(requestIDHeader), 36)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "abc")
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Equal(t, "abc", rec.Header().Get(requestIDHeader))
}

func TestCORS(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/compile", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = do(s, http.MethodGet, "/compile", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
