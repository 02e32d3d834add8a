// Package httpapi exposes the recorder over HTTP: session control, live
// snapshot events over a websocket, artifact download and the library.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"voice-recorder/internal/audioutil"
	"voice-recorder/internal/domain"
	"voice-recorder/internal/infra/blobref"
	"voice-recorder/internal/infra/library"
)

const writeWait = 10 * time.Second

type Controller interface {
	Start(ctx context.Context)
	Stop()
	Discard()
	Snapshot() domain.Snapshot
}

type BlobResolver interface {
	Resolve(ref string) (*domain.Artifact, bool)
}

type Library interface {
	Save(ctx context.Context, name string, artifact *domain.Artifact, opts ...library.SaveOption) (library.Entry, error)
	List() []library.Entry
	Get(id string) (library.Entry, bool)
	Delete(id string) error
}

type Config struct {
	Addr              string
	RequestsPerMinute int
	Burst             int
	// Quality drives the size estimate reported while recording.
	Quality domain.Quality
}

type Server struct {
	cfg      Config
	recorder Controller
	blobs    BlobResolver
	library  Library
	hub      *Hub
	limiter  *RateLimiter
	logger   *slog.Logger
	router   *mux.Router
	upgrader websocket.Upgrader
}

func NewServer(cfg Config, recorder Controller, blobs BlobResolver, lib Library, hub *Hub, logger *slog.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		recorder: recorder,
		blobs:    blobs,
		library:  lib,
		hub:      hub,
		limiter:  NewRateLimiter(cfg.RequestsPerMinute, cfg.Burst),
		logger:   logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()

	// Control endpoints are rate limited. They sit on the root router so a
	// wrong method answers 405 rather than 404.
	limited := func(h http.HandlerFunc) http.Handler {
		return s.limiter.Middleware(h)
	}
	r.Handle("/recording/start", limited(s.handleStart)).Methods(http.MethodPost)
	r.Handle("/recording/stop", limited(s.handleStop)).Methods(http.MethodPost)
	r.Handle("/recording/discard", limited(s.handleDiscard)).Methods(http.MethodPost)
	r.Handle("/recording/save", limited(s.handleSave)).Methods(http.MethodPost)
	r.Handle("/recordings/{id}", limited(s.handleDeleteRecording)).Methods(http.MethodDelete)

	r.HandleFunc("/recording", s.handleSnapshot).Methods(http.MethodGet)
	r.HandleFunc("/recording/events", s.handleEvents).Methods(http.MethodGet)
	r.HandleFunc("/blobs/{id}", s.handleBlob).Methods(http.MethodGet)
	r.HandleFunc("/recordings", s.handleRecordings).Methods(http.MethodGet)
	r.HandleFunc("/recordings/{id}", s.handleRecording).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	return r
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // websocket streams outlive any fixed deadline
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("control server starting", "addr", s.cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("serving: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("graceful shutdown failed, forcing close", "error", err)
		if err := server.Close(); err != nil {
			return fmt.Errorf("closing server: %w", err)
		}
	}
	s.logger.Info("control server stopped")
	return nil
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	s.recorder.Start(r.Context())
	s.writeJSON(w, http.StatusOK, s.toResponse(s.recorder.Snapshot()))
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.recorder.Stop()
	s.writeJSON(w, http.StatusOK, s.toResponse(s.recorder.Snapshot()))
}

func (s *Server) handleDiscard(w http.ResponseWriter, r *http.Request) {
	s.recorder.Discard()
	s.writeJSON(w, http.StatusOK, s.toResponse(s.recorder.Snapshot()))
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.toResponse(s.recorder.Snapshot()))
}

type saveRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	body, err := io.ReadAll(io.LimitReader(r.Body, 4096))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			http.Error(w, "invalid JSON body", http.StatusBadRequest)
			return
		}
	}

	snap := s.recorder.Snapshot()
	if snap.Status != domain.StatusStopped || snap.Artifact == nil {
		http.Error(w, "no finished recording to save", http.StatusConflict)
		return
	}

	entry, err := s.library.Save(r.Context(), req.Name, snap.Artifact, library.WithColor(req.Color))
	if err != nil {
		s.logger.Error("saving recording", "error", err)
		http.Error(w, "failed to save recording", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleRecordings(w http.ResponseWriter, r *http.Request) {
	entries := s.library.List()
	if entries == nil {
		entries = []library.Entry{}
	}
	s.writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleRecording(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.library.Get(mux.Vars(r)["id"])
	if !ok {
		http.Error(w, "recording not found", http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleDeleteRecording(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.library.Delete(id); err != nil {
		if errors.Is(err, library.ErrNotFound) {
			http.Error(w, "recording not found", http.StatusNotFound)
			return
		}
		s.logger.Error("deleting recording", "id", id, "error", err)
		http.Error(w, "failed to delete recording", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleBlob serves the artifact bytes, or their base64 text when the query
// asks for encoding=base64.
func (s *Server) handleBlob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	artifact, ok := s.blobs.Resolve(id)
	if !ok {
		http.Error(w, "blob not found", http.StatusNotFound)
		return
	}

	body := artifact.Data
	contentType := artifact.MimeType
	switch encoding := r.URL.Query().Get("encoding"); encoding {
	case "":
	case "base64":
		body = []byte(audioutil.EncodeBase64(artifact))
		contentType = "text/plain; charset=utf-8"
	default:
		http.Error(w, fmt.Sprintf("unsupported encoding %q", encoding), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		s.logger.Warn("writing blob", "id", id, "error", err)
	}
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrading events connection", "error", err)
		return
	}
	defer conn.Close()

	events, unsubscribe := s.hub.Subscribe()
	defer unsubscribe()

	// The client sends nothing; reading only detects when it goes away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	s.logger.Debug("events subscriber connected", "remote_addr", r.RemoteAddr)

	if err := s.sendSnapshot(conn, s.recorder.Snapshot()); err != nil {
		return
	}

	for {
		select {
		case <-gone:
			return
		case snap, ok := <-events:
			if !ok {
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
				return
			}
			if err := s.sendSnapshot(conn, snap); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					s.logger.Debug("writing event", "error", err)
				}
				return
			}
		}
	}
}

func (s *Server) sendSnapshot(conn *websocket.Conn, snap domain.Snapshot) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(s.toResponse(snap))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.recorder.Snapshot()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"supported":   snap.Supported,
		"recording":   snap.Recording,
		"subscribers": s.hub.Subscribers(),
		"clients":     s.limiter.Clients(),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("encoding response", "error", err)
	}
}

type errorResponse struct {
	Kind    domain.ErrorKind `json:"kind"`
	Message string           `json:"message"`
}

type snapshotResponse struct {
	Status         domain.Status  `json:"status"`
	Recording      bool           `json:"recording"`
	HasRecording   bool           `json:"has_recording"`
	ElapsedSeconds int            `json:"elapsed_seconds"`
	Elapsed        string         `json:"elapsed"`
	Supported      bool           `json:"supported"`
	ChunkCount     int            `json:"chunk_count"`
	Reference      string         `json:"reference,omitempty"`
	BlobURL        string         `json:"blob_url,omitempty"`
	MimeType       string         `json:"mime_type,omitempty"`
	Size           int            `json:"size,omitempty"`
	SizeLabel      string         `json:"size_label,omitempty"`
	EstimatedSize  int64          `json:"estimated_size,omitempty"`
	Error          *errorResponse `json:"error,omitempty"`
}

func (s *Server) toResponse(snap domain.Snapshot) snapshotResponse {
	resp := snapshotResponse{
		Status:         snap.Status,
		Recording:      snap.Recording,
		HasRecording:   snap.HasRecording,
		ElapsedSeconds: snap.ElapsedSeconds,
		Elapsed:        audioutil.FormatDuration(snap.ElapsedSeconds),
		Supported:      snap.Supported,
		ChunkCount:     snap.ChunkCount,
	}
	if snap.Recording {
		resp.EstimatedSize = audioutil.EstimateFileSize(snap.ElapsedSeconds, s.cfg.Quality)
	}
	if !snap.Reference.IsZero() {
		resp.Reference = string(snap.Reference)
		resp.BlobURL = "/blobs/" + blobref.ID(snap.Reference)
	}
	if snap.Artifact != nil {
		resp.MimeType = snap.Artifact.MimeType
		resp.Size = snap.Artifact.Size()
		resp.SizeLabel = audioutil.FormatFileSize(int64(snap.Artifact.Size()))
	}
	if snap.Error != nil {
		resp.Error = &errorResponse{Kind: snap.Error.Kind, Message: snap.Error.Message}
	}
	return resp
}
