package api

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MikeSquared-Agency/chatsplit/internal/chunk"
	"github.com/MikeSquared-Agency/chatsplit/internal/split"
)

// maxTranscriptBytes bounds request bodies; WhatsApp exports of several years
// stay well below it.
const maxTranscriptBytes = 64 << 20

type Server struct {
	router   *chi.Mux
	port     int
	apiToken string
	split    split.Config
	started  time.Time
}

func NewServer(port int, apiToken string, cfg split.Config) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:   router,
		port:     port,
		apiToken: apiToken,
		split:    cfg,
		started:  time.Now().UTC(),
	}

	router.Get("/health", s.health)
	router.Route("/api/v1/chatsplit", func(r chi.Router) {
		r.Get("/status", s.status)
		r.Group(func(r chi.Router) {
			r.Use(BearerAuthMiddleware(apiToken))
			r.Post("/chunks", s.chunks)
			r.Post("/size-check", s.sizeCheck)
		})
	})

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	slog.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

// BearerAuthMiddleware rejects requests without the configured bearer token.
// An empty token disables the check.
func BearerAuthMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service":    "chatsplit",
		"strategies": split.Strategies(),
		"themes":     s.split.Themes.Labels(),
		"started_at": s.started,
	})
}

type chunkView struct {
	ID       string         `json:"id"`
	Index    int            `json:"index"`
	Title    string         `json:"title"`
	Group    string         `json:"group"`
	Strategy chunk.Strategy `json:"strategy"`
	Overlap  int            `json:"overlap"`
	Hash     string         `json:"hash"`
	Content  string         `json:"content"`
	Metadata chunk.Metadata `json:"metadata"`
}

type chunksResponse struct {
	Label    string         `json:"label"`
	Strategy chunk.Strategy `json:"strategy"`
	Count    int            `json:"count"`
	Chunks   []chunkView    `json:"chunks"`
}

// chunks handles POST /api/v1/chatsplit/chunks?strategy=&label=&cutoff_year=
// with the raw transcript as body.
func (s *Server) chunks(w http.ResponseWriter, r *http.Request) {
	body, ok := readTranscript(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	strategy := chunk.Strategy(q.Get("strategy"))
	if strategy == "" {
		strategy = chunk.StrategyAuto
	}
	label := q.Get("label")
	if label == "" {
		label = "transcript"
	}

	cfg := s.split
	if v := q.Get("cutoff_year"); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "cutoff_year must be a number")
			return
		}
		cfg.CutoffYear = year
	}

	chunks, err := split.Run(strategy, body, label, cfg)
	if err != nil {
		if errors.Is(err, split.ErrUnknownStrategy) || errors.Is(err, split.ErrMissingCutoff) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := chunksResponse{Label: label, Strategy: strategy, Count: len(chunks), Chunks: make([]chunkView, 0, len(chunks))}
	for _, c := range chunks {
		resp.Chunks = append(resp.Chunks, chunkView{
			ID:       c.ID.String(),
			Index:    c.Index,
			Title:    c.Title,
			Group:    c.Group,
			Strategy: c.Strategy,
			Overlap:  c.Overlap,
			Hash:     c.Hash,
			Content:  c.Content(),
			Metadata: c.Metadata,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// sizeCheck handles POST /api/v1/chatsplit/size-check.
func (s *Server) sizeCheck(w http.ResponseWriter, r *http.Request) {
	body, ok := readTranscript(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"should_split": s.split.Policy.ShouldSplit(body),
		"lines":        chunk.LineCount(body),
		"bytes":        len(body),
		"tokens":       chunk.EstimateTokens(body),
	})
}

func readTranscript(w http.ResponseWriter, r *http.Request) (string, bool) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxTranscriptBytes))
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, "transcript too large")
			return "", false
		}
		writeError(w, http.StatusBadRequest, "read body: "+err.Error())
		return "", false
	}
	return string(data), true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
