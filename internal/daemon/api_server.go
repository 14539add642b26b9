package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"automerge/internal/api"
	"automerge/internal/config"
	"automerge/internal/logging"
	"automerge/internal/tasks"
)

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || d == nil {
		return nil, nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, nil
	}

	srv := &apiServer{
		bind:   bind,
		logger: logging.NewComponentLogger(logger, "api-server"),
		daemon: d,
	}
	srv.server = &http.Server{
		Handler:           srv.routes(strings.TrimSpace(cfg.Paths.APIToken)),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Targeted splits run inside the request.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) routes(token string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", authMiddleware(token, s.handleStatus))
	mux.HandleFunc("POST /api/tasks/{key}", authMiddleware(token, s.handleTrigger))
	mux.HandleFunc("POST /api/split", authMiddleware(token, s.handleSplit))
	mux.HandleFunc("GET /api/providers", authMiddleware(token, s.handleProviders))
	mux.HandleFunc("GET /api/groups", authMiddleware(token, s.handleGroups))
	mux.HandleFunc("GET /MergeMovies/Split/{type}/{value}", authMiddleware(token, s.handleSplitByPath))
	return mux
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening",
		logging.String("address", listener.Addr().String()),
		logging.String(logging.FieldEventType, "api_listening"),
	)
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
}

func (s *apiServer) addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleStatus(w http.ResponseWriter, _ *http.Request) {
	status := s.daemon.Status()
	s.writeJSON(w, http.StatusOK, api.DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		StartedAt:    api.FormatTime(status.StartedAt),
		Backend:      status.Backend,
		LockFilePath: status.LockFilePath,
		AutoMerge:    status.AutoMerge,
		Tasks:        status.Tasks,
	})
}

func (s *apiServer) handleTrigger(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	runID, err := s.daemon.TriggerTask(key, TriggerManual)
	switch {
	case errors.Is(err, ErrUnknownTask):
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, tasks.ErrAlreadyRunning):
		s.writeError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, ErrNotRunning):
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	case err != nil:
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusAccepted, api.TriggerResponse{Task: key, RunID: runID, Accepted: true})
}

func (s *apiServer) handleSplit(w http.ResponseWriter, r *http.Request) {
	var req api.SplitRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	split, err := s.daemon.SplitByProvider(r.Context(), req.ProviderType, req.ProviderValue)
	if errors.Is(err, tasks.ErrInvalidInput) {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.SplitResponse{Split: split})
}

// handleSplitByPath answers with a bare JSON boolean, as media server plugins expect.
func (s *apiServer) handleSplitByPath(w http.ResponseWriter, r *http.Request) {
	split, err := s.daemon.SplitByProvider(r.Context(), r.PathValue("type"), r.PathValue("value"))
	if err != nil {
		logging.WarnWithContext(s.logger, "split by path failed", "split_request_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "caller receives false"),
		)
	}
	s.writeJSON(w, http.StatusOK, split && err == nil)
}

func (s *apiServer) handleProviders(w http.ResponseWriter, r *http.Request) {
	providers, err := s.daemon.Providers(r.Context())
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if providers == nil {
		providers = []string{}
	}
	s.writeJSON(w, http.StatusOK, api.ProvidersResponse{Providers: providers})
}

func (s *apiServer) handleGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := s.daemon.Groups(r.Context())
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if groups == nil {
		groups = []api.Group{}
	}
	s.writeJSON(w, http.StatusOK, api.GroupsResponse{Groups: groups})
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}
