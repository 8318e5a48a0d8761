// Package api exposes the engine's control surface over HTTP: strategy
// listings and backtest management.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/breeze-labs/breeze/internal/backtest"
	"github.com/breeze-labs/breeze/internal/engine"
	"github.com/breeze-labs/breeze/internal/logger"
	"github.com/breeze-labs/breeze/pkg/errors"
)

const shutdownGrace = 5 * time.Second

// StrategyView is the API shape of a registered strategy.
type StrategyView struct {
	Identifier         string `json:"identifier"`
	RunEverySeconds    int64  `json:"runEverySeconds"`
	CancelAfterSeconds int64  `json:"cancelAfterSeconds"`
	Replayable         bool   `json:"replayable"`
}

// BacktestRequest is the payload for starting a backtest.
type BacktestRequest struct {
	Strategy       string `json:"strategy"`
	PoolIdentifier string `json:"poolIdentifier"`
	FromTimestamp  int64  `json:"fromTimestamp"`
	ToTimestamp    int64  `json:"toTimestamp"`
}

// Server is the control API over one engine.
type Server struct {
	engine  *engine.Engine
	replays *backtest.Engine
	log     *logger.Logger

	mu   sync.Mutex
	runs map[int64]*backtest.Run

	httpServer *http.Server
}

// NewServer creates a control server over the given engine and backtest
// engine.
func NewServer(eng *engine.Engine, replays *backtest.Engine, log *logger.Logger) *Server {
	return &Server{
		engine:  eng,
		replays: replays,
		log:     log,
		runs:    make(map[int64]*backtest.Run),
	}
}

// Router builds the HTTP routes.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/strategies", s.handleListStrategies).Methods(http.MethodGet)
	router.HandleFunc("/backtests", s.handleStartBacktest).Methods(http.MethodPost)
	router.HandleFunc("/backtests/{id}", s.handleBacktestStatus).Methods(http.MethodGet)
	router.HandleFunc("/backtests/{id}/orders", s.handleBacktestOrders).Methods(http.MethodGet)

	return router
}

// Start serves the API on the given port until Stop is called.
func (s *Server) Start(port int) {
	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.Router(),
	}

	go func() {
		s.log.Info("Control API listening", zap.Int("port", port))

		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("Control API failed", zap.Error(err))
		}
	}()
}

// Stop shuts the API down gracefully.
func (s *Server) Stop(ctx context.Context) {
	if s.httpServer == nil {
		return
	}

	graceCtx, cancel := context.WithTimeout(ctx, shutdownGrace)
	defer cancel()

	if err := s.httpServer.Shutdown(graceCtx); err != nil {
		s.log.Error("Control API shutdown failed", zap.Error(err))
	}
}

func (s *Server) handleListStrategies(w http.ResponseWriter, r *http.Request) {
	defs := s.engine.Strategies()

	views := make([]StrategyView, 0, len(defs))
	for _, def := range defs {
		views = append(views, StrategyView{
			Identifier:         def.Identifier,
			RunEverySeconds:    int64(def.RunEvery.Seconds()),
			CancelAfterSeconds: int64(def.CancelAfter.Seconds()),
			Replayable:         def.CanReplay(),
		})
	}

	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleStartBacktest(w http.ResponseWriter, r *http.Request) {
	var request BacktestRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(w, http.StatusBadRequest, "malformed backtest request")

		return
	}

	run, err := s.replays.NewRun(r.Context(), request.Strategy, request.PoolIdentifier, request.FromTimestamp, request.ToTimestamp)
	if err != nil {
		writeError(w, statusFor(err), err.Error())

		return
	}

	s.mu.Lock()
	s.runs[run.ID()] = run
	s.mu.Unlock()

	// The replay runs in the background; progress is polled via the
	// status endpoint.
	go func() {
		if err := s.replays.Execute(context.Background(), run); err != nil {
			s.log.Error("Backtest failed",
				zap.Int64("backtest", run.ID()),
				zap.Error(err),
			)
		}
	}()

	writeJSON(w, http.StatusAccepted, run.View())
}

func (s *Server) handleBacktestStatus(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookupRun(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, run.View())
}

func (s *Server) handleBacktestOrders(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookupRun(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, run.Orders())
}

func (s *Server) lookupRun(w http.ResponseWriter, r *http.Request) (*backtest.Run, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "backtest id must be an integer")

		return nil, false
	}

	s.mu.Lock()
	run, ok := s.runs[id]
	s.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no backtest with id %d", id))

		return nil, false
	}

	return run, true
}

func statusFor(err error) int {
	switch {
	case errors.HasCode(err, errors.ErrCodeStrategyNotFound):
		return http.StatusNotFound
	case errors.HasCode(err, errors.ErrCodeStrategyNotReplayable),
		errors.HasCode(err, errors.ErrCodeInvalidConfiguration):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
