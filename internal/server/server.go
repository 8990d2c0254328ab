package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/curiousTauseef/anyprog/internal/config"
	apperrors "github.com/curiousTauseef/anyprog/internal/errors"
	"github.com/curiousTauseef/anyprog/internal/logging"
	"github.com/curiousTauseef/anyprog/internal/metrics"
	"github.com/curiousTauseef/anyprog/internal/problem"
)

// Job states.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// JSON-RPC 2.0 error codes.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
)

const queueSize = 256

// OptimizationState represents the state of an optimization job.
// Fields are guarded by the server's jobs mutex.
type OptimizationState struct {
	ID          string
	Status      string
	StartTime   time.Time
	EndTime     *time.Time
	LastUpdated time.Time
	Problem     *problem.Definition
	Result      *problem.Result
	Err         string

	ctx        context.Context
	cancelFunc context.CancelFunc
}

func (s *OptimizationState) terminal() bool {
	switch s.Status {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// JobStatus is the externally visible view of an optimization job.
type JobStatus struct {
	ID          string          `json:"optimization_id"`
	Status      string          `json:"status"`
	StartTime   time.Time       `json:"start_time"`
	EndTime     *time.Time      `json:"end_time,omitempty"`
	LastUpdated time.Time       `json:"last_update"`
	Result      *problem.Result `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// Server implements the HTTP and JSON-RPC server for the optimization service.
// It manages optimization jobs and provides endpoints to start, monitor, and cancel them.
type Server struct {
	cfg     *config.Config
	logger  *logging.Logger
	zlog    *zap.Logger
	metrics *metrics.Metrics

	// Optimization state management
	optimizations   map[string]*OptimizationState
	optimizationsMu sync.RWMutex
	closed          bool

	queue chan *OptimizationState
	pool  *pool.Pool
	done  chan struct{}
}

// NewServer creates a server running at most cfg.Optimization.WorkerCount
// jobs at a time. A nil m registers the collectors with a private registry.
func NewServer(cfg *config.Config, logger *logging.Logger, m *metrics.Metrics) *Server {
	if m == nil {
		m = metrics.New(prometheus.NewRegistry())
	}
	workers := cfg.Optimization.WorkerCount
	if workers < 1 {
		workers = 1
	}
	s := &Server{
		cfg:           cfg,
		logger:        logger,
		zlog:          logging.NewZapLogger(logger).Named("optimizer"),
		metrics:       m,
		optimizations: make(map[string]*OptimizationState),
		queue:         make(chan *OptimizationState, queueSize),
		pool:          pool.New().WithMaxGoroutines(workers),
		done:          make(chan struct{}),
	}
	go s.dispatch()
	return s
}

func (s *Server) RegisterRoutes(r chi.Router) {
	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/optimize", s.handleOptimize)
		r.Get("/status/{id}", s.handleStatus)
		r.Delete("/optimization/{id}", s.handleCancel)
		r.Post("/assignment", s.handleAssignment)
		r.Post("/tsp", s.handleTSP)
	})

	// JSON-RPC 2.0 endpoint
	r.Post("/rpc", s.handleJSONRPC)
}

// dispatch hands queued jobs to the worker pool until the queue is closed.
func (s *Server) dispatch() {
	defer close(s.done)
	for state := range s.queue {
		state := state
		s.pool.Go(func() { s.runOptimization(state) })
	}
	s.pool.Wait()
}

// StartOptimization validates the problem and queues it as a new job.
func (s *Server) StartOptimization(def *problem.Definition) (*JobStatus, error) {
	if def == nil {
		return nil, apperrors.InvalidInput(fmt.Errorf("missing problem"))
	}
	if err := def.Validate(); err != nil {
		return nil, apperrors.InvalidInput(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	now := time.Now()
	state := &OptimizationState{
		ID:          uuid.NewString(),
		Status:      StatusPending,
		StartTime:   now,
		LastUpdated: now,
		Problem:     def,
		ctx:         ctx,
		cancelFunc:  cancel,
	}

	s.optimizationsMu.Lock()
	defer s.optimizationsMu.Unlock()
	if s.closed {
		cancel()
		return nil, apperrors.New("server is shutting down").WithStatus(http.StatusServiceUnavailable)
	}
	select {
	case s.queue <- state:
	default:
		cancel()
		return nil, apperrors.New("optimization queue is full").WithStatus(http.StatusServiceUnavailable)
	}
	s.optimizations[state.ID] = state

	s.logger.Info("Optimization queued", map[string]interface{}{
		"optimization_id": state.ID,
		"objective":       def.Objective,
		"mode":            def.Mode,
	})
	return statusOf(state), nil
}

// OptimizationStatus returns the state of job id.
func (s *Server) OptimizationStatus(id string) (*JobStatus, error) {
	s.optimizationsMu.RLock()
	defer s.optimizationsMu.RUnlock()

	state, exists := s.optimizations[id]
	if !exists {
		return nil, apperrors.NotFound("optimization", id)
	}
	return statusOf(state), nil
}

// CancelOptimization cancels a pending or running job.
func (s *Server) CancelOptimization(id string) (*JobStatus, error) {
	s.optimizationsMu.Lock()
	defer s.optimizationsMu.Unlock()

	state, exists := s.optimizations[id]
	if !exists {
		return nil, apperrors.NotFound("optimization", id)
	}
	if state.terminal() {
		return nil, apperrors.Errorf("cannot cancel optimization with status: %s", state.Status).
			WithStatus(http.StatusConflict)
	}
	s.cancelLocked(state)

	s.logger.Info("Optimization cancelled", map[string]interface{}{
		"optimization_id": id,
	})
	return statusOf(state), nil
}

func (s *Server) cancelLocked(state *OptimizationState) {
	state.cancelFunc()
	state.Status = StatusCancelled
	now := time.Now()
	state.EndTime = &now
	state.LastUpdated = now
	s.metrics.JobFinished(StatusCancelled)
}

// SolveAssignment runs the assignment heuristic synchronously.
func (s *Server) SolveAssignment(req *problem.AssignmentRequest) (*problem.AssignmentResult, error) {
	res, err := req.Solve()
	if err != nil {
		return nil, apperrors.InvalidInput(err)
	}
	s.metrics.HeuristicRun("assignment")
	return res, nil
}

// SolveTSP runs the tour heuristic synchronously.
func (s *Server) SolveTSP(req *problem.TSPRequest) (*problem.TSPResult, error) {
	res, err := req.Solve()
	if err != nil {
		return nil, apperrors.InvalidInput(err)
	}
	s.metrics.HeuristicRun("tsp")
	return res, nil
}

func statusOf(state *OptimizationState) *JobStatus {
	st := &JobStatus{
		ID:          state.ID,
		Status:      state.Status,
		StartTime:   state.StartTime,
		LastUpdated: state.LastUpdated,
		Result:      state.Result,
		Error:       state.Err,
	}
	if state.EndTime != nil {
		end := *state.EndTime
		st.EndTime = &end
	}
	return st
}

// runOptimization executes one job on a pool worker.
func (s *Server) runOptimization(state *OptimizationState) {
	s.optimizationsMu.Lock()
	if state.Status != StatusPending {
		s.optimizationsMu.Unlock()
		return
	}
	state.Status = StatusRunning
	state.LastUpdated = time.Now()
	s.optimizationsMu.Unlock()

	oc := s.cfg.Optimizer()
	oc.Logger = s.zlog.With(zap.String("optimization_id", state.ID))
	oc.Recorder = s.metrics

	var (
		result *problem.Result
		err    error
		pc     panics.Catcher
	)
	pc.Try(func() {
		result, err = problem.Run(state.ctx, state.Problem, oc)
	})
	if r := pc.Recovered(); r != nil {
		err = r.AsError()
	}

	s.optimizationsMu.Lock()
	defer s.optimizationsMu.Unlock()

	state.Result = result
	now := time.Now()
	state.LastUpdated = now
	if state.Status == StatusCancelled {
		return
	}
	state.EndTime = &now
	if err != nil {
		s.logger.Error("Optimization failed", map[string]interface{}{
			"optimization_id": state.ID,
			"error":           err.Error(),
		})
		state.Status = StatusFailed
		state.Err = err.Error()
	} else {
		s.logger.Info("Optimization completed", map[string]interface{}{
			"optimization_id": state.ID,
			"ok":              result.OK,
			"value":           result.Value,
		})
		state.Status = StatusCompleted
	}
	s.metrics.JobFinished(state.Status)
}

// Close cancels every unfinished job and waits for the workers to return.
func (s *Server) Close() error {
	s.optimizationsMu.Lock()
	if s.closed {
		s.optimizationsMu.Unlock()
		return nil
	}
	s.closed = true
	for _, state := range s.optimizations {
		if !state.terminal() {
			s.cancelLocked(state)
		}
	}
	close(s.queue)
	s.optimizationsMu.Unlock()

	<-s.done
	return nil
}

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// decodeParams accepts either a params object or an array holding one.
func decodeParams(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		return fmt.Errorf("missing required parameters")
	}
	if raw[0] == '[' {
		var list []json.RawMessage
		if err := json.Unmarshal(raw, &list); err != nil {
			return err
		}
		if len(list) == 0 {
			return fmt.Errorf("missing required parameters")
		}
		raw = list[0]
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("invalid parameter format: %w", err)
	}
	return nil
}

type idParams struct {
	ID string `json:"optimization_id"`
}

// handleJSONRPC handles JSON-RPC 2.0 requests
func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	var request rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.respondWithError(w, codeParseError, "Parse error", nil)
		return
	}

	// Validate JSON-RPC 2.0 request
	if request.JSONRPC != "2.0" || request.Method == "" {
		s.respondWithError(w, codeInvalidRequest, "Invalid Request", request.ID)
		return
	}

	var (
		result interface{}
		err    error
	)
	switch request.Method {
	case "optimization.start":
		var def problem.Definition
		if err = decodeParams(request.Params, &def); err == nil {
			result, err = s.StartOptimization(&def)
		}
	case "optimization.status":
		var p idParams
		if err = decodeParams(request.Params, &p); err == nil {
			result, err = s.OptimizationStatus(p.ID)
		}
	case "optimization.cancel":
		var p idParams
		if err = decodeParams(request.Params, &p); err == nil {
			result, err = s.CancelOptimization(p.ID)
		}
	case "assignment.solve":
		var req problem.AssignmentRequest
		if err = decodeParams(request.Params, &req); err == nil {
			result, err = s.SolveAssignment(&req)
		}
	case "tsp.solve":
		var req problem.TSPRequest
		if err = decodeParams(request.Params, &req); err == nil {
			result, err = s.SolveTSP(&req)
		}
	default:
		s.respondWithError(w, codeMethodNotFound, "Method not found", request.ID)
		return
	}

	if err != nil {
		code := codeServerError
		var e *apperrors.Error
		if !apperrors.As(err, &e) || apperrors.HTTPStatus(err) == http.StatusBadRequest {
			code = codeInvalidParams
		}
		s.respondWithError(w, code, err.Error(), request.ID)
		return
	}

	response := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      request.ID,
		"result":  result,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// respondWithError sends a JSON-RPC 2.0 error response
func (s *Server) respondWithError(w http.ResponseWriter, code int, message string, id interface{}) {
	s.logger.Warn("Request error", map[string]interface{}{
		"code":    code,
		"message": message,
	})

	response := map[string]interface{}{
		"jsonrpc": "2.0",
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
		"id": id,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, apperrors.HTTPStatus(err), map[string]interface{}{
		"error": err.Error(),
	})
}

// handleOptimize handles POST /api/v1/optimize by queueing a new job
func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	var def problem.Definition
	if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
		writeError(w, apperrors.InvalidInput(err))
		return
	}

	result, err := s.StartOptimization(&def)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, result)
}

// handleStatus handles GET /api/v1/status/{id}
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	result, err := s.OptimizationStatus(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleCancel handles DELETE /api/v1/optimization/{id}
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	result, err := s.CancelOptimization(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleAssignment handles POST /api/v1/assignment
func (s *Server) handleAssignment(w http.ResponseWriter, r *http.Request) {
	var req problem.AssignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.InvalidInput(err))
		return
	}
	result, err := s.SolveAssignment(&req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleTSP handles POST /api/v1/tsp
func (s *Server) handleTSP(w http.ResponseWriter, r *http.Request) {
	var req problem.TSPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.InvalidInput(err))
		return
	}
	result, err := s.SolveTSP(&req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
