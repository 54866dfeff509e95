package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sanonone/kektorgraph/internal/logger"
	"github.com/sanonone/kektorgraph/internal/validation"
	"github.com/sanonone/kektorgraph/pkg/cluster"
	"github.com/sanonone/kektorgraph/pkg/graph"
	"github.com/sanonone/kektorgraph/pkg/pipeline"
)

// maxBodyBytes bounds a submitted request body.
const maxBodyBytes = 256 << 20

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeHTTPResponse(w, http.StatusOK, map[string]any{
		"status": "ok",
		"tasks":  s.taskManager.Len(),
	})
}

// handleClusterSubmit validates a ClusterRequest and starts a task for it.
func (s *Server) handleClusterSubmit(w http.ResponseWriter, r *http.Request) {
	var req ClusterRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.writeHTTPError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if err := validation.Struct(req); err != nil {
		s.writeValidationError(w, err)
		return
	}
	if len(req.Edges) > s.cfg.Server.MaxEdges {
		s.writeHTTPError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("%d edges exceed the limit of %d", len(req.Edges), s.cfg.Server.MaxEdges))
		return
	}

	g := graph.New()
	for _, e := range req.Edges {
		g.AddEdge(e.From, e.To)
	}
	if req.K > g.NodeCount() {
		s.writeHTTPError(w, http.StatusUnprocessableEntity,
			fmt.Sprintf("k=%d exceeds the %d nodes of the graph", req.K, g.NodeCount()))
		return
	}

	p, err := s.pipelineFor(req)
	if err != nil {
		s.writeHTTPError(w, http.StatusBadRequest, err.Error())
		return
	}

	task := s.taskManager.NewTask()
	s.log.Info("cluster task accepted",
		zap.String(logger.FieldTaskID, task.ID),
		zap.Int(logger.FieldNodes, g.NodeCount()),
		zap.Int(logger.FieldEdges, g.EdgeCount()),
		zap.Int(logger.FieldK, req.K),
	)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runClusterTask(task, g, p)
	}()

	s.writeHTTPResponse(w, http.StatusAccepted, TaskResponse{TaskID: task.ID})
}

// pipelineFor merges the request with the configured defaults.
func (s *Server) pipelineFor(req ClusterRequest) (*pipeline.Pipeline, error) {
	n2v := req.Embedding.apply(s.cfg.Embedding.Node2Vec)
	n2v.Logger = s.log
	if err := n2v.Validate(); err != nil {
		return nil, err
	}

	clustering := s.cfg.Clustering
	clustering.K = req.K
	if req.MaxIterations > 0 {
		clustering.MaxIterations = req.MaxIterations
	}
	if req.Tolerance != nil {
		clustering.Tolerance = *req.Tolerance
	}
	if req.Seed != nil {
		clustering.Seed = req.Seed
	}
	if req.EmptyClusterPolicy != "" {
		clustering.EmptyClusterPolicy = req.EmptyClusterPolicy
	}
	opts, err := clustering.Options()
	if err != nil {
		return nil, err
	}

	return &pipeline.Pipeline{
		Provider: &n2v,
		Options:  opts,
		Logger:   s.log,
	}, nil
}

func (s *Server) runClusterTask(task *Task, g *graph.Graph, p *pipeline.Pipeline) {
	log := s.log.With(zap.String(logger.FieldTaskID, task.ID))
	task.SetStatus(TaskStatusRunning)
	task.SetProgress(fmt.Sprintf("embedding %d nodes", g.NodeCount()))

	p.Observer = func(pr cluster.Progress) {
		task.SetProgress(fmt.Sprintf("iteration %d, movement %g", pr.Iteration, pr.Movement))
	}
	report, err := p.Run(s.jobs, g)
	if err != nil {
		log.Warn("cluster task failed", zap.Error(err))
		task.SetError(err)
		return
	}
	task.SetProgress(fmt.Sprintf("%s after %d iterations", report.State, report.Iterations))
	task.Complete(report)
	log.Info("cluster task completed",
		zap.Stringer("state", report.State),
		zap.Int(logger.FieldIteration, report.Iterations))
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	task, ok := s.taskManager.GetTask(id)
	if !ok {
		s.writeHTTPError(w, http.StatusNotFound, fmt.Sprintf("task %q not found", id))
		return
	}
	s.writeHTTPResponse(w, http.StatusOK, task)
}

// --- HTTP response helpers ---

func (s *Server) writeHTTPResponse(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Debug("write response", zap.Error(err))
	}
}

func (s *Server) writeHTTPError(w http.ResponseWriter, statusCode int, message string) {
	s.writeHTTPResponse(w, statusCode, ErrorResponse{Error: message})
}

func (s *Server) writeValidationError(w http.ResponseWriter, err error) {
	resp := ErrorResponse{Error: err.Error()}
	var verr *validation.Error
	if errors.As(err, &verr) {
		resp.Fields = verr.Fields
	}
	s.writeHTTPResponse(w, http.StatusBadRequest, resp)
}
