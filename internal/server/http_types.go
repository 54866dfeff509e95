package server

import (
	"github.com/sanonone/kektorgraph/internal/validation"
	"github.com/sanonone/kektorgraph/pkg/embeddings"
)

// Edge is one directed edge of a submitted graph.
type Edge struct {
	From string `json:"from" validate:"required"`
	To   string `json:"to" validate:"required"`
}

// EmbeddingParams overrides the configured node2vec parameters. Zero values
// keep the configured value.
type EmbeddingParams struct {
	Dimensions int     `json:"dimensions,omitempty" validate:"gte=0,lte=4096"`
	WalkLength int     `json:"walk_length,omitempty" validate:"gte=0"`
	NumWalks   int     `json:"num_walks,omitempty" validate:"gte=0"`
	Window     int     `json:"window,omitempty" validate:"gte=0"`
	P          float64 `json:"p,omitempty" validate:"gte=0"`
	Q          float64 `json:"q,omitempty" validate:"gte=0"`
	Epochs     int     `json:"epochs,omitempty" validate:"gte=0"`
	Seed       *int64  `json:"seed,omitempty"`
}

// apply returns base with the non-zero parameters of e.
func (e *EmbeddingParams) apply(base embeddings.Node2Vec) embeddings.Node2Vec {
	if e == nil {
		return base
	}
	if e.Dimensions > 0 {
		base.Dimensions = e.Dimensions
	}
	if e.WalkLength > 0 {
		base.WalkLength = e.WalkLength
	}
	if e.NumWalks > 0 {
		base.NumWalks = e.NumWalks
	}
	if e.Window > 0 {
		base.Window = e.Window
	}
	if e.P > 0 {
		base.P = e.P
	}
	if e.Q > 0 {
		base.Q = e.Q
	}
	if e.Epochs > 0 {
		base.Epochs = e.Epochs
	}
	if e.Seed != nil {
		base.Seed = *e.Seed
	}
	return base
}

// ClusterRequest is the body of POST /v1/cluster.
type ClusterRequest struct {
	Edges              []Edge           `json:"edges" validate:"required,min=1,dive"`
	K                  int              `json:"k" validate:"gte=1"`
	Seed               *int64           `json:"seed,omitempty"`
	MaxIterations      int              `json:"max_iterations,omitempty" validate:"gte=0"`
	Tolerance          *float64         `json:"tolerance,omitempty" validate:"omitempty,gte=0"`
	EmptyClusterPolicy string           `json:"empty_cluster_policy,omitempty" validate:"omitempty,oneof=retain fail"`
	Embedding          *EmbeddingParams `json:"embedding,omitempty"`
}

// TaskResponse is returned when a job is accepted.
type TaskResponse struct {
	TaskID string `json:"task_id"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error  string                  `json:"error"`
	Fields []validation.FieldError `json:"fields,omitempty"`
}
