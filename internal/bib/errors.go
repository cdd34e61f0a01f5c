package bib

import (
	"errors"
	"fmt"
)

// RenderError represents a failure inside a bibliography render pass. It is
// never propagated to the caller: the renderer converts it into a visible
// in-place banner. The structured form exists for logs and tests.
type RenderError struct {
	// Code identifies the failing render stage.
	Code RenderErrorCode

	// ClusterID identifies the cluster being reprocessed, for
	// ErrCodeClusterProcess.
	ClusterID string

	// Err is the underlying engine error.
	Err error
}

// RenderErrorCode categorizes render failures.
type RenderErrorCode string

const (
	// ErrCodeEngineBuild indicates engine selection/construction failed.
	ErrCodeEngineBuild RenderErrorCode = "ENGINE_BUILD"

	// ErrCodeClusterProcess indicates cross-cluster reprocessing failed.
	ErrCodeClusterProcess RenderErrorCode = "CLUSTER_PROCESS"

	// ErrCodeAssembly indicates bibliography assembly failed.
	ErrCodeAssembly RenderErrorCode = "ASSEMBLY"
)

// Error implements the error interface.
func (e *RenderError) Error() string {
	if e.ClusterID != "" {
		return fmt.Sprintf("%s: %v (cluster=%s)", e.Code, e.Err, e.ClusterID)
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

// Unwrap exposes the underlying engine error.
func (e *RenderError) Unwrap() error {
	return e.Err
}

// IsRenderError reports whether err is (or wraps) a RenderError.
func IsRenderError(err error) bool {
	var re *RenderError
	return errors.As(err, &re)
}
