package careerengine

import (
	"context"

	"github.com/google/uuid"
	"github.com/jobmatch/careerengine/internal/models"
)

// state is the shared record the three-step Orchestrator threads through
// each transition, per spec §4.1. If Err is set at entry to any step, that
// step performs no work and passes the state through unchanged — the sole
// control-flow primitive, no branching, no loops.
type state struct {
	UserID   uuid.UUID
	JobID    uuid.UUID
	ResumeID uuid.UUID
	Result   models.GapAnalysisResult
	Err      error
}

// Orchestrator sequences ResolveResume → ResolveJob → RunAnalysis. It is
// intentionally trivial; its value is the explicit error contract described
// in spec §4.1: downstream steps must never execute when an upstream step
// failed.
type Orchestrator struct {
	engine  *Engine
	resumes ResumeStore
	jobs    JobStore
}

// NewOrchestrator builds an Orchestrator over engine, using engine's own
// resume/job stores for resolution.
func NewOrchestrator(engine *Engine) *Orchestrator {
	return &Orchestrator{engine: engine, resumes: engine.resumes, jobs: engine.jobs}
}

// Run executes START → ResolveResume → ResolveJob → RunAnalysis → END for
// userID and jobID, with optional policy overrides applied by RunAnalysis.
func (o *Orchestrator) Run(ctx context.Context, userID, jobID uuid.UUID, overrides map[string]any) (models.GapAnalysisResult, error) {
	s := state{UserID: userID, JobID: jobID}
	s = o.resolveResume(ctx, s)
	s = o.resolveJob(ctx, s)
	s = o.runAnalysis(ctx, s, overrides)
	return s.Result, s.Err
}

func (o *Orchestrator) resolveResume(ctx context.Context, s state) state {
	if s.Err != nil {
		return s
	}
	resume, err := o.resumes.GetDefaultResume(ctx, s.UserID)
	if err != nil {
		s.Err = err
		return s
	}
	s.ResumeID = resume.ID
	return s
}

func (o *Orchestrator) resolveJob(ctx context.Context, s state) state {
	if s.Err != nil {
		return s
	}
	if _, err := o.jobs.GetJob(ctx, s.JobID); err != nil {
		s.Err = err
	}
	return s
}

func (o *Orchestrator) runAnalysis(ctx context.Context, s state, overrides map[string]any) state {
	if s.Err != nil {
		return s
	}
	result, err := o.engine.Analyze(ctx, s.UserID, s.ResumeID, s.JobID, overrides)
	if err != nil {
		s.Err = err
		return s
	}
	s.Result = result
	return s
}
