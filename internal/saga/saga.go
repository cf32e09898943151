// Package saga orchestrates one remote generation run end to end: submit a
// job, poll it to completion within a bounded time budget, apply the chosen
// artifact over the target resource, and always clean up the remote job.
package saga

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/rs/zerolog"

	"regen/internal/domain"
	"regen/internal/infra"
	"regen/internal/poll"
)

// JobClient is the transport adapter for the remote generation service.
type JobClient interface {
	Submit(ctx context.Context, prompt string) (domain.JobHandle, error)
	Status(ctx context.Context, handle domain.JobHandle) ([]domain.Artifact, error)
	Delete(ctx context.Context, handle domain.JobHandle) error
}

// Applier performs the domain-specific replacement with a selected artifact.
// Apply is called at most once per run and is never retried; a second call
// could duplicate its side effect.
type Applier interface {
	Apply(ctx context.Context, targetRef string, artifact domain.Artifact) (appliedRef string, err error)
}

// HandleRecorder persists the in-flight handle keyed by request identity so a
// crashed process can be swept later. Recording is best-effort; failures are
// logged, never fatal to the run.
type HandleRecorder interface {
	Record(ctx context.Context, requestID string, handle domain.JobHandle) error
	Clear(ctx context.Context, requestID string) error
}

// Config tunes one saga run. Zero values fall back to the defaults below;
// none of them are load-bearing for correctness.
type Config struct {
	PollInterval time.Duration
	PollDeadline time.Duration
	// Observer, when set, is notified as each stage begins.
	Observer func(stage domain.Stage)
}

const (
	defaultPollInterval = 60 * time.Second
	defaultPollDeadline = 5 * time.Minute

	// Compensation runs on a detached context so cancellation of the run
	// cannot leak the remote job.
	compensateTimeout = 15 * time.Second
)

// GenerationSaga composes the client, the poll loop and the applier into the
// single-run state machine. It holds no mutable state across runs and is safe
// to use concurrently for distinct requests.
type GenerationSaga struct {
	client  JobClient
	applier Applier
	handles HandleRecorder
	logger  infra.Logger
	cfg     Config
}

// Option customizes saga construction.
type Option func(*GenerationSaga)

// WithLogger attaches a structured logger.
func WithLogger(logger infra.Logger) Option {
	return func(s *GenerationSaga) {
		s.logger = logger
	}
}

// WithHandleRecorder enables in-flight handle bookkeeping.
func WithHandleRecorder(recorder HandleRecorder) Option {
	return func(s *GenerationSaga) {
		s.handles = recorder
	}
}

// New constructs a GenerationSaga.
func New(client JobClient, applier Applier, cfg Config, opts ...Option) *GenerationSaga {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.PollDeadline <= 0 {
		cfg.PollDeadline = defaultPollDeadline
	}
	s := &GenerationSaga{
		client:  client,
		applier: applier,
		logger:  zerolog.New(io.Discard),
		cfg:     cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes one saga for the request. It is fully synchronous: submit,
// poll until an artifact is selectable, apply it, then compensate by deleting
// the remote job. Compensation is attempted exactly once whenever a handle
// was obtained, on every path including cancellation and a successful apply;
// the remote job is scratch state, not an artifact store.
func (s *GenerationSaga) Run(ctx context.Context, req domain.GenerationRequest) domain.SagaResult {
	s.observe(domain.StageSubmit)
	if err := ctx.Err(); err != nil {
		return domain.FailedResult(domain.StageSubmit, err)
	}

	handle, err := s.client.Submit(ctx, req.Prompt)
	if err != nil {
		// No handle, nothing remote to clean up. Submission is never
		// retried within a run.
		s.logger.Error().Err(err).Str("request_id", req.ID).Msg("saga: submit failed")
		return domain.FailedResult(domain.StageSubmit, err)
	}
	s.logger.Info().Str("request_id", req.ID).Str("handle", string(handle)).Msg("saga: job submitted")
	s.recordHandle(ctx, req.ID, handle)

	result := s.pollAndApply(ctx, req, handle)

	warn := s.compensate(ctx, req.ID, handle)
	result.CompensateWarning = warn
	return result
}

func (s *GenerationSaga) pollAndApply(ctx context.Context, req domain.GenerationRequest, handle domain.JobHandle) domain.SagaResult {
	s.observe(domain.StagePoll)
	chosen, err := poll.Poll(ctx, func(ctx context.Context) (domain.Artifact, bool, error) {
		artifacts, err := s.client.Status(ctx, handle)
		if err != nil {
			return domain.Artifact{}, false, err
		}
		ready, pending, pick := SelectArtifact(artifacts)
		if pick != nil {
			return *pick, true, nil
		}
		if len(artifacts) == 0 {
			// The job queued nothing at all; waiting will not help.
			return domain.Artifact{}, false, domain.ErrNoArtifacts
		}
		s.logger.Debug().
			Str("handle", string(handle)).
			Int("ready", ready).
			Int("pending", pending).
			Msg("saga: artifacts not ready")
		return domain.Artifact{}, false, nil
	}, s.cfg.PollInterval, s.cfg.PollDeadline)
	if err != nil {
		s.logger.Error().Err(err).Str("handle", string(handle)).Msg("saga: polling failed")
		return domain.FailedResult(domain.StagePoll, err)
	}

	s.observe(domain.StageSelect)
	if !chosen.Downloadable() {
		return domain.FailedResult(domain.StageSelect, domain.ErrValidation)
	}

	s.observe(domain.StageApply)
	appliedRef, err := s.applier.Apply(ctx, req.TargetRef, chosen)
	if err != nil {
		s.logger.Error().Err(err).Str("target_ref", req.TargetRef).Msg("saga: apply failed")
		return domain.FailedResult(domain.StageApply, err)
	}
	s.logger.Info().
		Str("request_id", req.ID).
		Str("artifact", chosen.ID).
		Str("applied_ref", appliedRef).
		Msg("saga: artifact applied")
	return domain.SagaResult{ArtifactRef: chosen.ID, AppliedRef: appliedRef}
}

// compensate deletes the remote job exactly once, best-effort. It runs on a
// detached context so a cancelled run still cleans up. A "not found" answer
// means the job is already gone and is not treated as a failure. The delete
// is deliberately not retried: some remote implementations recycle handles,
// and a late retry could delete state that is no longer ours.
func (s *GenerationSaga) compensate(ctx context.Context, requestID string, handle domain.JobHandle) error {
	s.observe(domain.StageCompensate)
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensateTimeout)
	defer cancel()

	if err := s.client.Delete(cctx, handle); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Debug().Str("handle", string(handle)).Msg("saga: job already deleted")
			s.clearHandle(cctx, requestID)
			return nil
		}
		// The handle record is kept so jobsweep can retry the cleanup later.
		s.logger.Warn().Err(err).Str("handle", string(handle)).Msg("saga: compensation failed")
		return err
	}
	s.clearHandle(cctx, requestID)
	return nil
}

func (s *GenerationSaga) recordHandle(ctx context.Context, requestID string, handle domain.JobHandle) {
	if s.handles == nil {
		return
	}
	if err := s.handles.Record(ctx, requestID, handle); err != nil {
		s.logger.Warn().Err(err).Str("request_id", requestID).Msg("saga: record handle failed")
	}
}

func (s *GenerationSaga) clearHandle(ctx context.Context, requestID string) {
	if s.handles == nil {
		return
	}
	if err := s.handles.Clear(ctx, requestID); err != nil {
		s.logger.Warn().Err(err).Str("request_id", requestID).Msg("saga: clear handle failed")
	}
}

func (s *GenerationSaga) observe(stage domain.Stage) {
	if s.cfg.Observer != nil {
		s.cfg.Observer(stage)
	}
}
