package repo

import (
	"context"
	"fmt"

	"regen/internal/domain"
	"regen/internal/infra"
	"regen/internal/sqlinline"
)

// ErrNoRequestAvailable indicates the queue held no claimable request.
var ErrNoRequestAvailable = fmt.Errorf("no request available")

// RequestRepoPG persists queued generation requests.
type RequestRepoPG struct {
	runner infra.SQLExecutor
}

// NewRequestRepo creates a request repository backed by the SQL runner.
func NewRequestRepo(runner infra.SQLExecutor) *RequestRepoPG {
	return &RequestRepoPG{runner: runner}
}

// Enqueue inserts a new queued request.
func (r *RequestRepoPG) Enqueue(ctx context.Context, req domain.GenerationRequest) error {
	_, err := r.runner.Exec(ctx, sqlinline.QInsertRequest, req.ID, req.TargetRef, string(req.Class), req.Prompt)
	return err
}

// Get fetches a request record by id.
func (r *RequestRepoPG) Get(ctx context.Context, id string) (*domain.RequestRecord, error) {
	row := r.runner.QueryRow(ctx, sqlinline.QGetRequest, id)
	var rec domain.RequestRecord
	var class, status, stage string
	err := row.Scan(
		&rec.ID,
		&rec.TargetRef,
		&class,
		&rec.Prompt,
		&status,
		&stage,
		&rec.Reason,
		&rec.ArtifactRef,
		&rec.AppliedRef,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, fmt.Errorf("request %s: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}
	rec.Class = domain.TargetClass(class)
	rec.Status = domain.RequestStatus(status)
	rec.FailedStage = domain.Stage(stage)
	return &rec, nil
}

// Claim atomically moves the oldest queued request to RUNNING and returns it.
// Returns ErrNoRequestAvailable when the queue is empty.
func (r *RequestRepoPG) Claim(ctx context.Context) (domain.GenerationRequest, error) {
	row := r.runner.QueryRow(ctx, sqlinline.QClaimRequest)
	var req domain.GenerationRequest
	var class string
	if err := row.Scan(&req.ID, &req.TargetRef, &class, &req.Prompt); err != nil {
		if infra.IsNoRows(err) {
			return domain.GenerationRequest{}, ErrNoRequestAvailable
		}
		return domain.GenerationRequest{}, err
	}
	req.Class = domain.TargetClass(class)
	return req, nil
}

// ClaimByID transitions the given request from QUEUED to RUNNING so no other
// runner can pick it up. Returns ErrNotFound when the request does not exist
// or is no longer queued.
func (r *RequestRepoPG) ClaimByID(ctx context.Context, id string) (domain.GenerationRequest, error) {
	row := r.runner.QueryRow(ctx, sqlinline.QClaimRequestByID, id)
	var req domain.GenerationRequest
	var class string
	if err := row.Scan(&req.ID, &req.TargetRef, &class, &req.Prompt); err != nil {
		if infra.IsNoRows(err) {
			return domain.GenerationRequest{}, fmt.Errorf("request %s not claimable: %w", id, domain.ErrNotFound)
		}
		return domain.GenerationRequest{}, err
	}
	req.Class = domain.TargetClass(class)
	return req, nil
}

// Finish records the terminal outcome of a saga run for the request.
func (r *RequestRepoPG) Finish(ctx context.Context, id string, result domain.SagaResult) error {
	status := domain.RequestStatusSucceeded
	reason := ""
	if !result.Applied() {
		status = domain.RequestStatusFailed
		if result.Err != nil {
			reason = result.Err.Error()
		}
	}
	_, err := r.runner.Exec(ctx, sqlinline.QFinishRequest,
		id,
		string(status),
		string(result.FailedStage),
		reason,
		result.ArtifactRef,
		result.AppliedRef,
	)
	return err
}
