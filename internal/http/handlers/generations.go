package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"regen/internal/domain"
	"regen/internal/prompt"
)

type generationCreateRequest struct {
	TargetRef string `json:"target_ref"`
	Subject   string `json:"subject"`
	Style     string `json:"style"`
	Class     string `json:"class"`
	Locale    string `json:"locale"`
}

type generationResponse struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	TargetRef   string `json:"target_ref"`
	FailedStage string `json:"failed_stage,omitempty"`
	Reason      string `json:"reason,omitempty"`
	ArtifactRef string `json:"artifact_ref,omitempty"`
	AppliedRef  string `json:"applied_ref,omitempty"`
}

type runResponse struct {
	ID                string `json:"id"`
	Applied           bool   `json:"applied"`
	ArtifactRef       string `json:"artifact_ref,omitempty"`
	AppliedRef        string `json:"applied_ref,omitempty"`
	FailedStage       string `json:"failed_stage,omitempty"`
	Reason            string `json:"reason,omitempty"`
	CompensateWarning string `json:"compensate_warning,omitempty"`
}

// GenerationsCreate enqueues a replacement request. The prompt is built here,
// upstream of the saga; the saga never interprets the classification.
func (a *App) GenerationsCreate(w http.ResponseWriter, r *http.Request) {
	var req generationCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if strings.TrimSpace(req.TargetRef) == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "target_ref is required")
		return
	}
	class := domain.TargetClass(strings.ToLower(strings.TrimSpace(req.Class)))
	if class != domain.TargetClassSecondary {
		class = domain.TargetClassPrimary
	}
	text, err := prompt.Build(prompt.BuildRequest{
		Subject: req.Subject,
		Style:   req.Style,
		Class:   class,
		Locale:  req.Locale,
	})
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	gen := domain.GenerationRequest{
		ID:        uuid.NewString(),
		Prompt:    text,
		TargetRef: req.TargetRef,
		Class:     class,
	}
	if err := a.Requests.Enqueue(r.Context(), gen); err != nil {
		a.Logger.Error().Err(err).Msg("handlers: enqueue generation failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to enqueue request")
		return
	}
	a.json(w, http.StatusAccepted, generationResponse{
		ID:        gen.ID,
		Status:    string(domain.RequestStatusQueued),
		TargetRef: gen.TargetRef,
	})
}

// GenerationsGet reports the stored outcome of a request. Stage and reason
// are surfaced verbatim for diagnosis.
func (a *App) GenerationsGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := a.Requests.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "unknown generation request")
			return
		}
		a.Logger.Error().Err(err).Str("id", id).Msg("handlers: load generation failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load request")
		return
	}
	a.json(w, http.StatusOK, generationResponse{
		ID:          rec.ID,
		Status:      string(rec.Status),
		TargetRef:   rec.TargetRef,
		FailedStage: string(rec.FailedStage),
		Reason:      rec.Reason,
		ArtifactRef: rec.ArtifactRef,
		AppliedRef:  rec.AppliedRef,
	})
}

// GenerationsRun executes the saga for a queued request synchronously. This
// is the operator escape hatch; normal traffic is drained by the worker.
func (a *App) GenerationsRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := a.Requests.Get(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "unknown generation request")
			return
		}
		a.Logger.Error().Err(err).Str("id", id).Msg("handlers: load generation failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load request")
		return
	}

	// Claim before running so the worker's queue scan cannot pick the same
	// request up mid-run and apply it twice.
	gen, err := a.Requests.ClaimByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusConflict, "conflict", "request is not queued")
			return
		}
		a.Logger.Error().Err(err).Str("id", id).Msg("handlers: claim generation failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to claim request")
		return
	}

	result := a.Saga.Run(r.Context(), gen)
	if err := a.Requests.Finish(r.Context(), gen.ID, result); err != nil {
		a.Logger.Error().Err(err).Str("id", id).Msg("handlers: record outcome failed")
	}

	resp := runResponse{
		ID:          gen.ID,
		Applied:     result.Applied(),
		ArtifactRef: result.ArtifactRef,
		AppliedRef:  result.AppliedRef,
		FailedStage: string(result.FailedStage),
	}
	if result.Err != nil {
		resp.Reason = result.Err.Error()
	}
	if result.CompensateWarning != nil {
		resp.CompensateWarning = result.CompensateWarning.Error()
	}
	status := http.StatusOK
	if !result.Applied() {
		status = http.StatusBadGateway
	}
	a.json(w, status, resp)
}
