package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"regen/internal/domain"
	"regen/internal/infra"
)

// SagaRunner executes one generation saga synchronously.
type SagaRunner interface {
	Run(ctx context.Context, req domain.GenerationRequest) domain.SagaResult
}

// RequestStore persists queued generation requests. ClaimByID atomically
// moves a specific request from QUEUED to RUNNING and reports
// domain.ErrNotFound when it is missing or no longer queued.
type RequestStore interface {
	Enqueue(ctx context.Context, req domain.GenerationRequest) error
	Get(ctx context.Context, id string) (*domain.RequestRecord, error)
	ClaimByID(ctx context.Context, id string) (domain.GenerationRequest, error)
	Finish(ctx context.Context, id string, result domain.SagaResult) error
}

// App bundles handler dependencies.
type App struct {
	Requests RequestStore
	Saga     SagaRunner
	Logger   infra.Logger
}

func NewApp(requests RequestStore, saga SagaRunner, logger infra.Logger) *App {
	return &App{Requests: requests, Saga: saga, Logger: logger}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}
