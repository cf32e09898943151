// Package apply turns a selected artifact into a replaced local asset: it
// downloads the artifact payload within a size ceiling, validates it is an
// image, and atomically overwrites the target resource.
package apply

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"regen/internal/domain"
	"regen/internal/infra"
	"regen/internal/storage"
)

// TargetStore resolves a target reference to its storage key and records the
// replacement once it happened.
type TargetStore interface {
	Resolve(ctx context.Context, targetRef string) (storageKey string, err error)
	MarkReplaced(ctx context.Context, targetRef, artifactID string, size int64) error
}

// Options configures a ReplacementApplier.
type Options struct {
	Store          *storage.FileStore
	Targets        TargetStore
	HTTPClient     *http.Client
	Logger         *infra.Logger
	PayloadCeiling int64
}

const defaultPayloadCeiling = 10 << 20 // 10 MiB

// ReplacementApplier implements the apply step of a generation run. It is not
// idempotent: a second call for the same run would download and replace
// again, so callers invoke it at most once.
type ReplacementApplier struct {
	store      *storage.FileStore
	targets    TargetStore
	httpClient *http.Client
	logger     *infra.Logger
	ceiling    int64
}

// NewReplacementApplier constructs an applier with sane defaults.
func NewReplacementApplier(opts Options) (*ReplacementApplier, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("apply: file store is required")
	}
	if opts.Targets == nil {
		return nil, fmt.Errorf("apply: target store is required")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	ceiling := opts.PayloadCeiling
	if ceiling <= 0 {
		ceiling = defaultPayloadCeiling
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &ReplacementApplier{
		store:      opts.Store,
		targets:    opts.Targets,
		httpClient: httpClient,
		logger:     logger,
		ceiling:    ceiling,
	}, nil
}

// Apply downloads the artifact payload and replaces the target resource with
// it. The returned reference is the storage key that now holds the payload.
func (a *ReplacementApplier) Apply(ctx context.Context, targetRef string, artifact domain.Artifact) (string, error) {
	if strings.TrimSpace(targetRef) == "" {
		return "", fmt.Errorf("apply: target ref is required: %w", domain.ErrValidation)
	}
	if !artifact.Downloadable() {
		return "", fmt.Errorf("apply: artifact %s has no download reference: %w", artifact.ID, domain.ErrValidation)
	}

	storageKey, err := a.targets.Resolve(ctx, targetRef)
	if err != nil {
		return "", err
	}

	data, err := a.fetch(ctx, artifact)
	if err != nil {
		return "", err
	}

	if mime := http.DetectContentType(data); !strings.HasPrefix(mime, "image/") {
		return "", fmt.Errorf("apply: payload is %s, not an image: %w", mime, domain.ErrValidation)
	}

	key, err := a.store.Replace(ctx, storageKey, data)
	if err != nil {
		return "", fmt.Errorf("apply: replace %s: %w", storageKey, err)
	}

	// The file is the resource of record; a failed metadata update is an
	// inconsistency to log, not a reason to report the replacement as
	// never having happened.
	if err := a.targets.MarkReplaced(ctx, targetRef, artifact.ID, int64(len(data))); err != nil {
		a.logger.Warn().Err(err).Str("target_ref", targetRef).Msg("apply: record replacement failed")
	}

	a.logger.Info().
		Str("target_ref", targetRef).
		Str("artifact", artifact.ID).
		Int("bytes", len(data)).
		Msg("apply: target replaced")
	return key, nil
}

func (a *ReplacementApplier) fetch(ctx context.Context, artifact domain.Artifact) ([]byte, error) {
	if artifact.SizeBytes > a.ceiling {
		return nil, &domain.PayloadTooLargeError{Size: artifact.SizeBytes, Ceiling: a.ceiling}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, artifact.DownloadURL, nil)
	if err != nil {
		return nil, fmt.Errorf("apply: build download request: %w", err)
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, &domain.TransportError{Op: "download", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("apply: artifact payload %s: %w", artifact.ID, domain.ErrNotFound)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &domain.TransportError{Op: "download", Status: resp.StatusCode}
	}
	if resp.ContentLength > a.ceiling {
		return nil, &domain.PayloadTooLargeError{Size: resp.ContentLength, Ceiling: a.ceiling}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, a.ceiling+1))
	if err != nil {
		return nil, &domain.TransportError{Op: "download", Err: err}
	}
	if int64(len(data)) > a.ceiling {
		return nil, &domain.PayloadTooLargeError{Ceiling: a.ceiling}
	}
	return data, nil
}
