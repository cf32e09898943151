package apply

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"regen/internal/domain"
	"regen/internal/storage"
)

var pngPayload = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)

type stubTargetStore struct {
	storageKey  string
	resolveErr  error
	markErr     error
	markCalls   int
	lastMarkRef string
	lastMarkArt string
}

func (s *stubTargetStore) Resolve(ctx context.Context, targetRef string) (string, error) {
	if s.resolveErr != nil {
		return "", s.resolveErr
	}
	return s.storageKey, nil
}

func (s *stubTargetStore) MarkReplaced(ctx context.Context, targetRef, artifactID string, size int64) error {
	s.markCalls++
	s.lastMarkRef = targetRef
	s.lastMarkArt = artifactID
	return s.markErr
}

func newApplier(t *testing.T, targets TargetStore, ceiling int64) (*ReplacementApplier, *storage.FileStore) {
	t.Helper()
	store, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	applier, err := NewReplacementApplier(Options{
		Store:          store,
		Targets:        targets,
		PayloadCeiling: ceiling,
	})
	if err != nil {
		t.Fatalf("NewReplacementApplier error: %v", err)
	}
	return applier, store
}

func payloadServer(t *testing.T, status int, body []byte) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write(body)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestApplyReplacesTarget(t *testing.T) {
	ts := payloadServer(t, http.StatusOK, pngPayload)
	targets := &stubTargetStore{storageKey: "covers/site/cover.png"}
	applier, store := newApplier(t, targets, 1<<20)

	artifact := domain.Artifact{ID: "a1", Readiness: domain.ReadinessReady, DownloadURL: ts.URL + "/a1.png"}
	ref, err := applier.Apply(context.Background(), "asset-42", artifact)
	if err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	if ref != "covers/site/cover.png" {
		t.Fatalf("applied ref = %q", ref)
	}
	data, err := store.Read(context.Background(), ref)
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	if len(data) != len(pngPayload) {
		t.Fatalf("stored %d bytes, want %d", len(data), len(pngPayload))
	}
	if targets.markCalls != 1 || targets.lastMarkRef != "asset-42" || targets.lastMarkArt != "a1" {
		t.Fatalf("unexpected mark call: %+v", targets)
	}
}

func TestApplyRejectsOversizedPayload(t *testing.T) {
	big := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 4096)...)
	ts := payloadServer(t, http.StatusOK, big)
	targets := &stubTargetStore{storageKey: "covers/cover.png"}
	applier, store := newApplier(t, targets, 1024)

	artifact := domain.Artifact{ID: "a1", Readiness: domain.ReadinessReady, DownloadURL: ts.URL}
	_, err := applier.Apply(context.Background(), "asset-1", artifact)
	var ple *domain.PayloadTooLargeError
	if !errors.As(err, &ple) {
		t.Fatalf("error = %v, want PayloadTooLargeError", err)
	}
	if ok, _ := store.Exists(context.Background(), "covers/cover.png"); ok {
		t.Fatalf("target must stay untouched on failure")
	}
}

func TestApplyRejectsOversizedByAnnouncedSize(t *testing.T) {
	targets := &stubTargetStore{storageKey: "covers/cover.png"}
	applier, _ := newApplier(t, targets, 10<<20)

	artifact := domain.Artifact{
		ID:          "a1",
		Readiness:   domain.ReadinessReady,
		DownloadURL: "https://unreachable.example.com/a1.png",
		SizeBytes:   15 << 20,
	}
	_, err := applier.Apply(context.Background(), "asset-1", artifact)
	var ple *domain.PayloadTooLargeError
	if !errors.As(err, &ple) {
		t.Fatalf("error = %v, want PayloadTooLargeError before any download", err)
	}
	if ple.Size != 15<<20 {
		t.Fatalf("size = %d, want announced size", ple.Size)
	}
}

func TestApplyRejectsNonImagePayload(t *testing.T) {
	ts := payloadServer(t, http.StatusOK, []byte("<html>not an image</html>"))
	targets := &stubTargetStore{storageKey: "covers/cover.png"}
	applier, store := newApplier(t, targets, 1<<20)

	artifact := domain.Artifact{ID: "a1", Readiness: domain.ReadinessReady, DownloadURL: ts.URL}
	_, err := applier.Apply(context.Background(), "asset-1", artifact)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
	if ok, _ := store.Exists(context.Background(), "covers/cover.png"); ok {
		t.Fatalf("target must stay untouched on failure")
	}
}

func TestApplyMissingTarget(t *testing.T) {
	targets := &stubTargetStore{resolveErr: domain.ErrNotFound}
	applier, _ := newApplier(t, targets, 1<<20)

	artifact := domain.Artifact{ID: "a1", Readiness: domain.ReadinessReady, DownloadURL: "https://x/a1.png"}
	_, err := applier.Apply(context.Background(), "vanished", artifact)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestApplyMissingPayload(t *testing.T) {
	ts := payloadServer(t, http.StatusNotFound, nil)
	targets := &stubTargetStore{storageKey: "covers/cover.png"}
	applier, _ := newApplier(t, targets, 1<<20)

	artifact := domain.Artifact{ID: "a1", Readiness: domain.ReadinessReady, DownloadURL: ts.URL}
	_, err := applier.Apply(context.Background(), "asset-1", artifact)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestApplyUndownloadableArtifact(t *testing.T) {
	targets := &stubTargetStore{storageKey: "covers/cover.png"}
	applier, _ := newApplier(t, targets, 1<<20)

	artifact := domain.Artifact{ID: "a1", Readiness: domain.ReadinessPending}
	_, err := applier.Apply(context.Background(), "asset-1", artifact)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
}
