package domain

// JobHandle identifies one submitted job on the remote generation service. A
// handle is owned by a single saga run and is never reused across requests.
type JobHandle string

func (h JobHandle) Empty() bool {
	return h == ""
}

// Readiness gates whether an artifact can be downloaded yet.
type Readiness string

const (
	ReadinessReady   Readiness = "ready"
	ReadinessPending Readiness = "pending"
	ReadinessUnknown Readiness = "unknown"
)

// Artifact is one candidate result returned by the remote service. Artifacts
// are never mutated; each status poll returns a fresh snapshot list.
type Artifact struct {
	ID          string
	Readiness   Readiness
	DownloadURL string
	Width       int
	Height      int
	SizeBytes   int64
}

// Downloadable reports whether the artifact is ready and carries a download
// reference.
func (a Artifact) Downloadable() bool {
	return a.Readiness == ReadinessReady && a.DownloadURL != ""
}
