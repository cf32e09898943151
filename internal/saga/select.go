package saga

import "regen/internal/domain"

// SelectArtifact partitions a snapshot by readiness and picks the target
// artifact: the first one in input order that is ready with a download
// reference. Selection is deterministic; there is no scoring or randomness.
//
// The ready/pending split matters because a job can legitimately report zero
// artifacts of either kind: images still rendering means keep polling, while
// a job that queued nothing at all is a hard failure. Conflating the two
// would either fail prematurely or poll forever.
func SelectArtifact(artifacts []domain.Artifact) (ready, pending int, chosen *domain.Artifact) {
	for i := range artifacts {
		switch artifacts[i].Readiness {
		case domain.ReadinessReady:
			ready++
			if chosen == nil && artifacts[i].DownloadURL != "" {
				chosen = &artifacts[i]
			}
		case domain.ReadinessPending:
			pending++
		}
	}
	return ready, pending, chosen
}
