package domain

// Stage identifies where in the saga a failure occurred, so callers can tell
// "nothing happened remotely" apart from "a remote job may need cleanup".
type Stage string

const (
	StageSubmit     Stage = "submit"
	StagePoll       Stage = "poll"
	StageSelect     Stage = "select"
	StageApply      Stage = "apply"
	StageCompensate Stage = "compensate"
)

// SagaResult is the terminal value of one saga run. Either the run applied an
// artifact (FailedStage empty, Err nil) or it failed at FailedStage with Err
// as the reason. CompensateWarning records a best-effort job deletion that did
// not succeed; it never turns a success into a failure and never masks the
// original reason.
type SagaResult struct {
	ArtifactRef       string
	AppliedRef        string
	FailedStage       Stage
	Err               error
	CompensateWarning error
}

// Applied reports whether the run replaced the target resource.
func (r SagaResult) Applied() bool {
	return r.FailedStage == "" && r.Err == nil
}

// FailedResult builds a failure outcome for the given stage.
func FailedResult(stage Stage, err error) SagaResult {
	return SagaResult{FailedStage: stage, Err: err}
}
