package ggframe

// Stage is one step of the frame pipeline.
type Stage uint8

const (
	StageSetup Stage = iota
	StageExtract
	StagePrepare
	StageRender
	StageCleanup
)

// stageCount is the number of stages, Setup included.
const stageCount = 5

// frameStages is the per-frame sequence. Setup runs before it on the
// first frame only.
var frameStages = [...]Stage{StageExtract, StagePrepare, StageRender, StageCleanup}

// String returns the stage name.
func (s Stage) String() string {
	switch s {
	case StageSetup:
		return "Setup"
	case StageExtract:
		return "Extract"
	case StagePrepare:
		return "Prepare"
	case StageRender:
		return "Render"
	case StageCleanup:
		return "Cleanup"
	default:
		return "Unknown"
	}
}
