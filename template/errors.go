package template

import (
	"fmt"
	"strconv"
)

// Stage is a step of the provisioning pipeline
type Stage int

const (
	StageMkdir Stage = iota
	StageDownload
	StageExtract
	StageCleanup
	StageCreate
)

func (s Stage) String() string {
	switch s {
	case StageMkdir:
		return "mkdir"
	case StageDownload:
		return "download"
	case StageExtract:
		return "extract"
	case StageCleanup:
		return "cleanup"
	case StageCreate:
		return "create"
	default:
		return "stage(" + strconv.Itoa(int(s)) + ")"
	}
}

// ProvisionError reports the stage at which provisioning stopped. Output
// holds the external tool's stderr when there was one.
type ProvisionError struct {
	Kind   Kind
	Stage  Stage
	Output string
	Err    error
}

func (e *ProvisionError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("template %s: %s failed: %v: %s", e.Kind, e.Stage, e.Err, e.Output)
	}
	return fmt.Sprintf("template %s: %s failed: %v", e.Kind, e.Stage, e.Err)
}

func (e *ProvisionError) Unwrap() error { return e.Err }
