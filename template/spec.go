package template

import (
	"fmt"

	"github.com/isdmx/jailrun/sandbox"
)

// childrenMax is the child jail ceiling every template allows
const childrenMax = 99

// Definition locates a template's root filesystem and its source archive.
// An empty DownloadURL means the root already exists and nothing is fetched.
type Definition struct {
	RootPath    string
	DownloadURL string
	ArchivePath string
	Hostname    string
}

// Spec is a template ready to provision. Params is filled in right before
// the jail is created.
type Spec struct {
	Kind Kind
	Definition
	Params *sandbox.ParameterSet
}

// NewSpec returns the spec for kind using def for its locations.
func NewSpec(kind Kind, def Definition) Spec {
	return Spec{Kind: kind, Definition: def}
}

// Presets returns the parameter presets for the template.
func (s Spec) Presets() ([]sandbox.Preset, error) {
	common := []sandbox.Preset{
		sandbox.RootPath(s.RootPath),
		sandbox.Hostname(s.Hostname),
	}

	var specific []sandbox.Preset
	switch s.Kind {
	case NetworkNamespaceOnly:
		specific = []sandbox.Preset{
			sandbox.VNet(true),
			sandbox.Allow("raw_sockets"),
		}
	case FreeBSDBase:
		specific = []sandbox.Preset{
			sandbox.VNet(true),
			sandbox.Allow("raw_sockets", "chflags", "mount", "mount.devfs"),
		}
	case LinuxBase:
		specific = []sandbox.Preset{
			sandbox.Allow("mount", "mount.devfs", "mount.fdescfs", "mount.linprocfs", "mount.linsysfs", "mount.tmpfs"),
		}
	default:
		return nil, fmt.Errorf("no parameters for template %s", s.Kind)
	}

	presets := append(common, specific...)
	return append(presets, sandbox.ChildrenMax(childrenMax), sandbox.Persist()), nil
}

// Parameters builds the template's parameter set.
func (s Spec) Parameters() (*sandbox.ParameterSet, error) {
	presets, err := s.Presets()
	if err != nil {
		return nil, err
	}
	return sandbox.NewParameterSet().Apply(presets...), nil
}
