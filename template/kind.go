package template

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind is one of the built-in jail templates
type Kind int

const (
	// NetworkNamespaceOnly shares the host filesystem and only adds a
	// virtual network stack.
	NetworkNamespaceOnly Kind = iota
	// FreeBSDBase is a jail rooted at an extracted FreeBSD base.txz.
	FreeBSDBase
	// LinuxBase is a jail rooted at an extracted Linux userland for the
	// Linux binary compatibility layer.
	LinuxBase
)

// Kinds returns every template kind.
func Kinds() []Kind {
	return []Kind{NetworkNamespaceOnly, FreeBSDBase, LinuxBase}
}

func (k Kind) String() string {
	switch k {
	case NetworkNamespaceOnly:
		return "netns"
	case FreeBSDBase:
		return "freebsd"
	case LinuxBase:
		return "linux"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// ParseKind returns the kind named s.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds() {
		if k.String() == s {
			return k, nil
		}
	}
	names := make([]string, 0, len(Kinds()))
	for _, k := range Kinds() {
		names = append(names, k.String())
	}
	return 0, fmt.Errorf("unknown template %q, must be one of: %s", s, strings.Join(names, ", "))
}
