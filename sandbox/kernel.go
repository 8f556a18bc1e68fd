package sandbox

import "strconv"

// errmsgSize is the buffer handed to the kernel for its error text
const errmsgSize = 256

// Handle is the kernel-assigned jail identifier (jid)
type Handle struct {
	ID int
}

func (h Handle) String() string { return strconv.Itoa(h.ID) }

// Kernel creates and removes jails
type Kernel interface {
	Create(params *ParameterSet) (Handle, error)
	Destroy(h Handle) error
}

// SystemKernel implements Kernel with the host's jail system calls
type SystemKernel struct{}

// NewKernel returns the host kernel implementation.
func NewKernel() Kernel {
	return SystemKernel{}
}
