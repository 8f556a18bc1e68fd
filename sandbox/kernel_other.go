//go:build !freebsd

package sandbox

// Create validates params so callers see marshalling errors first, then
// reports that jails are unavailable.
func (SystemKernel) Create(params *ParameterSet) (Handle, error) {
	if _, err := Marshal(params); err != nil {
		return Handle{}, &CreationError{Err: err}
	}
	return Handle{}, &CreationError{Err: ErrUnsupportedPlatform}
}

func (SystemKernel) Destroy(h Handle) error {
	return &DestructionError{Handle: h, Err: ErrUnsupportedPlatform}
}
