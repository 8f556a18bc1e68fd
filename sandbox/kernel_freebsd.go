package sandbox

import (
	"bytes"
	"runtime"
	"unsafe"

	"golang.org/x/sys/unix"
)

// jailCreate is JAIL_CREATE from <sys/jail.h>
const jailCreate = 0x01

// Create calls jail_set(2) with JAIL_CREATE. The iovec array points into
// the marshalled buffer and exists only for the duration of the call.
func (SystemKernel) Create(params *ParameterSet) (Handle, error) {
	m, err := Marshal(params)
	if err != nil {
		return Handle{}, &CreationError{Err: err}
	}

	errmsgKey := []byte(ParamErrMsg + "\x00")
	errmsg := make([]byte, errmsgSize)

	iov := make([]unix.Iovec, 0, m.Len()+2)
	for i := 0; i < m.Len(); i++ {
		iov = append(iov, iovec(m.Bytes(i)))
	}
	iov = append(iov, iovec(errmsgKey), iovec(errmsg))

	jid, _, errno := unix.Syscall(unix.SYS_JAIL_SET,
		uintptr(unsafe.Pointer(&iov[0])), uintptr(len(iov)), jailCreate)
	runtime.KeepAlive(iov)
	runtime.KeepAlive(m)
	runtime.KeepAlive(errmsgKey)
	runtime.KeepAlive(errmsg)

	if errno != 0 {
		msg := errmsg
		if i := bytes.IndexByte(msg, 0); i >= 0 {
			msg = msg[:i]
		}
		return Handle{}, &CreationError{Message: string(msg), Err: errno}
	}
	return Handle{ID: int(int32(jid))}, nil
}

// Destroy calls jail_remove(2).
func (SystemKernel) Destroy(h Handle) error {
	_, _, errno := unix.Syscall(unix.SYS_JAIL_REMOVE, uintptr(h.ID), 0, 0)
	if errno != 0 {
		return &DestructionError{Handle: h, Err: errno}
	}
	return nil
}

// iovec never points at memory for an empty slice.
func iovec(b []byte) unix.Iovec {
	var v unix.Iovec
	if len(b) > 0 {
		v.Base = &b[0]
	}
	v.SetLen(len(b))
	return v
}
