package sandbox

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrMissingPath is returned when a parameter set has no text path entry
var ErrMissingPath = errors.New("parameter set has no path")

// intSize is the width of an integer parameter on the wire
const intSize = 4

// Descriptor locates one key or value inside a Marshalled buffer. Keys are
// always KindText. A zero Length means no data.
type Descriptor struct {
	Offset int
	Length int
	Kind   Kind
}

// Marshalled is a parameter set flattened into a single buffer with two
// descriptors per entry, the layout consumed by jail_set(2).
//
// Integers are written in host byte order; that is what the kernel reads,
// so the buffer is not portable between machines.
type Marshalled struct {
	buf   []byte
	descs []Descriptor
}

// Marshal flattens p. The buffer is sized up front and never grows after a
// descriptor has been recorded.
func Marshal(p *ParameterSet) (*Marshalled, error) {
	if _, ok := p.Path(); !ok {
		return nil, ErrMissingPath
	}

	size := 0
	for _, e := range p.entries {
		size += len(e.Key) + 1
		switch e.Value.kind {
		case KindInteger:
			size += intSize
		case KindText:
			size += len(e.Value.s) + 1
		}
	}

	m := &Marshalled{
		buf:   make([]byte, 0, size),
		descs: make([]Descriptor, 0, 2*len(p.entries)),
	}
	for _, e := range p.entries {
		m.appendText(e.Key)
		switch e.Value.kind {
		case KindInteger:
			off := len(m.buf)
			m.buf = binary.NativeEndian.AppendUint32(m.buf, uint32(e.Value.i))
			m.descs = append(m.descs, Descriptor{Offset: off, Length: intSize, Kind: KindInteger})
		case KindText:
			m.appendText(e.Value.s)
		case KindFlag:
			m.descs = append(m.descs, Descriptor{Offset: len(m.buf), Length: 0, Kind: KindFlag})
		default:
			return nil, fmt.Errorf("parameter %s: unknown value kind %d", e.Key, e.Value.kind)
		}
	}
	return m, nil
}

func (m *Marshalled) appendText(s string) {
	off := len(m.buf)
	m.buf = append(m.buf, s...)
	m.buf = append(m.buf, 0)
	m.descs = append(m.descs, Descriptor{Offset: off, Length: len(s) + 1, Kind: KindText})
}

// Len returns the number of descriptors, twice the number of entries.
func (m *Marshalled) Len() int { return len(m.descs) }

// Bytes returns the descriptor's slice of the buffer, nil for zero length.
func (m *Marshalled) Bytes(i int) []byte {
	d := m.descs[i]
	if d.Length == 0 {
		return nil
	}
	return m.buf[d.Offset : d.Offset+d.Length : d.Offset+d.Length]
}

// Size returns the length of the backing buffer in bytes.
func (m *Marshalled) Size() int { return len(m.buf) }

// Descriptor returns the i-th descriptor.
func (m *Marshalled) Descriptor(i int) Descriptor { return m.descs[i] }

// Decode rebuilds the ordered entries from the buffer and descriptors.
func (m *Marshalled) Decode() ([]Entry, error) {
	if len(m.descs)%2 != 0 {
		return nil, fmt.Errorf("odd descriptor count %d", len(m.descs))
	}
	entries := make([]Entry, 0, len(m.descs)/2)
	for i := 0; i < len(m.descs); i += 2 {
		key, err := cString(m.Bytes(i))
		if err != nil {
			return nil, fmt.Errorf("entry %d key: %w", i/2, err)
		}

		raw := m.Bytes(i + 1)
		var value Value
		switch m.descs[i+1].Kind {
		case KindInteger:
			if len(raw) != intSize {
				return nil, fmt.Errorf("entry %s: integer has %d bytes", key, len(raw))
			}
			value = Integer(int32(binary.NativeEndian.Uint32(raw)))
		case KindText:
			s, err := cString(raw)
			if err != nil {
				return nil, fmt.Errorf("entry %s value: %w", key, err)
			}
			value = Text(s)
		case KindFlag:
			if len(raw) != 0 {
				return nil, fmt.Errorf("entry %s: flag has %d bytes", key, len(raw))
			}
			value = Flag()
		}
		entries = append(entries, Entry{Key: key, Value: value})
	}
	return entries, nil
}

func cString(b []byte) (string, error) {
	if len(b) == 0 || b[len(b)-1] != 0 {
		return "", errors.New("missing NUL terminator")
	}
	return string(b[:len(b)-1]), nil
}
