package sandbox

import (
	"errors"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Well-known jail parameter names
const (
	ParamPath        = "path"
	ParamName        = "name"
	ParamHostname    = "host.hostname"
	ParamVNet        = "vnet"
	ParamChildrenMax = "children.max"
	ParamPersist     = "persist"
	ParamErrMsg      = "errmsg"
)

// vnetNew is JAIL_SYS_NEW, which gives the jail its own network stack
const vnetNew = 1

// ErrDuplicateParam is returned by Add when the key is already present
var ErrDuplicateParam = errors.New("duplicate parameter")

// Kind identifies the payload carried by a Value
type Kind int

const (
	KindFlag Kind = iota
	KindInteger
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindFlag:
		return "flag"
	case KindInteger:
		return "integer"
	case KindText:
		return "text"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is a tagged jail parameter value: a 32-bit integer, a text string,
// or a presence-only flag.
type Value struct {
	kind Kind
	i    int32
	s    string
}

// Integer returns an integer value.
func Integer(i int32) Value { return Value{kind: KindInteger, i: i} }

// Text returns a string value.
func Text(s string) Value { return Value{kind: KindText, s: s} }

// Flag returns a presence-only value.
func Flag() Value { return Value{kind: KindFlag} }

func (v Value) Kind() Kind { return v.kind }

// Int returns the integer payload and whether v is an integer.
func (v Value) Int() (int32, bool) { return v.i, v.kind == KindInteger }

// Str returns the text payload and whether v is text.
func (v Value) Str() (string, bool) { return v.s, v.kind == KindText }

func (v Value) String() string {
	switch v.kind {
	case KindInteger:
		return strconv.FormatInt(int64(v.i), 10)
	case KindText:
		return strconv.Quote(v.s)
	default:
		return "<flag>"
	}
}

// Entry is a single named parameter
type Entry struct {
	Key   string
	Value Value
}

// ParameterSet is an ordered collection of jail parameters with unique keys.
// The order is preserved when the set is marshalled for the kernel.
type ParameterSet struct {
	entries []Entry
	index   map[string]int
}

// NewParameterSet returns an empty parameter set.
func NewParameterSet() *ParameterSet {
	return &ParameterSet{index: make(map[string]int)}
}

// Set assigns value to key. An existing key keeps its position.
func (p *ParameterSet) Set(key string, value Value) *ParameterSet {
	if i, ok := p.index[key]; ok {
		p.entries[i].Value = value
		return p
	}
	p.index[key] = len(p.entries)
	p.entries = append(p.entries, Entry{Key: key, Value: value})
	return p
}

// SetDefault assigns value to key only if key is absent.
func (p *ParameterSet) SetDefault(key string, value Value) *ParameterSet {
	if !p.Has(key) {
		p.Set(key, value)
	}
	return p
}

// Add appends a new entry and fails if the key is already present.
func (p *ParameterSet) Add(key string, value Value) error {
	if p.Has(key) {
		return fmt.Errorf("%w: %s", ErrDuplicateParam, key)
	}
	p.Set(key, value)
	return nil
}

// Get returns the value stored under key.
func (p *ParameterSet) Get(key string) (Value, bool) {
	i, ok := p.index[key]
	if !ok {
		return Value{}, false
	}
	return p.entries[i].Value, true
}

func (p *ParameterSet) Has(key string) bool {
	_, ok := p.index[key]
	return ok
}

func (p *ParameterSet) Len() int { return len(p.entries) }

// Entries returns a copy of the entries in order.
func (p *ParameterSet) Entries() []Entry {
	out := make([]Entry, len(p.entries))
	copy(out, p.entries)
	return out
}

// Path returns the root filesystem path if one is set as text.
func (p *ParameterSet) Path() (string, bool) {
	v, ok := p.Get(ParamPath)
	if !ok {
		return "", false
	}
	return v.Str()
}

// Clone returns an independent copy of p.
func (p *ParameterSet) Clone() *ParameterSet {
	c := NewParameterSet()
	for _, e := range p.entries {
		c.Set(e.Key, e.Value)
	}
	return c
}

// Apply runs each preset against p in order.
func (p *ParameterSet) Apply(presets ...Preset) *ParameterSet {
	for _, preset := range presets {
		preset(p)
	}
	return p
}

// MarshalYAML renders the set as an ordered mapping. Flags become null.
func (p *ParameterSet) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, e := range p.entries {
		key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: e.Key}
		var value *yaml.Node
		switch e.Value.kind {
		case KindInteger:
			value = &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(int64(e.Value.i), 10)}
		case KindText:
			value = &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: e.Value.s}
		default:
			value = &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "~"}
		}
		node.Content = append(node.Content, key, value)
	}
	return node, nil
}

// Preset mutates a parameter set; presets compose through Apply.
type Preset func(*ParameterSet)

// RootPath sets the jail's root filesystem.
func RootPath(path string) Preset {
	return func(p *ParameterSet) { p.Set(ParamPath, Text(path)) }
}

// Name sets the jail name.
func Name(name string) Preset {
	return func(p *ParameterSet) { p.Set(ParamName, Text(name)) }
}

// Hostname sets host.hostname.
func Hostname(name string) Preset {
	return func(p *ParameterSet) { p.Set(ParamHostname, Text(name)) }
}

// VNet gives the jail its own virtual network stack when enabled. When
// disabled the parameter is left out and the jail inherits the host stack.
func VNet(enabled bool) Preset {
	return func(p *ParameterSet) {
		if enabled {
			p.Set(ParamVNet, Integer(vnetNew))
		}
	}
}

// ChildrenMax bounds the number of child jails.
func ChildrenMax(n int32) Preset {
	return func(p *ParameterSet) { p.Set(ParamChildrenMax, Integer(n)) }
}

// Persist keeps the jail alive without any attached process.
func Persist() Preset {
	return func(p *ParameterSet) { p.Set(ParamPersist, Flag()) }
}

// Allow sets allow.<name> for each name.
func Allow(names ...string) Preset {
	return func(p *ParameterSet) {
		for _, name := range names {
			p.Set("allow."+name, Flag())
		}
	}
}
