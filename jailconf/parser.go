package jailconf

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/isdmx/jailrun/sandbox"
)

// ParseError reports an unreadable or malformed jail definition
type ParseError struct {
	Path string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	switch {
	case e.Path != "" && e.Line > 0:
		return fmt.Sprintf("%s:%d: %v", e.Path, e.Line, e.Err)
	case e.Path != "":
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	case e.Line > 0:
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	default:
		return e.Err.Error()
	}
}

func (e *ParseError) Unwrap() error { return e.Err }

type entry struct {
	key   string
	value sandbox.Value
	line  int
}

// ParseFile reads the jail definition at path.
func ParseFile(path string) (*sandbox.ParameterSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	defer f.Close()

	return parse(f, path)
}

// Parse reads a jail definition from r.
func Parse(r io.Reader) (*sandbox.ParameterSet, error) {
	return parse(r, "")
}

func parse(r io.Reader, path string) (*sandbox.ParameterSet, error) {
	var (
		entries []entry
		named   bool
		lineNo  int
	)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		// A naming line without a space names nothing; the next line gets another try.
		if !named {
			if name, _, ok := strings.Cut(line, " "); ok {
				entries = append(entries, entry{key: sandbox.ParamName, value: sandbox.Text(strings.TrimSpace(name)), line: lineNo})
				named = true
			}
			continue
		}

		if key, value, ok := strings.Cut(line, "="); ok {
			entries = append(entries, entry{key: strings.TrimSpace(key), value: ParseValue(value), line: lineNo})
		} else {
			entries = append(entries, entry{key: trimmed, value: sandbox.Flag(), line: lineNo})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, &ParseError{Path: path, Line: lineNo, Err: err}
	}

	if len(entries) > 0 {
		entries = entries[:len(entries)-1]
	}

	params := sandbox.NewParameterSet()
	for _, e := range entries {
		if err := params.Add(e.key, e.value); err != nil {
			return nil, &ParseError{Path: path, Line: e.line, Err: err}
		}
	}
	return params, nil
}

// ParseValue interprets the right-hand side of "key = value". One trailing
// ';' is removed before surrounding whitespace; an empty result is a flag,
// a 32-bit integer becomes an integer, anything else is text.
func ParseValue(s string) sandbox.Value {
	s = strings.TrimSpace(strings.TrimSuffix(s, ";"))
	if s == "" {
		return sandbox.Flag()
	}
	if i, err := strconv.ParseInt(s, 10, 32); err == nil {
		return sandbox.Integer(int32(i))
	}
	return sandbox.Text(s)
}
