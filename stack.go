package gelf

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
)

// StackError is an error that carries a stack trace. Errors implementing it
// are logged with the error text as the short message and the stack as the
// full message, and the file and line are taken from the stack's first line
// when it ends in a "(file:line)" fragment.
type StackError interface {
	error
	Stack() string
}

type stackError struct {
	err   error
	stack string
}

func (e *stackError) Error() string { return e.err.Error() }
func (e *stackError) Unwrap() error { return e.err }
func (e *stackError) Stack() string { return e.stack }

// WithStack annotates err with the stack of the calling goroutine, starting
// at the caller of WithStack. The first line of the stack has the form
// "<err> (<file>:<line>)". WithStack returns nil if err is nil.
func WithStack(err error) error {
	if err == nil {
		return nil
	}

	pcs := make([]uintptr, 32)
	n := runtime.Callers(2, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	var sb strings.Builder
	first := true
	for {
		f, more := frames.Next()
		if first {
			fmt.Fprintf(&sb, "%s (%s:%d)", err.Error(), f.File, f.Line)
			first = false
		}
		fmt.Fprintf(&sb, "\n    at %s (%s:%d)", f.Function, f.File, f.Line)
		if !more {
			break
		}
	}

	return &stackError{err: err, stack: sb.String()}
}

// parseStackLocation extracts the file and line from the "(file:line)" or
// "(file:line:column)" fragment at the end of the stack's first line.
func parseStackLocation(stack string) (file, line string, err error) {
	first, _, _ := strings.Cut(stack, "\n")
	first = strings.TrimSpace(first)

	open := strings.LastIndexByte(first, '(')
	if open < 0 {
		return "", "", &StackParseWarning{Line: first}
	}
	end := strings.IndexByte(first[open:], ')')
	if end < 0 {
		return "", "", &StackParseWarning{Line: first}
	}

	// numeric suffix is line[:column]; everything before it is the file,
	// which may itself contain colons (drive letters)
	parts := strings.Split(first[open+1:open+end], ":")
	i := len(parts)
	for i > 1 && isDigits(parts[i-1]) {
		i--
	}
	if i == len(parts) || i == 0 {
		return "", "", &StackParseWarning{Line: first}
	}

	file = strings.Join(parts[:i], ":")
	if file == "" {
		return "", "", &StackParseWarning{Line: first}
	}
	return file, parts[i], nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	_, err := strconv.ParseUint(s, 10, 64)
	return err == nil
}
