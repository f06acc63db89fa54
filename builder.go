package gelf

import (
	"encoding/json"
	"fmt"
	"time"
)

// Details holds the optional parts of a log call.
type Details struct {
	// FullMessage is the long form of a string message. It defaults to the
	// short message, and is ignored for StackError values, whose stack is used
	// instead.
	FullMessage string

	// Fields are added to the message as additional fields. Each key gets an
	// underscore prefix on the wire, so "user" is sent as "_user".
	Fields map[string]any

	// Timestamp of the event. The zero value means time.Now().
	Timestamp time.Time

	// OnComplete, when set, is called exactly once with the outcome of the
	// send: nil once every datagram was handed to the socket, otherwise the
	// error that ended the send.
	OnComplete func(error)
}

// Builder normalizes log events into GELF Messages.
type Builder struct {
	Host     string
	Facility string
	Verbose  bool

	now func() time.Time
}

// Build creates the GELF Message for one log call. msg may be a string or
// other scalar, an error (a StackError contributes its stack, file and line),
// or any other value, which is rendered as JSON. d may be nil.
//
// A panic raised by the value's own methods, such as Error on a typed nil
// pointer, is returned as a *SerializationError.
func (b *Builder) Build(msg any, d *Details, level Level) (m *Message, err error) {
	defer func() {
		if r := recover(); r != nil {
			m = nil
			err = &SerializationError{Err: fmt.Errorf("message value of type %T: panic: %v", msg, r)}
		}
	}()

	if d == nil {
		d = &Details{}
	}

	m = &Message{
		Version:  Version,
		Host:     b.Host,
		Facility: b.Facility,
		Level:    level,
	}

	ts := d.Timestamp
	if ts.IsZero() {
		if b.now != nil {
			ts = b.now()
		} else {
			ts = time.Now()
		}
	}
	m.Timestamp = float64(ts.UnixMilli()) / 1000

	if se, ok := msg.(StackError); ok && se.Stack() != "" && se.Error() != "" {
		m.Short = se.Error()
		m.Full = se.Stack()
		file, line, err := parseStackLocation(m.Full)
		if err != nil {
			b.debug("%v; sending without file and line", err)
		} else {
			m.File, m.Line = file, line
		}
	} else if short, ok := scalarText(msg); ok {
		m.Short = short
		m.Full = d.FullMessage
		if m.Full == "" {
			m.Full = short
		}
	} else {
		js, err := json.Marshal(msg)
		if err != nil {
			return nil, &SerializationError{Err: fmt.Errorf("message value of type %T: %w", msg, err)}
		}
		m.Short = string(js)
		m.Full = m.Short
	}

	if len(d.Fields) > 0 {
		m.Extra = make(map[string]any, len(d.Fields))
		for k, v := range d.Fields {
			m.Extra["_"+k] = v
		}
		if v, ok := m.Extra[reservedID]; ok {
			m.Extra[renamedID] = v
			delete(m.Extra, reservedID)
		}
	}

	return m, nil
}

// scalarText renders the message kinds that are used verbatim as the short
// message.
func scalarText(msg any) (string, bool) {
	switch v := msg.(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	case error:
		return v.Error(), true
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return fmt.Sprint(v), true
	}
	return "", false
}

func (b *Builder) debug(format string, args ...any) {
	if !b.Verbose {
		return
	}
	InternalLogger().Printf(format, args...)
}
