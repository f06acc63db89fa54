package gelf

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/francoispqt/gojay"
)

// GELF document keys. Every other key is an additional field, prefixed with
// an underscore.
const (
	keyVersion  = "version"
	keyHost     = "host"
	keyFacility = "facility"
	keyTime     = "timestamp"
	keyLevel    = "level"
	keyShort    = "short_message"
	keyFull     = "full_message"
	keyFile     = "file"
	keyLine     = "line"

	// collectors reserve _id for their own document id
	reservedID = "_id"
	renamedID  = "__id"
)

// Version is the GELF version written into every message.
const Version = "1.0"

// Message represents a GELF document.
type Message struct {
	Version  string
	Host     string
	Facility string
	// Timestamp is seconds since the Unix epoch, with millisecond precision.
	Timestamp float64
	Level     Level
	Short     string
	Full      string
	// File and Line are only set for error values with a parsable stack.
	File  string
	Line  string
	Extra map[string]any
}

// Time converts the GELF timestamp back to a time.Time.
func (m *Message) Time() time.Time {
	return time.UnixMilli(int64(math.Round(m.Timestamp * 1000)))
}

// extraField is an additional field ready for encoding; raw holds the
// pre-rendered JSON of values gojay cannot encode directly.
type extraField struct {
	key string
	val any
	raw *gojay.EmbeddedJSON
}

// messageObject adapts a Message and its prepared extra fields to gojay.
type messageObject struct {
	m      *Message
	extras []extraField
}

func (o *messageObject) IsNil() bool { return o == nil || o.m == nil }

func (o *messageObject) MarshalJSONObject(enc *gojay.Encoder) {
	m := o.m
	enc.StringKey(keyVersion, validText(m.Version))
	enc.StringKey(keyHost, validText(m.Host))
	enc.StringKey(keyFacility, validText(m.Facility))
	enc.Float64Key(keyTime, m.Timestamp)
	enc.IntKey(keyLevel, int(m.Level))
	enc.StringKey(keyShort, validText(m.Short))
	enc.StringKey(keyFull, validText(m.Full))
	enc.StringKeyOmitEmpty(keyFile, validText(m.File))
	enc.StringKeyOmitEmpty(keyLine, validText(m.Line))

	for _, f := range o.extras {
		key := validText(f.key)
		if f.raw != nil {
			enc.AddEmbeddedJSONKey(key, f.raw)
			continue
		}
		switch v := f.val.(type) {
		case string:
			enc.StringKey(key, validText(v))
		case bool:
			enc.BoolKey(key, v)
		case int:
			enc.IntKey(key, v)
		case int64:
			enc.Int64Key(key, v)
		case uint64:
			enc.Uint64Key(key, v)
		case float64:
			enc.Float64Key(key, v)
		}
	}
}

// validText replaces invalid UTF-8 sequences with U+FFFD. gojay copies them
// through unchanged, and collectors reject documents that are not UTF-8.
func validText(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	return strings.ToValidUTF8(s, "\uFFFD")
}

// MarshalJSON renders the GELF document. Additional fields are written in
// key order. Scalar values are encoded directly; any other value is rendered
// with encoding/json and embedded.
func (m *Message) MarshalJSON() ([]byte, error) {
	if math.IsNaN(m.Timestamp) || math.IsInf(m.Timestamp, 0) {
		return nil, &SerializationError{Err: fmt.Errorf("invalid timestamp: %v", m.Timestamp)}
	}

	extras, err := prepareExtras(m.Extra)
	if err != nil {
		return nil, &SerializationError{Err: err}
	}

	b, err := gojay.MarshalJSONObject(&messageObject{m: m, extras: extras})
	if err != nil {
		return nil, &SerializationError{Err: err}
	}
	return b, nil
}

func prepareExtras(extra map[string]any) ([]extraField, error) {
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var errs error
	fields := make([]extraField, 0, len(keys))
	for _, k := range keys {
		f := extraField{key: k}
		switch v := extra[k].(type) {
		case string, bool, int, int64, uint64:
			f.val = v
		case int8:
			f.val = int64(v)
		case int16:
			f.val = int64(v)
		case int32:
			f.val = int64(v)
		case uint:
			f.val = uint64(v)
		case uint8:
			f.val = uint64(v)
		case uint16:
			f.val = uint64(v)
		case uint32:
			f.val = uint64(v)
		case float32:
			if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
				errs = errors.Join(errs, fmt.Errorf("field %s: unsupported float value %v", k, v))
				continue
			}
			f.val = float64(v)
		case float64:
			if math.IsNaN(v) || math.IsInf(v, 0) {
				errs = errors.Join(errs, fmt.Errorf("field %s: unsupported float value %v", k, v))
				continue
			}
			f.val = v
		case error:
			f.val = v.Error()
		default:
			b, err := json.Marshal(v)
			if err != nil {
				errs = errors.Join(errs, fmt.Errorf("field %s: %w", k, err))
				continue
			}
			raw := gojay.EmbeddedJSON(b)
			f.raw = &raw
		}
		fields = append(fields, f)
	}

	return fields, errs
}
