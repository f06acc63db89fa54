package gelf

import (
	"context"
	"log/slog"
	"maps"
	"runtime"
)

type ccKey struct{}

// ContextKey is used to extract a log value from context.Context. The value
// must be a `slog.Attr`.
//
//		Example:
//	 	ctx := context.WithValue(ctx, gelf.ContextKey,
//	 		slog.Group("req",
//	 			slog.String("method", r.Method),
//	 			slog.String("url", r.URL.String()),
//	 		)
//	 	)
//
// These attrs are added outside of any group opened with WithGroup.
var ContextKey *ccKey = &ccKey{}

// Sink interface defines the Client API used by the Handler.
type Sink interface {
	Log(level Level, msg any, d *Details) error
	Shutdown(context.Context) error
}

// Handler is an adapter that turns Go structured logs into GELF messages.
// The record message becomes the short message, slog levels are mapped onto
// GELF levels, and attrs become additional fields, with group names joined
// into the field names.
//
//	// Example of basic usage
//	h, err := gelf.NewHandler(&gelf.ClientOptions{Endpoints: endpoints}, nil)
//	if err != nil {
//	   log.Fatalln(err)
//	}
//
//	logger := slog.New(h)
//	slog.SetDefault(logger)
//
//	slog.Info("unrecognized user", "user_id", user_id)
type Handler struct {
	*HandlerOptions
	sink Sink

	// attrs added with WithAttrs, already resolved and keyed
	attrs  map[string]any
	prefix string
}

// NewHandler creates a Client from clientOpts and wraps it in a Handler.
func NewHandler(clientOpts *ClientOptions, opts *HandlerOptions) (*Handler, error) {
	c, err := NewClient(clientOpts)
	if err != nil {
		return nil, err
	}
	return NewHandlerCustom(c, opts), nil
}

// NewHandlerCustom creates a Handler that sends to any Sink, usually a Client
// configured by the caller.
func NewHandlerCustom(sink Sink, opts *HandlerOptions) *Handler {
	if opts == nil {
		opts = DefaultHandlerOptions()
	} else {
		opts.resolve()
	}

	return &Handler{
		HandlerOptions: opts,
		sink:           sink,
		attrs:          map[string]any{},
	}
}

// Shutdown drains and closes the underlying Sink. You MUST NOT log through
// the Handler after calling Shutdown.
func (h *Handler) Shutdown(ctx context.Context) error {
	h.debug("shutting down the logging stack")
	return h.sink.Shutdown(ctx)
}

// Enabled reports whether the handler handles records at the given level.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.Level.Level()
}

// Handle sends the Record as one GELF message. A zero record time is left for
// the Sink to stamp at send time.
func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	fields := make(map[string]any, len(h.attrs)+r.NumAttrs()+2)
	maps.Copy(fields, h.attrs)

	// rule: ignore source if no program counter
	if h.AddSource && r.PC != 0 {
		fs := runtime.CallersFrames([]uintptr{r.PC})
		f, _ := fs.Next()
		fields["file"] = f.File
		fields["line"] = f.Line
	}

	if ctxAttr, ok := ctx.Value(ContextKey).(slog.Attr); ok {
		h.addAttr(fields, "", ctxAttr)
	}

	r.Attrs(func(a slog.Attr) bool {
		h.addAttr(fields, h.prefix, a)
		return true // continue iterating
	})

	return h.sink.Log(levelFromSlog(r.Level), r.Message, &Details{
		Fields:    fields,
		Timestamp: r.Time,
	})
}

// addAttr flattens attr into fields, joining group keys with the separator.
func (h *Handler) addAttr(fields map[string]any, prefix string, attr slog.Attr) {

	// rule: must first resolve, and then ignore if empty
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return
	}

	v := attr.Value
	if v.Kind() == slog.KindGroup {
		// rule: inline attrs if key is empty; empty groups add nothing
		p := prefix
		if len(attr.Key) > 0 {
			p = prefix + attr.Key + h.GroupSeparator
		}
		for _, ga := range v.Group() {
			h.addAttr(fields, p, ga)
		}
		return
	}

	// rule: ignore non-group attrs with empty keys
	if len(attr.Key) == 0 {
		return
	}

	var val any
	switch v.Kind() {
	case slog.KindTime:
		val = v.Time().Format(h.TimeFormat)
	case slog.KindDuration:
		val = v.Duration().String()
	default:
		val = v.Any()
	}
	fields[prefix+attr.Key] = val
}

// WithAttrs returns a new Handler whose attributes consist of both the
// receiver's attributes and the arguments.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {

	// rule: skip if no attrs
	if len(attrs) == 0 {
		return h
	}

	h2 := *h
	h2.attrs = maps.Clone(h.attrs)
	for _, a := range attrs {
		h2.addAttr(h2.attrs, h.prefix, a)
	}
	return &h2
}

// WithGroup returns a new Handler that prefixes the keys of all attrs added
// later with name. If the name is empty, WithGroup returns the receiver.
func (h *Handler) WithGroup(name string) slog.Handler {

	// rule: ignore if name is empty
	if len(name) == 0 {
		return h
	}

	h2 := *h
	h2.prefix = h.prefix + name + h.GroupSeparator
	return &h2
}

func (h *Handler) debug(format string, args ...any) {
	if !h.Verbose {
		return
	}
	InternalLogger().Printf(format, args...)
}
