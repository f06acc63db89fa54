package gelf

import (
	"fmt"
	"log/slog"
	"strings"
)

// Level is a GELF (syslog) severity. Lower values are more severe.
type Level int

const (
	LevelEmergency Level = iota // system is unusable
	LevelAlert                  // action must be taken immediately
	LevelCritical               // critical conditions
	LevelError                  // error conditions
	LevelWarning                // warning conditions
	LevelNotice                 // normal, but significant, condition
	LevelInfo                   // informational message
	LevelDebug                  // debug level message
)

var levelNames = [...]string{"EMERGENCY", "ALERT", "CRITICAL", "ERROR", "WARNING", "NOTICE", "INFO", "DEBUG"}

// levelAliases are the names accepted by ParseLevel, including the short
// syslog forms and the aliases people reach for anyway.
var levelAliases = map[string]Level{
	"EMERGENCY": LevelEmergency,
	"EMERG":     LevelEmergency,
	"PANIC":     LevelEmergency,
	"ALERT":     LevelAlert,
	"CRITICAL":  LevelCritical,
	"CRIT":      LevelCritical,
	"FATAL":     LevelCritical,
	"ERROR":     LevelError,
	"ERR":       LevelError,
	"WARNING":   LevelWarning,
	"WARN":      LevelWarning,
	"NOTICE":    LevelNotice,
	"INFO":      LevelInfo,
	"LOG":       LevelInfo,
	"DEBUG":     LevelDebug,
}

func (l Level) String() string {
	if l.Valid() {
		return levelNames[l]
	}
	return fmt.Sprintf("LEVEL(%d)", int(l))
}

// Valid reports whether l is one of the eight GELF levels.
func (l Level) Valid() bool { return l >= LevelEmergency && l <= LevelDebug }

// ParseLevel resolves a level name, case-insensitively, using the alias table.
func ParseLevel(name string) (Level, error) {
	if l, ok := levelAliases[strings.ToUpper(strings.TrimSpace(name))]; ok {
		return l, nil
	}
	return 0, fmt.Errorf("gelf: unknown level name: %q", name)
}

// levelFromSlog maps slog levels onto GELF levels. Levels above
// slog.LevelError are treated as increasingly severe.
func levelFromSlog(l slog.Level) Level {
	switch {
	case l < slog.LevelInfo:
		return LevelDebug
	case l < slog.LevelWarn:
		return LevelInfo
	case l < slog.LevelError:
		return LevelWarning
	case l < slog.LevelError+4:
		return LevelError
	case l < slog.LevelError+8:
		return LevelCritical
	case l < slog.LevelError+12:
		return LevelAlert
	default:
		return LevelEmergency
	}
}
