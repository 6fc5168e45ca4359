// internal/logging/levels.go
package logging

import (
	"fmt"

	"go.uber.org/zap/zapcore"
)

// TraceLevel is a custom level below Debug for ultra-verbose logging.
// Value: -2 (Debug is -1, Info is 0)
//
// Use for:
//   - Function entry/exit
//   - Wire protocol data
//   - Almost always filtered in production
const TraceLevel = zapcore.Level(-2)

// LevelFromString parses a string into a zapcore.Level, supporting "trace".
func LevelFromString(level string) (zapcore.Level, error) {
	if level == "trace" {
		return TraceLevel, nil
	}
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return zapcore.InfoLevel, err
	}
	return l, nil
}

// LevelName returns the string name for a level, supporting "trace".
// Unknown custom levels render as zap does ("Level(-5)").
func LevelName(level zapcore.Level) string {
	if level == TraceLevel {
		return "trace"
	}
	return level.String()
}

// traceLevelEncoder renders TraceLevel as "trace" instead of "Level(-2)".
func traceLevelEncoder(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	if l == TraceLevel {
		enc.AppendString("trace")
		return
	}
	zapcore.LowercaseLevelEncoder(l, enc)
}

// ParseLevels parses a name→level-name map into name→zapcore.Level.
// Any unrecognized level name fails the whole parse.
func ParseLevels(m map[string]string) (map[string]zapcore.Level, error) {
	out := make(map[string]zapcore.Level, len(m))
	for name, levelName := range m {
		l, err := LevelFromString(levelName)
		if err != nil {
			return nil, fmt.Errorf("unrecognized level %q for %q", levelName, name)
		}
		out[name] = l
	}
	return out, nil
}
