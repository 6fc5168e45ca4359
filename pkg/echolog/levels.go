package echolog

import (
	"github.com/fyrsmithlabs/echolog/internal/logging"
	"go.uber.org/zap/zapcore"
)

// defaultLevelTags maps each standard severity name to itself. Returned
// fresh per call so instances never share a mutable table. "fatal" is
// deliberately absent: tagged events only record, they never terminate
// the process.
func defaultLevelTags() map[string]string {
	return map[string]string{
		"trace": "trace",
		"debug": "debug",
		"info":  "info",
		"warn":  "warn",
		"error": "error",
	}
}

// buildTagLevels merges user tags over the default table into a fresh map
// and resolves every entry to a concrete zap level. Any unrecognized level
// name fails the whole build.
func buildTagLevels(userTags map[string]string) (map[string]zapcore.Level, error) {
	merged := defaultLevelTags()
	for tag, level := range userTags {
		merged[tag] = level
	}
	levels, err := logging.ParseLevels(merged)
	if err != nil {
		return nil, &ConfigurationError{Option: "tags", Reason: "tag maps to unrecognized level", Err: err}
	}
	return levels, nil
}

// resolveLevel picks the highest-severity mapped level among tags, or
// catchAll when no tag matches. zap's numeric level order is the total
// order, so custom levels participate. Independent of tag order.
func resolveLevel(tagLevels map[string]zapcore.Level, catchAll zapcore.Level, tags []string) zapcore.Level {
	var (
		best  zapcore.Level
		found bool
	)
	for _, t := range tags {
		l, ok := tagLevels[t]
		if !ok {
			continue
		}
		if !found || l > best {
			best = l
			found = true
		}
	}
	if !found {
		return catchAll
	}
	return best
}
