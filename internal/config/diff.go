package config

import "github.com/salama-app/salama/internal/lang"

// ChangeSet describes what changed between two configs. Only settings that
// can be applied without restarting the daemon are tracked: log level takes
// effect on the logger, language on the next listening session, and a new
// cache manifest triggers an install + activate cycle.
type ChangeSet struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	LanguageChanged bool
	NewLanguage     lang.Lang

	ManifestChanged bool
}

// Any reports whether the change set contains any hot-reloadable change.
func (c ChangeSet) Any() bool {
	return c.LogLevelChanged || c.LanguageChanged || c.ManifestChanged
}

// Diff compares old and updated configs and returns what changed among the
// hot-reloadable settings.
func Diff(old, updated *Config) ChangeSet {
	var c ChangeSet

	if old.Server.LogLevel != updated.Server.LogLevel {
		c.LogLevelChanged = true
		c.NewLogLevel = updated.Server.LogLevel
	}
	if old.Voice.Language != updated.Voice.Language {
		c.LanguageChanged = true
		c.NewLanguage = updated.Voice.Language
	}
	if manifestChanged(old, updated) {
		c.ManifestChanged = true
	}
	return c
}

func manifestChanged(old, updated *Config) bool {
	om, nm := old.Cache.Manifest, updated.Cache.Manifest
	if om.Generation != nm.Generation || len(om.Paths) != len(nm.Paths) {
		return true
	}
	for i := range om.Paths {
		if om.Paths[i] != nm.Paths[i] {
			return true
		}
	}
	return false
}
