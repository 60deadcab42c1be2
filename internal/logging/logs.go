package logging

import "github.com/rs/zerolog/log"

// Printf-style helpers over the global zerolog logger. Call sites use a
// "pkg.Type.method key=value" message layout.

func Tracef(format string, args ...any) {
	log.Trace().Msgf(format, args...)
}

func Debugf(format string, args ...any) {
	log.Debug().Msgf(format, args...)
}

func Infof(format string, args ...any) {
	log.Info().Msgf(format, args...)
}

func Warnf(format string, args ...any) {
	log.Warn().Msgf(format, args...)
}

func Errorf(format string, args ...any) {
	log.Error().Msgf(format, args...)
}

// Logf writes regardless of the configured level; tests use it for
// step markers.
func Logf(format string, args ...any) {
	log.Log().Msgf(format, args...)
}
