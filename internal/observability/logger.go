package observability

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// AccessLogger derives the HTTP access logger from the process logger set up
// by the logging package. The global logger is left as it is.
func AccessLogger(app string) zerolog.Logger {
	return log.Logger.With().
		Str("app", app).
		Str("component", "http").
		Logger()
}
