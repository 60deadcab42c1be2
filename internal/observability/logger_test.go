package observability

import (
	"bytes"
	"strings"
	"testing"

	"github.com/danmuck/zwavectl/internal/testutil/testlog"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestAccessLoggerKeepsGlobalLogger(t *testing.T) {
	testlog.Start(t)
	prev := log.Logger
	defer func() { log.Logger = prev }()

	var buf bytes.Buffer
	log.Logger = zerolog.New(&buf).Level(zerolog.WarnLevel)

	access := AccessLogger("zwavectl")
	if got := log.Logger.GetLevel(); got != zerolog.WarnLevel {
		t.Fatalf("global level got=%s want=%s", got, zerolog.WarnLevel)
	}
	access.Warn().Msg("http_request")
	if out := buf.String(); !strings.Contains(out, `"app":"zwavectl"`) || !strings.Contains(out, `"component":"http"`) {
		t.Fatalf("access line got=%q", out)
	}

	buf.Reset()
	log.Warn().Msg("global")
	if out := buf.String(); strings.Contains(out, `"app"`) || !strings.Contains(out, "global") {
		t.Fatalf("global line got=%q", out)
	}
	access.Info().Msg("below level")
	if strings.Contains(buf.String(), "below level") {
		t.Fatalf("access logger must inherit the global level")
	}
}
