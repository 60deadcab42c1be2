package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danmuck/zwavectl/internal/driver"
	logs "github.com/danmuck/zwavectl/internal/logging"
	"github.com/danmuck/zwavectl/internal/nodestatus"
	"github.com/danmuck/zwavectl/internal/observability"
	"github.com/danmuck/zwavectl/internal/protocol/message"
	"github.com/danmuck/zwavectl/internal/transaction"
	"github.com/gin-gonic/gin"
)

const identifyTimeout = 30 * time.Second

func main() {
	configPath := flag.String("config", "cmd/zwavectl/config.toml", "path to the zwavectl config")
	port := flag.String("port", "", "serial device or tcp://host:port, overrides the config")
	flag.Parse()

	if err := run(*configPath, *port); err != nil {
		fmt.Fprintf(os.Stderr, "zwavectl: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, portOverride string) error {
	logs.ConfigureRuntime()

	cfg := defaultRuntimeConfig()
	if _, err := os.Stat(configPath); err == nil {
		if cfg, err = loadRuntimeConfig(configPath); err != nil {
			return err
		}
	} else {
		logs.Warnf("zwavectl.run config=%s missing, using defaults", configPath)
	}
	if portOverride != "" {
		cfg.Driver.Port = portOverride
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	nodes := nodestatus.NewTracker(cfg.DeadAfterFailures)
	metrics := observability.NewLinkMetrics(nil)
	d, err := driver.Open(cfg.Driver, driver.Options{
		Unsolicited: logUnsolicited,
		Observers:   []transaction.Observer{nodes, metrics},
		Frames:      metrics,
	})
	if err != nil {
		return err
	}
	defer d.Close()
	metrics.Bind(d.Queue().Stats)
	if err := d.Start(); err != nil {
		return err
	}

	idCtx, cancel := context.WithTimeout(ctx, identifyTimeout)
	info, err := d.Identify(idCtx)
	cancel()
	if err != nil {
		return err
	}
	nodes.Seed(info.NodeIDs...)

	var srv *http.Server
	if cfg.StatusListenAddr != "" {
		gin.SetMode(gin.ReleaseMode)
		logger := observability.AccessLogger("zwavectl")
		srv = &http.Server{
			Addr:    cfg.StatusListenAddr,
			Handler: newStatusRouter(linkStatus{driver: d, nodes: nodes}, logger, cfg.StatusCorsOrigins, time.Now()),
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logs.Errorf("zwavectl.run status server err=%v", err)
				stop()
			}
		}()
		logs.Infof("zwavectl.run status_addr=%s", cfg.StatusListenAddr)
	}

	select {
	case <-ctx.Done():
	case <-d.Done():
	}
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}
	if err := d.Err(); err != nil {
		return fmt.Errorf("controller link: %w", err)
	}
	return nil
}

func logUnsolicited(m message.Message) {
	switch v := m.(type) {
	case *message.ApplicationCommandRequest:
		logs.Debugf("zwavectl.unsolicited command node_id=%d bytes=% x", v.SourceNodeID, v.Command)
	case *message.ApplicationUpdateRequest:
		logs.Infof("zwavectl.unsolicited update node_id=%d type=0x%02x", v.NodeID, uint8(v.UpdateType))
	case *message.SerialAPIStarted:
		logs.Infof("zwavectl.unsolicited controller started wake_up_reason=%d", v.WakeUpReason)
	default:
		logs.Debugf("zwavectl.unsolicited type=%s function=%s", m.Type(), m.Function())
	}
}
