package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/danmuck/zwavectl/internal/driver"
	"github.com/danmuck/zwavectl/internal/nodestatus"
	"github.com/danmuck/zwavectl/internal/observability"
	"github.com/danmuck/zwavectl/internal/transaction"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const version = "0.1.0"

// statusSource is what the status server reads. It never submits transactions.
type statusSource interface {
	Info() driver.ControllerInfo
	QueueStats() transaction.Stats
	QueueSnapshot() []transaction.Snapshot
	Nodes() []nodestatus.Node
	Node(id uint8) (nodestatus.Node, bool)
}

type linkStatus struct {
	driver *driver.Driver
	nodes  *nodestatus.Tracker
}

func (s linkStatus) Info() driver.ControllerInfo           { return s.driver.Info() }
func (s linkStatus) QueueStats() transaction.Stats         { return s.driver.Queue().Stats() }
func (s linkStatus) QueueSnapshot() []transaction.Snapshot { return s.driver.Queue().Snapshot() }
func (s linkStatus) Nodes() []nodestatus.Node              { return s.nodes.List() }
func (s linkStatus) Node(id uint8) (nodestatus.Node, bool) { return s.nodes.Get(id) }

type queueEntry struct {
	Function   string `json:"function"`
	CallbackID uint8  `json:"callback_id"`
	NodeID     uint8  `json:"node_id,omitempty"`
	Priority   string `json:"priority"`
	State      string `json:"state"`
	Attempts   int    `json:"attempts"`
	AgeMS      int64  `json:"age_ms"`
}

func newStatusRouter(src statusSource, logger zerolog.Logger, origins []string, startedAt time.Time) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(logger))
	r.Use(observability.RequestMetricsMiddleware())
	if len(origins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: origins,
			AllowMethods: []string{"GET"},
			AllowHeaders: []string{"Origin", "Content-Type"},
			MaxAge:       12 * time.Hour,
		}))
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(startedAt).String(),
			"service": "zwavectl",
			"version": version,
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/controller", func(c *gin.Context) {
		c.JSON(http.StatusOK, src.Info())
	})
	r.GET("/nodes", func(c *gin.Context) {
		c.JSON(http.StatusOK, src.Nodes())
	})
	r.GET("/nodes/:id", func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 8)
		if err != nil || id == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "node id must be 1-255"})
			return
		}
		n, ok := src.Node(uint8(id))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown node"})
			return
		}
		c.JSON(http.StatusOK, n)
	})
	r.GET("/queue", func(c *gin.Context) {
		stats := src.QueueStats()
		snap := src.QueueSnapshot()
		entries := make([]queueEntry, 0, len(snap))
		for _, s := range snap {
			entries = append(entries, queueEntry{
				Function:   s.Function.String(),
				CallbackID: s.CallbackID,
				NodeID:     s.NodeID,
				Priority:   s.Priority.String(),
				State:      s.State.String(),
				Attempts:   s.Attempts,
				AgeMS:      s.Age.Milliseconds(),
			})
		}
		c.JSON(http.StatusOK, gin.H{
			"queued":              stats.Queued,
			"in_flight":           stats.InFlight,
			"awaiting_callback":   stats.AwaitingCallback,
			"callback_ids_in_use": stats.CallbackIDsInUse,
			"transactions":        entries,
		})
	})
	return r
}
