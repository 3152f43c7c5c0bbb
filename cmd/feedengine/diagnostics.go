package main

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/BullionBear/sequex/internal/feed/book"
	"github.com/BullionBear/sequex/internal/feed/core"
)

// diagnosticsServer is cmd/feedengine's optional ambient HTTP surface:
// health, Prometheus metrics and read-only state dumps for ops. It sits
// outside the specified feed/quoting core (spec.md keeps persistence and
// transport concerns out of the core), mirroring the teacher's api/
// package's gin.RouterGroup registration style.
type diagnosticsServer struct {
	engine *gin.Engine
	srv    *http.Server
	books  map[core.InstrumentID]*book.Synchronizer
}

func newDiagnosticsServer(addr string, books map[core.InstrumentID]*book.Synchronizer) *diagnosticsServer {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	d := &diagnosticsServer{engine: r, books: books}
	r.GET("/healthz", d.healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/debug/books/:instrument", d.debugBook)

	d.srv = &http.Server{Addr: addr, Handler: r}
	return d
}

func (d *diagnosticsServer) run() error {
	return d.srv.ListenAndServe()
}

func (d *diagnosticsServer) close() error {
	return d.srv.Close()
}

// @Summary Liveness check
// @Success 200 {object} map[string]string
// @Router /healthz [get]
func (d *diagnosticsServer) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// @Summary Dump a book synchronizer's lifecycle state
// @Param instrument path int true "InstrumentID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /debug/books/{instrument} [get]
func (d *diagnosticsServer) debugBook(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("instrument"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid instrument id"})
		return
	}
	sync, ok := d.books[core.InstrumentID(id)]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no synchronizer registered for instrument"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"instrumentId": id,
		"state":        sync.State().String(),
	})
}
