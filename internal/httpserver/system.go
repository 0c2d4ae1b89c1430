package httpserver

import (
	"math"
	"net/http"
	"os"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/bookshelf/internal/logging"
)

// SystemHTTP reports process and runtime facts to admins.
type SystemHTTP struct {
	ServiceName string
	Port        int
	ContextPath string
	Started     time.Time
	DB          *gorm.DB
}

func (h *SystemHTTP) Info(c echo.Context) error {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	hostname, _ := os.Hostname()
	wd, _ := os.Getwd()
	contextPath := h.ContextPath
	if contextPath == "" {
		contextPath = "/"
	}

	return c.JSON(http.StatusOK, echo.Map{
		"applicationName":  h.ServiceName,
		"goVersion":        runtime.Version(),
		"processors":       runtime.NumCPU(),
		"gomaxprocs":       runtime.GOMAXPROCS(0),
		"heapAlloc":        ms.HeapAlloc,
		"heapSys":          ms.HeapSys,
		"heapInuse":        ms.HeapInuse,
		"stackInuse":       ms.StackInuse,
		"totalMemory":      ms.Sys,
		"memoryLimit":      memoryLimit(ms.Sys),
		"numGC":            ms.NumGC,
		"goroutines":       runtime.NumGoroutine(),
		"uptime":           time.Since(h.Started).Milliseconds(),
		"startTime":        h.Started.UnixMilli(),
		"osName":           runtime.GOOS,
		"osArch":           runtime.GOARCH,
		"hostname":         hostname,
		"pid":              os.Getpid(),
		"workingDirectory": wd,
		"serverPort":       h.Port,
		"contextPath":      contextPath,
		"timestamp":        time.Now().UnixMilli(),
	})
}

func (h *SystemHTTP) Health(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "system.health")

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	pct := math.Round(usagePercent(ms.HeapAlloc, memoryLimit(ms.Sys))*100) / 100

	healthStatus := "HEALTHY"
	if pct > 90 {
		healthStatus = "WARNING"
	}

	database := "UP"
	if err := pingDB(ctx, h.DB); err != nil {
		l.Warn("db_ping_failed", "error", err)
		database = "DOWN"
		healthStatus = "WARNING"
	}

	return c.JSON(http.StatusOK, echo.Map{
		"status":             "UP",
		"timestamp":          time.Now().UnixMilli(),
		"memoryUsagePercent": pct,
		"healthStatus":       healthStatus,
		"database":           database,
	})
}

// memoryLimit is the soft limit set through GOMEMLIMIT, or what the runtime
// has obtained from the OS when no limit is set.
func memoryLimit(sys uint64) uint64 {
	limit := debug.SetMemoryLimit(-1)
	if limit <= 0 || limit == math.MaxInt64 {
		return sys
	}
	return uint64(limit)
}

func usagePercent(used, limit uint64) float64 {
	if limit == 0 {
		return 0
	}
	return float64(used) / float64(limit) * 100
}
