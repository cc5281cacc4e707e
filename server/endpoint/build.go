package endpoint

import (
	"maps"
	"net/http"
	"runtime"
	"slices"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/authconnect/version"
)

var startTime = time.Now()

// Connectors reports the status of every configured connector by name.
type Connectors func() map[string]string

func (f Connectors) statuses() map[string]string {
	if f == nil {
		return map[string]string{}
	}
	return f()
}

// Info reports the build and the configured connectors with their status.
func Info(serviceName string, connectors Connectors) gin.HandlerFunc {
	return func(c *gin.Context) {
		statuses := connectors.statuses()
		c.JSON(http.StatusOK, gin.H{
			"service":    serviceName,
			"build":      version.Current(),
			"connectors": slices.Sorted(maps.Keys(statuses)),
			"status":     statuses,
			"uptime":     time.Since(startTime).Round(time.Second).String(),
			"timestamp":  now(),
		})
	}
}

// Version reports the build of the binary.
func Version() gin.HandlerFunc {
	return func(c *gin.Context) {
		b := version.Current()
		c.JSON(http.StatusOK, gin.H{"version": b.Short(), "release": b.Release(), "build": b})
	}
}

// Metrics is a point-in-time snapshot for operators without an OTLP
// collector: connectors per status and the runtime footprint.
func Metrics(connectors Connectors) gin.HandlerFunc {
	return func(c *gin.Context) {
		byStatus := map[string]int{}
		for _, s := range connectors.statuses() {
			byStatus[s]++
		}
		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		c.JSON(http.StatusOK, gin.H{
			"timestamp":  now(),
			"connectors": byStatus,
			"goroutines": runtime.NumGoroutine(),
			"heap_mb":    m.HeapAlloc >> 20,
			"gc_runs":    m.NumGC,
		})
	}
}
