package router

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/stockledger/internal/server/handlers"
)

// SyncPasswordHeader carries the shared secret guarding sync and notify endpoints.
const SyncPasswordHeader = "X-Sync-Password"

// Handlers groups the HTTP adapters served by the router.
type Handlers struct {
	Stock   *handlers.StockHandler
	Sync    *handlers.SyncHandler
	Reports *handlers.ReportHandler
}

// New wires the Gin engine with required routes and middlewares. An empty
// syncPassword leaves the guarded endpoints open.
func New(h Handlers, syncPassword string, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	guard := syncPasswordMiddleware(syncPassword)

	products := r.Group("/products")
	products.GET("", h.Stock.ListProducts)
	products.GET("/:id", h.Stock.GetProduct)
	products.POST("/:id/stock-in", h.Stock.StockIn)
	products.POST("/:id/stock-out", h.Stock.StockOut)
	products.GET("/:id/history", h.Stock.History)
	products.POST("/:id/sync/export", guard, h.Sync.ExportProduct)
	products.POST("/:id/sync/import", guard, h.Sync.ImportProduct)

	syncGroup := r.Group("/sync", guard)
	syncGroup.POST("/export", h.Sync.ExportAll)
	syncGroup.POST("/import", h.Sync.ImportAll)

	r.GET("/reports/stock", h.Reports.Stock)
	r.POST("/reports/stock/send", guard, h.Reports.Send)

	if logger != nil {
		logger.Info("router initialized", zap.Bool("sync_password", syncPassword != ""))
	}

	return r
}

func syncPasswordMiddleware(password string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if password == "" {
			c.Next()
			return
		}
		given := c.GetHeader(SyncPasswordHeader)
		if subtle.ConstantTimeCompare([]byte(given), []byte(password)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid sync password"})
			return
		}
		c.Next()
	}
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
