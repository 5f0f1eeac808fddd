package handler

import (
	"bankledger/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// SetupRouter 配置路由
func SetupRouter(ledger *service.LedgerService, log *zap.Logger, mode string) *gin.Engine {
	if mode == "" {
		mode = gin.ReleaseMode
	}
	gin.SetMode(mode)

	r := gin.New()

	r.Use(RecoveryMiddleware(log))
	r.Use(LoggerMiddleware(log))
	r.Use(MetricsMiddleware())
	r.Use(CORSMiddleware())

	h := NewHandler(ledger, log)

	api := r.Group("/api/v1")
	{
		accounts := api.Group("/accounts")
		{
			accounts.POST("", h.CreateAccount)
			accounts.GET("/:no", h.GetAccount)
			accounts.DELETE("/:no", h.DeleteAccount)
			accounts.POST("/:no/deposit", h.Deposit)
			accounts.POST("/:no/withdraw", h.Withdraw)
			accounts.POST("/:no/statement", h.Statement)
			accounts.POST("/:no/statement.csv", h.StatementCSV)
		}

		api.POST("/transfers", h.Transfer)
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}
