package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// SetupRouter 配置路由
func SetupRouter(s *Services, mode string, log zerolog.Logger) *gin.Engine {
	if mode == "" {
		mode = gin.ReleaseMode
	}
	gin.SetMode(mode)

	r := gin.New()

	r.Use(RecoveryMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware())

	h := NewHandler(s)

	api := r.Group("/api/v1")
	{
		customers := api.Group("/customers")
		{
			customers.POST("", h.CreateCustomer)
			customers.GET("", h.ListCustomers)
			customers.GET("/:id", h.GetCustomer)
			customers.GET("/:id/loans", h.ListCustomerLoans)
			customers.POST("/:id/kyc", h.UpdateKYC)
			customers.POST("/:id/credit-score", h.UpdateCreditScore)
		}

		accounts := api.Group("/accounts")
		{
			accounts.POST("", h.CreateAccount)
			accounts.GET("", h.ListAccounts)
			accounts.GET("/:id", h.GetAccount)
			accounts.DELETE("/:id", h.DeleteAccount)
			accounts.POST("/:id/freeze", h.FreezeAccount)
			accounts.POST("/:id/unfreeze", h.UnfreezeAccount)
			accounts.POST("/:id/limits", h.UpdateLimits)
			accounts.GET("/:id/transactions", h.ListTransactions)
		}

		transactions := api.Group("/transactions")
		{
			transactions.POST("", h.CreateTransaction)
			transactions.GET("/:id", h.GetTransaction)
			transactions.POST("/:id/process", h.ProcessTransaction)
			transactions.POST("/:id/cancel", h.CancelTransaction)
		}

		loans := api.Group("/loans")
		{
			loans.POST("", h.CreateLoan)
			loans.GET("/:id", h.GetLoan)
			loans.GET("/:id/schedule", h.GetSchedule)
			loans.POST("/:id/approve", h.ApproveLoan)
			loans.POST("/:id/disburse", h.DisburseLoan)
			loans.POST("/:id/status", h.TransitionLoan)
			loans.POST("/:id/collateral", h.AddCollateral)
			loans.POST("/:id/payments", h.RecordPayment)
		}

		// 审计记录
		for group, entity := range auditEntities {
			api.GET("/"+group+"/:id/audit", h.auditHistory(entity))
		}

		api.GET("/dashboard", h.Dashboard)
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
