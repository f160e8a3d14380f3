package handler

import (
	"strconv"

	"bankcore/internal/model"
	"bankcore/internal/service"
	"bankcore/pkg/response"

	"github.com/gin-gonic/gin"
)

// Services 处理器依赖的服务
type Services struct {
	Customers    *service.CustomerService
	Accounts     *service.AccountService
	Transactions *service.TransactionService
	Loans        *service.LoanService
	Dashboard    *service.DashboardService
	Audit        *service.OutboxAuditLog
}

// Handler 统一处理器
type Handler struct {
	customerService    *service.CustomerService
	accountService     *service.AccountService
	transactionService *service.TransactionService
	loanService        *service.LoanService
	dashboardService   *service.DashboardService
	auditLog           *service.OutboxAuditLog
}

func NewHandler(s *Services) *Handler {
	return &Handler{
		customerService:    s.Customers,
		accountService:     s.Accounts,
		transactionService: s.Transactions,
		loanService:        s.Loans,
		dashboardService:   s.Dashboard,
		auditLog:           s.Audit,
	}
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.ParamError(c, "id 参数错误")
		return 0, false
	}
	return id, true
}

func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	return page, pageSize
}

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return false
	}
	return true
}

// reasonRequest 冻结、取消等操作附带的说明，可以为空
type reasonRequest struct {
	Reason string `json:"reason"`
}

func bindReason(c *gin.Context) (string, bool) {
	var req reasonRequest
	if c.Request.ContentLength == 0 {
		return "", true
	}
	if !bindJSON(c, &req) {
		return "", false
	}
	return req.Reason, true
}

// auditHistory GET /api/v1/{entity}/:id/audit
func (h *Handler) auditHistory(entityType string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		events, err := h.auditLog.History(c.Request.Context(), entityType, id)
		if err != nil {
			handleError(c, err)
			return
		}
		response.Success(c, events)
	}
}

// ============================================================
// 客户
// ============================================================

// CreateCustomer POST /api/v1/customers
func (h *Handler) CreateCustomer(c *gin.Context) {
	var req service.CreateCustomerRequest
	if !bindJSON(c, &req) {
		return
	}
	customer, err := h.customerService.Create(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, customer)
}

// ListCustomers GET /api/v1/customers?page=1&page_size=20
func (h *Handler) ListCustomers(c *gin.Context) {
	page, pageSize := pageParams(c)
	customers, total, err := h.customerService.List(c.Request.Context(), page, pageSize)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, response.PageData{List: customers, Total: total, Page: page, PageSize: pageSize})
}

// GetCustomer GET /api/v1/customers/:id
func (h *Handler) GetCustomer(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	detail, err := h.customerService.Get(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, detail)
}

// ListCustomerLoans GET /api/v1/customers/:id/loans
func (h *Handler) ListCustomerLoans(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	loans, err := h.loanService.ListByCustomer(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, loans)
}

// UpdateKYC POST /api/v1/customers/:id/kyc
func (h *Handler) UpdateKYC(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req service.UpdateKYCRequest
	if !bindJSON(c, &req) {
		return
	}
	customer, err := h.customerService.UpdateKYC(c.Request.Context(), id, &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, customer)
}

// UpdateCreditScore POST /api/v1/customers/:id/credit-score
func (h *Handler) UpdateCreditScore(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req struct {
		CreditScore *int `json:"credit_score" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	customer, err := h.customerService.UpdateCreditScore(c.Request.Context(), id, *req.CreditScore)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, customer)
}

// ============================================================
// 账户
// ============================================================

// CreateAccount POST /api/v1/accounts
func (h *Handler) CreateAccount(c *gin.Context) {
	var req service.CreateAccountRequest
	if !bindJSON(c, &req) {
		return
	}
	account, err := h.accountService.Create(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, account)
}

// ListAccounts GET /api/v1/accounts?customer_id=xxx
func (h *Handler) ListAccounts(c *gin.Context) {
	customerID, err := strconv.ParseInt(c.Query("customer_id"), 10, 64)
	if err != nil {
		response.ParamError(c, "customer_id 参数错误")
		return
	}
	accounts, err := h.accountService.ListByCustomer(c.Request.Context(), customerID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, accounts)
}

// GetAccount GET /api/v1/accounts/:id
func (h *Handler) GetAccount(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	detail, err := h.accountService.Get(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, detail)
}

// FreezeAccount POST /api/v1/accounts/:id/freeze
func (h *Handler) FreezeAccount(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	reason, ok := bindReason(c)
	if !ok {
		return
	}
	account, err := h.accountService.Freeze(c.Request.Context(), id, reason)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, account)
}

// UnfreezeAccount POST /api/v1/accounts/:id/unfreeze
func (h *Handler) UnfreezeAccount(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	reason, ok := bindReason(c)
	if !ok {
		return
	}
	account, err := h.accountService.Unfreeze(c.Request.Context(), id, reason)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, account)
}

// UpdateLimits POST /api/v1/accounts/:id/limits
func (h *Handler) UpdateLimits(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req service.UpdateLimitsRequest
	if !bindJSON(c, &req) {
		return
	}
	account, err := h.accountService.UpdateLimits(c.Request.Context(), id, &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, account)
}

// DeleteAccount DELETE /api/v1/accounts/:id
func (h *Handler) DeleteAccount(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.accountService.Delete(c.Request.Context(), id); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"id": id})
}

// ListTransactions GET /api/v1/accounts/:id/transactions?page=1&page_size=20
func (h *Handler) ListTransactions(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	page, pageSize := pageParams(c)
	list, total, err := h.accountService.ListTransactions(c.Request.Context(), id, page, pageSize)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, response.PageData{List: list, Total: total, Page: page, PageSize: pageSize})
}

// ============================================================
// 流水
// ============================================================

// CreateTransaction POST /api/v1/transactions
func (h *Handler) CreateTransaction(c *gin.Context) {
	var req service.CreateTransactionRequest
	if !bindJSON(c, &req) {
		return
	}
	trans, err := h.transactionService.Create(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, trans)
}

// GetTransaction GET /api/v1/transactions/:id
func (h *Handler) GetTransaction(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	trans, err := h.transactionService.Get(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, trans)
}

// ProcessTransaction POST /api/v1/transactions/:id/process
func (h *Handler) ProcessTransaction(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	trans, err := h.transactionService.Process(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, trans)
}

// CancelTransaction POST /api/v1/transactions/:id/cancel
func (h *Handler) CancelTransaction(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	reason, ok := bindReason(c)
	if !ok {
		return
	}
	trans, err := h.transactionService.Cancel(c.Request.Context(), id, reason)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, trans)
}

// ============================================================
// 贷款
// ============================================================

// CreateLoan POST /api/v1/loans
func (h *Handler) CreateLoan(c *gin.Context) {
	var req service.CreateLoanRequest
	if !bindJSON(c, &req) {
		return
	}
	loan, err := h.loanService.Create(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, loan)
}

// GetLoan GET /api/v1/loans/:id
func (h *Handler) GetLoan(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	detail, err := h.loanService.Get(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, detail)
}

// GetSchedule GET /api/v1/loans/:id/schedule
func (h *Handler) GetSchedule(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	schedule, err := h.loanService.GetSchedule(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, schedule)
}

// ApproveLoan POST /api/v1/loans/:id/approve
func (h *Handler) ApproveLoan(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	loan, err := h.loanService.Approve(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, loan)
}

// DisburseLoan POST /api/v1/loans/:id/disburse
func (h *Handler) DisburseLoan(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	loan, err := h.loanService.Disburse(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, loan)
}

// TransitionLoan POST /api/v1/loans/:id/status
func (h *Handler) TransitionLoan(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status" binding:"required"`
		Reason string `json:"reason"`
	}
	if !bindJSON(c, &req) {
		return
	}
	loan, err := h.loanService.Transition(c.Request.Context(), id, req.Status, req.Reason)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, loan)
}

// AddCollateral POST /api/v1/loans/:id/collateral
func (h *Handler) AddCollateral(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req service.AddCollateralRequest
	if !bindJSON(c, &req) {
		return
	}
	collateral, err := h.loanService.AddCollateral(c.Request.Context(), id, &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, collateral)
}

// RecordPayment POST /api/v1/loans/:id/payments
func (h *Handler) RecordPayment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req service.RecordPaymentRequest
	if !bindJSON(c, &req) {
		return
	}
	payment, err := h.loanService.RecordPayment(c.Request.Context(), id, &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, payment)
}

// ============================================================
// 汇总
// ============================================================

// Dashboard GET /api/v1/dashboard
func (h *Handler) Dashboard(c *gin.Context) {
	summary, err := h.dashboardService.Summary(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, summary)
}

var auditEntities = map[string]string{
	"customers":    model.EntityCustomer,
	"accounts":     model.EntityAccount,
	"transactions": model.EntityTransaction,
	"loans":        model.EntityLoan,
}
