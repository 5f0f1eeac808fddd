package handler

import (
	"errors"
	"fmt"

	"bankledger/internal/export"
	"bankledger/internal/service"
	"bankledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Handler 把 LedgerService 暴露为 HTTP 接口，只负责参数绑定和错误渲染
type Handler struct {
	ledger *service.LedgerService
	log    *zap.Logger
}

func NewHandler(ledger *service.LedgerService, log *zap.Logger) *Handler {
	return &Handler{ledger: ledger, log: log}
}

// renderError 账本错误 → 响应码
func (h *Handler) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		response.BusinessError(c, response.CodeAccountNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidFormat):
		response.BusinessError(c, response.CodeInvalidFormat, err.Error())
	case errors.Is(err, service.ErrPinMismatch):
		response.BusinessError(c, response.CodePinMismatch, "PIN 校验失败")
	case errors.Is(err, service.ErrInsufficientFunds):
		response.BusinessError(c, response.CodeBalanceNotEnough, "余额不足")
	case errors.Is(err, service.ErrInvalidTarget):
		response.BusinessError(c, response.CodeInvalidTarget, err.Error())
	case errors.Is(err, service.ErrDuplicateKey):
		response.BusinessError(c, response.CodeDuplicateAccount, "账号重复，请重试")
	case errors.Is(err, service.ErrAllocationExhausted):
		response.BusinessError(c, response.CodeAllocationExhausted, "暂时无法分配账号，请稍后重试")
	case errors.Is(err, service.ErrTransactionAborted):
		response.BusinessError(c, response.CodeTransactionAborted, "操作冲突，请重试")
	case errors.Is(err, service.ErrConfirmationRequired):
		response.BusinessError(c, response.CodeConfirmationRequired, err.Error())
	case errors.Is(err, service.ErrStoreUnavailable):
		h.log.Error("存储不可用", zap.String("path", c.FullPath()), zap.Error(err))
		response.Error(c, response.CodeUnavailable, "服务暂不可用")
	default:
		h.log.Error("请求处理失败", zap.String("path", c.FullPath()), zap.Error(err))
		response.ServerError(c, "服务器内部错误")
	}
}

// ============================================================
// 账户
// ============================================================

// CreateAccountRequest 开户请求
type CreateAccountRequest struct {
	HolderName     string          `json:"holder_name" binding:"required"`
	Email          string          `json:"email" binding:"required"`
	Pin            string          `json:"pin" binding:"required"`
	InitialDeposit decimal.Decimal `json:"initial_deposit"`
}

// CreateAccount 开户
// POST /api/v1/accounts
func (h *Handler) CreateAccount(c *gin.Context) {
	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	accountNo, err := h.ledger.CreateAccount(c.Request.Context(), service.CreateAccountRequest{
		HolderName:     req.HolderName,
		Email:          req.Email,
		Pin:            req.Pin,
		InitialDeposit: req.InitialDeposit,
	})
	if err != nil {
		h.renderError(c, err)
		return
	}

	response.Success(c, gin.H{
		"account_number": accountNo,
	})
}

// GetAccount 账户详情
// GET /api/v1/accounts/:no
func (h *Handler) GetAccount(c *gin.Context) {
	profile, err := h.ledger.ViewAccount(c.Request.Context(), c.Param("no"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	response.Success(c, profile)
}

type DeleteAccountRequest struct {
	Pin     string `json:"pin" binding:"required"`
	Confirm bool   `json:"confirm"`
}

// DeleteAccount 删除账户
// DELETE /api/v1/accounts/:no
func (h *Handler) DeleteAccount(c *gin.Context) {
	var req DeleteAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.ledger.DeleteAccount(c.Request.Context(), c.Param("no"), req.Pin, req.Confirm); err != nil {
		h.renderError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "账户已删除"})
}

// ============================================================
// 存取款 / 转账
// ============================================================

type DepositRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// Deposit 存款
// POST /api/v1/accounts/:no/deposit
func (h *Handler) Deposit(c *gin.Context) {
	var req DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	accountNo := c.Param("no")
	balance, err := h.ledger.Deposit(c.Request.Context(), accountNo, req.Amount)
	if err != nil {
		h.renderError(c, err)
		return
	}
	response.Success(c, gin.H{
		"account_number": accountNo,
		"balance":        balance,
	})
}

type WithdrawRequest struct {
	Pin    string          `json:"pin" binding:"required"`
	Amount decimal.Decimal `json:"amount"`
}

// Withdraw 取款
// POST /api/v1/accounts/:no/withdraw
func (h *Handler) Withdraw(c *gin.Context) {
	var req WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	accountNo := c.Param("no")
	balance, err := h.ledger.Withdraw(c.Request.Context(), accountNo, req.Pin, req.Amount)
	if err != nil {
		h.renderError(c, err)
		return
	}
	response.Success(c, gin.H{
		"account_number": accountNo,
		"balance":        balance,
	})
}

type TransferRequest struct {
	From   string          `json:"from" binding:"required"`
	To     string          `json:"to" binding:"required"`
	Pin    string          `json:"pin" binding:"required"`
	Amount decimal.Decimal `json:"amount"`
}

// Transfer 转账
// POST /api/v1/transfers
func (h *Handler) Transfer(c *gin.Context) {
	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.ledger.Transfer(c.Request.Context(), service.TransferRequest{
		From:   req.From,
		Pin:    req.Pin,
		To:     req.To,
		Amount: req.Amount,
	})
	if err != nil {
		h.renderError(c, err)
		return
	}
	response.Success(c, result)
}

// ============================================================
// 流水
// ============================================================

type StatementRequest struct {
	Pin string `json:"pin" binding:"required"`
}

// Statement 迷你对账单
// POST /api/v1/accounts/:no/statement
func (h *Handler) Statement(c *gin.Context) {
	var req StatementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	ctx := c.Request.Context()
	statement, err := h.ledger.MiniStatement(ctx, c.Param("no"), req.Pin)
	if err != nil {
		h.renderError(c, err)
		return
	}
	records, err := statement.Collect(ctx)
	if err != nil {
		h.renderError(c, err)
		return
	}

	response.Success(c, gin.H{
		"account_number": statement.AccountNo,
		"list":           records,
		"total":          len(records),
	})
}

// StatementCSV 下载迷你对账单
// POST /api/v1/accounts/:no/statement.csv
func (h *Handler) StatementCSV(c *gin.Context) {
	var req StatementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	ctx := c.Request.Context()
	statement, err := h.ledger.MiniStatement(ctx, c.Param("no"), req.Pin)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="mini_statement_%s.csv"`, statement.AccountNo))
	c.Status(200)

	// 响应头已发出，中途出错只能记日志
	rows, err := export.WriteStatementCSV(c.Writer, statement.All(ctx))
	if err != nil {
		h.log.Error("导出流水失败",
			zap.String("account_no", statement.AccountNo),
			zap.Int("rows", rows),
			zap.Error(err))
	}
}
