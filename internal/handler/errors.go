package handler

import (
	"errors"

	"bankcore/internal/logger"
	"bankcore/internal/model"
	"bankcore/internal/repository"
	"bankcore/internal/service"
	"bankcore/pkg/response"

	"github.com/gin-gonic/gin"
)

var businessCodes = []struct {
	err  error
	code int
}{
	{repository.ErrCustomerNotFound, response.CodeNotFound},
	{repository.ErrAccountNotFound, response.CodeNotFound},
	{repository.ErrTransactionNotFound, response.CodeNotFound},
	{repository.ErrLoanNotFound, response.CodeNotFound},
	{model.ErrInsufficientFunds, response.CodeInsufficientFunds},
	{model.ErrBelowMinimumBalance, response.CodeBelowMinimumBalance},
	{model.ErrInvalidStateTransition, response.CodeInvalidStateTransition},
	{model.ErrOutOfRangeValue, response.CodeOutOfRange},
	{model.ErrAccountNotOperational, response.CodeAccountNotOperational},
	{model.ErrInvalidAmount, response.CodeInvalidAmount},
	{model.ErrInvalidEnum, response.CodeParamError},
	{service.ErrBusy, response.CodeBusy},
	{repository.ErrOptimisticLock, response.CodeBusy},
}

// errorCode 把服务层错误映射为业务码，未识别的错误按系统错误处理
func errorCode(err error) int {
	for _, bc := range businessCodes {
		if errors.Is(err, bc.err) {
			return bc.code
		}
	}
	return response.CodeServerError
}

func handleError(c *gin.Context, err error) {
	code := errorCode(err)
	if code == response.CodeServerError {
		l := logger.FromContext(c.Request.Context())
		l.Error().Err(err).Str("path", c.FullPath()).Msg("请求处理失败")
		response.ServerError(c, "服务器内部错误")
		return
	}
	response.BusinessError(c, code, err.Error())
}
