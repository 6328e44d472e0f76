package main

import (
	"log"
	"net/http"
	"ticketing/src/types"

	"github.com/gin-gonic/gin"
)

var kindStatus = map[types.ErrorKind]int{
	types.KIND_NOT_FOUND:          http.StatusNotFound,
	types.KIND_UNAUTHORIZED:       http.StatusForbidden,
	types.KIND_INVALID_STATE:      http.StatusConflict,
	types.KIND_POLICY_VIOLATION:   http.StatusUnprocessableEntity,
	types.KIND_INSUFFICIENT_FUNDS: http.StatusPaymentRequired,
	types.KIND_VALIDATION:         http.StatusBadRequest,
	types.KIND_INVARIANT:          http.StatusInternalServerError,
}

func statusFor(appErr *types.AppError) int {
	if appErr.Code == types.ErrInsufficientInventory.Code || appErr.Code == types.ErrSoldOut.Code {
		return http.StatusConflict
	}
	if status, ok := kindStatus[appErr.Kind]; ok {
		return status
	}
	return http.StatusBadRequest
}

// abortWithError writes a business failure with its code and details, or a
// generic 500 for anything else.
func abortWithError(ctx *gin.Context, err error) {
	if appErr, ok := types.AsAppError(err); ok {
		status := statusFor(appErr)
		if status >= http.StatusInternalServerError {
			log.Printf("[api] %s %s: %s\n", ctx.Request.Method, ctx.FullPath(), appErr.Error())
		}
		ctx.AbortWithStatusJSON(status, appErr)
		return
	}
	log.Printf("[api] %s %s: %s\n", ctx.Request.Method, ctx.FullPath(), err.Error())
	ctx.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

func badRequest(ctx *gin.Context, err error) {
	ctx.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": types.ErrInvalidRequest.Code})
}
