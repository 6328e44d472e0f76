package main

import (
	"net/http"
	"ticketing/src/services"
	"ticketing/src/types"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func adminHandlers(g *gin.RouterGroup, db *gorm.DB, svc *services.Services, defaultDays int) *gin.RouterGroup {
	g.
		POST("/tickets/:id/refund-status", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				badRequest(ctx, err)
				return
			}
			var body types.ApproveRefundRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				badRequest(ctx, err)
				return
			}
			result, err := svc.Refunds.Approve(ctx.Request.Context(), params.ID, body.Status)
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": result})
		}).
		POST("/refunds/auto-complete", func(ctx *gin.Context) {
			body := types.AutoCompleteRequestBody{Days: defaultDays}
			if ctx.Request.ContentLength > 0 {
				if err := ctx.ShouldBindJSON(&body); err != nil {
					badRequest(ctx, err)
					return
				}
			}
			n, err := svc.Refunds.AutoCompleteStale(ctx.Request.Context(), body.Days)
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": gin.H{"completed": n, "days": body.Days}})
		}).
		GET("/refunds/pending", func(ctx *gin.Context) {
			tickets, err := svc.Refunds.ListPending(ctx.Request.Context())
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": tickets})
		}).
		GET("/refunds", func(ctx *gin.Context) {
			var query types.PageQuery
			if err := ctx.ShouldBindQuery(&query); err != nil {
				badRequest(ctx, err)
				return
			}
			page, err := svc.Refunds.List(ctx.Request.Context(), query.Page, query.Limit)
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": page})
		}).
		POST("/users/:id/credits", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				badRequest(ctx, err)
				return
			}
			var body types.AdminCreditRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				badRequest(ctx, err)
				return
			}
			amount, err := decimal.NewFromString(body.Amount)
			if err != nil || amount.IsZero() {
				abortWithError(ctx, types.ErrInvalidRequest.Withf("amount must be a non-zero decimal number"))
				return
			}
			entry := services.CreditEntry{
				UserID:      params.ID,
				Amount:      amount,
				Type:        types.CREDIT_ADMIN_ADJUSTMENT,
				Description: body.Description,
			}
			var row any
			err = db.WithContext(ctx.Request.Context()).Transaction(func(tx *gorm.DB) error {
				var err error
				if amount.IsNegative() {
					row, err = svc.Credits.SpendTx(ctx.Request.Context(), tx, entry)
				} else {
					row, err = svc.Credits.ApplyTx(ctx.Request.Context(), tx, entry)
				}
				return err
			})
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": row})
		}).
		GET("/users/:id/credits/reconcile", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				badRequest(ctx, err)
				return
			}
			if err := svc.Credits.Reconcile(ctx.Request.Context(), params.ID); err != nil {
				abortWithError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": gin.H{"consistent": true}})
		})
	return g
}
