package main

import (
	"net/http"
	"ticketing/src/services"
	"ticketing/src/types"

	"github.com/gin-gonic/gin"
)

func transactionHandlers(g *gin.RouterGroup, svc *services.Services) *gin.RouterGroup {
	g.
		GET("/credits", func(ctx *gin.Context) {
			balance, err := svc.Credits.Balance(ctx.Request.Context(), ctx.GetUint("id"))
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": gin.H{"credits": balance.StringFixed(2)}})
		}).
		GET("/credits/history", func(ctx *gin.Context) {
			var query types.PageQuery
			if err := ctx.ShouldBindQuery(&query); err != nil {
				badRequest(ctx, err)
				return
			}
			history, err := svc.Credits.History(ctx.Request.Context(), ctx.GetUint("id"), query.Page, query.Limit)
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": history})
		})
	return g
}
