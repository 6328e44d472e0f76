package main

import (
	"net/http"
	"ticketing/src/services"
	"ticketing/src/types"

	"github.com/gin-gonic/gin"
)

func admissionHandlers(g *gin.RouterGroup, svc *services.Services) *gin.RouterGroup {
	g.POST("/check-in", func(ctx *gin.Context) {
		var body types.CheckInRequestBody
		if err := ctx.ShouldBindJSON(&body); err != nil {
			badRequest(ctx, err)
			return
		}
		ticket, err := svc.CheckIn.CheckIn(ctx.Request.Context(), body.Code)
		if err != nil {
			abortWithError(ctx, err)
			return
		}
		ctx.JSON(http.StatusOK, gin.H{"data": ticket})
	})
	return g
}
