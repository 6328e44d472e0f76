package main

import (
	"net/http"
	"ticketing/src/services"
	"ticketing/src/types"

	"github.com/gin-gonic/gin"
)

func reservationHandlers(g *gin.RouterGroup, svc *services.Services) *gin.RouterGroup {
	g.POST("/reservations", func(ctx *gin.Context) {
		var body types.ReserveRequestBody
		if err := ctx.ShouldBindJSON(&body); err != nil {
			badRequest(ctx, err)
			return
		}
		tickets, err := svc.Checkout.Reserve(ctx.Request.Context(), ctx.GetUint("id"), body.TicketTypeID, body.Quantity)
		if err != nil {
			abortWithError(ctx, err)
			return
		}
		ctx.JSON(http.StatusCreated, gin.H{"data": tickets})
	})
	return g
}
