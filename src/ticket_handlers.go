package main

import (
	"log"
	"net/http"
	"ticketing/src/lib"
	"ticketing/src/models"
	"ticketing/src/services"
	"ticketing/src/types"

	"github.com/gin-gonic/gin"
)

// ownTicket loads the ticket in the uri and checks it belongs to the caller.
func ownTicket(ctx *gin.Context, svc *services.Services) (*models.Ticket, bool) {
	var params types.SimpleRequestParams
	if err := ctx.ShouldBindUri(&params); err != nil {
		badRequest(ctx, err)
		return nil, false
	}
	ticket, err := svc.Tickets.GetDetailed(ctx.Request.Context(), params.ID)
	if err != nil {
		abortWithError(ctx, err)
		return nil, false
	}
	if ticket.UserID != ctx.GetUint("id") {
		abortWithError(ctx, types.ErrNotOwner)
		return nil, false
	}
	return ticket, true
}

func ticketHandlers(g *gin.RouterGroup, svc *services.Services) *gin.RouterGroup {
	g.
		GET("/tickets", func(ctx *gin.Context) {
			tickets, err := svc.Tickets.ListForUser(ctx.Request.Context(), ctx.GetUint("id"))
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": tickets})
		}).
		GET("/tickets/:id", func(ctx *gin.Context) {
			ticket, ok := ownTicket(ctx, svc)
			if !ok {
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": ticket})
		}).
		GET("/tickets/:id/qr", func(ctx *gin.Context) {
			ticket, ok := ownTicket(ctx, svc)
			if !ok {
				return
			}
			if ticket.QRPayload == "" {
				abortWithError(ctx, types.ErrInvalidQRCode.Withf("ticket has no code yet"))
				return
			}
			img, err := lib.RenderQRCode(ticket.QRPayload)
			if err != nil {
				log.Printf("Could not render qrcode for ticket %d: %s\n", ticket.ID, err.Error())
				abortWithError(ctx, err)
				return
			}
			ctx.Data(http.StatusOK, "image/jpeg", img)
		}).
		POST("/tickets/:id/refund", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				badRequest(ctx, err)
				return
			}
			ticket, err := svc.Refunds.RequestRefund(ctx.Request.Context(), params.ID, ctx.GetUint("id"))
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": ticket})
		}).
		POST("/tickets/:id/exchange", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				badRequest(ctx, err)
				return
			}
			var body types.ExchangeRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				badRequest(ctx, err)
				return
			}
			result, err := svc.Exchanges.Exchange(ctx.Request.Context(), services.ExchangeRequest{
				TicketID:        params.ID,
				UserID:          ctx.GetUint("id"),
				NewTicketTypeID: body.NewTicketTypeID,
				PaymentMethod:   body.PaymentMethod,
				SavedCardID:     body.SavedCardID,
				Card:            toCard(body.CardDetails),
			})
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": result})
		})
	return g
}
