package main

import (
	"net/http"
	"ticketing/src/services"
	"ticketing/src/types"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func toCard(body *types.CardDetailsBody) *services.CardDetails {
	if body == nil {
		return nil
	}
	return &services.CardDetails{
		Number:     body.Number,
		HolderName: body.HolderName,
		Expiry:     body.Expiry,
		CVC:        body.CVC,
	}
}

func bookingHandlers(g *gin.RouterGroup, svc *services.Services) *gin.RouterGroup {
	g.
		POST("/checkout", func(ctx *gin.Context) {
			var body types.CheckoutRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				badRequest(ctx, err)
				return
			}
			amount, err := decimal.NewFromString(body.Amount)
			if err != nil {
				abortWithError(ctx, types.ErrInvalidRequest.Withf("amount must be a decimal number"))
				return
			}
			lines := make([]services.TicketLine, 0, len(body.Tickets))
			for _, t := range body.Tickets {
				lines = append(lines, services.TicketLine{TicketTypeID: t.TicketTypeID, Quantity: t.Quantity})
			}
			result, err := svc.Checkout.ProcessPayment(ctx.Request.Context(), services.CheckoutRequest{
				UserID:            ctx.GetUint("id"),
				Amount:            amount,
				Tickets:           lines,
				ReservedTicketIDs: body.ReservedTicketIDs,
				PaymentMethod:     body.PaymentMethod,
				UseCredits:        body.UseCredits,
				SavedCardID:       body.SavedCardID,
				Card:              toCard(body.CardDetails),
				SaveCard:          body.SaveCard,
			})
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": result})
		}).
		GET("/purchases/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				badRequest(ctx, err)
				return
			}
			purchase, err := svc.Purchases.Get(ctx.Request.Context(), params.ID, ctx.GetUint("id"))
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": purchase})
		}).
		GET("/payment-methods", func(ctx *gin.Context) {
			methods, err := svc.Payments.SavedMethods(ctx.Request.Context(), ctx.GetUint("id"))
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": methods})
		}).
		POST("/payment-methods", func(ctx *gin.Context) {
			var body types.CardDetailsBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				badRequest(ctx, err)
				return
			}
			pm, err := svc.Payments.SaveMethod(ctx.Request.Context(), ctx.GetUint("id"), *toCard(&body))
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": pm})
		})
	return g
}
