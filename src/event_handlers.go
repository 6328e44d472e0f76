package main

import (
	"errors"
	"net/http"
	"ticketing/src/models"
	"ticketing/src/types"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func eventHandlers(g *gin.RouterGroup, db *gorm.DB) *gin.RouterGroup {
	g.GET("/events/:id", func(ctx *gin.Context) {
		var params types.SimpleRequestParams
		if err := ctx.ShouldBindUri(&params); err != nil {
			badRequest(ctx, err)
			return
		}
		var event models.Event
		err := db.WithContext(ctx.Request.Context()).
			Preload("TicketTypes").
			First(&event, params.ID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "event not found", "code": "EVENT_NOT_FOUND"})
			return
		}
		if err != nil {
			abortWithError(ctx, err)
			return
		}
		ctx.JSON(http.StatusOK, gin.H{"data": event})
	})
	return g
}
