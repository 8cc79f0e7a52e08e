package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/thereayou/telega-lite/internal/database"
)

// respondError переводит операционные ошибки ядра в HTTP статусы.
// Все остальное — 500 без деталей наружу.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, database.ErrChatNotFound),
		errors.Is(err, database.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

	case errors.Is(err, database.ErrNotParticipant),
		errors.Is(err, database.ErrNotAdmin):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})

	case errors.Is(err, database.ErrSelfChat),
		errors.Is(err, database.ErrEmptyGroupName),
		errors.Is(err, database.ErrTooFewMembers),
		errors.Is(err, database.ErrAlreadyMember),
		errors.Is(err, database.ErrNotMember),
		errors.Is(err, database.ErrNotGroup),
		errors.Is(err, database.ErrAdminLeave),
		errors.Is(err, database.ErrEmptyMessage):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	default:
		log.Printf("internal error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
