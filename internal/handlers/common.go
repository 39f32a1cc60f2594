// internal/handlers/common.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cardswap/cardswap-backend/internal/services"
	"github.com/cardswap/cardswap-backend/internal/utils"
)

// respondTradeError maps the service error taxonomy onto HTTP statuses:
// UNAUTHORIZED -> 403, INVALID_TRANSITION / VALIDATION_ERROR -> 400,
// NOT_FOUND -> 404, CONFLICT -> 409. Anything else is a storage failure.
func respondTradeError(c *gin.Context, err error) {
	var tradeErr *services.TradeError
	if !errors.As(err, &tradeErr) {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	switch tradeErr.Code {
	case services.ErrCodeUnauthorized:
		utils.ErrorResponse(c, http.StatusForbidden, tradeErr.Code, tradeErr.Message, nil)
	case services.ErrCodeInvalidTransition, services.ErrCodeValidation:
		utils.ErrorResponse(c, http.StatusBadRequest, tradeErr.Code, tradeErr.Message, nil)
	case services.ErrCodeNotFound:
		utils.ErrorResponse(c, http.StatusNotFound, tradeErr.Code, tradeErr.Message, nil)
	case services.ErrCodeConflict:
		utils.ErrorResponse(c, http.StatusConflict, tradeErr.Code, tradeErr.Message, nil)
	default:
		utils.InternalErrorResponse(c, tradeErr.Message)
	}
}

func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	userIDStr, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return uuid.Nil, false
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid user ID", nil)
		return uuid.Nil, false
	}

	return userID, true
}
