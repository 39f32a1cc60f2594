// internal/handlers/trade.go
package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cardswap/cardswap-backend/internal/i18n"
	"github.com/cardswap/cardswap-backend/internal/models"
	"github.com/cardswap/cardswap-backend/internal/services"
	"github.com/cardswap/cardswap-backend/internal/utils"
)

type TradeHandler struct {
	tradeService *services.TradeService
}

func NewTradeHandler(tradeService *services.TradeService) *TradeHandler {
	return &TradeHandler{
		tradeService: tradeService,
	}
}

type updateOfferBody struct {
	// pointer so a missing "items" key can be told apart from an empty list
	Items *[]services.OfferItemInput `json:"items"`
}

type agreeBody struct {
	AgreedExpiredAt *time.Time `json:"agreed_expired_at,omitempty"`
}

type cancelBody struct {
	Reason string `json:"reason,omitempty"`
}

// POST /trades
func (h *TradeHandler) CreateTrade(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.CreateTradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	trade, err := h.tradeService.CreateTrade(userID, &req)
	if err != nil {
		respondTradeError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyTradeCreated),
		"trade":   trade,
	})
}

// GET /trades/:roomSlug
func (h *TradeHandler) GetTrade(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	trade, err := h.tradeService.GetTradeBySlug(c.Param("roomSlug"))
	if err != nil {
		respondTradeError(c, err)
		return
	}

	if !trade.IsParticipant(userID) {
		utils.ForbiddenResponse(c, "")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"trade": trade,
	})
}

// POST /trades/:roomSlug/offer
func (h *TradeHandler) UpdateOffer(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var body updateOfferBody
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}
	if body.Items == nil {
		utils.BadRequestResponse(c, "items is required", nil)
		return
	}

	trade, err := h.tradeService.UpdateOffer(c.Param("roomSlug"), userID, &services.UpdateOfferRequest{Items: *body.Items})
	if err != nil {
		respondTradeError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyTradeOfferUpdated),
		"trade":   trade,
	})
}

// POST /trades/:roomSlug/propose
func (h *TradeHandler) ProposeTrade(c *gin.Context) {
	h.transition(c, models.TradeStatusProposed, nil, i18n.KeyTradeProposed)
}

// POST /trades/:roomSlug/agree
func (h *TradeHandler) AgreeTrade(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var body agreeBody
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
			return
		}
	}

	h.transition(c, models.TradeStatusAgreed, &services.TransitionOptions{AgreedExpiredAt: body.AgreedExpiredAt}, i18n.KeyTradeAgreed)
}

// POST /trades/:roomSlug/complete
func (h *TradeHandler) CompleteTrade(c *gin.Context) {
	h.transition(c, models.TradeStatusCompleted, nil, i18n.KeyTradeCompleted)
}

// POST /trades/:roomSlug/cancel
func (h *TradeHandler) CancelTrade(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var body cancelBody
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
			return
		}
	}

	h.transition(c, models.TradeStatusCanceled, &services.TransitionOptions{Reason: body.Reason}, i18n.KeyTradeCanceled)
}

// POST /trades/:roomSlug/dispute
func (h *TradeHandler) DisputeTrade(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var body cancelBody
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
			return
		}
	}

	h.transition(c, models.TradeStatusDisputed, &services.TransitionOptions{Reason: body.Reason}, i18n.KeyTradeDisputed)
}

// POST /trades/:roomSlug/uncancel
func (h *TradeHandler) UncancelTrade(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	trade, err := h.tradeService.UncancelTrade(c.Param("roomSlug"), userID)
	if err != nil {
		respondTradeError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyTradeRestored),
		"status":  trade.Status,
	})
}

// GET /me/trades
func (h *TradeHandler) GetMyTrades(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	filter := c.DefaultQuery("status", "active")

	trades, total, err := h.tradeService.ListUserTrades(userID, filter, params)
	if err != nil {
		respondTradeError(c, err)
		return
	}

	result := utils.CreatePaginationResult(gin.H{"trades": trades}, total, params)
	utils.PaginatedResponse(c, result)
}

func (h *TradeHandler) transition(c *gin.Context, toStatus models.TradeStatus, opts *services.TransitionOptions, messageKey string) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	trade, err := h.tradeService.TransitionTrade(c.Param("roomSlug"), toStatus, userID, opts)
	if err != nil {
		respondTradeError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, messageKey),
		"status":  trade.Status,
	})
}
