// internal/services/review_service.go
package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cardswap/cardswap-backend/internal/models"
	"github.com/cardswap/cardswap-backend/internal/utils"
)

// ReviewService stores post-trade reviews. It is keyed by trade and sits
// outside the negotiation state machine: it reads trade status but never
// mutates it.
type ReviewService struct {
	db           *gorm.DB
	tradeService *TradeService
}

type CreateReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment,omitempty" validate:"max=2000"`
}

type TradeReviews struct {
	Reviews     []models.TradeReview `json:"reviews"`
	HasReviewed bool                 `json:"has_reviewed"`
}

func NewReviewService(db *gorm.DB, tradeService *TradeService) *ReviewService {
	return &ReviewService{
		db:           db,
		tradeService: tradeService,
	}
}

// CreateReview records one participant's review of a completed trade.
// One review per reviewer per trade.
func (s *ReviewService) CreateReview(roomSlug string, reviewerID uuid.UUID, req *CreateReviewRequest) (*models.TradeReview, error) {
	trade, err := s.tradeService.GetTradeBySlug(roomSlug)
	if err != nil {
		return nil, err
	}

	if !trade.IsParticipant(reviewerID) {
		return nil, ErrUnauthorized("You are not a participant of this trade")
	}

	if err := utils.ValidateStruct(req); err != nil {
		return nil, ErrValidation("Rating must be between 1 and 5")
	}

	if trade.Status != models.TradeStatusCompleted {
		return nil, ErrInvalidTransition("Trade is not completed")
	}

	review := &models.TradeReview{
		TradeID:        trade.ID,
		ReviewerUserID: reviewerID,
		Rating:         req.Rating,
		Comment:        req.Comment,
	}

	if err := s.db.Create(review).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrConflict("You have already reviewed this trade")
		}
		return nil, fmt.Errorf("failed to create review: %w", err)
	}

	return review, nil
}

// GetTradeReviews lists a trade's reviews for a participant, flagging
// whether the caller has already submitted theirs.
func (s *ReviewService) GetTradeReviews(roomSlug string, userID uuid.UUID) (*TradeReviews, error) {
	trade, err := s.tradeService.GetTradeBySlug(roomSlug)
	if err != nil {
		return nil, err
	}

	if !trade.IsParticipant(userID) {
		return nil, ErrUnauthorized("You are not a participant of this trade")
	}

	var reviews []models.TradeReview
	if err := s.db.Preload("Reviewer").
		Where("trade_id = ?", trade.ID).
		Order("created_at ASC").
		Find(&reviews).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch reviews: %w", err)
	}

	hasReviewed := false
	for _, r := range reviews {
		if r.ReviewerUserID == userID {
			hasReviewed = true
			break
		}
	}

	return &TradeReviews{
		Reviews:     reviews,
		HasReviewed: hasReviewed,
	}, nil
}
