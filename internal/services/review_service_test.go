// internal/services/review_service_test.go
package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/cardswap/cardswap-backend/internal/models"
)

type ReviewServiceTestSuite struct {
	suite.Suite
	db       *gorm.DB
	trades   *TradeService
	reviews  *ReviewService
	roomSlug string

	initiator *models.User
	responder *models.User
	stranger  *models.User
}

func (suite *ReviewServiceTestSuite) SetupTest() {
	suite.db = newTestDB(suite.T())
	suite.trades = NewTradeService(suite.db)
	suite.reviews = NewReviewService(suite.db, suite.trades)

	suite.initiator = createTestUser(suite.T(), suite.db, "initiator")
	suite.responder = createTestUser(suite.T(), suite.db, "responder")
	suite.stranger = createTestUser(suite.T(), suite.db, "stranger")

	trade, err := suite.trades.CreateTrade(suite.initiator.ID, &CreateTradeRequest{
		ResponderUserID: &suite.responder.ID,
	})
	suite.Require().NoError(err)
	suite.roomSlug = trade.RoomSlug
}

func (suite *ReviewServiceTestSuite) completeTrade() {
	for _, status := range []models.TradeStatus{
		models.TradeStatusProposed,
		models.TradeStatusAgreed,
		models.TradeStatusCompleted,
	} {
		_, err := suite.trades.TransitionTrade(suite.roomSlug, status, suite.initiator.ID, nil)
		suite.Require().NoError(err)
	}
}

func (suite *ReviewServiceTestSuite) reviewErr(err error) *TradeError {
	suite.Require().Error(err)
	var tradeErr *TradeError
	suite.Require().True(errors.As(err, &tradeErr), "expected a TradeError, got %v", err)
	return tradeErr
}

func (suite *ReviewServiceTestSuite) TestCreateReview() {
	suite.completeTrade()

	review, err := suite.reviews.CreateReview(suite.roomSlug, suite.initiator.ID, &CreateReviewRequest{
		Rating:  5,
		Comment: "smooth trade",
	})
	suite.Require().NoError(err)
	suite.Equal(5, review.Rating)
	suite.Equal(suite.initiator.ID, review.ReviewerUserID)
}

func (suite *ReviewServiceTestSuite) TestReviewRequiresCompletedTrade() {
	_, err := suite.reviews.CreateReview(suite.roomSlug, suite.initiator.ID, &CreateReviewRequest{Rating: 4})
	suite.Equal(ErrCodeInvalidTransition, suite.reviewErr(err).Code)
}

func (suite *ReviewServiceTestSuite) TestReviewRatingBounds() {
	suite.completeTrade()

	for _, rating := range []int{0, 6, -1} {
		_, err := suite.reviews.CreateReview(suite.roomSlug, suite.initiator.ID, &CreateReviewRequest{Rating: rating})
		suite.Equal(ErrCodeValidation, suite.reviewErr(err).Code)
	}
}

func (suite *ReviewServiceTestSuite) TestOneReviewPerParticipant() {
	suite.completeTrade()

	_, err := suite.reviews.CreateReview(suite.roomSlug, suite.initiator.ID, &CreateReviewRequest{Rating: 4})
	suite.Require().NoError(err)

	_, err = suite.reviews.CreateReview(suite.roomSlug, suite.initiator.ID, &CreateReviewRequest{Rating: 2})
	suite.Equal(ErrCodeConflict, suite.reviewErr(err).Code)

	// the other participant still gets their own slot
	_, err = suite.reviews.CreateReview(suite.roomSlug, suite.responder.ID, &CreateReviewRequest{Rating: 3})
	suite.Require().NoError(err)
}

func (suite *ReviewServiceTestSuite) TestNonParticipantCannotReview() {
	suite.completeTrade()

	_, err := suite.reviews.CreateReview(suite.roomSlug, suite.stranger.ID, &CreateReviewRequest{Rating: 5})
	suite.Equal(ErrCodeUnauthorized, suite.reviewErr(err).Code)

	_, err = suite.reviews.GetTradeReviews(suite.roomSlug, suite.stranger.ID)
	suite.Equal(ErrCodeUnauthorized, suite.reviewErr(err).Code)
}

func (suite *ReviewServiceTestSuite) TestGetTradeReviews() {
	suite.completeTrade()

	_, err := suite.reviews.CreateReview(suite.roomSlug, suite.initiator.ID, &CreateReviewRequest{Rating: 4})
	suite.Require().NoError(err)

	result, err := suite.reviews.GetTradeReviews(suite.roomSlug, suite.initiator.ID)
	suite.Require().NoError(err)
	suite.Len(result.Reviews, 1)
	suite.True(result.HasReviewed)

	result, err = suite.reviews.GetTradeReviews(suite.roomSlug, suite.responder.ID)
	suite.Require().NoError(err)
	suite.Len(result.Reviews, 1)
	suite.False(result.HasReviewed)
}

func TestReviewServiceSuite(t *testing.T) {
	suite.Run(t, new(ReviewServiceTestSuite))
}
