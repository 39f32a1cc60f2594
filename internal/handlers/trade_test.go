// internal/handlers/trade_test.go
package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cardswap/cardswap-backend/internal/config"
	"github.com/cardswap/cardswap-backend/internal/models"
	"github.com/cardswap/cardswap-backend/internal/router"
	"github.com/cardswap/cardswap-backend/internal/utils"
)

type apiEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type TradeHandlerTestSuite struct {
	suite.Suite
	db     *gorm.DB
	engine *gin.Engine

	initiator      *models.User
	responder      *models.User
	stranger       *models.User
	initiatorToken string
	responderToken string
	strangerToken  string

	clientIP string
}

var testClientSeq int

func (suite *TradeHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	suite.Require().NoError(err)

	sqlDB, err := db.DB()
	suite.Require().NoError(err)
	sqlDB.SetMaxOpenConns(1)

	suite.Require().NoError(db.AutoMigrate(
		&models.User{},
		&models.Trade{},
		&models.TradeItem{},
		&models.TradeHistory{},
		&models.TradeReview{},
	))
	suite.db = db

	cfg := &config.Config{
		Environment: "test",
		JWT: config.JWTConfig{
			SecretKey:      "test-secret-key",
			AccessTokenTTL: 1,
		},
	}
	suite.engine, _ = router.Initialize(db, cfg)

	suite.initiator, suite.initiatorToken = suite.createUser("initiator")
	suite.responder, suite.responderToken = suite.createUser("responder")
	suite.stranger, suite.strangerToken = suite.createUser("stranger")

	// the rate limiters are keyed by client IP, give every test its own
	testClientSeq++
	suite.clientIP = fmt.Sprintf("10.1.%d.%d:40000", testClientSeq/250, testClientSeq%250+1)
}

func (suite *TradeHandlerTestSuite) createUser(username string) (*models.User, string) {
	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Status:   models.UserStatusActive,
	}
	suite.Require().NoError(user.SetPassword("Sup3r!Secret"))
	suite.Require().NoError(suite.db.Create(user).Error)

	token, err := utils.GenerateJWT(user.ID, user.Username, 1)
	suite.Require().NoError(err)
	return user, token
}

func (suite *TradeHandlerTestSuite) request(method, path, token string, body interface{}) (*httptest.ResponseRecorder, *apiEnvelope) {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		suite.Require().NoError(err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = suite.clientIP
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	suite.engine.ServeHTTP(rec, req)

	var envelope apiEnvelope
	if rec.Body.Len() > 0 {
		suite.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &envelope))
	}
	return rec, &envelope
}

func (suite *TradeHandlerTestSuite) createTrade(token string, body interface{}) string {
	rec, envelope := suite.request(http.MethodPost, "/v1/trades", token, body)
	suite.Require().Equal(http.StatusCreated, rec.Code)

	var data struct {
		Trade struct {
			RoomSlug string `json:"room_slug"`
		} `json:"trade"`
	}
	suite.Require().NoError(json.Unmarshal(envelope.Data, &data))
	suite.Require().NotEmpty(data.Trade.RoomSlug)
	return data.Trade.RoomSlug
}

func (suite *TradeHandlerTestSuite) TestTradeLifecycle() {
	slug := suite.createTrade(suite.initiatorToken, gin.H{})

	rec, _ := suite.request(http.MethodPost, "/v1/trades/"+slug+"/offer", suite.initiatorToken, gin.H{
		"items": []gin.H{{"card_id": "c1", "quantity": 2}},
	})
	suite.Equal(http.StatusOK, rec.Code)

	rec, _ = suite.request(http.MethodPost, "/v1/trades/"+slug+"/propose", suite.initiatorToken, nil)
	suite.Equal(http.StatusOK, rec.Code)

	// a second user agreeing binds them as responder
	rec, envelope := suite.request(http.MethodPost, "/v1/trades/"+slug+"/agree", suite.responderToken, nil)
	suite.Require().Equal(http.StatusOK, rec.Code)

	var agreed struct {
		Status models.TradeStatus `json:"status"`
	}
	suite.Require().NoError(json.Unmarshal(envelope.Data, &agreed))
	suite.Equal(models.TradeStatusAgreed, agreed.Status)

	rec, _ = suite.request(http.MethodPost, "/v1/trades/"+slug+"/complete", suite.responderToken, nil)
	suite.Equal(http.StatusOK, rec.Code)

	rec, _ = suite.request(http.MethodPost, "/v1/trades/"+slug+"/review", suite.initiatorToken, gin.H{
		"rating":  5,
		"comment": "smooth trade",
	})
	suite.Equal(http.StatusCreated, rec.Code)
}

func (suite *TradeHandlerTestSuite) TestAuthenticationRequired() {
	rec, _ := suite.request(http.MethodPost, "/v1/trades", "", gin.H{})
	suite.Equal(http.StatusUnauthorized, rec.Code)

	rec, _ = suite.request(http.MethodGet, "/v1/me/trades", "not-a-token", nil)
	suite.Equal(http.StatusUnauthorized, rec.Code)
}

func (suite *TradeHandlerTestSuite) TestGetTradeParticipantsOnly() {
	slug := suite.createTrade(suite.initiatorToken, gin.H{"responder_user_id": suite.responder.ID})

	rec, _ := suite.request(http.MethodGet, "/v1/trades/"+slug, suite.responderToken, nil)
	suite.Equal(http.StatusOK, rec.Code)

	rec, _ = suite.request(http.MethodGet, "/v1/trades/"+slug, suite.strangerToken, nil)
	suite.Equal(http.StatusForbidden, rec.Code)

	rec, envelope := suite.request(http.MethodGet, "/v1/trades/nosuchslug00", suite.initiatorToken, nil)
	suite.Equal(http.StatusNotFound, rec.Code)
	suite.Require().NotNil(envelope.Error)
	suite.Equal("NOT_FOUND", envelope.Error.Code)
}

func (suite *TradeHandlerTestSuite) TestOfferRequiresItemsKey() {
	slug := suite.createTrade(suite.initiatorToken, gin.H{})

	// body without the items key is malformed, an empty list is not
	rec, envelope := suite.request(http.MethodPost, "/v1/trades/"+slug+"/offer", suite.initiatorToken, gin.H{})
	suite.Equal(http.StatusBadRequest, rec.Code)
	suite.Require().NotNil(envelope.Error)

	rec, _ = suite.request(http.MethodPost, "/v1/trades/"+slug+"/offer", suite.initiatorToken, gin.H{
		"items": []gin.H{},
	})
	suite.Equal(http.StatusOK, rec.Code)
}

func (suite *TradeHandlerTestSuite) TestIllegalTransitionRejected() {
	slug := suite.createTrade(suite.initiatorToken, gin.H{"responder_user_id": suite.responder.ID})

	rec, envelope := suite.request(http.MethodPost, "/v1/trades/"+slug+"/complete", suite.initiatorToken, nil)
	suite.Equal(http.StatusBadRequest, rec.Code)
	suite.Require().NotNil(envelope.Error)
	suite.Equal("INVALID_TRANSITION", envelope.Error.Code)
}

func (suite *TradeHandlerTestSuite) TestNonParticipantTransitionForbidden() {
	slug := suite.createTrade(suite.initiatorToken, gin.H{"responder_user_id": suite.responder.ID})

	rec, envelope := suite.request(http.MethodPost, "/v1/trades/"+slug+"/propose", suite.strangerToken, nil)
	suite.Equal(http.StatusForbidden, rec.Code)
	suite.Require().NotNil(envelope.Error)
	suite.Equal("UNAUTHORIZED", envelope.Error.Code)
}

func (suite *TradeHandlerTestSuite) TestCancelAndUncancel() {
	slug := suite.createTrade(suite.initiatorToken, gin.H{"responder_user_id": suite.responder.ID})

	rec, _ := suite.request(http.MethodPost, "/v1/trades/"+slug+"/propose", suite.initiatorToken, nil)
	suite.Require().Equal(http.StatusOK, rec.Code)

	rec, _ = suite.request(http.MethodPost, "/v1/trades/"+slug+"/cancel", suite.initiatorToken, gin.H{
		"reason": "changed mind",
	})
	suite.Require().Equal(http.StatusOK, rec.Code)

	rec, envelope := suite.request(http.MethodPost, "/v1/trades/"+slug+"/uncancel", suite.responderToken, nil)
	suite.Require().Equal(http.StatusOK, rec.Code)

	var restored struct {
		Status models.TradeStatus `json:"status"`
	}
	suite.Require().NoError(json.Unmarshal(envelope.Data, &restored))
	suite.Equal(models.TradeStatusProposed, restored.Status)
}

func (suite *TradeHandlerTestSuite) TestGetMyTrades() {
	suite.createTrade(suite.initiatorToken, gin.H{"responder_user_id": suite.responder.ID})
	suite.createTrade(suite.initiatorToken, gin.H{})

	rec, envelope := suite.request(http.MethodGet, "/v1/me/trades?status=active", suite.responderToken, nil)
	suite.Require().Equal(http.StatusOK, rec.Code)

	var data struct {
		Trades []models.Trade `json:"trades"`
	}
	suite.Require().NoError(json.Unmarshal(envelope.Data, &data))
	suite.Len(data.Trades, 1)

	rec, envelope = suite.request(http.MethodGet, "/v1/me/trades?status=bogus", suite.initiatorToken, nil)
	suite.Equal(http.StatusBadRequest, rec.Code)
	suite.Require().NotNil(envelope.Error)
	suite.Equal("VALIDATION_ERROR", envelope.Error.Code)
}

func TestTradeHandlerSuite(t *testing.T) {
	suite.Run(t, new(TradeHandlerTestSuite))
}
