// internal/services/trade_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/cardswap/cardswap-backend/internal/database"
	"github.com/cardswap/cardswap-backend/internal/models"
	"github.com/cardswap/cardswap-backend/internal/utils"
)

const slugCacheSize = 4096

// slug allocation retries against the unique index before giving up
const slugMaxAttempts = 3

type TradeService struct {
	db        *gorm.DB
	slugCache *lru.Cache // roomSlug -> trade id; slugs are immutable so entries never go stale
}

type CreateTradeRequest struct {
	ResponderUserID   *uuid.UUID `json:"responder_user_id,omitempty"`
	ProposedExpiredAt *time.Time `json:"proposed_expired_at,omitempty"`
	InitialCardID     string     `json:"initial_card_id,omitempty"`
}

type OfferItemInput struct {
	CardID   string `json:"card_id"`
	Quantity *int   `json:"quantity,omitempty"`
}

type UpdateOfferRequest struct {
	Items []OfferItemInput `json:"items"`
}

type TransitionOptions struct {
	Reason          string     `json:"reason,omitempty"`
	AgreedExpiredAt *time.Time `json:"agreed_expired_at,omitempty"`
}

func NewTradeService(db *gorm.DB) *TradeService {
	cache, _ := lru.New(slugCacheSize)
	return &TradeService{
		db:        db,
		slugCache: cache,
	}
}

// CreateTrade allocates a new trade room in draft status. The trade, its
// optional seed item, and the creation history row commit atomically.
func (s *TradeService) CreateTrade(initiatorID uuid.UUID, req *CreateTradeRequest) (*models.Trade, error) {
	if req.ResponderUserID != nil && *req.ResponderUserID == initiatorID {
		return nil, ErrValidation("Cannot trade with yourself")
	}

	var trade *models.Trade
	var lastErr error

	for attempt := 0; attempt < slugMaxAttempts; attempt++ {
		slug, err := utils.GenerateRoomSlug()
		if err != nil {
			return nil, fmt.Errorf("failed to generate room slug: %w", err)
		}

		candidate := &models.Trade{
			RoomSlug:          slug,
			InitiatorUserID:   initiatorID,
			ResponderUserID:   req.ResponderUserID,
			Status:            models.TradeStatusDraft,
			ProposedExpiredAt: req.ProposedExpiredAt,
		}

		lastErr = database.WithTransaction(s.db, func(tx *gorm.DB) error {
			if err := tx.Create(candidate).Error; err != nil {
				return err
			}

			if req.InitialCardID != "" {
				seed := &models.TradeItem{
					TradeID:         candidate.ID,
					OfferedByUserID: initiatorID,
					CardID:          req.InitialCardID,
					Quantity:        1,
				}
				if err := tx.Create(seed).Error; err != nil {
					return err
				}
			}

			return s.recordHistory(tx, candidate.ID, nil, models.TradeStatusDraft, &initiatorID, nil)
		})

		if lastErr == nil {
			trade = candidate
			break
		}
		if !errors.Is(lastErr, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("failed to create trade: %w", lastErr)
		}
		// slug collided, retry with a fresh one
	}

	if trade == nil {
		return nil, fmt.Errorf("failed to allocate room slug: %w", lastErr)
	}

	s.slugCache.Add(trade.RoomSlug, trade.ID)

	logrus.WithFields(logrus.Fields{
		"trade_id":  trade.ID,
		"room_slug": trade.RoomSlug,
		"initiator": initiatorID,
	}).Info("Trade created")

	return s.GetTradeBySlug(trade.RoomSlug)
}

// GetTradeBySlug resolves a public room slug to the full trade aggregate.
func (s *TradeService) GetTradeBySlug(roomSlug string) (*models.Trade, error) {
	var trade models.Trade

	if cached, ok := s.slugCache.Get(roomSlug); ok {
		if err := s.db.Preload("Items").Preload("History", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).First(&trade, "id = ?", cached.(uuid.UUID)).Error; err == nil {
			return &trade, nil
		}
	}

	if err := s.db.Preload("Items").Preload("History", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC")
	}).First(&trade, "room_slug = ?", roomSlug).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound("Trade not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	s.slugCache.Add(roomSlug, trade.ID)
	return &trade, nil
}

// UpdateOffer replaces the caller's offered items wholesale. The other
// participant's items are untouched, and no history row is written: offer
// edits are not status transitions.
func (s *TradeService) UpdateOffer(roomSlug string, userID uuid.UUID, req *UpdateOfferRequest) (*models.Trade, error) {
	trade, err := s.GetTradeBySlug(roomSlug)
	if err != nil {
		return nil, err
	}

	if !trade.IsParticipant(userID) {
		return nil, ErrUnauthorized("You are not a participant of this trade")
	}

	if trade.Status != models.TradeStatusDraft {
		return nil, ErrInvalidTransition("Cannot edit offer outside draft")
	}

	// Validate every item before touching any row
	newItems := make([]models.TradeItem, 0, len(req.Items))
	for _, item := range req.Items {
		if item.CardID == "" {
			return nil, ErrValidation("Each item must have a card_id")
		}
		quantity := 1
		if item.Quantity != nil {
			if *item.Quantity < 1 {
				return nil, ErrValidation("Item quantity must be a positive integer")
			}
			quantity = *item.Quantity
		}
		newItems = append(newItems, models.TradeItem{
			TradeID:         trade.ID,
			OfferedByUserID: userID,
			CardID:          item.CardID,
			Quantity:        quantity,
		})
	}

	err = database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if err := s.claimDraft(tx, trade.ID); err != nil {
			return err
		}

		if err := tx.Where("trade_id = ? AND offered_by_user_id = ?", trade.ID, userID).
			Delete(&models.TradeItem{}).Error; err != nil {
			return err
		}
		if len(newItems) == 0 {
			return nil
		}
		return tx.Create(&newItems).Error
	})
	if err != nil {
		var tradeErr *TradeError
		if errors.As(err, &tradeErr) {
			return nil, tradeErr
		}
		return nil, fmt.Errorf("failed to update offer: %w", err)
	}

	return s.GetTradeBySlug(roomSlug)
}

// claimDraft guards the offer write against a racing transition. Touching
// the trade row with a status match takes the row lock and misses entirely
// once the trade has left draft, so an offer edit can never land on a trade
// a concurrent request just moved forward.
func (s *TradeService) claimDraft(tx *gorm.DB, tradeID uuid.UUID) error {
	result := tx.Model(&models.Trade{}).
		Where("id = ? AND status = ?", tradeID, models.TradeStatusDraft).
		Update("updated_at", time.Now())
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrConflict("Trade left draft concurrently")
	}
	return nil
}

// SetResponder binds the second participant. The binding happens at most
// once and is never reassigned.
func (s *TradeService) SetResponder(roomSlug string, candidateID uuid.UUID) (*models.Trade, error) {
	trade, err := s.GetTradeBySlug(roomSlug)
	if err != nil {
		return nil, err
	}

	if trade.ResponderUserID != nil {
		return nil, ErrUnauthorized("Responder already set")
	}
	if candidateID == trade.InitiatorUserID {
		return nil, ErrUnauthorized("Cannot be your own counterparty")
	}

	result := s.db.Model(&models.Trade{}).
		Where("id = ? AND responder_user_id IS NULL", trade.ID).
		Update("responder_user_id", candidateID)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to set responder: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrConflict("Responder was set concurrently")
	}

	return s.GetTradeBySlug(roomSlug)
}

// TransitionTrade validates and applies a status change requested by a
// caller. Authorization is checked before, and independently of, edge
// legality: a non-participant never learns whether the transition itself
// would have been legal.
func (s *TradeService) TransitionTrade(roomSlug string, toStatus models.TradeStatus, callerID uuid.UUID, opts *TransitionOptions) (*models.Trade, error) {
	trade, err := s.GetTradeBySlug(roomSlug)
	if err != nil {
		return nil, err
	}
	if opts == nil {
		opts = &TransitionOptions{}
	}

	// A caller agreeing to an open proposed trade becomes the responder;
	// everyone else must already be a participant. The carve-out is scoped
	// to proposed so a stranger probing any other status gets the same
	// UNAUTHORIZED as always, never a hint about edge legality.
	autoBind := false
	if !trade.IsParticipant(callerID) {
		if toStatus == models.TradeStatusAgreed &&
			trade.ResponderUserID == nil &&
			trade.Status == models.TradeStatusProposed {
			autoBind = true
		} else {
			return nil, ErrUnauthorized("You are not a participant of this trade")
		}
	}

	if toStatus == models.TradeStatusExpired {
		// expiry is raised by the scheduled sweep, never by a caller
		return nil, ErrInvalidTransition(fmt.Sprintf("Cannot transition from %s to %s", trade.Status, toStatus))
	}
	if !models.CanTransition(trade.Status, toStatus) {
		return nil, ErrInvalidTransition(fmt.Sprintf("Cannot transition from %s to %s", trade.Status, toStatus))
	}

	if toStatus == models.TradeStatusAgreed && trade.ResponderUserID == nil && !autoBind {
		// the initiator cannot agree with themselves while no responder exists
		return nil, ErrInvalidTransition("No responder to agree with")
	}

	updates := map[string]interface{}{"status": toStatus}
	var reason *string
	if opts.Reason != "" {
		r := opts.Reason
		reason = &r
	}

	switch toStatus {
	case models.TradeStatusCanceled:
		updates["status_before_cancel"] = trade.Status
	case models.TradeStatusAgreed:
		if opts.AgreedExpiredAt != nil {
			updates["agreed_expired_at"] = opts.AgreedExpiredAt
		}
		if autoBind {
			updates["responder_user_id"] = callerID
		}
	}

	if err := s.applyTransition(trade, toStatus, updates, &callerID, reason, autoBind); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"trade_id": trade.ID,
		"from":     trade.Status,
		"to":       toStatus,
		"actor":    callerID,
	}).Info("Trade transitioned")

	return s.GetTradeBySlug(roomSlug)
}

// UncancelTrade restores the status a cancellation parked. The original
// status is replayed from statusBeforeCancel, never inferred.
func (s *TradeService) UncancelTrade(roomSlug string, callerID uuid.UUID) (*models.Trade, error) {
	trade, err := s.GetTradeBySlug(roomSlug)
	if err != nil {
		return nil, err
	}

	if !trade.IsParticipant(callerID) {
		return nil, ErrUnauthorized("You are not a participant of this trade")
	}
	if trade.Status != models.TradeStatusCanceled {
		return nil, ErrInvalidTransition("Trade is not canceled")
	}
	if trade.StatusBeforeCancel == nil {
		return nil, fmt.Errorf("canceled trade %s has no status to restore", trade.ID)
	}

	restored := *trade.StatusBeforeCancel
	updates := map[string]interface{}{
		"status":               restored,
		"status_before_cancel": nil,
	}

	if err := s.applyTransition(trade, restored, updates, &callerID, nil, false); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"trade_id": trade.ID,
		"restored": restored,
		"actor":    callerID,
	}).Info("Trade uncanceled")

	return s.GetTradeBySlug(roomSlug)
}

// ListUserTrades returns trades the user participates in, filtered by the
// active|completed|all lifecycle buckets.
func (s *TradeService) ListUserTrades(userID uuid.UUID, filter string, params utils.PaginationParams) ([]models.Trade, int64, error) {
	query := s.db.Model(&models.Trade{}).
		Where("initiator_user_id = ? OR responder_user_id = ?", userID, userID).
		Preload("Items")

	switch filter {
	case "", "active":
		query = query.Where("status IN ?", models.ActiveTradeStatuses())
	case "completed":
		query = query.Where("status = ?", models.TradeStatusCompleted)
	case "all":
		// no status filter
	default:
		return nil, 0, ErrValidation(fmt.Sprintf("Unknown status filter %q", filter))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count trades: %w", err)
	}

	allowedSortFields := []string{"created_at", "updated_at", "status"}
	query = utils.ApplySort(query, params, allowedSortFields)
	query = utils.ApplyPagination(query, params)

	var trades []models.Trade
	if err := query.Find(&trades).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch trades: %w", err)
	}

	return trades, total, nil
}

// ExpireDueTrades moves overdue proposed/agreed trades to expired through
// the same guarded transition path. The history actor is NULL: the sweep is
// the system, not a participant.
func (s *TradeService) ExpireDueTrades(now time.Time) (int, error) {
	var due []models.Trade
	err := s.db.
		Where("status = ? AND proposed_expired_at IS NOT NULL AND proposed_expired_at <= ?", models.TradeStatusProposed, now).
		Or("status = ? AND agreed_expired_at IS NOT NULL AND agreed_expired_at <= ?", models.TradeStatusAgreed, now).
		Find(&due).Error
	if err != nil {
		return 0, fmt.Errorf("failed to list due trades: %w", err)
	}

	expired := 0
	for i := range due {
		trade := &due[i]
		updates := map[string]interface{}{"status": models.TradeStatusExpired}
		if err := s.applyTransition(trade, models.TradeStatusExpired, updates, nil, nil, false); err != nil {
			var tradeErr *TradeError
			if errors.As(err, &tradeErr) && tradeErr.Code == ErrCodeConflict {
				// someone moved the trade first; skip it
				continue
			}
			return expired, err
		}
		expired++
	}

	if expired > 0 {
		logrus.WithField("count", expired).Info("Expired overdue trades")
	}
	return expired, nil
}

// applyTransition performs the guarded status write and appends the history
// row in one transaction. The WHERE status = <expected> guard makes sure
// only one of two racing requests succeeds; the loser gets a conflict and
// writes nothing.
func (s *TradeService) applyTransition(trade *models.Trade, toStatus models.TradeStatus, updates map[string]interface{}, changedBy *uuid.UUID, reason *string, requireUnboundResponder bool) error {
	fromStatus := trade.Status

	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		query := tx.Model(&models.Trade{}).Where("id = ? AND status = ?", trade.ID, fromStatus)
		if requireUnboundResponder {
			query = query.Where("responder_user_id IS NULL")
		}

		result := query.Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrConflict(fmt.Sprintf("Trade status changed concurrently, expected %s", fromStatus))
		}

		from := fromStatus
		return s.recordHistory(tx, trade.ID, &from, toStatus, changedBy, reason)
	})
	if err != nil {
		var tradeErr *TradeError
		if errors.As(err, &tradeErr) {
			return tradeErr
		}
		return fmt.Errorf("failed to apply transition: %w", err)
	}
	return nil
}

// recordHistory appends the immutable audit row for a mutation. Every
// status change flows through here inside the mutating transaction; nothing
// else writes trade history.
func (s *TradeService) recordHistory(tx *gorm.DB, tradeID uuid.UUID, fromStatus *models.TradeStatus, toStatus models.TradeStatus, changedBy *uuid.UUID, reason *string) error {
	entry := &models.TradeHistory{
		TradeID:         tradeID,
		FromStatus:      fromStatus,
		ToStatus:        toStatus,
		ChangedByUserID: changedBy,
		Reason:          reason,
	}
	if err := tx.Create(entry).Error; err != nil {
		return fmt.Errorf("failed to record trade history: %w", err)
	}
	return nil
}
