// internal/models/trade.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TradeStatus string

const (
	TradeStatusDraft     TradeStatus = "draft"
	TradeStatusProposed  TradeStatus = "proposed"
	TradeStatusAgreed    TradeStatus = "agreed"
	TradeStatusCompleted TradeStatus = "completed"
	TradeStatusCanceled  TradeStatus = "canceled"
	TradeStatusDisputed  TradeStatus = "disputed"
	TradeStatusExpired   TradeStatus = "expired"
)

// tradeTransitions is the single source of truth for legal status edges.
// `canceled` appears only as a target: the way back out is Uncancel, which
// replays the stored statusBeforeCancel instead of walking this table.
var tradeTransitions = map[TradeStatus][]TradeStatus{
	TradeStatusDraft:     {TradeStatusProposed},
	TradeStatusProposed:  {TradeStatusAgreed, TradeStatusCanceled, TradeStatusExpired},
	TradeStatusAgreed:    {TradeStatusCompleted, TradeStatusCanceled, TradeStatusDisputed, TradeStatusExpired},
	TradeStatusCompleted: {TradeStatusDisputed},
}

// CanTransition reports whether from -> to is a legal edge of the trade
// state machine. Restoring a canceled trade goes through Uncancel, never
// through this table.
func CanTransition(from, to TradeStatus) bool {
	for _, next := range tradeTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the negotiation is over. A completed trade can
// still be disputed, but the trade itself is settled. `canceled` is
// reversible and therefore not terminal.
func (s TradeStatus) IsTerminal() bool {
	switch s {
	case TradeStatusCompleted, TradeStatusDisputed, TradeStatusExpired:
		return true
	}
	return false
}

// ActiveTradeStatuses are the statuses an ongoing negotiation can be in.
func ActiveTradeStatuses() []TradeStatus {
	return []TradeStatus{TradeStatusDraft, TradeStatusProposed, TradeStatusAgreed}
}

type Trade struct {
	BaseModel
	RoomSlug           string       `json:"room_slug" gorm:"size:16;uniqueIndex;not null"`
	InitiatorUserID    uuid.UUID    `json:"initiator_user_id" gorm:"type:uuid;not null;index"`
	ResponderUserID    *uuid.UUID   `json:"responder_user_id" gorm:"type:uuid;index"`
	Status             TradeStatus  `json:"status" gorm:"type:varchar(20);default:'draft';not null;index"`
	StatusBeforeCancel *TradeStatus `json:"status_before_cancel,omitempty" gorm:"type:varchar(20)"`
	ProposedExpiredAt  *time.Time   `json:"proposed_expired_at"`
	AgreedExpiredAt    *time.Time   `json:"agreed_expired_at"`

	// Relationships
	Initiator User           `json:"initiator,omitempty" gorm:"foreignKey:InitiatorUserID"`
	Responder *User          `json:"responder,omitempty" gorm:"foreignKey:ResponderUserID"`
	Items     []TradeItem    `json:"items,omitempty" gorm:"foreignKey:TradeID"`
	History   []TradeHistory `json:"history,omitempty" gorm:"foreignKey:TradeID"`
}

// IsParticipant reports whether userID is the initiator or the bound
// responder of the trade.
func (t *Trade) IsParticipant(userID uuid.UUID) bool {
	if t.InitiatorUserID == userID {
		return true
	}
	return t.ResponderUserID != nil && *t.ResponderUserID == userID
}

// OtherParticipant returns the counterparty of userID, or nil when no
// responder is bound yet or userID is not a participant.
func (t *Trade) OtherParticipant(userID uuid.UUID) *uuid.UUID {
	if t.InitiatorUserID == userID {
		return t.ResponderUserID
	}
	if t.ResponderUserID != nil && *t.ResponderUserID == userID {
		id := t.InitiatorUserID
		return &id
	}
	return nil
}

type TradeItem struct {
	BaseModel
	TradeID         uuid.UUID `json:"trade_id" gorm:"type:uuid;not null;index"`
	OfferedByUserID uuid.UUID `json:"offered_by_user_id" gorm:"type:uuid;not null;index"`
	CardID          string    `json:"card_id" gorm:"size:64;not null"`
	Quantity        int       `json:"quantity" gorm:"not null;default:1"`
}

// TradeHistory rows are append-only: exactly one row per creation or status
// transition, never updated or deleted. ChangedByUserID is NULL for system
// transitions (expiry sweep).
type TradeHistory struct {
	ID              uuid.UUID    `json:"id" gorm:"type:uuid;primary_key"`
	TradeID         uuid.UUID    `json:"trade_id" gorm:"type:uuid;not null;index"`
	FromStatus      *TradeStatus `json:"from_status" gorm:"type:varchar(20)"`
	ToStatus        TradeStatus  `json:"to_status" gorm:"type:varchar(20);not null"`
	ChangedByUserID *uuid.UUID   `json:"changed_by_user_id" gorm:"type:uuid"`
	Reason          *string      `json:"reason,omitempty" gorm:"type:text"`
	CreatedAt       time.Time    `json:"created_at"`
}

func (h *TradeHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}

type TradeReview struct {
	BaseModel
	TradeID        uuid.UUID `json:"trade_id" gorm:"type:uuid;not null;index:idx_trade_reviews_trade_reviewer,unique"`
	ReviewerUserID uuid.UUID `json:"reviewer_user_id" gorm:"type:uuid;not null;index:idx_trade_reviews_trade_reviewer,unique"`
	Rating         int       `json:"rating" gorm:"not null"`
	Comment        string    `json:"comment" gorm:"type:text"`

	Reviewer User `json:"reviewer,omitempty" gorm:"foreignKey:ReviewerUserID"`
}
