// internal/models/trade_test.go
package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	legal := []struct {
		from TradeStatus
		to   TradeStatus
	}{
		{TradeStatusDraft, TradeStatusProposed},
		{TradeStatusProposed, TradeStatusAgreed},
		{TradeStatusProposed, TradeStatusCanceled},
		{TradeStatusProposed, TradeStatusExpired},
		{TradeStatusAgreed, TradeStatusCompleted},
		{TradeStatusAgreed, TradeStatusCanceled},
		{TradeStatusAgreed, TradeStatusDisputed},
		{TradeStatusAgreed, TradeStatusExpired},
		{TradeStatusCompleted, TradeStatusDisputed},
	}
	for _, edge := range legal {
		assert.True(t, CanTransition(edge.from, edge.to), "%s -> %s should be legal", edge.from, edge.to)
	}

	illegal := []struct {
		from TradeStatus
		to   TradeStatus
	}{
		{TradeStatusDraft, TradeStatusAgreed},
		{TradeStatusDraft, TradeStatusCompleted},
		{TradeStatusDraft, TradeStatusCanceled},
		{TradeStatusDraft, TradeStatusExpired},
		{TradeStatusProposed, TradeStatusDraft},
		{TradeStatusProposed, TradeStatusCompleted},
		{TradeStatusProposed, TradeStatusDisputed},
		{TradeStatusAgreed, TradeStatusProposed},
		{TradeStatusCompleted, TradeStatusAgreed},
		{TradeStatusCanceled, TradeStatusProposed},
		{TradeStatusCanceled, TradeStatusDraft},
		{TradeStatusExpired, TradeStatusProposed},
		{TradeStatusDisputed, TradeStatusCompleted},
	}
	for _, edge := range illegal {
		assert.False(t, CanTransition(edge.from, edge.to), "%s -> %s should be illegal", edge.from, edge.to)
	}
}

func TestStatusIsTerminal(t *testing.T) {
	assert.True(t, TradeStatusCompleted.IsTerminal())
	assert.True(t, TradeStatusDisputed.IsTerminal())
	assert.True(t, TradeStatusExpired.IsTerminal())

	// canceled is reversible, therefore only pseudo-terminal
	assert.False(t, TradeStatusCanceled.IsTerminal())
	assert.False(t, TradeStatusDraft.IsTerminal())
	assert.False(t, TradeStatusProposed.IsTerminal())
	assert.False(t, TradeStatusAgreed.IsTerminal())
}

func TestTradeIsParticipant(t *testing.T) {
	initiator := uuid.New()
	responder := uuid.New()
	stranger := uuid.New()

	trade := &Trade{InitiatorUserID: initiator}
	assert.True(t, trade.IsParticipant(initiator))
	assert.False(t, trade.IsParticipant(responder))

	trade.ResponderUserID = &responder
	assert.True(t, trade.IsParticipant(responder))
	assert.False(t, trade.IsParticipant(stranger))
}

func TestTradeOtherParticipant(t *testing.T) {
	initiator := uuid.New()
	responder := uuid.New()

	trade := &Trade{InitiatorUserID: initiator}
	assert.Nil(t, trade.OtherParticipant(initiator))
	assert.Nil(t, trade.OtherParticipant(responder))

	trade.ResponderUserID = &responder
	assert.Equal(t, responder, *trade.OtherParticipant(initiator))
	assert.Equal(t, initiator, *trade.OtherParticipant(responder))
}
