package models

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAppendTurnTrimsOldestFirst(t *testing.T) {
	s := &Session{ID: "s-1"}
	for i := 0; i < 6; i++ {
		s.AppendTurn(Turn{ID: fmt.Sprintf("t-%d", i), CreatedAt: time.Now()}, 4)
	}
	assert.Len(t, s.Turns, 4)
	assert.Equal(t, "t-2", s.Turns[0].ID)
	assert.Equal(t, "t-5", s.Turns[3].ID)
}

func TestAppendTurnBumpsLastActivity(t *testing.T) {
	s := &Session{ID: "s-1"}
	at := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	s.AppendTurn(Turn{ID: "t-1", CreatedAt: at}, 10)
	assert.Equal(t, at, s.LastActivity)
}

func TestExpired(t *testing.T) {
	now := time.Now()
	s := &Session{LastActivity: now.Add(-7 * time.Hour)}
	assert.True(t, s.Expired(6*time.Hour, now))
	assert.False(t, s.Expired(8*time.Hour, now))
	assert.False(t, s.Expired(0, now), "zero timeout disables expiry")
}

func TestTerminalStates(t *testing.T) {
	assert.True(t, StateCompleted.Terminal())
	assert.True(t, StateAbandoned.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.False(t, StateCommitting.Terminal())
	assert.False(t, StateIdle.Terminal())
}

func TestPendingActionComplete(t *testing.T) {
	var p *PendingAction
	assert.False(t, p.Complete())
	assert.False(t, (&PendingAction{ServiceID: "s", MasterID: "m"}).Complete())
	assert.True(t, (&PendingAction{ServiceID: "s", MasterID: "m", Slot: "2026-09-01T15:00:00Z"}).Complete())
}

func TestRecentTurns(t *testing.T) {
	s := &Session{}
	for i := 0; i < 5; i++ {
		s.AppendTurn(Turn{ID: fmt.Sprintf("t-%d", i)}, 0)
	}
	recent := s.RecentTurns(2)
	assert.Len(t, recent, 2)
	assert.Equal(t, "t-3", recent[0].ID)
	assert.Len(t, s.RecentTurns(10), 5)
}
