package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDisputeStatus_Transitions(t *testing.T) {
	tests := []struct {
		from DisputeStatus
		to   DisputeStatus
		ok   bool
	}{
		{DisputeStatusSubmitted, DisputeStatusNegotiating, true},
		{DisputeStatusSubmitted, DisputeStatusClosed, true},
		{DisputeStatusSubmitted, DisputeStatusPendingArbitration, false},
		{DisputeStatusNegotiating, DisputeStatusPendingArbitration, true},
		{DisputeStatusPendingArbitration, DisputeStatusArbitrating, true},
		{DisputeStatusArbitrating, DisputeStatusCompleted, true},
		{DisputeStatusArbitrating, DisputeStatusClosed, true},
		{DisputeStatusCompleted, DisputeStatusClosed, false},
		{DisputeStatusClosed, DisputeStatusSubmitted, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.ok, tt.from.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
	assert.True(t, DisputeStatusCompleted.IsTerminal())
	assert.True(t, DisputeStatusClosed.IsTerminal())
	assert.False(t, DisputeStatus("UNKNOWN").IsValid())
}

func TestRoleOf(t *testing.T) {
	d := &Dispute{InitiatorID: 1, InitiatorRole: PartyRoleSeller, RespondentID: 2}

	assert.Equal(t, ParticipantInitiator, RoleOf(d, 1))
	assert.Equal(t, ParticipantRespondent, RoleOf(d, 2))
	assert.Equal(t, ParticipantNone, RoleOf(d, 3))

	role, ok := PartyRoleOf(d, 2)
	assert.True(t, ok)
	assert.Equal(t, PartyRoleBuyer, role)

	_, ok = PartyRoleOf(d, 3)
	assert.False(t, ok)

	assert.Equal(t, int64(2), d.BuyerID())
	assert.Equal(t, int64(1), d.SellerID())
	assert.Equal(t, int64(1), Counterpart(d, 2))
}

func TestFormatDisputeCode(t *testing.T) {
	at := time.Date(2026, time.January, 15, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, "DSP-20260115-000042", FormatDisputeCode(at, 42))
	assert.Equal(t, "DSP-20260115-000001", FormatDisputeCode(at, 1_000_001))
}
