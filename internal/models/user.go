package models

// ParticipantRole отношение пользователя к конкретному спору.
type ParticipantRole string

const (
	ParticipantInitiator  ParticipantRole = "INITIATOR"
	ParticipantRespondent ParticipantRole = "RESPONDENT"
	ParticipantNone       ParticipantRole = "NONE"
)

// RoleOf определяет, кем пользователь приходится спору. На нём держатся все проверки участия.
func RoleOf(d *Dispute, userID int64) ParticipantRole {
	switch userID {
	case d.InitiatorID:
		return ParticipantInitiator
	case d.RespondentID:
		return ParticipantRespondent
	}
	return ParticipantNone
}

// PartyRoleOf возвращает сторону сделки участника. ok == false для посторонних.
func PartyRoleOf(d *Dispute, userID int64) (PartyRole, bool) {
	switch RoleOf(d, userID) {
	case ParticipantInitiator:
		return d.InitiatorRole, true
	case ParticipantRespondent:
		return d.InitiatorRole.Opposite(), true
	}
	return "", false
}

// Counterpart возвращает второго участника спора.
func Counterpart(d *Dispute, userID int64) int64 {
	if userID == d.InitiatorID {
		return d.RespondentID
	}
	return d.InitiatorID
}
