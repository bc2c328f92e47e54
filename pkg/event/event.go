// Package event publishes ceremony progress so participants relaying
// artifacts through a shared store learn when a round can proceed.
package event

import (
	"github.com/luxfi/substrate-mpc/pkg/common/errors"
)

type ResultType string

const (
	ResultTypeSuccess ResultType = "success"
	ResultTypeError   ResultType = "error"
)

// ErrorCode is the error kind of a failed round.
type ErrorCode string

// Round names a ceremony step.
type Round string

const (
	RoundIdentity  Round = "identity"
	RoundDKG1      Round = "dkg-round1"
	RoundDKG2      Round = "dkg-round2"
	RoundSign1     Round = "sign-round1"
	RoundPrepare   Round = "sign-prepare"
	RoundSign2     Round = "sign-round2"
	RoundAggregate Round = "sign-aggregate"
)

const (
	SubjectPrefix        = "thresholdctl"
	RoundSubjectBase     = SubjectPrefix + ".round"
	KeygenResultSubject  = SubjectPrefix + ".keygen_result"
	SigningResultSubject = SubjectPrefix + ".signing_result"

	// RoundSubjectAll matches every round event, for subscribers.
	RoundSubjectAll = RoundSubjectBase + ".>"
)

// Event is anything a Notifier can publish.
type Event interface {
	Subject() string
}

// RoundEvent reports that one participant finished (or failed) a round.
type RoundEvent struct {
	CeremonyID  string     `json:"ceremony_id"`
	SessionID   string     `json:"session_id,omitempty"`
	Participant string     `json:"participant,omitempty"`
	Round       Round      `json:"round"`
	ResultType  ResultType `json:"result_type"`
	ErrorCode   ErrorCode  `json:"error_code,omitempty"`
	ErrorReason string     `json:"error_reason,omitempty"`
}

func (e RoundEvent) Subject() string {
	scope := e.CeremonyID
	if e.SessionID != "" {
		scope += "." + e.SessionID
	}
	return RoundSubjectBase + "." + scope + "." + string(e.Round)
}

// CreateRoundEvent builds the event for a finished round. A nil err reports
// success.
func CreateRoundEvent(ceremonyID, sessionID, participant string, round Round, err error) RoundEvent {
	ev := RoundEvent{
		CeremonyID:  ceremonyID,
		SessionID:   sessionID,
		Participant: participant,
		Round:       round,
		ResultType:  ResultTypeSuccess,
	}
	if err != nil {
		ev.ResultType = ResultTypeError
		ev.ErrorCode = ErrorCode(errors.KindOf(err))
		ev.ErrorReason = err.Error()
	}
	return ev
}
