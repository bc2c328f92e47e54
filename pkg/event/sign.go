package event

type SigningResultEvent struct {
	ResultType  ResultType `json:"result_type"`
	ErrorCode   ErrorCode  `json:"error_code,omitempty"`
	ErrorReason string     `json:"error_reason,omitempty"`
	CeremonyID  string     `json:"ceremony_id"`
	SessionID   string     `json:"session_id"`
	Call        string     `json:"call,omitempty"`
	Nonce       uint64     `json:"nonce"`

	// Signature is the 64-byte Ed25519 group signature.
	Signature     []byte `json:"signature,omitempty"`
	ExtrinsicHash string `json:"extrinsic_hash,omitempty"`
}

func (e SigningResultEvent) Subject() string {
	return SigningResultSubject + "." + e.CeremonyID + "." + e.SessionID
}

func CreateSignSuccess(ceremonyID, sessionID, call string, nonce uint64, signature []byte, extrinsicHash string) SigningResultEvent {
	return SigningResultEvent{
		ResultType:    ResultTypeSuccess,
		CeremonyID:    ceremonyID,
		SessionID:     sessionID,
		Call:          call,
		Nonce:         nonce,
		Signature:     signature,
		ExtrinsicHash: extrinsicHash,
	}
}

func CreateSignFailure(ceremonyID, sessionID, call string, err error) SigningResultEvent {
	ev := CreateRoundEvent(ceremonyID, sessionID, "", RoundAggregate, err)
	return SigningResultEvent{
		ResultType:  ResultTypeError,
		ErrorCode:   ev.ErrorCode,
		ErrorReason: ev.ErrorReason,
		CeremonyID:  ceremonyID,
		SessionID:   sessionID,
		Call:        call,
	}
}
