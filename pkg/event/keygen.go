package event

type KeygenResultEvent struct {
	CeremonyID string `json:"ceremony_id"`
	PublicKey  string `json:"public_key,omitempty"`
	Address    string `json:"address,omitempty"`
	Threshold  int    `json:"threshold,omitempty"`
	Parties    int    `json:"parties,omitempty"`

	ResultType  ResultType `json:"result_type"`
	ErrorReason string     `json:"error_reason,omitempty"`
	ErrorCode   ErrorCode  `json:"error_code,omitempty"`
}

func (e KeygenResultEvent) Subject() string {
	return KeygenResultSubject + "." + e.CeremonyID
}

// CreateKeygenSuccess creates a successful keygen event
func CreateKeygenSuccess(ceremonyID, pubKeyHex, address string, threshold, parties int) KeygenResultEvent {
	return KeygenResultEvent{
		CeremonyID: ceremonyID,
		PublicKey:  pubKeyHex,
		Address:    address,
		Threshold:  threshold,
		Parties:    parties,
		ResultType: ResultTypeSuccess,
	}
}

// CreateKeygenFailure creates a failed keygen event
func CreateKeygenFailure(ceremonyID string, err error) KeygenResultEvent {
	ev := CreateRoundEvent(ceremonyID, "", "", RoundDKG2, err)
	return KeygenResultEvent{
		CeremonyID:  ceremonyID,
		ResultType:  ResultTypeError,
		ErrorReason: ev.ErrorReason,
		ErrorCode:   ev.ErrorCode,
	}
}
