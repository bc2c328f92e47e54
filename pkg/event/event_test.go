package event

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/substrate-mpc/pkg/common/errors"
)

func TestRoundEvent_Subject(t *testing.T) {
	ev := CreateRoundEvent("acct-1", "", "age1xyz", RoundDKG1, nil)
	assert.Equal(t, "thresholdctl.round.acct-1.dkg-round1", ev.Subject())
	assert.Equal(t, ResultTypeSuccess, ev.ResultType)
	assert.Empty(t, ev.ErrorCode)

	ev = CreateRoundEvent("acct-1", "s-9", "", RoundSign2, nil)
	assert.Equal(t, "thresholdctl.round.acct-1.s-9.sign-round2", ev.Subject())
}

func TestRoundEvent_Failure(t *testing.T) {
	cause := errors.Wrap(errors.KindNetwork, "submit", fmt.Errorf("connection refused"))
	ev := CreateRoundEvent("acct-1", "s-9", "", RoundAggregate, cause)

	assert.Equal(t, ResultTypeError, ev.ResultType)
	assert.Equal(t, ErrorCode(errors.KindNetwork), ev.ErrorCode)
	assert.Contains(t, ev.ErrorReason, "connection refused")
}

func TestKeygenAndSigningEvents(t *testing.T) {
	ok := CreateKeygenSuccess("acct-1", "0xabcd", "5Grw", 2, 3)
	assert.Equal(t, "thresholdctl.keygen_result.acct-1", ok.Subject())

	data, err := json.Marshal(ok)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ceremony_id":"acct-1","public_key":"0xabcd","address":"5Grw","threshold":2,"parties":3,"result_type":"success"}`, string(data))

	failed := CreateKeygenFailure("acct-1", errors.Wrap(errors.KindCrypto, "finalize", fmt.Errorf("bad proof")))
	assert.Equal(t, ErrorCode(errors.KindCrypto), failed.ErrorCode)

	sig := CreateSignSuccess("acct-1", "s-9", "System.remark", 4, []byte{1, 2}, "0x01")
	assert.Equal(t, "thresholdctl.signing_result.acct-1.s-9", sig.Subject())

	sf := CreateSignFailure("acct-1", "s-9", "System.remark", fmt.Errorf("boom"))
	assert.Equal(t, ResultTypeError, sf.ResultType)
	assert.Equal(t, ErrorCode(errors.KindUnknown), sf.ErrorCode)
}

func TestRecorder(t *testing.T) {
	var r Recorder
	var n Notifier = &r
	require.NoError(t, n.Notify(context.Background(), CreateRoundEvent("a", "", "", RoundDKG1, nil)))
	require.NoError(t, Nop{}.Notify(context.Background(), CreateRoundEvent("a", "", "", RoundDKG1, nil)))
	assert.Len(t, r.Events(), 1)
}
