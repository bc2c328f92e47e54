// Package mpc runs the ceremony rounds for one participant: identity, the two
// DKG rounds, and the signing rounds up to aggregation and submission. Every
// round reads its inputs from the artifact store and keystore, runs the
// threshold protocol, and writes its outputs back; nothing is kept in memory
// between rounds.
package mpc

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/luxfi/substrate-mpc/pkg/artifact"
	"github.com/luxfi/substrate-mpc/pkg/ceremony"
	"github.com/luxfi/substrate-mpc/pkg/chain"
	"github.com/luxfi/substrate-mpc/pkg/common/errors"
	"github.com/luxfi/substrate-mpc/pkg/event"
	"github.com/luxfi/substrate-mpc/pkg/keystore"
	"github.com/luxfi/substrate-mpc/pkg/logger"
	"github.com/luxfi/substrate-mpc/pkg/protocol"
	"github.com/luxfi/substrate-mpc/pkg/types"
)

const (
	PurposeKeygen = "keygen"
	PurposeSign   = "sign"
)

// WaitConfig controls how long a round waits for a collection to fill up.
// A zero Timeout reads once and fails with artifact.ErrNotFound.
type WaitConfig struct {
	Timeout  time.Duration
	Interval time.Duration
}

// Node is one participant's view of the ceremonies it takes part in.
type Node struct {
	protocol   protocol.Protocol
	store      *artifact.Store
	keystore   keystore.Keystore
	gateway    chain.Gateway
	notifier   event.Notifier
	wait       WaitConfig
	ss58Prefix uint16
}

type NodeOption func(*Node)

func WithGateway(g chain.Gateway) NodeOption {
	return func(n *Node) { n.gateway = g }
}

func WithNotifier(notifier event.Notifier) NodeOption {
	return func(n *Node) { n.notifier = notifier }
}

func WithWait(w WaitConfig) NodeOption {
	return func(n *Node) { n.wait = w }
}

// WithSS58Prefix sets the network prefix used to render account addresses.
func WithSS58Prefix(prefix uint16) NodeOption {
	return func(n *Node) { n.ss58Prefix = prefix }
}

func NewNode(proto protocol.Protocol, store *artifact.Store, ks keystore.Keystore, opts ...NodeOption) *Node {
	n := &Node{
		protocol:   proto,
		store:      store,
		keystore:   ks,
		notifier:   event.Nop{},
		ss58Prefix: types.SupportedNetworks[types.NetworkSubstrate].SS58Prefix,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// NewSessionID returns a fresh signing session id.
func NewSessionID() ceremony.ID {
	return ceremony.ID(uuid.NewString())
}

// Identity returns this participant's key for the ceremony, creating the
// identity on first use, and lists it under the recipients collection.
func (n *Node) Identity(ctx context.Context, id ceremony.ID) (ceremony.ParticipantKey, error) {
	s := n.newSession(id, "", id)
	pub, err := n.identity(ctx, id)
	s.self = pub
	return pub, s.finish(ctx, event.RoundIdentity, err)
}

func (n *Node) identity(ctx context.Context, id ceremony.ID) (ceremony.ParticipantKey, error) {
	if err := id.Validate(); err != nil {
		return "", err
	}
	var pub ceremony.ParticipantKey
	raw, err := n.keystore.Get(ctx, id, ceremony.LocalSecretKey)
	switch {
	case err == nil:
		if pub, err = n.protocol.Identity(ceremony.SecretKey(raw)); err != nil {
			return "", err
		}
	case errors.Is(err, keystore.ErrNotFound):
		var secret ceremony.SecretKey
		if secret, pub, err = n.protocol.NewIdentity(); err != nil {
			return "", err
		}
		if err := n.keystore.Put(ctx, id, ceremony.LocalSecretKey, []byte(secret)); err != nil {
			return "", err
		}
		logger.Info("Created participant identity", "ceremony", id, "participant", pub)
	default:
		return "", err
	}
	if err := artifact.Append(ctx, n.store, id, ceremony.KeyRecipients, []byte(pub)); err != nil {
		return "", err
	}
	return pub, nil
}

func (n *Node) CreateKeygenSession(id ceremony.ID) (*KeygenSession, error) {
	if err := id.Validate(); err != nil {
		return nil, classify(PurposeKeygen, err)
	}
	return &KeygenSession{session: n.newSession(id, "", id)}, nil
}

// CreateSigningSession opens a signing session of the ceremony's account. Its
// artifacts and local secrets live under ceremony.Scope(ceremonyID, sessionID),
// apart from the DKG artifacts and from every other session.
func (n *Node) CreateSigningSession(ceremonyID, sessionID ceremony.ID) (*SigningSession, error) {
	if sessionID == "" {
		return nil, classify(PurposeSign, fmt.Errorf("%w: empty session id", ceremony.ErrInvalidID))
	}
	scope, err := ceremony.Scope(ceremonyID, sessionID)
	if err != nil {
		return nil, classify(PurposeSign, err)
	}
	return &SigningSession{session: n.newSession(ceremonyID, sessionID, scope)}, nil
}

// Account reads the threshold account produced by DKG round 2.
func (n *Node) Account(ctx context.Context, id ceremony.ID) (ceremony.ThresholdAccount, string, error) {
	acct, addr, err := n.account(ctx, id)
	return acct, addr, classify("account", err)
}

func (n *Node) account(ctx context.Context, id ceremony.ID) (ceremony.ThresholdAccount, string, error) {
	raw, err := n.store.Get(ctx, id, ceremony.KeyThresholdAccount)
	if err != nil {
		if isNotFound(err) {
			return ceremony.ThresholdAccount{}, "", ErrAccountMissing
		}
		return ceremony.ThresholdAccount{}, "", err
	}
	acct, err := ceremony.UnmarshalDescriptor(raw)
	if err != nil {
		return ceremony.ThresholdAccount{}, "", err
	}
	pub, err := n.store.Get(ctx, id, ceremony.KeyThresholdPublicKey)
	if err != nil {
		return ceremony.ThresholdAccount{}, "", err
	}
	if !acct.PublicKey.Equal(pub) {
		return ceremony.ThresholdAccount{}, "", ceremony.ErrMismatchedGroup
	}
	addr, err := chain.EncodeAddress(acct.PublicKey, n.ss58Prefix)
	if err != nil {
		return ceremony.ThresholdAccount{}, "", err
	}
	return acct, addr, nil
}
