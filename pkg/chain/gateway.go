// Package chain builds, and submits, Substrate extrinsics signed by a
// threshold account. Call arguments are encoded against the runtime
// metadata fetched from the node, so any pallet call can be used.
package chain

import (
	"context"
	"fmt"
	"sync"

	"github.com/luxfi/substrate-mpc/pkg/callvalue"
	"github.com/luxfi/substrate-mpc/pkg/ceremony"
	"github.com/luxfi/substrate-mpc/pkg/logger"
)

// Gateway is what the signing ceremony needs from a chain.
type Gateway interface {
	// Prepare builds the unsigned transaction for intent, using the
	// account's current nonce.
	Prepare(ctx context.Context, account ceremony.ThresholdPublicKey, intent ceremony.CallIntent, args callvalue.Composite) (*UnsignedTransaction, error)
	AccountNonce(ctx context.Context, account ceremony.ThresholdPublicKey) (uint64, error)
	// Submit attaches sig to tx and submits it. It refuses with
	// ErrStaleNonce when the account nonce moved since Prepare.
	Submit(ctx context.Context, tx *UnsignedTransaction, sig ceremony.GroupSignature) (Hash, error)
}

type RuntimeVersion struct {
	SpecVersion        uint32
	TransactionVersion uint32
}

// Node is the RPC surface of a Substrate node.
type Node interface {
	Metadata(ctx context.Context) (*Metadata, error)
	RuntimeVersion(ctx context.Context) (RuntimeVersion, error)
	GenesisHash(ctx context.Context) (Hash, error)
	AccountNextIndex(ctx context.Context, address string) (uint64, error)
	SubmitExtrinsic(ctx context.Context, extrinsic []byte) (Hash, error)
	Close()
}

// Substrate implements Gateway on top of a Node.
type Substrate struct {
	node   Node
	prefix uint16

	mu   sync.Mutex
	meta *Metadata
}

var _ Gateway = (*Substrate)(nil)

func NewSubstrate(node Node, ss58Prefix uint16) *Substrate {
	return &Substrate{node: node, prefix: ss58Prefix}
}

// Dial connects to the node at url.
func Dial(ctx context.Context, url string, ss58Prefix uint16) (*Substrate, error) {
	node, err := NewGSRPCNode(ctx, url)
	if err != nil {
		return nil, err
	}
	return NewSubstrate(node, ss58Prefix), nil
}

func (s *Substrate) Close() { s.node.Close() }

// Address renders the account as SS58 with the gateway's prefix.
func (s *Substrate) Address(account ceremony.ThresholdPublicKey) (string, error) {
	return EncodeAddress(account, s.prefix)
}

func (s *Substrate) metadata(ctx context.Context) (*Metadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.meta != nil {
		return s.meta, nil
	}
	meta, err := s.node.Metadata(ctx)
	if err != nil {
		return nil, err
	}
	s.meta = meta
	return meta, nil
}

func (s *Substrate) AccountNonce(ctx context.Context, account ceremony.ThresholdPublicKey) (uint64, error) {
	addr, err := s.Address(account)
	if err != nil {
		return 0, err
	}
	return s.node.AccountNextIndex(ctx, addr)
}

func (s *Substrate) Prepare(ctx context.Context, account ceremony.ThresholdPublicKey, intent ceremony.CallIntent, args callvalue.Composite) (*UnsignedTransaction, error) {
	if err := intent.Validate(); err != nil {
		return nil, err
	}
	meta, err := s.metadata(ctx)
	if err != nil {
		return nil, err
	}
	call, err := EncodeCall(meta, intent.Pallet, intent.Call, args)
	if err != nil {
		return nil, err
	}
	rt, err := s.node.RuntimeVersion(ctx)
	if err != nil {
		return nil, err
	}
	genesis, err := s.node.GenesisHash(ctx)
	if err != nil {
		return nil, err
	}
	nonce, err := s.AccountNonce(ctx, account)
	if err != nil {
		return nil, err
	}
	extra, additional, err := encodeExtensions(meta, txParams{
		nonce:       nonce,
		specVersion: rt.SpecVersion,
		txVersion:   rt.TransactionVersion,
		genesis:     genesis,
	})
	if err != nil {
		return nil, err
	}

	tx := &UnsignedTransaction{
		Intent:      intent,
		Account:     append(ceremony.ThresholdPublicKey(nil), account...),
		Nonce:       nonce,
		Call:        call,
		Extra:       extra,
		Additional:  additional,
		SpecVersion: rt.SpecVersion,
		TxVersion:   rt.TransactionVersion,
		GenesisHash: genesis,
		Payload:     SigningPayload(call, extra, additional),
	}
	logger.Debug("Prepared transaction",
		"call", intent.String(),
		"nonce", nonce,
		"specVersion", rt.SpecVersion,
		"payloadBytes", len(tx.Payload),
	)
	return tx, nil
}

func (s *Substrate) Submit(ctx context.Context, tx *UnsignedTransaction, sig ceremony.GroupSignature) (Hash, error) {
	current, err := s.AccountNonce(ctx, tx.Account)
	if err != nil {
		return Hash{}, err
	}
	if current != tx.Nonce {
		return Hash{}, fmt.Errorf("%w: prepared with %d, account is at %d", ErrStaleNonce, tx.Nonce, current)
	}
	meta, err := s.metadata(ctx)
	if err != nil {
		return Hash{}, err
	}
	ext, err := BuildExtrinsic(meta, tx, sig)
	if err != nil {
		return Hash{}, err
	}
	return s.node.SubmitExtrinsic(ctx, ext)
}
