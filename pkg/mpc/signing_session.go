package mpc

import (
	"bytes"
	"context"
	"fmt"

	"github.com/luxfi/substrate-mpc/pkg/callvalue"
	"github.com/luxfi/substrate-mpc/pkg/ceremony"
	"github.com/luxfi/substrate-mpc/pkg/chain"
	"github.com/luxfi/substrate-mpc/pkg/common/errors"
	"github.com/luxfi/substrate-mpc/pkg/event"
	"github.com/luxfi/substrate-mpc/pkg/keystore"
)

// SigningSession runs one signing of one transaction by the threshold
// account of a ceremony.
type SigningSession struct {
	session
}

// SigningResult is what aggregation produced and submitted.
type SigningResult struct {
	Signature     ceremony.GroupSignature
	ExtrinsicHash chain.Hash
	Nonce         uint64
}

// Commit runs signing round 1. The nonces stay in the keystore until round 2
// takes them; the commitment is published.
func (s *SigningSession) Commit(ctx context.Context) (ceremony.SigningCommitment, error) {
	c, err := s.commit(ctx)
	return c, s.finish(ctx, event.RoundSign1, err)
}

func (s *SigningSession) commit(ctx context.Context) (ceremony.SigningCommitment, error) {
	if _, err := s.secretKey(ctx); err != nil {
		return nil, err
	}
	share, err := s.signingShare(ctx)
	if err != nil {
		return nil, err
	}
	defer ceremony.Zero(share)

	nonces, commitment, err := s.node.protocol.Commit(share)
	if err != nil {
		return nil, err
	}
	secret, err := nonces.Take()
	if err != nil {
		return nil, err
	}
	defer ceremony.Zero(secret)

	ks := s.node.keystore
	if err := ks.Put(ctx, s.scope, ceremony.LocalSigningNonces, secret); err != nil {
		return nil, err
	}
	if err := ks.Put(ctx, s.scope, ceremony.LocalOwnCommitment, commitment); err != nil {
		return nil, err
	}
	if err := s.publish(ctx, ceremony.KeySigningCommitments, commitment); err != nil {
		return nil, err
	}
	return commitment, nil
}

// Prepare returns the transaction every signer of the session signs. The
// first call builds it from the chain and pins it in the session; later calls
// return the pinned copy as long as the intent matches.
func (s *SigningSession) Prepare(ctx context.Context, intent ceremony.CallIntent) (*chain.UnsignedTransaction, error) {
	tx, err := s.prepare(ctx, intent)
	return tx, s.finish(ctx, event.RoundPrepare, err)
}

func (s *SigningSession) prepare(ctx context.Context, intent ceremony.CallIntent) (*chain.UnsignedTransaction, error) {
	tx, err := s.pinned(ctx, intent)
	if err == nil || !isNotFound(err) {
		return tx, err
	}
	tx, err = s.build(ctx, intent)
	if err != nil {
		return nil, err
	}
	data, err := tx.Marshal()
	if err != nil {
		return nil, err
	}
	if err := s.node.store.Put(ctx, s.scope, ceremony.KeyUnsignedTx, data); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("call", intent.String()).
		Uint64("nonce", tx.Nonce).
		Msg("Pinned unsigned transaction")
	return tx, nil
}

// pinned loads the pinned transaction, or fails with artifact.ErrNotFound.
func (s *SigningSession) pinned(ctx context.Context, intent ceremony.CallIntent) (*chain.UnsignedTransaction, error) {
	data, err := s.node.store.Get(ctx, s.scope, ceremony.KeyUnsignedTx)
	if err != nil {
		return nil, err
	}
	tx, err := chain.UnmarshalUnsignedTransaction(data)
	if err != nil {
		return nil, err
	}
	if !tx.Intent.Same(intent) {
		return nil, fmt.Errorf("%w: pinned %s, requested %s", ceremony.ErrIntentMismatch, tx.Intent, intent)
	}
	return tx, nil
}

// checkNonce compares the pinned nonce with the chain when a gateway is
// configured.
func (s *SigningSession) checkNonce(ctx context.Context, tx *chain.UnsignedTransaction) error {
	if s.node.gateway == nil {
		return nil
	}
	current, err := s.node.gateway.AccountNonce(ctx, tx.Account)
	if err != nil {
		return err
	}
	if current != tx.Nonce {
		return fmt.Errorf("%w: pinned nonce %d, account is at %d", chain.ErrStaleNonce, tx.Nonce, current)
	}
	return nil
}

func (s *SigningSession) build(ctx context.Context, intent ceremony.CallIntent) (*chain.UnsignedTransaction, error) {
	if s.node.gateway == nil {
		return nil, ErrNoGateway
	}
	acct, _, err := s.node.account(ctx, s.ceremony)
	if err != nil {
		return nil, err
	}
	args, err := callvalue.ParseArgs([]string{intent.Args})
	if err != nil {
		return nil, err
	}
	return s.node.gateway.Prepare(ctx, acct.PublicKey, intent, args)
}

// Sign runs signing round 2 over the pinned transaction for intent. It never
// builds a payload itself: without a pinned copy it fails with ErrNotPinned
// and the nonces stay untouched. With a gateway it also refuses a pinned
// nonce the chain has already moved past. The nonces from round 1 are removed
// from the keystore before signing, so a failed attempt needs a fresh round 1.
func (s *SigningSession) Sign(ctx context.Context, signingContext []byte, intent ceremony.CallIntent) (ceremony.SigningPackage, error) {
	pkg, err := s.sign(ctx, signingContext, intent)
	return pkg, s.finish(ctx, event.RoundSign2, err)
}

func (s *SigningSession) sign(ctx context.Context, signingContext []byte, intent ceremony.CallIntent) (ceremony.SigningPackage, error) {
	if _, err := s.secretKey(ctx); err != nil {
		return nil, err
	}
	share, err := s.signingShare(ctx)
	if err != nil {
		return nil, err
	}
	defer ceremony.Zero(share)
	spp, err := s.node.store.Get(ctx, s.ceremony, ceremony.KeySPPOutput)
	if err != nil {
		return nil, err
	}
	threshold, err := s.node.protocol.Threshold(spp)
	if err != nil {
		return nil, err
	}

	raw, err := s.collect(ctx, ceremony.KeySigningCommitments, threshold)
	if err != nil {
		return nil, err
	}
	commitments := make(ceremony.CommitmentSet, len(raw))
	for i, c := range raw {
		commitments[i] = c
	}
	own, err := s.node.keystore.Get(ctx, s.scope, ceremony.LocalOwnCommitment)
	if err != nil {
		return nil, err
	}
	if !commitments.Contains(own) {
		return nil, ceremony.ErrSelfCommitmentMissing
	}

	tx, err := s.pinned(ctx, intent)
	if isNotFound(err) {
		return nil, fmt.Errorf("%w: prepare the session or copy %s from the preparer (%w)", ErrNotPinned, ceremony.KeyUnsignedTx, err)
	}
	if err != nil {
		return nil, err
	}
	if err := s.checkNonce(ctx, tx); err != nil {
		return nil, err
	}

	secret, err := s.node.keystore.Take(ctx, s.scope, ceremony.LocalSigningNonces)
	if errors.Is(err, keystore.ErrNotFound) {
		return nil, fmt.Errorf("%w: run round 1 again", ceremony.ErrNoncesConsumed)
	}
	if err != nil {
		return nil, err
	}
	nonces := ceremony.NewSigningNonces(secret)
	ceremony.Zero(secret)

	pkg, err := s.node.protocol.Sign(share, spp, commitments, nonces, signingContext, tx.Payload)
	if err != nil {
		return nil, err
	}
	if err := s.publish(ctx, ceremony.KeySigningPackages, pkg); err != nil {
		return nil, err
	}
	s.logger.Info().
		Int("signers", len(commitments)).
		Uint64("nonce", tx.Nonce).
		Msg("Partial signature published")
	return pkg, nil
}

// Aggregate combines the signing packages, checks the group signature against
// the account and the pinned payload, and submits the extrinsic. A non-nil
// signingContext must match the context every package was signed under.
func (s *SigningSession) Aggregate(ctx context.Context, signingContext []byte, intent ceremony.CallIntent) (*SigningResult, error) {
	res, err := s.aggregate(ctx, signingContext, intent)
	err = s.finish(ctx, event.RoundAggregate, err)
	if err != nil {
		s.notify(ctx, event.CreateSignFailure(string(s.ceremony), string(s.sessionID), intent.String(), err))
		return nil, err
	}
	s.notify(ctx, event.CreateSignSuccess(
		string(s.ceremony), string(s.sessionID), intent.String(),
		res.Nonce, res.Signature, res.ExtrinsicHash.Hex(),
	))
	return res, nil
}

func (s *SigningSession) aggregate(ctx context.Context, signingContext []byte, intent ceremony.CallIntent) (*SigningResult, error) {
	if s.node.gateway == nil {
		return nil, ErrNoGateway
	}
	acct, addr, err := s.node.account(ctx, s.ceremony)
	if err != nil {
		return nil, err
	}
	spp, err := s.node.store.Get(ctx, s.ceremony, ceremony.KeySPPOutput)
	if err != nil {
		return nil, err
	}
	threshold, err := s.node.protocol.Threshold(spp)
	if err != nil {
		return nil, err
	}

	raw, err := s.collect(ctx, ceremony.KeySigningPackages, threshold)
	if err != nil {
		return nil, err
	}
	packages := make(ceremony.PackageSet, len(raw))
	for i, p := range raw {
		packages[i] = p
		if signingContext == nil {
			continue
		}
		got, err := s.node.protocol.PackageContext(p)
		if err != nil {
			return nil, err
		}
		if !bytes.Equal(got, signingContext) {
			return nil, fmt.Errorf("%w: package %d signed under context %q", ceremony.ErrMessageMismatch, i+1, got)
		}
	}
	sig, err := s.node.protocol.Aggregate(packages)
	if err != nil {
		return nil, err
	}

	tx, err := s.pinned(ctx, intent)
	if isNotFound(err) {
		// Nothing pinned: rebuild and let verification catch divergence.
		s.logger.Warn().Msg("No pinned transaction, rebuilding from chain state")
		tx, err = s.build(ctx, intent)
	}
	if err != nil {
		return nil, err
	}
	if err := s.node.protocol.Verify(acct.PublicKey, tx.Payload, sig); err != nil {
		return nil, fmt.Errorf("%w: group signature does not cover the transaction: %v", ceremony.ErrMessageMismatch, err)
	}
	if err := s.node.store.Put(ctx, s.scope, ceremony.KeySignature, sig); err != nil {
		return nil, err
	}

	hash, err := s.node.gateway.Submit(ctx, tx, sig)
	if err != nil {
		return nil, errors.Wrap(kindOf(err), "submit", err)
	}
	if err := s.node.store.Put(ctx, s.scope, ceremony.KeyExtrinsicHash, []byte(hash.Hex())); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("account", addr).
		Str("call", intent.String()).
		Str("extrinsic", hash.Hex()).
		Msg("Extrinsic submitted")
	return &SigningResult{Signature: sig, ExtrinsicHash: hash, Nonce: tx.Nonce}, nil
}
