package mpc

import (
	"context"
	"fmt"

	"github.com/luxfi/substrate-mpc/pkg/ceremony"
	"github.com/luxfi/substrate-mpc/pkg/chain"
	"github.com/luxfi/substrate-mpc/pkg/event"
)

// KeygenSession runs the two DKG rounds of one ceremony.
type KeygenSession struct {
	session
}

// Contribute runs DKG round 1: it builds this participant's contribution for
// the recipients listed under the ceremony and publishes it.
func (s *KeygenSession) Contribute(ctx context.Context, threshold int) (ceremony.Contribution, error) {
	c, err := s.contribute(ctx, threshold)
	return c, s.finish(ctx, event.RoundDKG1, err)
}

func (s *KeygenSession) contribute(ctx context.Context, threshold int) (ceremony.Contribution, error) {
	secret, err := s.secretKey(ctx)
	if err != nil {
		return nil, err
	}
	recipients, err := s.recipients(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info().
		Int("threshold", threshold).
		Int("participants", len(recipients)).
		Msg("Building DKG contribution")

	c, err := s.node.protocol.Contribute(secret, threshold, recipients)
	if err != nil {
		return nil, err
	}
	if err := s.publish(ctx, ceremony.KeyContributions, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Finalize runs DKG round 2 over the complete contribution set. The signing
// share goes to the keystore; the public key, SPP output and account
// descriptor go to the artifact store. Nothing is written unless every
// contribution checks out.
func (s *KeygenSession) Finalize(ctx context.Context) (*ceremony.ThresholdAccount, error) {
	acct, addr, err := s.finalize(ctx)
	err = s.finish(ctx, event.RoundDKG2, err)
	if err != nil {
		s.notify(ctx, event.CreateKeygenFailure(string(s.ceremony), err))
		return nil, err
	}
	s.notify(ctx, event.CreateKeygenSuccess(string(s.ceremony), acct.PublicKey.Hex(), addr, acct.Threshold, acct.N()))
	return acct, nil
}

func (s *KeygenSession) finalize(ctx context.Context) (*ceremony.ThresholdAccount, string, error) {
	secret, err := s.secretKey(ctx)
	if err != nil {
		return nil, "", err
	}
	recipients, err := s.recipients(ctx)
	if err != nil {
		return nil, "", err
	}
	n := len(recipients)
	raw, err := s.collect(ctx, ceremony.KeyContributions, n)
	if err != nil {
		return nil, "", err
	}
	if len(raw) != n {
		return nil, "", fmt.Errorf("%w: %d contributions for %d recipients", ceremony.ErrInconsistentContribution, len(raw), n)
	}
	set := make(ceremony.ContributionSet, n)
	for i, c := range raw {
		set[i] = c
	}

	out, err := s.node.protocol.Finalize(secret, set)
	if err != nil {
		return nil, "", err
	}
	defer ceremony.Zero(out.Share)

	addr, err := chain.EncodeAddress(out.Account.PublicKey, s.node.ss58Prefix)
	if err != nil {
		return nil, "", err
	}
	descriptor, err := out.Account.MarshalDescriptor(addr)
	if err != nil {
		return nil, "", err
	}

	if err := s.node.keystore.Put(ctx, s.ceremony, ceremony.LocalSigningShare, out.Share); err != nil {
		return nil, "", err
	}
	store := s.node.store
	if err := store.Put(ctx, s.ceremony, ceremony.KeyThresholdPublicKey, out.Account.PublicKey); err != nil {
		return nil, "", err
	}
	if err := store.Put(ctx, s.ceremony, ceremony.KeySPPOutput, out.SPP); err != nil {
		return nil, "", err
	}
	if err := store.Put(ctx, s.ceremony, ceremony.KeyThresholdAccount, descriptor); err != nil {
		return nil, "", err
	}

	s.logger.Info().
		Str("publicKey", out.Account.PublicKey.Hex()).
		Str("address", addr).
		Int("threshold", out.Account.Threshold).
		Int("participants", out.Account.N()).
		Msg("Threshold account created")
	acct := out.Account
	return &acct, addr, nil
}
