package mpc

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/luxfi/substrate-mpc/pkg/artifact"
	"github.com/luxfi/substrate-mpc/pkg/ceremony"
	"github.com/luxfi/substrate-mpc/pkg/common/errors"
	"github.com/luxfi/substrate-mpc/pkg/event"
	"github.com/luxfi/substrate-mpc/pkg/logger"
)

// session holds what every round needs: where its artifacts live and who is
// running it.
type session struct {
	node      *Node
	ceremony  ceremony.ID
	sessionID ceremony.ID
	// scope addresses the session's artifacts: the ceremony itself for DKG,
	// <ceremony>.<session> for signing.
	scope  ceremony.ID
	self   ceremony.ParticipantKey
	logger zerolog.Logger
}

// newSession builds the shared round state. scope comes from ceremony.Scope.
func (n *Node) newSession(ceremonyID, sessionID, scope ceremony.ID) session {
	kv := []any{"ceremony", ceremonyID}
	if sessionID != "" {
		kv = append(kv, "session", sessionID)
	}
	return session{
		node:      n,
		ceremony:  ceremonyID,
		sessionID: sessionID,
		scope:     scope,
		logger:    logger.With(kv...),
	}
}

func isNotFound(err error) bool { return errors.Is(err, artifact.ErrNotFound) }

func (s *session) secretKey(ctx context.Context) (ceremony.SecretKey, error) {
	raw, err := s.node.keystore.Get(ctx, s.ceremony, ceremony.LocalSecretKey)
	if err != nil {
		return "", err
	}
	secret := ceremony.SecretKey(raw)
	if self, err := s.node.protocol.Identity(secret); err == nil {
		s.self = self
	}
	return secret, nil
}

func (s *session) signingShare(ctx context.Context) (ceremony.SigningShare, error) {
	return s.node.keystore.Get(ctx, s.ceremony, ceremony.LocalSigningShare)
}

func (s *session) recipients(ctx context.Context) ([]ceremony.ParticipantKey, error) {
	raw, err := s.node.store.GetList(ctx, s.ceremony, ceremony.KeyRecipients)
	if err != nil {
		return nil, err
	}
	keys := make([]ceremony.ParticipantKey, len(raw))
	for i, k := range raw {
		keys[i] = ceremony.ParticipantKey(k)
	}
	return keys, nil
}

// publish writes this participant's contribution to a collection as a
// single-element list. Assembling the full collection is left to whoever
// relays artifacts between participants.
func (s *session) publish(ctx context.Context, key string, value []byte) error {
	return s.node.store.PutList(ctx, s.scope, key, [][]byte{value})
}

// collect is the round barrier: it returns at least min entries or fails
// with artifact.ErrNotFound.
func (s *session) collect(ctx context.Context, key string, min int) ([][]byte, error) {
	w := s.node.wait
	return s.node.store.CollectWait(ctx, s.scope, key, min, w.Timeout, w.Interval)
}

// finish classifies err, logs the outcome and announces it.
func (s *session) finish(ctx context.Context, round event.Round, err error) error {
	err = classify(string(round), err)
	ev := event.CreateRoundEvent(string(s.ceremony), string(s.sessionID), string(s.self), round, err)
	if nerr := s.node.notifier.Notify(ctx, ev); nerr != nil {
		s.logger.Warn().Err(nerr).Str("round", string(round)).Msg("Failed to publish round event")
	}
	if err != nil {
		s.logger.Error().Err(err).
			Str("round", string(round)).
			Str("kind", string(errors.KindOf(err))).
			Msg("Round failed")
		return err
	}
	s.logger.Info().Str("round", string(round)).Msg("Round complete")
	return nil
}

func (s *session) notify(ctx context.Context, ev event.Event) {
	if err := s.node.notifier.Notify(ctx, ev); err != nil {
		s.logger.Warn().Err(err).Str("subject", ev.Subject()).Msg("Failed to publish result event")
	}
}
