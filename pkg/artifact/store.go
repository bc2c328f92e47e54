// Package artifact is the shared store through which ceremony participants
// exchange artifacts. Backends hold raw bytes; Store adds the JSON artifact
// encoding and addresses every value by ceremony id and key.
package artifact

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/luxfi/substrate-mpc/pkg/ceremony"
)

var (
	// ErrNotFound reports an absent key, or a collection still below the
	// size a round requires.
	ErrNotFound = errors.New("artifact not found")
	// ErrCorrupt reports a value that cannot be decoded as the requested
	// shape.
	ErrCorrupt = errors.New("artifact corrupt")
)

var keyPattern = regexp.MustCompile(`^[a-z0-9_]{1,64}$`)

// Backend stores raw values by flat key. Get returns ErrNotFound for a
// missing key; Delete of a missing key is not an error.
type Backend interface {
	Put(ctx context.Context, key string, value []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Close() error
}

// Store reads and writes encoded artifacts.
type Store struct {
	backend Backend
}

func New(backend Backend) *Store {
	return &Store{backend: backend}
}

// Backend exposes the underlying backend.
func (s *Store) Backend() Backend { return s.backend }

func (s *Store) Close() error { return s.backend.Close() }

func path(id ceremony.ID, key string) (string, error) {
	if err := id.ValidateScope(); err != nil {
		return "", err
	}
	if !keyPattern.MatchString(key) {
		return "", fmt.Errorf("invalid artifact key %q", key)
	}
	return string(id) + "/" + key, nil
}

// Put stores a single artifact.
func (s *Store) Put(ctx context.Context, id ceremony.ID, key string, value []byte) error {
	p, err := path(id, key)
	if err != nil {
		return err
	}
	data, err := encodeSingle(value)
	if err != nil {
		return err
	}
	return s.backend.Put(ctx, p, data)
}

// PutList stores an ordered collection of artifacts.
func (s *Store) PutList(ctx context.Context, id ceremony.ID, key string, values [][]byte) error {
	p, err := path(id, key)
	if err != nil {
		return err
	}
	data, err := encodeList(values)
	if err != nil {
		return err
	}
	return s.backend.Put(ctx, p, data)
}

func (s *Store) Get(ctx context.Context, id ceremony.ID, key string) ([]byte, error) {
	data, err := s.raw(ctx, id, key)
	if err != nil {
		return nil, err
	}
	return decodeSingle(key, data)
}

func (s *Store) GetList(ctx context.Context, id ceremony.ID, key string) ([][]byte, error) {
	data, err := s.raw(ctx, id, key)
	if err != nil {
		return nil, err
	}
	return decodeList(key, data)
}

// Collect is the barrier read of a round: it returns the collection under key
// only once it holds at least min entries.
func (s *Store) Collect(ctx context.Context, id ceremony.ID, key string, min int) ([][]byte, error) {
	values, err := s.GetList(ctx, id, key)
	if err != nil {
		return nil, err
	}
	if len(values) < min {
		return nil, fmt.Errorf("%w: %s/%s has %d of %d entries", ErrNotFound, id, key, len(values), min)
	}
	return values, nil
}

// Exists reports whether key is present.
func (s *Store) Exists(ctx context.Context, id ceremony.ID, key string) (bool, error) {
	_, err := s.raw(ctx, id, key)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

func (s *Store) Delete(ctx context.Context, id ceremony.ID, key string) error {
	p, err := path(id, key)
	if err != nil {
		return err
	}
	return s.backend.Delete(ctx, p)
}

func (s *Store) raw(ctx context.Context, id ceremony.ID, key string) ([]byte, error) {
	p, err := path(id, key)
	if err != nil {
		return nil, err
	}
	data, err := s.backend.Get(ctx, p)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	return data, err
}

// A single artifact is a JSON string holding standard base64; a collection is
// a JSON array of such strings. encoding/json already encodes []byte that way.

func encodeSingle(value []byte) ([]byte, error) {
	if value == nil {
		value = []byte{}
	}
	return json.Marshal(value)
}

func encodeList(values [][]byte) ([]byte, error) {
	out := make([][]byte, len(values))
	for i, v := range values {
		if v == nil {
			v = []byte{}
		}
		out[i] = v
	}
	return json.Marshal(out)
}

func decodeSingle(key string, data []byte) ([]byte, error) {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil || s == nil {
		return nil, fmt.Errorf("%w: %s is not a single artifact", ErrCorrupt, key)
	}
	var out []byte
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, key, err)
	}
	return out, nil
}

func decodeList(key string, data []byte) ([][]byte, error) {
	var out [][]byte
	if err := json.Unmarshal(data, &out); err != nil || out == nil {
		return nil, fmt.Errorf("%w: %s is not an artifact collection", ErrCorrupt, key)
	}
	return out, nil
}
