package artifact

import (
	"bytes"
	"context"
	"fmt"

	"github.com/samber/lo"

	"github.com/luxfi/substrate-mpc/pkg/ceremony"
)

// Merge assembles one collection from the per-participant collections found
// under key in each source, in source order, and writes it to dst, replacing
// what dst held. Byte-identical entries are kept once.
func Merge(ctx context.Context, dst *Store, id ceremony.ID, key string, sources ...*Store) ([][]byte, error) {
	var merged [][]byte
	for i, src := range sources {
		values, err := src.GetList(ctx, id, key)
		if err != nil {
			return nil, fmt.Errorf("source %d: %w", i+1, err)
		}
		merged = append(merged, values...)
	}
	merged = lo.UniqBy(merged, func(v []byte) string { return string(v) })
	if err := dst.PutList(ctx, id, key, merged); err != nil {
		return nil, err
	}
	return merged, nil
}

// Append adds value to the collection under key unless an identical entry is
// already there.
func Append(ctx context.Context, s *Store, id ceremony.ID, key string, value []byte) error {
	values, err := s.GetList(ctx, id, key)
	if err != nil && !isNotFound(err) {
		return err
	}
	if lo.ContainsBy(values, func(v []byte) bool { return bytes.Equal(v, value) }) {
		return nil
	}
	return s.PutList(ctx, id, key, append(values, value))
}

// Copy relays the single artifact under key from the sources to dst. Sources
// that lack it are skipped; sources holding different bytes are an error.
func Copy(ctx context.Context, dst *Store, id ceremony.ID, key string, sources ...*Store) ([]byte, error) {
	var (
		found []byte
		ok    bool
	)
	for i, src := range sources {
		v, err := src.Get(ctx, id, key)
		if isNotFound(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("source %d: %w", i+1, err)
		}
		if ok && !bytes.Equal(found, v) {
			return nil, fmt.Errorf("%w: sources disagree on %s/%s", ErrCorrupt, id, key)
		}
		found, ok = v, true
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s in no source", ErrNotFound, id, key)
	}
	return found, dst.Put(ctx, id, key, found)
}

// Relay moves key from the sources to dst keeping its shape: a collection is
// merged with Merge, a single artifact copied with Copy. It returns the number
// of entries written.
func Relay(ctx context.Context, dst *Store, id ceremony.ID, key string, sources ...*Store) (int, error) {
	list, err := isCollection(ctx, id, key, sources)
	if err != nil {
		return 0, err
	}
	if list {
		merged, err := Merge(ctx, dst, id, key, sources...)
		return len(merged), err
	}
	if _, err := Copy(ctx, dst, id, key, sources...); err != nil {
		return 0, err
	}
	return 1, nil
}

// isCollection looks at the first source holding key.
func isCollection(ctx context.Context, id ceremony.ID, key string, sources []*Store) (bool, error) {
	for _, src := range sources {
		data, err := src.raw(ctx, id, key)
		if isNotFound(err) {
			continue
		}
		if err != nil {
			return false, err
		}
		if _, err := decodeList(key, data); err == nil {
			return true, nil
		}
		if _, err := decodeSingle(key, data); err == nil {
			return false, nil
		}
		return false, fmt.Errorf("%w: %s/%s", ErrCorrupt, id, key)
	}
	return false, fmt.Errorf("%w: %s/%s in no source", ErrNotFound, id, key)
}
