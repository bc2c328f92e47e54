// Package keystore holds a participant's local secrets: identity key,
// signing share and pending signing nonces. Nothing in here is ever written
// to the shared artifact store.
package keystore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"regexp"
	"sync"

	"filippo.io/age"

	"github.com/luxfi/substrate-mpc/pkg/ceremony"
	"github.com/luxfi/substrate-mpc/pkg/common/pathutil"
)

// DefaultWorkFactor is age's default scrypt work factor.
const DefaultWorkFactor = 18

var (
	ErrNotFound      = errors.New("secret not found in keystore")
	ErrBadPassphrase = errors.New("keystore passphrase does not decrypt secret")
)

var keyPattern = regexp.MustCompile(`^[a-z0-9_]{1,64}$`)

// Keystore stores secrets by ceremony id and key.
type Keystore interface {
	Put(ctx context.Context, id ceremony.ID, key string, value []byte) error
	Get(ctx context.Context, id ceremony.ID, key string) ([]byte, error)
	// Take returns the secret and removes it, so it can be read only once.
	Take(ctx context.Context, id ceremony.ID, key string) ([]byte, error)
	Delete(ctx context.Context, id ceremony.ID, key string) error
}

func validate(id ceremony.ID, key string) error {
	if err := id.ValidateScope(); err != nil {
		return err
	}
	if !keyPattern.MatchString(key) {
		return fmt.Errorf("invalid keystore key %q", key)
	}
	return nil
}

// FileKeystore keeps each secret in <root>/<ceremony>/<key>.age, encrypted
// with an age scrypt recipient derived from the passphrase.
type FileKeystore struct {
	root       string
	passphrase string
	workFactor int
}

type Option func(*FileKeystore)

// WithWorkFactor sets the scrypt work factor (log2 N) for new secrets.
func WithWorkFactor(n int) Option {
	return func(k *FileKeystore) { k.workFactor = n }
}

func NewFileKeystore(root, passphrase string, opts ...Option) (*FileKeystore, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("keystore passphrase is empty")
	}
	k := &FileKeystore{root: root, passphrase: passphrase, workFactor: DefaultWorkFactor}
	for _, o := range opts {
		o(k)
	}
	if err := os.MkdirAll(root, 0o700); err != nil {
		return nil, err
	}
	return k, nil
}

func (k *FileKeystore) file(id ceremony.ID, key string) (string, error) {
	if err := validate(id, key); err != nil {
		return "", err
	}
	return pathutil.SafePath(k.root, string(id), key+".age")
}

func (k *FileKeystore) Put(_ context.Context, id ceremony.ID, key string, value []byte) error {
	p, err := k.file(id, key)
	if err != nil {
		return err
	}
	r, err := age.NewScryptRecipient(k.passphrase)
	if err != nil {
		return err
	}
	r.SetWorkFactor(k.workFactor)

	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, r)
	if err != nil {
		return err
	}
	if _, err := w.Write(value); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return pathutil.WriteFileAtomic(p, buf.Bytes(), 0o600)
}

func (k *FileKeystore) read(id ceremony.ID, key string) (string, []byte, error) {
	p, err := k.file(id, key)
	if err != nil {
		return "", nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil, fmt.Errorf("%w: %s/%s", ErrNotFound, id, key)
	}
	return p, data, err
}

func (k *FileKeystore) decrypt(data []byte) ([]byte, error) {
	id, err := age.NewScryptIdentity(k.passphrase)
	if err != nil {
		return nil, err
	}
	id.SetMaxWorkFactor(max(k.workFactor, DefaultWorkFactor) + 4)
	r, err := age.Decrypt(bytes.NewReader(data), id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPassphrase, err)
	}
	return io.ReadAll(r)
}

func (k *FileKeystore) Get(_ context.Context, id ceremony.ID, key string) ([]byte, error) {
	_, data, err := k.read(id, key)
	if err != nil {
		return nil, err
	}
	return k.decrypt(data)
}

// Take removes the file before decrypting. A secret that fails to decrypt is
// still gone, which is the safe outcome for nonces.
func (k *FileKeystore) Take(_ context.Context, id ceremony.ID, key string) ([]byte, error) {
	p, data, err := k.read(id, key)
	if err != nil {
		return nil, err
	}
	if err := os.Remove(p); err != nil {
		return nil, fmt.Errorf("remove %s/%s: %w", id, key, err)
	}
	return k.decrypt(data)
}

func (k *FileKeystore) Delete(_ context.Context, id ceremony.ID, key string) error {
	p, err := k.file(id, key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Memory is an unencrypted in-process keystore for tests and dry runs.
type Memory struct {
	mu      sync.Mutex
	secrets map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{secrets: make(map[string][]byte)}
}

func (m *Memory) Put(_ context.Context, id ceremony.ID, key string, value []byte) error {
	if err := validate(id, key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secrets[string(id)+"/"+key] = append([]byte(nil), value...)
	return nil
}

func (m *Memory) Get(_ context.Context, id ceremony.ID, key string) ([]byte, error) {
	if err := validate(id, key); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.secrets[string(id)+"/"+key]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, id, key)
	}
	return append([]byte(nil), v...), nil
}

func (m *Memory) Take(ctx context.Context, id ceremony.ID, key string) ([]byte, error) {
	v, err := m.Get(ctx, id, key)
	if err != nil {
		return nil, err
	}
	return v, m.Delete(ctx, id, key)
}

func (m *Memory) Delete(_ context.Context, id ceremony.ID, key string) error {
	if err := validate(id, key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.secrets[string(id)+"/"+key]; ok {
		ceremony.Zero(v)
		delete(m.secrets, string(id)+"/"+key)
	}
	return nil
}
