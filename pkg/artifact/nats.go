package artifact

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/luxfi/substrate-mpc/pkg/logger"
)

// NATSConfig configures the JetStream key-value backend.
type NATSConfig struct {
	URL      string `mapstructure:"url"`
	Bucket   string `mapstructure:"bucket"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// NATSBackend relays artifacts through a JetStream key-value bucket. Keys
// use '.' as the ceremony separator since '/' is not a valid token there.
type NATSBackend struct {
	nc *nats.Conn
	kv jetstream.KeyValue
}

func NewNATSBackend(ctx context.Context, cfg NATSConfig) (*NATSBackend, error) {
	if cfg.URL == "" {
		cfg.URL = nats.DefaultURL
	}
	if cfg.Bucket == "" {
		cfg.Bucket = "ceremony-artifacts"
	}
	opts := []nats.Option{
		nats.Name("thresholdctl"),
		nats.Timeout(10 * time.Second),
	}
	if cfg.Username != "" {
		opts = append(opts, nats.UserInfo(cfg.Username, cfg.Password))
	}
	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, err
	}
	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      cfg.Bucket,
		Description: "threshold ceremony artifacts",
		History:     1,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("open key-value bucket %s: %w", cfg.Bucket, err)
	}
	logger.Info("Connected to NATS artifact bucket", "url", cfg.URL, "bucket", cfg.Bucket)
	return &NATSBackend{nc: nc, kv: kv}, nil
}

func natsKey(key string) string {
	return strings.ReplaceAll(key, "/", ".")
}

func (n *NATSBackend) Put(ctx context.Context, key string, value []byte) error {
	_, err := n.kv.Put(ctx, natsKey(key), value)
	return err
}

func (n *NATSBackend) Get(ctx context.Context, key string) ([]byte, error) {
	entry, err := n.kv.Get(ctx, natsKey(key))
	if errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return entry.Value(), nil
}

func (n *NATSBackend) Delete(ctx context.Context, key string) error {
	err := n.kv.Delete(ctx, natsKey(key))
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil
	}
	return err
}

func (n *NATSBackend) Close() error {
	n.nc.Close()
	return nil
}
