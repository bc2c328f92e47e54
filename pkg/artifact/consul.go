package artifact

import (
	"context"
	"strings"

	"github.com/hashicorp/consul/api"

	"github.com/luxfi/substrate-mpc/pkg/logger"
)

// ConsulConfig configures the Consul KV backend.
type ConsulConfig struct {
	Address string `mapstructure:"address"`
	Token   string `mapstructure:"token"`
	Prefix  string `mapstructure:"prefix"`
}

// ConsulBackend stores artifacts under a Consul KV prefix.
type ConsulBackend struct {
	kv     *api.KV
	prefix string
}

func NewConsulBackend(cfg ConsulConfig) (*ConsulBackend, error) {
	consulConfig := api.DefaultConfig()
	if cfg.Address != "" {
		consulConfig.Address = cfg.Address
	}
	if cfg.Token != "" {
		consulConfig.Token = cfg.Token
	}
	client, err := api.NewClient(consulConfig)
	if err != nil {
		return nil, err
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "thresholdctl/"
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	logger.Info("Using consul artifact store", "address", consulConfig.Address, "prefix", prefix)
	return &ConsulBackend{kv: client.KV(), prefix: prefix}, nil
}

func (c *ConsulBackend) Put(ctx context.Context, key string, value []byte) error {
	_, err := c.kv.Put(&api.KVPair{Key: c.prefix + key, Value: value}, (&api.WriteOptions{}).WithContext(ctx))
	return err
}

func (c *ConsulBackend) Get(ctx context.Context, key string) ([]byte, error) {
	pair, _, err := c.kv.Get(c.prefix+key, (&api.QueryOptions{}).WithContext(ctx))
	if err != nil {
		return nil, err
	}
	if pair == nil {
		return nil, ErrNotFound
	}
	return pair.Value, nil
}

func (c *ConsulBackend) Delete(ctx context.Context, key string) error {
	_, err := c.kv.Delete(c.prefix+key, (&api.WriteOptions{}).WithContext(ctx))
	return err
}

func (c *ConsulBackend) Close() error { return nil }
