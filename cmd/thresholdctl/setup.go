package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/luxfi/substrate-mpc/pkg/artifact"
	"github.com/luxfi/substrate-mpc/pkg/ceremony"
	"github.com/luxfi/substrate-mpc/pkg/chain"
	"github.com/luxfi/substrate-mpc/pkg/common/errors"
	"github.com/luxfi/substrate-mpc/pkg/config"
	"github.com/luxfi/substrate-mpc/pkg/event"
	"github.com/luxfi/substrate-mpc/pkg/hsm"
	"github.com/luxfi/substrate-mpc/pkg/keystore"
	"github.com/luxfi/substrate-mpc/pkg/logger"
	"github.com/luxfi/substrate-mpc/pkg/mpc"
	"github.com/luxfi/substrate-mpc/pkg/protocol/frost"
)

// loadConfig reads the config file and environment, then applies the global
// flags the operator set explicitly.
func loadConfig(c *cli.Command) (*config.Config, error) {
	v, err := config.InitViperConfig(c.String("config"))
	if err != nil {
		return nil, err
	}
	overrides := map[string]string{
		"files-path": "store.path",
		"store":      "store.backend",
		"keystore":   "keystore.dir",
		"url":        "node.url",
		"network":    "node.network",
	}
	for flag, key := range overrides {
		if c.IsSet(flag) {
			v.Set(key, c.String(flag))
		}
	}
	if c.IsSet("wait") {
		v.Set("wait.timeout", c.Duration("wait"))
	}
	if c.IsSet("debug") {
		v.Set("debug", c.Bool("debug"))
	}
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	logger.Init(cfg.Environment, cfg.Debug)
	return cfg, nil
}

func ceremonyID(c *cli.Command) (ceremony.ID, error) {
	id := ceremony.ID(c.String("ceremony"))
	if id == "" {
		return "", errors.Wrap(errors.KindArgumentParse, "flags", fmt.Errorf("--ceremony is required"))
	}
	return id, errors.Wrap(errors.KindArgumentParse, "flags", id.Validate())
}

// env is everything one command invocation holds open.
type env struct {
	cfg      *config.Config
	store    *artifact.Store
	gateway  *chain.Substrate
	notifier event.Notifier
	node     *mpc.Node
}

type envOptions struct {
	// gateway dials the node; optionalGateway tolerates a failed dial.
	gateway         bool
	optionalGateway bool
	keystore        bool
}

func openEnv(ctx context.Context, c *cli.Command, o envOptions) (*env, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	e := &env{cfg: cfg, notifier: event.Nop{}}
	if e.store, err = artifact.Open(ctx, cfg.Store); err != nil {
		return nil, err
	}

	var ks keystore.Keystore = keystore.NewMemory()
	if o.keystore {
		if ks, err = openKeystore(ctx, cfg.Keystore); err != nil {
			e.Close()
			return nil, err
		}
	}

	if cfg.Events.Enabled {
		n, err := event.NewNATSNotifier(cfg.Events.NATS)
		if err != nil {
			e.Close()
			return nil, err
		}
		e.notifier = n
	}

	opts := []mpc.NodeOption{
		mpc.WithNotifier(e.notifier),
		mpc.WithSS58Prefix(cfg.SS58Prefix()),
		mpc.WithWait(mpc.WaitConfig{Timeout: cfg.Wait.Timeout, Interval: cfg.Wait.Interval}),
	}
	if o.gateway || o.optionalGateway {
		dialCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		gw, err := chain.Dial(dialCtx, cfg.Node.URL, cfg.SS58Prefix())
		cancel()
		switch {
		case err == nil:
			e.gateway = gw
			opts = append(opts, mpc.WithGateway(gw))
		case o.optionalGateway:
			logger.Warn("Node unreachable, skipping the pinned nonce check", "url", cfg.Node.URL, "error", err)
		default:
			e.Close()
			return nil, err
		}
	}

	e.node = mpc.NewNode(frost.NewFROSTProtocol(), e.store, ks, opts...)
	return e, nil
}

func openKeystore(ctx context.Context, cfg config.KeystoreConfig) (*keystore.FileKeystore, error) {
	provider, err := hsm.NewPasswordProvider(cfg.Passphrase.Provider, cfg.Passphrase.Options)
	if err != nil {
		return nil, err
	}
	passphrase, err := provider.GetPassword(ctx, cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("keystore passphrase: %w", err)
	}
	return keystore.NewFileKeystore(cfg.Dir, passphrase, keystore.WithWorkFactor(cfg.WorkFactor))
}

func (e *env) Close() {
	if e.gateway != nil {
		e.gateway.Close()
	}
	if e.notifier != nil {
		e.notifier.Close()
	}
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			logger.Warn("Closing artifact store", "error", err)
		}
	}
}

// openSources opens the stores named by --from with the configured backend,
// each path replacing store.path.
func openSources(ctx context.Context, cfg *config.Config, paths []string) ([]*artifact.Store, error) {
	sources := make([]*artifact.Store, 0, len(paths))
	for _, p := range paths {
		sc := cfg.Store
		sc.Path = p
		s, err := artifact.Open(ctx, sc)
		if err != nil {
			for _, o := range sources {
				o.Close()
			}
			return nil, fmt.Errorf("source %s: %w", p, err)
		}
		sources = append(sources, s)
	}
	return sources, nil
}
