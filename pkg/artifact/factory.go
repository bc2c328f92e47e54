package artifact

import (
	"context"
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendBadger = "badger"
	BackendNATS   = "nats"
	BackendConsul = "consul"
	BackendS3     = "s3"
)

// Config selects and configures a backend. Path is the location inside the
// backend: a directory for file and badger, the bucket for nats, the key
// prefix for consul and s3. Options holds the backend specific settings and
// is decoded into the backend's config struct.
type Config struct {
	Backend string         `mapstructure:"backend"`
	Path    string         `mapstructure:"path"`
	Options map[string]any `mapstructure:"options"`
}

// Open builds the store described by cfg.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	backend, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return New(backend), nil
}

func openBackend(ctx context.Context, cfg Config) (Backend, error) {
	switch cfg.Backend {
	case "", BackendFile:
		if cfg.Path == "" {
			return nil, fmt.Errorf("file store needs a path")
		}
		return NewFileBackend(cfg.Path)
	case BackendMemory:
		return NewMemoryBackend(), nil
	case BackendBadger:
		bc := BadgerConfig{Path: cfg.Path}
		if err := decodeOptions(cfg.Options, &bc); err != nil {
			return nil, err
		}
		return NewBadgerBackend(bc)
	case BackendNATS:
		var nc NATSConfig
		if err := decodeOptions(cfg.Options, &nc); err != nil {
			return nil, err
		}
		if nc.Bucket == "" {
			nc.Bucket = cfg.Path
		}
		return NewNATSBackend(ctx, nc)
	case BackendConsul:
		var cc ConsulConfig
		if err := decodeOptions(cfg.Options, &cc); err != nil {
			return nil, err
		}
		if cc.Prefix == "" {
			cc.Prefix = cfg.Path
		}
		return NewConsulBackend(cc)
	case BackendS3:
		var sc S3Config
		if err := decodeOptions(cfg.Options, &sc); err != nil {
			return nil, err
		}
		if sc.Prefix == "" {
			sc.Prefix = cfg.Path
		}
		return NewS3Backend(ctx, sc)
	default:
		return nil, fmt.Errorf("unknown artifact store backend %q", cfg.Backend)
	}
}

func decodeOptions(options map[string]any, out any) error {
	if len(options) == 0 {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook:       stringToBytesHook,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(options); err != nil {
		return fmt.Errorf("store options: %w", err)
	}
	return nil
}

// stringToBytesHook lets byte fields such as encryption keys come from
// plain strings in config files.
func stringToBytesHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() == reflect.String && to == reflect.TypeOf([]byte(nil)) {
		return []byte(data.(string)), nil
	}
	return data, nil
}
