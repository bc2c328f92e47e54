package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/luxfi/substrate-mpc/pkg/artifact"
	"github.com/luxfi/substrate-mpc/pkg/ceremony"
	"github.com/luxfi/substrate-mpc/pkg/common/errors"
	"github.com/luxfi/substrate-mpc/pkg/logger"
	"github.com/luxfi/substrate-mpc/pkg/mpc"
	"github.com/luxfi/substrate-mpc/pkg/types"
)

const (
	Version        = "0.1.0"
	defaultContext = "substrate"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newApp().Run(ctx, os.Args)
	stop()
	if err != nil {
		logger.Error("Command failed", err, "kind", errors.KindOf(err))
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "thresholdctl",
		Usage:   "Threshold account ceremonies (DKG and FROST signing) for Substrate chains",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to thresholdctl.yaml",
			},
			&cli.StringFlag{
				Name:    "files-path",
				Aliases: []string{"f"},
				Usage:   "Artifact store location (directory for the file backend)",
			},
			&cli.StringFlag{
				Name:  "store",
				Usage: "Artifact store backend: file, badger, nats, consul, s3",
			},
			&cli.StringFlag{
				Name:  "ceremony",
				Usage: "Ceremony id",
			},
			&cli.StringFlag{
				Name:  "session",
				Usage: "Signing session id",
			},
			&cli.StringFlag{
				Name:  "keystore",
				Usage: "Local keystore directory",
			},
			&cli.StringFlag{
				Name:  "network",
				Usage: "Network preset, selects the SS58 prefix",
			},
			&cli.DurationFlag{
				Name:  "wait",
				Usage: "Wait up to this long for other participants' artifacts",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "identity",
				Usage:  "Create (or show) this participant's identity and publish its recipient key",
				Action: runIdentity,
			},
			{
				Name:  "dkg-round1",
				Usage: "Publish this participant's DKG contribution",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:     "threshold",
						Aliases:  []string{"t"},
						Usage:    "Signing threshold",
						Required: true,
					},
				},
				Action: runDKGRound1,
			},
			{
				Name:   "dkg-round2",
				Usage:  "Finalize DKG: derive the signing share and threshold account",
				Action: runDKGRound2,
			},
			{
				Name:   "sign-round1",
				Usage:  "Generate signing nonces and publish the commitment",
				Action: runSignRound1,
			},
			{
				Name:      "sign-prepare",
				Usage:     "Build and pin the unsigned transaction for the session",
				ArgsUsage: "[call arguments]",
				Flags:     callFlags(),
				Action:    runSignPrepare,
			},
			{
				Name:      "sign-round2",
				Usage:     "Sign the pinned transaction and publish this participant's signing package",
				ArgsUsage: "[call arguments]",
				Flags: append(callFlags(), &cli.StringFlag{
					Name:  "context",
					Usage: "Signing context bound into the signature",
					Value: defaultContext,
				}),
				Action: runSignRound2,
			},
			{
				Name:      "sign-aggregate",
				Usage:     "Aggregate signing packages and submit the extrinsic",
				ArgsUsage: "[call arguments]",
				Flags: append(callFlags(), &cli.StringFlag{
					Name:  "context",
					Usage: "Require every signing package to carry this context",
				}),
				Action:    runSignAggregate,
			},
			{
				Name:  "collect",
				Usage: "Copy an artifact from other stores into this one, merging collections in participant order",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "key",
						Usage:    "Artifact key, e.g. contributions or unsigned_transaction",
						Required: true,
					},
					&cli.StringSliceFlag{
						Name:     "from",
						Usage:    "Source store location, in participant order (repeatable)",
						Required: true,
					},
				},
				Action: runCollect,
			},
			{
				Name:   "account",
				Usage:  "Print the threshold account descriptor",
				Action: runAccount,
			},
			{
				Name:  "version",
				Usage: "Display detailed version information",
				Action: func(ctx context.Context, c *cli.Command) error {
					fmt.Printf("thresholdctl version %s\n", Version)
					return nil
				},
			},
		},
	}
}

func callFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "url",
			Usage: "Node websocket endpoint",
			Value: types.DefaultNodeURL,
		},
		&cli.StringFlag{
			Name:     "pallet",
			Usage:    "Pallet name, e.g. Balances",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "call",
			Usage:    "Call name, e.g. transfer_keep_alive",
			Required: true,
		},
	}
}

func callIntent(c *cli.Command) ceremony.CallIntent {
	return ceremony.NewCallIntent(c.String("pallet"), c.String("call"), c.Args().Slice())
}

func runIdentity(ctx context.Context, c *cli.Command) error {
	id, err := ceremonyID(c)
	if err != nil {
		return err
	}
	e, err := openEnv(ctx, c, envOptions{keystore: true})
	if err != nil {
		return err
	}
	defer e.Close()

	pub, err := e.node.Identity(ctx, id)
	if err != nil {
		return err
	}
	fmt.Println(pub)
	return nil
}

func runDKGRound1(ctx context.Context, c *cli.Command) error {
	id, err := ceremonyID(c)
	if err != nil {
		return err
	}
	e, err := openEnv(ctx, c, envOptions{keystore: true})
	if err != nil {
		return err
	}
	defer e.Close()

	session, err := e.node.CreateKeygenSession(id)
	if err != nil {
		return err
	}
	if _, err := session.Contribute(ctx, int(c.Int("threshold"))); err != nil {
		return err
	}
	logger.Info("Contribution published", "ceremony", id)
	return nil
}

func runDKGRound2(ctx context.Context, c *cli.Command) error {
	id, err := ceremonyID(c)
	if err != nil {
		return err
	}
	e, err := openEnv(ctx, c, envOptions{keystore: true})
	if err != nil {
		return err
	}
	defer e.Close()

	session, err := e.node.CreateKeygenSession(id)
	if err != nil {
		return err
	}
	acct, err := session.Finalize(ctx)
	if err != nil {
		return err
	}
	_, addr, err := e.node.Account(ctx, id)
	if err != nil {
		return err
	}
	fmt.Printf("public key: %s\naddress:    %s\nthreshold:  %d of %d\n", acct.PublicKey.Hex(), addr, acct.Threshold, acct.N())
	return nil
}

// sessionIDs reads --ceremony and --session. sign-round1 may omit the session
// and gets a fresh id printed for the other participants to reuse.
func sessionIDs(c *cli.Command, allowNew bool) (ceremony.ID, ceremony.ID, error) {
	id, err := ceremonyID(c)
	if err != nil {
		return "", "", err
	}
	sessionID := ceremony.ID(c.String("session"))
	if sessionID == "" {
		if !allowNew {
			return "", "", errors.Wrap(errors.KindArgumentParse, "flags", fmt.Errorf("--session is required"))
		}
		sessionID = mpc.NewSessionID()
	}
	return id, sessionID, nil
}

func runSignRound1(ctx context.Context, c *cli.Command) error {
	id, sessionID, err := sessionIDs(c, true)
	if err != nil {
		return err
	}
	e, err := openEnv(ctx, c, envOptions{keystore: true})
	if err != nil {
		return err
	}
	defer e.Close()

	session, err := e.node.CreateSigningSession(id, sessionID)
	if err != nil {
		return err
	}
	if _, err := session.Commit(ctx); err != nil {
		return err
	}
	fmt.Println(sessionID)
	return nil
}

func runSignPrepare(ctx context.Context, c *cli.Command) error {
	id, sessionID, err := sessionIDs(c, false)
	if err != nil {
		return err
	}
	e, err := openEnv(ctx, c, envOptions{gateway: true})
	if err != nil {
		return err
	}
	defer e.Close()

	session, err := e.node.CreateSigningSession(id, sessionID)
	if err != nil {
		return err
	}
	tx, err := session.Prepare(ctx, callIntent(c))
	if err != nil {
		return err
	}
	fmt.Printf("call:    %s\nnonce:   %d\npayload: 0x%s\n", tx.Intent, tx.Nonce, hex.EncodeToString(tx.Payload))
	return nil
}

func runSignRound2(ctx context.Context, c *cli.Command) error {
	id, sessionID, err := sessionIDs(c, false)
	if err != nil {
		return err
	}
	e, err := openEnv(ctx, c, envOptions{keystore: true, optionalGateway: true})
	if err != nil {
		return err
	}
	defer e.Close()

	session, err := e.node.CreateSigningSession(id, sessionID)
	if err != nil {
		return err
	}
	if _, err := session.Sign(ctx, []byte(c.String("context")), callIntent(c)); err != nil {
		return err
	}
	logger.Info("Signing package published", "ceremony", id, "session", sessionID)
	return nil
}

func runSignAggregate(ctx context.Context, c *cli.Command) error {
	id, sessionID, err := sessionIDs(c, false)
	if err != nil {
		return err
	}
	e, err := openEnv(ctx, c, envOptions{gateway: true})
	if err != nil {
		return err
	}
	defer e.Close()

	session, err := e.node.CreateSigningSession(id, sessionID)
	if err != nil {
		return err
	}
	var signingContext []byte
	if c.IsSet("context") {
		signingContext = []byte(c.String("context"))
	}
	res, err := session.Aggregate(ctx, signingContext, callIntent(c))
	if err != nil {
		return err
	}
	fmt.Printf("signature: 0x%s\nnonce:     %d\nextrinsic: %s\n", hex.EncodeToString(res.Signature), res.Nonce, res.ExtrinsicHash.Hex())
	return nil
}

func runCollect(ctx context.Context, c *cli.Command) error {
	id, err := ceremonyID(c)
	if err != nil {
		return err
	}
	e, err := openEnv(ctx, c, envOptions{})
	if err != nil {
		return err
	}
	defer e.Close()

	sources, err := openSources(ctx, e.cfg, c.StringSlice("from"))
	if err != nil {
		return err
	}
	defer func() {
		for _, s := range sources {
			s.Close()
		}
	}()

	key := strings.TrimSpace(c.String("key"))
	scope, err := ceremony.Scope(id, ceremony.ID(c.String("session")))
	if err != nil {
		return errors.Wrap(errors.KindArgumentParse, "flags", err)
	}
	n, err := artifact.Relay(ctx, e.store, scope, key, sources...)
	if err != nil {
		return errors.Wrap(errors.KindInputIO, "collect", err)
	}
	logger.Info("Artifact collected", "scope", scope, "key", key, "entries", n)
	return nil
}

func runAccount(ctx context.Context, c *cli.Command) error {
	id, err := ceremonyID(c)
	if err != nil {
		return err
	}
	e, err := openEnv(ctx, c, envOptions{})
	if err != nil {
		return err
	}
	defer e.Close()

	acct, addr, err := e.node.Account(ctx, id)
	if err != nil {
		return err
	}
	out, err := acct.MarshalDescriptor(addr)
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
