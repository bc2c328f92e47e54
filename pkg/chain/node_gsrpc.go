package chain

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	gsrpc "github.com/centrifuge/go-substrate-rpc-client/v4"

	"github.com/luxfi/substrate-mpc/pkg/logger"
)

// GSRPCNode talks to a node over websocket JSON-RPC.
type GSRPCNode struct {
	api *gsrpc.SubstrateAPI
	url string
}

var _ Node = (*GSRPCNode)(nil)

func NewGSRPCNode(ctx context.Context, url string) (*GSRPCNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	api, err := gsrpc.NewSubstrateAPI(url)
	if err != nil {
		return nil, fmt.Errorf("%w: connect %s: %v", ErrNode, url, err)
	}
	logger.Info("Connected to substrate node", "url", url)
	return &GSRPCNode{api: api, url: url}, nil
}

func (n *GSRPCNode) Metadata(ctx context.Context) (*Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := n.api.RPC.State.GetMetadataLatest()
	if err != nil {
		return nil, fmt.Errorf("%w: state_getMetadata: %v", ErrNode, err)
	}
	return metadataFromGSRPC(raw)
}

func (n *GSRPCNode) RuntimeVersion(ctx context.Context) (RuntimeVersion, error) {
	if err := ctx.Err(); err != nil {
		return RuntimeVersion{}, err
	}
	rv, err := n.api.RPC.State.GetRuntimeVersionLatest()
	if err != nil {
		return RuntimeVersion{}, fmt.Errorf("%w: state_getRuntimeVersion: %v", ErrNode, err)
	}
	return RuntimeVersion{
		SpecVersion:        uint32(rv.SpecVersion),
		TransactionVersion: uint32(rv.TransactionVersion),
	}, nil
}

func (n *GSRPCNode) GenesisHash(ctx context.Context) (Hash, error) {
	if err := ctx.Err(); err != nil {
		return Hash{}, err
	}
	h, err := n.api.RPC.Chain.GetBlockHash(0)
	if err != nil {
		return Hash{}, fmt.Errorf("%w: chain_getBlockHash: %v", ErrNode, err)
	}
	return Hash(h), nil
}

func (n *GSRPCNode) AccountNextIndex(ctx context.Context, address string) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var next uint64
	if err := n.api.Client.Call(&next, "system_accountNextIndex", address); err != nil {
		return 0, fmt.Errorf("%w: system_accountNextIndex: %v", ErrNode, err)
	}
	return next, nil
}

func (n *GSRPCNode) SubmitExtrinsic(ctx context.Context, extrinsic []byte) (Hash, error) {
	if err := ctx.Err(); err != nil {
		return Hash{}, err
	}
	var res string
	if err := n.api.Client.Call(&res, "author_submitExtrinsic", "0x"+hex.EncodeToString(extrinsic)); err != nil {
		return Hash{}, fmt.Errorf("%w: author_submitExtrinsic: %v", ErrNode, err)
	}
	b, err := hex.DecodeString(strings.TrimPrefix(res, "0x"))
	if err != nil || len(b) != 32 {
		return Hash{}, fmt.Errorf("%w: unexpected extrinsic hash %q", ErrNode, res)
	}
	var h Hash
	copy(h[:], b)
	return h, nil
}

func (n *GSRPCNode) Close() {
	n.api.Client.Close()
}
