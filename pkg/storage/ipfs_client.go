package storage

import (
	"context"
	"errors"
	"io"

	ipfsapi "github.com/ipfs/go-ipfs-api"
)

// ErrIPFSUnavailable is returned by every operation when no IPFS node could be
// reached at startup. Callers treat pinning as best-effort and continue.
var ErrIPFSUnavailable = errors.New("ipfs node unavailable")

type IPFSClient interface {
	PinFile(ctx context.Context, body io.Reader) (string, error)
	UnpinFile(ctx context.Context, cid string) error
	CatFile(ctx context.Context, cid string) (io.ReadCloser, error)
}

type ipfsClient struct {
	sh *ipfsapi.Shell
}

// NewIPFSClient connects to the IPFS HTTP API at nodeURL. If the node does not
// answer, a degraded client is returned instead of an error: the service keeps
// running and content-addressed storage reports ErrIPFSUnavailable.
func NewIPFSClient(nodeURL string) IPFSClient {
	sh := ipfsapi.NewShell(nodeURL)
	if !sh.IsUp() {
		return &unavailableIPFSClient{}
	}
	return &ipfsClient{sh: sh}
}

func (c *ipfsClient) PinFile(ctx context.Context, body io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return c.sh.Add(body, ipfsapi.Pin(true))
}

func (c *ipfsClient) UnpinFile(ctx context.Context, cid string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.sh.Unpin(cid)
}

func (c *ipfsClient) CatFile(ctx context.Context, cid string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.sh.Cat(cid)
}

type unavailableIPFSClient struct{}

func (c *unavailableIPFSClient) PinFile(ctx context.Context, body io.Reader) (string, error) {
	return "", ErrIPFSUnavailable
}

func (c *unavailableIPFSClient) UnpinFile(ctx context.Context, cid string) error {
	return ErrIPFSUnavailable
}

func (c *unavailableIPFSClient) CatFile(ctx context.Context, cid string) (io.ReadCloser, error) {
	return nil, ErrIPFSUnavailable
}
