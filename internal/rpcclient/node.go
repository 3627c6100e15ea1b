package rpcclient

import "context"

// BlockchainInfo is the subset of a full node's getblockchaininfo reply the
// wallet reads.
type BlockchainInfo struct {
	Chain           string `json:"chain"`
	Blocks          uint64 `json:"blocks"`
	Headers         uint64 `json:"headers"`
	EstimatedHeight uint64 `json:"estimatedheight"`
}

// TargetHeight is the best known height of the network: the largest of the
// node's block count, header count and estimated height.
func (b *BlockchainInfo) TargetHeight() uint64 {
	target := b.Blocks
	if b.Headers > target {
		target = b.Headers
	}
	if b.EstimatedHeight > target {
		target = b.EstimatedHeight
	}
	return target
}

// GetBlockchainInfo calls getblockchaininfo.
func (c *Client) GetBlockchainInfo(ctx context.Context) (*BlockchainInfo, error) {
	var info BlockchainInfo
	if err := c.Call(ctx, "getblockchaininfo", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}
