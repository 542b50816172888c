// Package token inspects mint accounts for Token-2022 extension metadata.
package token

import (
	"context"
	"encoding/binary"
	"sync"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/bridge-engine/internal/common"
	"github.com/hxuan190/bridge-engine/internal/domain"
)

const (
	// mintBaseLayoutLen is the fixed base mint layout; extension records
	// start right after it.
	mintBaseLayoutLen = 82

	// extensionTransferFee is the TLV record type for transfer-fee config.
	extensionTransferFee = 1
)

// AccountClient is the ledger lookup the inspector depends on.
type AccountClient interface {
	GetAccountInfo(ctx context.Context, account solana.PublicKey) (*rpc.GetAccountInfoResult, error)
}

// Inspector derives TokenFeeInfo from raw mint bytes. Inspect never fails:
// anything unparseable is reported as "no fee detected". Results are cached
// per mint; extension layouts do not change after mint creation.
type Inspector struct {
	mu     sync.RWMutex
	cache  map[string]domain.TokenFeeInfo
	client AccountClient
}

func NewInspector(client AccountClient) *Inspector {
	return &Inspector{
		cache:  make(map[string]domain.TokenFeeInfo),
		client: client,
	}
}

func (i *Inspector) Inspect(ctx context.Context, mint string) domain.TokenFeeInfo {
	i.mu.RLock()
	cached, ok := i.cache[mint]
	i.mu.RUnlock()
	if ok {
		return cached
	}

	info := i.fetch(ctx, mint)

	i.mu.Lock()
	i.cache[mint] = info
	i.mu.Unlock()
	return info
}

func (i *Inspector) fetch(ctx context.Context, mint string) domain.TokenFeeInfo {
	pk, err := solana.PublicKeyFromBase58(mint)
	if err != nil {
		return domain.TokenFeeInfo{}
	}

	res, err := i.client.GetAccountInfo(ctx, pk)
	if err != nil || res == nil || res.Value == nil {
		log.Debug().Err(err).Str("mint", mint).Msg("[TokenInspector] mint account lookup failed")
		return domain.TokenFeeInfo{}
	}

	return ParseMintExtensions(res.Value.Owner, res.Value.Data.GetBinary())
}

// ParseMintExtensions scans the extension records beyond the base mint
// layout for a transfer-fee config. Mint layouts are not guaranteed
// well-formed beyond the token program's own validation, so every record
// bound is checked against the buffer; anything short or inconsistent fails
// closed.
func ParseMintExtensions(owner solana.PublicKey, data []byte) domain.TokenFeeInfo {
	if !owner.Equals(common.Token2022ID) {
		return domain.TokenFeeInfo{}
	}
	// Needs at least the base layout plus the 16-bit extension count.
	if len(data) < mintBaseLayoutLen+2 {
		return domain.TokenFeeInfo{}
	}

	dec := bin.NewBinDecoder(data[mintBaseLayoutLen:])
	count, err := dec.ReadUint16(binary.LittleEndian)
	if err != nil {
		return domain.TokenFeeInfo{}
	}

	info := domain.TokenFeeInfo{IsToken2022: true}
	for rec := uint16(0); rec < count; rec++ {
		extType, err := dec.ReadUint16(binary.LittleEndian)
		if err != nil {
			return info
		}
		extLen, err := dec.ReadUint16(binary.LittleEndian)
		if err != nil {
			return info
		}
		payload, err := dec.ReadNBytes(int(extLen))
		if err != nil {
			return info
		}

		if extType != extensionTransferFee {
			continue
		}

		bps, ok := parseTransferFeeBps(payload)
		if !ok {
			return info
		}
		info.HasTransferFees = true
		info.TransferFeeBps = bps
		return info
	}
	return info
}

// parseTransferFeeBps reads the basis-points field of a transfer-fee record:
// 4 bytes of accounting epoch marker, an 8-byte epoch, then LE u16 bps.
// Values outside (0, 10000] are implausible and treated as no fee.
func parseTransferFeeBps(payload []byte) (uint16, bool) {
	const bpsOffset = 4 + 8
	if len(payload) < bpsOffset+2 {
		return 0, false
	}
	bps := binary.LittleEndian.Uint16(payload[bpsOffset:])
	if bps == 0 || bps > 10000 {
		return 0, false
	}
	return bps, true
}
