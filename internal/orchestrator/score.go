package orchestrator

import (
	"math/big"
	"sort"

	"github.com/holiman/uint256"

	"github.com/hxuan190/bridge-engine/internal/domain"
	"github.com/hxuan190/bridge-engine/internal/providers"
)

// selectBest maximizes expectedOut minus fees. Fees are subtracted only when
// denominated in the output currency; otherwise expectedOut alone decides.
// Ties go to the fixed provider priority ordering. Comparison uses uint256
// when every amount fits 256 bits and falls back to big.Int otherwise.
func selectBest(adapters []providers.Adapter, results map[domain.Provider]outcome) *domain.NormalizedQuote {
	quotes := make([]*domain.NormalizedQuote, 0, len(results))
	for _, a := range adapters {
		if res, ok := results[a.Name()]; ok && res.quote != nil && res.err == nil {
			quotes = append(quotes, res.quote)
		}
	}
	if len(quotes) == 0 {
		return nil
	}
	sort.SliceStable(quotes, func(i, j int) bool {
		return quotes[i].Provider.Priority() < quotes[j].Provider.Priority()
	})

	if best := selectBestFast(quotes); best != nil {
		return best
	}
	return selectBestBig(quotes)
}

// selectBestFast scores with uint256; returns nil when any amount does not
// parse into 256 bits, handing off to the big.Int path.
func selectBestFast(quotes []*domain.NormalizedQuote) *domain.NormalizedQuote {
	var best *domain.NormalizedQuote
	var bestScore *uint256.Int
	for _, q := range quotes {
		score, ok := netOutFast(q)
		if !ok {
			return nil
		}
		if best == nil || score.Gt(bestScore) {
			best = q
			bestScore = score
		}
	}
	return best
}

func netOutFast(q *domain.NormalizedQuote) (*uint256.Int, bool) {
	out, err := uint256.FromDecimal(q.ExpectedOut)
	if err != nil {
		return nil, false
	}
	if q.FeeCurrency != q.OutCurrency {
		return out, true
	}
	fee, err := uint256.FromDecimal(q.Fees)
	if err != nil {
		// Unparseable fee degrades to raw output rather than failing.
		return out, true
	}
	if fee.Gt(out) {
		return uint256.NewInt(0), true
	}
	return new(uint256.Int).Sub(out, fee), true
}

func selectBestBig(quotes []*domain.NormalizedQuote) *domain.NormalizedQuote {
	var best *domain.NormalizedQuote
	var bestScore *big.Int
	for _, q := range quotes {
		score := netOutBig(q)
		if best == nil || score.Cmp(bestScore) > 0 {
			best = q
			bestScore = score
		}
	}
	return best
}

func netOutBig(q *domain.NormalizedQuote) *big.Int {
	out, ok := new(big.Int).SetString(q.ExpectedOut, 10)
	if !ok {
		return big.NewInt(0)
	}
	if q.FeeCurrency != q.OutCurrency {
		return out
	}
	fee, ok := new(big.Int).SetString(q.Fees, 10)
	if !ok {
		return out
	}
	net := new(big.Int).Sub(out, fee)
	if net.Sign() < 0 {
		return big.NewInt(0)
	}
	return net
}

// representativeError picks the error surfaced when every provider failed,
// in provider priority order.
func representativeError(adapters []providers.Adapter, results map[domain.Provider]outcome) error {
	for _, a := range adapters {
		if res, ok := results[a.Name()]; ok && res.err != nil {
			return res.err
		}
	}
	return nil
}
