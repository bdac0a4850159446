// Package resolver extracts a blockchain address from mention text. It
// recognizes raw hex addresses and ENS names; a raw address always wins
// because it needs no external lookup.
package resolver

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/phdargen/xoninAgent/internal/core/domain"
	"github.com/phdargen/xoninAgent/internal/core/ports"
)

var (
	addressPattern = regexp.MustCompile(`0x[0-9a-fA-F]+`)
	ensPattern     = regexp.MustCompile(`\b[a-z0-9][a-z0-9-]*(?:\.[a-z0-9-]+)*\.eth\b`)
)

type Resolver struct {
	names ports.NameService // may be nil; ENS names then resolve to nothing
}

func New(names ports.NameService) *Resolver {
	return &Resolver{names: names}
}

// Resolve scans text for an address or an ENS name and returns the
// checksum-normalized result. domain.ErrNoAddress and
// domain.ErrNameNotRegistered mark the mention skipped-invalid; any other
// error is a transient lookup failure and is also non-fatal to the run.
func (r *Resolver) Resolve(ctx context.Context, text string) (domain.ResolvedAddress, error) {
	for _, cand := range addressPattern.FindAllString(text, -1) {
		if !common.IsHexAddress(cand) {
			continue
		}
		return domain.ResolvedAddress{
			Address: Normalize(cand),
			Span:    cand,
			Method:  domain.ResolveDirect,
		}, nil
	}

	if name := ensPattern.FindString(strings.ToLower(text)); name != "" {
		if r.names == nil {
			return domain.ResolvedAddress{}, domain.ErrNameNotRegistered
		}
		hexAddr, err := r.names.ResolveName(ctx, name)
		if err != nil {
			return domain.ResolvedAddress{}, fmt.Errorf("resolve %s: %w", name, err)
		}
		if !common.IsHexAddress(hexAddr) {
			return domain.ResolvedAddress{}, domain.ErrNameNotRegistered
		}
		return domain.ResolvedAddress{
			Address: Normalize(hexAddr),
			Span:    name,
			Method:  domain.ResolveENS,
		}, nil
	}

	return domain.ResolvedAddress{}, domain.ErrNoAddress
}

// Normalize returns the EIP-55 checksum form. Idempotent: two textual
// variants of one address collapse to the same dedup key.
func Normalize(hexAddr string) string {
	return common.HexToAddress(hexAddr).Hex()
}
