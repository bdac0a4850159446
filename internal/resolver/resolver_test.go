package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phdargen/xoninAgent/internal/core/domain"
)

type stubNames struct {
	addrs map[string]string
	err   error
}

func (s *stubNames) ResolveName(ctx context.Context, name string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	addr, ok := s.addrs[name]
	if !ok {
		return "", domain.ErrNameNotRegistered
	}
	return addr, nil
}

func TestResolve_DirectAddress(t *testing.T) {
	r := New(nil)

	t.Run("extracts and checksums a lowercase address", func(t *testing.T) {
		got, err := r.Resolve(context.Background(), "mint for 0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed please")
		require.NoError(t, err)
		assert.Equal(t, "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", got.Address)
		assert.Equal(t, domain.ResolveDirect, got.Method)
		assert.Equal(t, "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", got.Span)
	})

	t.Run("uppercase variant collapses to the same identity", func(t *testing.T) {
		got, err := r.Resolve(context.Background(), "0x5AAEB6053F3E94C9B9A09F33669435E7EF1BEAED")
		require.NoError(t, err)
		assert.Equal(t, "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", got.Address)
	})

	t.Run("over-long hex run is not an address", func(t *testing.T) {
		_, err := r.Resolve(context.Background(), "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaedffff")
		assert.ErrorIs(t, err, domain.ErrNoAddress)
	})

	t.Run("skips an invalid candidate and takes a later valid one", func(t *testing.T) {
		got, err := r.Resolve(context.Background(),
			"0xdeadbeef then 0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed")
		require.NoError(t, err)
		assert.Equal(t, "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", got.Address)
	})
}

func TestResolve_ENS(t *testing.T) {
	names := &stubNames{addrs: map[string]string{
		"vitalik.eth": "0xd8da6bf26964af9d7eed9e03e53415d37aa96045",
	}}
	r := New(names)

	t.Run("resolves a registered name", func(t *testing.T) {
		got, err := r.Resolve(context.Background(), "gm, mint to vitalik.eth!")
		require.NoError(t, err)
		assert.Equal(t, "0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045", got.Address)
		assert.Equal(t, domain.ResolveENS, got.Method)
		assert.Equal(t, "vitalik.eth", got.Span)
	})

	t.Run("unregistered name is a resolution failure", func(t *testing.T) {
		_, err := r.Resolve(context.Background(), "mint for nobody-here.eth")
		assert.ErrorIs(t, err, domain.ErrNameNotRegistered)
	})

	t.Run("lookup error propagates without being fatal to classify", func(t *testing.T) {
		broken := New(&stubNames{err: errors.New("rpc timeout")})
		_, err := broken.Resolve(context.Background(), "mint for vitalik.eth")
		require.Error(t, err)
		assert.NotErrorIs(t, err, domain.ErrNoAddress)
	})

	t.Run("direct address beats a name in the same text", func(t *testing.T) {
		got, err := r.Resolve(context.Background(),
			"vitalik.eth or 0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed")
		require.NoError(t, err)
		assert.Equal(t, domain.ResolveDirect, got.Method)
	})

	t.Run("name without a name service is unresolvable", func(t *testing.T) {
		bare := New(nil)
		_, err := bare.Resolve(context.Background(), "mint for vitalik.eth")
		assert.ErrorIs(t, err, domain.ErrNameNotRegistered)
	})
}

func TestResolve_NoCandidate(t *testing.T) {
	r := New(nil)
	_, err := r.Resolve(context.Background(), "just saying hi")
	assert.ErrorIs(t, err, domain.ErrNoAddress)
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed",
		"0xFB6916095CA1DF60BB79CE92CE3EA74C37C5D359",
		"0xd8da6bf26964af9d7eed9e03e53415d37aa96045",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "normalize must be idempotent for %s", in)
	}
}

func TestNormalize_KnownChecksumVectors(t *testing.T) {
	// EIP-55 reference vectors
	assert.Equal(t, "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		Normalize("0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"))
	assert.Equal(t, "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359",
		Normalize("0xfb6916095ca1df60bb79ce92ce3ea74c37c5d359"))
}
