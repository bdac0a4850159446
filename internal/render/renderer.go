// Package render draws the preview artwork for a mint: a deterministic
// generative garden seeded by the address, with density and palette set by
// the reputation tier. The same address and tier always render the same
// bytes, so reruns produce identical artifacts.
package render

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/phdargen/xoninAgent/internal/core/domain"
	"github.com/phdargen/xoninAgent/internal/core/ports"
)

const canvas = 512

// palettes and bloom counts per tier, seedling through ancient
var (
	palettes = [][]string{
		{"#2d3436", "#636e72", "#b2bec3"},
		{"#00b894", "#55efc4", "#81ecec"},
		{"#e17055", "#fab1a0", "#ffeaa7"},
		{"#6c5ce7", "#a29bfe", "#fd79a8"},
		{"#d63031", "#e84393", "#fdcb6e"},
	}
	bloomCounts = []int{3, 6, 10, 16, 24}
)

type SVGRenderer struct {
	OutDir string
}

func NewSVGRenderer(outDir string) *SVGRenderer {
	return &SVGRenderer{OutDir: outDir}
}

var _ ports.Renderer = (*SVGRenderer)(nil)

func (r *SVGRenderer) Render(address string, tier domain.Tier) (string, error) {
	if err := os.MkdirAll(r.OutDir, 0755); err != nil {
		return "", err
	}

	path := filepath.Join(r.OutDir, fmt.Sprintf("%s_%s.svg", strings.ToLower(address), tier))
	svg := Compose(address, tier)
	if err := os.WriteFile(path, []byte(svg), 0644); err != nil {
		return "", err
	}
	return path, nil
}

// Compose builds the SVG document. Split from Render so tests can check
// determinism without touching the filesystem.
func Compose(address string, tier domain.Tier) string {
	seed := int64(0)
	for _, b := range common.HexToAddress(address).Bytes() {
		seed = seed*31 + int64(b)
	}
	rng := rand.New(rand.NewSource(seed))

	ti := int(tier)
	if ti < 0 || ti >= len(palettes) {
		ti = 0
	}
	palette := palettes[ti]

	var sb strings.Builder
	fmt.Fprintf(&sb, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`,
		canvas, canvas, canvas, canvas)
	fmt.Fprintf(&sb, `<rect width="%d" height="%d" fill="#0b0b12"/>`, canvas, canvas)

	for i := 0; i < bloomCounts[ti]; i++ {
		cx := rng.Intn(canvas)
		cy := rng.Intn(canvas)
		radius := 12 + rng.Intn(48)
		color := palette[rng.Intn(len(palette))]
		opacity := 0.35 + rng.Float64()*0.5
		fmt.Fprintf(&sb, `<circle cx="%d" cy="%d" r="%d" fill="%s" fill-opacity="%.2f"/>`,
			cx, cy, radius, color, opacity)
	}

	fmt.Fprintf(&sb, `<text x="16" y="%d" font-family="monospace" font-size="14" fill="#ffffff" fill-opacity="0.6">%s · %s</text>`,
		canvas-16, shortAddress(address), tier)
	sb.WriteString(`</svg>`)
	return sb.String()
}

func shortAddress(address string) string {
	if len(address) < 10 {
		return address
	}
	return address[:6] + "…" + address[len(address)-4:]
}
