package fingerprint

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"

	"golang.org/x/text/language"
)

const (
	// DefaultPoolSize is the number of identities kept alive at once.
	DefaultPoolSize = 10
	// DefaultRefreshRate is the probability that Next replaces a pooled
	// identity with a fresh one.
	DefaultRefreshRate = 0.1
)

type platform struct {
	name         string
	chromeToken  string
	firefoxToken string
	versions     []string
	architecture string
}

var (
	windows = platform{
		name:         "Windows",
		chromeToken:  "Windows NT 10.0; Win64; x64",
		firefoxToken: "Windows NT 10.0; Win64; x64",
		versions:     []string{"10.0.0", "15.0.0", "19.0.0"},
		architecture: "x86",
	}
	macOS = platform{
		name:         "macOS",
		chromeToken:  "Macintosh; Intel Mac OS X 10_15_7",
		firefoxToken: "Macintosh; Intel Mac OS X 10.15",
		versions:     []string{"13.6.0", "14.4.1", "14.5.0"},
		architecture: "arm",
	}
	linux = platform{
		name:         "Linux",
		chromeToken:  "X11; Linux x86_64",
		firefoxToken: "X11; Linux x86_64",
		versions:     []string{"6.5.0", "6.8.0"},
		architecture: "x86",
	}
)

var (
	chromeVersions  = []int{122, 123, 124, 125, 126}
	firefoxVersions = []int{123, 124, 125, 126}
	safariVersions  = []string{"16.6", "17.3", "17.4", "17.5"}

	languages = []string{"en-US", "en-US", "en-GB", "de-DE", "fr-FR", "es-ES", "ja-JP", "pt-BR", "it-IT", "nl-NL"}

	desktopViewports = []Viewport{
		{Width: 1920, Height: 1080, PixelRatio: 1},
		{Width: 1536, Height: 864, PixelRatio: 1.25},
		{Width: 1440, Height: 900, PixelRatio: 2},
		{Width: 1366, Height: 768, PixelRatio: 1},
		{Width: 2560, Height: 1440, PixelRatio: 1},
	}
	macViewports = []Viewport{
		{Width: 1440, Height: 900, PixelRatio: 2},
		{Width: 1512, Height: 982, PixelRatio: 2},
		{Width: 1728, Height: 1117, PixelRatio: 2},
	}

	deviceMemories = []int{4, 8, 8, 16}
	networks       = []Network{
		{EffectiveType: "4g", RTT: 50, Downlink: 10},
		{EffectiveType: "4g", RTT: 100, Downlink: 5.5},
		{EffectiveType: "4g", RTT: 150, Downlink: 2.3},
	}
)

// Generator produces profiles from an explicitly seeded random source.
// It is safe for concurrent use.
type Generator struct {
	mu          sync.Mutex
	rng         *rand.Rand
	pool        []*Profile
	poolSize    int
	refreshRate float64
}

// Option configures a Generator.
type Option func(*Generator)

// WithPoolSize sets how many identities are kept alive.
func WithPoolSize(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.poolSize = n
		}
	}
}

// WithRefreshRate sets the probability in [0,1] of replacing a pooled
// identity on each call to Next.
func WithRefreshRate(p float64) Option {
	return func(g *Generator) {
		if p >= 0 && p <= 1 {
			g.refreshRate = p
		}
	}
}

// NewGenerator creates a Generator whose output is fully determined by seed.
func NewGenerator(seed uint64, opts ...Option) *Generator {
	g := &Generator{
		rng:         rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		poolSize:    DefaultPoolSize,
		refreshRate: DefaultRefreshRate,
	}
	for _, opt := range opts {
		opt(g)
	}

	g.pool = make([]*Profile, g.poolSize)
	for i := range g.pool {
		g.pool[i] = g.generate()
	}
	return g
}

// Next returns a profile for the next request.
func (g *Generator) Next() *Profile {
	g.mu.Lock()
	defer g.mu.Unlock()

	i := g.rng.IntN(len(g.pool))
	if g.rng.Float64() < g.refreshRate {
		g.pool[i] = g.generate()
	}
	return g.pool[i]
}

// Generate returns a fresh profile without touching the pool.
func (g *Generator) Generate() *Profile {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.generate()
}

func (g *Generator) generate() *Profile {
	browser := pick(g.rng, []Browser{Chrome, Chrome, Chrome, Firefox, Safari})

	plat := pick(g.rng, []platform{windows, windows, macOS, linux})
	if browser == Safari {
		plat = macOS
	}

	viewports := desktopViewports
	if plat.name == macOS.name {
		viewports = macViewports
	}

	p := &Profile{
		Browser:         browser,
		Platform:        plat.name,
		PlatformVersion: pick(g.rng, plat.versions),
		Architecture:    plat.architecture,
		Bitness:         "64",
		AcceptLanguage:  acceptLanguage(pick(g.rng, languages)),
		Viewport:        pick(g.rng, viewports),
		DeviceMemory:    pick(g.rng, deviceMemories),
		Network:         pick(g.rng, networks),
	}

	switch browser {
	case Chrome:
		p.MajorVersion = pick(g.rng, chromeVersions)
		p.UserAgent = fmt.Sprintf(
			"Mozilla/5.0 (%s) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/%d.0.0.0 Safari/537.36",
			plat.chromeToken, p.MajorVersion)
	case Firefox:
		p.MajorVersion = pick(g.rng, firefoxVersions)
		p.UserAgent = fmt.Sprintf(
			"Mozilla/5.0 (%s; rv:%d.0) Gecko/20100101 Firefox/%d.0",
			plat.firefoxToken, p.MajorVersion, p.MajorVersion)
	case Safari:
		version := pick(g.rng, safariVersions)
		p.MajorVersion = majorOf(version)
		p.UserAgent = fmt.Sprintf(
			"Mozilla/5.0 (%s) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/%s Safari/605.1.15",
			plat.chromeToken, version)
	}

	return p
}

// acceptLanguage builds a weighted Accept-Language value for a primary
// locale, falling back to the base language and then to English.
func acceptLanguage(primary string) string {
	tag := language.Make(primary)
	base, _ := tag.Base()

	parts := []string{tag.String()}
	if base.String() != tag.String() {
		parts = append(parts, base.String()+";q=0.9")
	}
	if base.String() != "en" {
		parts = append(parts, "en-US;q=0.8", "en;q=0.7")
	}
	return strings.Join(parts, ",")
}

func majorOf(version string) int {
	major := 0
	for _, c := range version {
		if c < '0' || c > '9' {
			break
		}
		major = major*10 + int(c-'0')
	}
	return major
}

func pick[T any](rng *rand.Rand, items []T) T {
	return items[rng.IntN(len(items))]
}
