package fingerprint

import (
	"fmt"
	"net/http"
	"strconv"
)

// Browser is the browser family a profile imitates.
type Browser string

// Supported browser families.
const (
	Chrome  Browser = "chrome"
	Firefox Browser = "firefox"
	Safari  Browser = "safari"
)

// Viewport is the simulated screen geometry.
type Viewport struct {
	Width      int
	Height     int
	PixelRatio float64
}

// Network describes the simulated connection quality reported by
// Chromium network hints.
type Network struct {
	EffectiveType string
	RTT           int
	Downlink      float64
}

// Profile is one self-consistent synthetic browser identity.
// Profiles are immutable once generated and may be shared between
// goroutines.
type Profile struct {
	Browser         Browser
	MajorVersion    int
	UserAgent       string
	Platform        string
	PlatformVersion string
	Architecture    string
	Bitness         string
	AcceptLanguage  string
	Viewport        Viewport
	DeviceMemory    int
	Network         Network
}

const (
	acceptChrome = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8,application/signed-exchange;v=b3;q=0.7"
	acceptOther  = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
)

// Apply writes the profile's request headers into h, replacing any
// existing values. Accept-Encoding is left to the transport so that
// compressed bodies are decoded transparently.
func (p *Profile) Apply(h http.Header) {
	h.Set("User-Agent", p.UserAgent)
	h.Set("Accept-Language", p.AcceptLanguage)
	h.Set("Upgrade-Insecure-Requests", "1")
	h.Set("Sec-Fetch-Dest", "document")
	h.Set("Sec-Fetch-Mode", "navigate")
	h.Set("Sec-Fetch-Site", "none")
	h.Set("Sec-Fetch-User", "?1")

	if p.Browser != Chrome {
		h.Set("Accept", acceptOther)
		return
	}

	h.Set("Accept", acceptChrome)
	h.Set("Sec-CH-UA", p.brands())
	h.Set("Sec-CH-UA-Mobile", "?0")
	h.Set("Sec-CH-UA-Platform", strconv.Quote(p.Platform))
	h.Set("Sec-CH-UA-Platform-Version", strconv.Quote(p.PlatformVersion))
	h.Set("Sec-CH-UA-Arch", strconv.Quote(p.Architecture))
	h.Set("Sec-CH-UA-Bitness", strconv.Quote(p.Bitness))
	h.Set("Viewport-Width", strconv.Itoa(p.Viewport.Width))
	h.Set("DPR", strconv.FormatFloat(p.Viewport.PixelRatio, 'f', -1, 64))
	h.Set("Device-Memory", strconv.Itoa(p.DeviceMemory))
	h.Set("ECT", p.Network.EffectiveType)
	h.Set("RTT", strconv.Itoa(p.Network.RTT))
	h.Set("Downlink", strconv.FormatFloat(p.Network.Downlink, 'f', -1, 64))
}

// Headers returns the profile's headers as a new http.Header.
func (p *Profile) Headers() http.Header {
	h := make(http.Header)
	p.Apply(h)
	return h
}

func (p *Profile) brands() string {
	return fmt.Sprintf(`"Chromium";v="%d", "Google Chrome";v="%d", "Not-A.Brand";v="99"`, p.MajorVersion, p.MajorVersion)
}
