// Package fingerprint generates browser-like HTTP header profiles.
//
// A Profile is one synthetic browser identity: the User-Agent, the
// Accept-Language list, the client hints and the device hints all describe
// the same browser on the same platform. Chrome profiles send client hints,
// Firefox and Safari profiles do not, and Safari only runs on macOS.
//
// Profiles come from a Generator that is seeded explicitly, so a fixed seed
// yields a reproducible sequence. The Generator keeps a small pool of
// profiles and occasionally replaces one, which spreads requests over a
// handful of identities without switching identity on every request.
package fingerprint
