// Package log provides secure logging functionality with automatic sanitization
// of sensitive information, built on top of the standard slog package.
//
// This package extends slog to provide:
//   - Automatic sanitization of sensitive values (cookies, tokens, secrets)
//   - Masking of passwords in URL userinfo, such as proxy credentials
//   - Configurable log levels with verbose mode support
//
// # Security Features
//
// The SecureHandler automatically sanitizes sensitive information in log output:
//   - HTTP headers (Authorization, Cookie, Set-Cookie, X-Api-Key)
//   - Secret values detected by pattern matching (JWTs, bearer and basic auth)
//   - Session identifiers and authentication tokens
//
// Site configuration may carry cookies and headers for authenticated
// crawling. Even in verbose mode those values are masked, so logs can be
// shared safely.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, true) // verbose=true
//
//	logger.Info("request sent",
//	    "cookie", "session=abc123", // logged as ***REDACTED***
//	    "url", "https://example.com",
//	)
//
//	slog.SetDefault(logger)
package log
