// Package fetch retrieves web pages for conversion.
//
// Client.Fetch sends every request with a browser fingerprint drawn from a
// fingerprint.Generator, retries rate-limited (429), blocked (403) and
// unavailable (503) responses with exponential backoff, and decodes the body
// to UTF-8 using the charset declared by the response or sniffed from the
// document.
//
// Failures are reported as *Error values whose Kind lets callers map them
// to HTTP status codes or skip the page during a crawl:
//
//	resp, err := client.Fetch(ctx, "https://example.com/")
//	var fetchErr *fetch.Error
//	if errors.As(err, &fetchErr) && fetchErr.Kind == fetch.KindNotFound {
//		...
//	}
package fetch
