package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/nao1215/markcrawl/internal/model"
	"github.com/nao1215/markcrawl/internal/pipeline"
)

const usageText = `Usage:
GET /{URL} (e.g., /https://example.com)
GET /?url={URL}
POST / { "url": "https://example.com", "config": {...} }
POST /crawl { "url": "...", "limit": N, "max_depth": N, "follow_relative": true, "config": {...} }`

// emptyCrawlText answers a crawl that converted nothing.
const emptyCrawlText = "Crawl completed, but no results were generated."

const (
	contentTypeMarkdown = "text/markdown; charset=utf-8"
	contentTypeText     = "text/plain; charset=utf-8"
)

// route dispatches on method and path. The target URL of GET requests may
// itself contain slashes and a query, so no pattern router is used.
func (s *Server) route(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodOptions:
		w.Header().Set("Access-Control-Max-Age", "86400")
		w.WriteHeader(http.StatusOK)
	case http.MethodGet, http.MethodHead:
		s.handleGet(w, r)
	case http.MethodPost:
		switch r.URL.Path {
		case "/":
			s.handleConvert(w, r)
		case "/crawl":
			s.handleCrawl(w, r)
		default:
			writeText(w, http.StatusNotFound, "Not Found")
		}
	default:
		w.Header().Set("Allow", "GET, POST, OPTIONS")
		writeText(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	}
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/favicon.ico" {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if target, ok := pathTarget(r); ok {
		s.convert(w, r, target, s.defaults)
		return
	}

	if r.URL.Path == "/" {
		if target := r.URL.Query().Get("url"); target != "" {
			s.convert(w, r, target, s.defaults)
			return
		}
		writeText(w, http.StatusOK, usageText)
		return
	}

	writeText(w, http.StatusNotFound, "Not Found")
}

// pathTarget extracts "https://host/p?q" from a request line such as
// "GET /https://host/p?q".
func pathTarget(r *http.Request) (string, bool) {
	target := strings.TrimPrefix(r.URL.RequestURI(), "/")
	lower := strings.ToLower(target)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return target, true
	}
	// Some clients collapse the double slash after the scheme.
	for _, scheme := range []string{"http:/", "https:/"} {
		if strings.HasPrefix(lower, scheme) && !strings.HasPrefix(lower, scheme+"/") {
			return target[:len(scheme)] + "/" + target[len(scheme):], true
		}
	}
	return "", false
}

// convertRequest is the body of POST /.
type convertRequest struct {
	URL    string              `json:"url"`
	Config model.ConvertConfig `json:"config"`
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	req := convertRequest{Config: s.defaults}
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.logger.Warn("invalid convert request", "error", err)
		writeText(w, http.StatusBadRequest, "Invalid request format: "+err.Error())
		return
	}

	if err := req.Config.Validate(); err != nil {
		writeText(w, http.StatusBadRequest, "Invalid request format: "+err.Error())
		return
	}

	s.convert(w, r, req.URL, req.Config)
}

// crawlRequest is the body of POST /crawl. Limit and MaxDepth are
// required, so they are pointers.
type crawlRequest struct {
	URL            string              `json:"url"`
	Limit          *int                `json:"limit"`
	MaxDepth       *int                `json:"max_depth"`
	FollowRelative bool                `json:"follow_relative"`
	Config         model.ConvertConfig `json:"config"`
}

func (s *Server) handleCrawl(w http.ResponseWriter, r *http.Request) {
	req := crawlRequest{Config: s.defaults}
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.logger.Warn("invalid crawl request", "error", err)
		writeText(w, http.StatusBadRequest, "Invalid crawl request: "+err.Error())
		return
	}

	switch {
	case req.URL == "":
		writeText(w, http.StatusBadRequest, "Invalid crawl request: missing field `url`")
		return
	case req.Limit == nil:
		writeText(w, http.StatusBadRequest, "Invalid crawl request: missing field `limit`")
		return
	case req.MaxDepth == nil:
		writeText(w, http.StatusBadRequest, "Invalid crawl request: missing field `max_depth`")
		return
	}

	result, err := s.spider.Crawl(r.Context(), model.CrawlRequest{
		URL:            req.URL,
		Limit:          *req.Limit,
		MaxDepth:       *req.MaxDepth,
		Config:         req.Config,
		FollowRelative: req.FollowRelative,
	})
	if err != nil {
		status := HTTPStatus(err)
		if r.Context().Err() != nil {
			s.logger.Info("crawl aborted by client", "url", req.URL, "error", err)
			return
		}
		s.logger.Error("crawl failed", "url", req.URL, "error", err)
		if status == http.StatusBadRequest {
			writeText(w, status, "Invalid crawl request: "+err.Error())
			return
		}
		writeText(w, http.StatusInternalServerError, "Crawl failed: "+err.Error())
		return
	}

	if len(result.Pages) == 0 {
		writeText(w, http.StatusOK, emptyCrawlText)
		return
	}

	w.Header().Set("Content-Type", contentTypeMarkdown)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, result.Markdown())
}

// convert fetches target, converts it with cfg and writes the Markdown.
func (s *Server) convert(w http.ResponseWriter, r *http.Request, target string, cfg model.ConvertConfig) {
	if err := validateTarget(target); err != nil {
		writeText(w, http.StatusBadRequest, fmt.Sprintf("Failed to fetch or convert URL '%s': %v", target, err))
		return
	}

	s.logger.Debug("converting page", "url", target)

	page := model.NewPage(target, 0)
	p := pipeline.NewPagePipeline(s.fetcher, cfg, pipeline.PageOptions{
		MainContent: s.pageOptions.MainContent,
		Logger:      s.logger,
	})
	if err := p.Execute(r.Context(), page); err != nil {
		if r.Context().Err() != nil {
			s.logger.Info("conversion aborted by client", "url", target)
			return
		}
		s.logger.Error("conversion failed", "url", target, "error", err)
		writeText(w, HTTPStatus(err), fmt.Sprintf("Failed to fetch or convert URL '%s': %v", target, err))
		return
	}

	w.Header().Set("Content-Type", contentTypeMarkdown)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, page.Markdown)
}

// validateTarget accepts absolute http(s) URLs with a host.
func validateTarget(target string) error {
	if target == "" {
		return &model.InputError{Field: "url", Message: "is required"}
	}
	u, err := url.Parse(target)
	if err != nil {
		return &model.InputError{Field: "url", Message: "cannot be parsed", Err: err}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &model.InputError{Field: "url", Message: "must use http or https"}
	}
	if u.Host == "" {
		return &model.InputError{Field: "url", Message: "must include a host"}
	}
	return nil
}

// decodeJSON decodes a size-limited request body into v.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, s.maxRequestBody)
	dec := json.NewDecoder(body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty request body")
		}
		return err
	}
	return nil
}

func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", contentTypeText)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, msg)
}
