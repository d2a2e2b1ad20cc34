package bmc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// readMode selects how a response body read error is treated.
type readMode int

const (
	readStrict readMode = iota
	// readTolerateShort accepts a body cut short of its declared
	// Content-Length. The JNLP endpoint declares a wrong length.
	readTolerateShort
)

func (s *Session) endpoint(path, rawQuery string) string {
	u := url.URL{
		Scheme:   s.cfg.Scheme,
		Host:     s.server,
		Path:     path,
		RawQuery: rawQuery,
	}
	return u.String()
}

// authorize attaches the session cookie, failing if there is none yet.
func (s *Session) authorize(req *http.Request) error {
	if s.cookie == "" {
		return ErrNotAuthenticated
	}
	req.AddCookie(&http.Cookie{Name: s.cfg.CookieName, Value: s.cookie})
	return nil
}

// do sends req and returns the response for a 2xx status. Any other status
// closes the body and returns a *StatusError.
func (s *Session) do(req *http.Request) (*http.Response, error) {
	s.logger.Debug("sending request", "method", req.Method, "url", req.URL.String())
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return nil, &StatusError{Method: req.Method, URL: req.URL.String(), StatusCode: resp.StatusCode}
	}
	return resp, nil
}

// readBody reads and closes resp.Body.
func (s *Session) readBody(resp *http.Response, mode readMode) (string, error) {
	defer resp.Body.Close()
	content, err := io.ReadAll(resp.Body)
	if err != nil {
		if mode == readTolerateShort && errors.Is(err, io.ErrUnexpectedEOF) {
			s.logger.Debug("accepting short response body",
				"declared", resp.ContentLength,
				"received", len(content))
			return string(content), nil
		}
		return "", fmt.Errorf("%w: read response body: %w", ErrTransport, err)
	}
	return string(content), nil
}

func (s *Session) get(ctx context.Context, rawURL string, authorized bool) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrTransport, err)
	}
	if authorized {
		if err := s.authorize(req); err != nil {
			return nil, err
		}
	}
	return s.do(req)
}

func (s *Session) postForm(ctx context.Context, rawURL string, form url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.do(req)
}
