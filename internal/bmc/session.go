// Package bmc talks to the web interface of an AMI MegaRAC style BMC: it logs
// in, caches the JViewer jars, starts the remote console and sends power
// commands.
//
// A Session is used from one goroutine for one server. It is never logged
// out; callers drop it when they are done.
package bmc

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
)

// State is the progress of a Session.
type State int

const (
	Unauthenticated State = iota
	Authenticated
	AssetsReady
	ViewerLaunched
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Authenticated:
		return "authenticated"
	case AssetsReady:
		return "assets-ready"
	case ViewerLaunched:
		return "viewer-launched"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Session is one authenticated interaction with a single BMC.
type Session struct {
	cfg     Config
	server  string
	client  *http.Client
	logger  *slog.Logger
	starter Starter

	cookie   string
	csrf     string
	cacheDir string
	state    State
}

// Option customizes a Session.
type Option func(*Session)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Session) { s.client = client }
}

// WithLogger sets the logger for progress notices.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// WithStarter replaces the process starter used by LaunchViewer.
func WithStarter(starter Starter) Option {
	return func(s *Session) { s.starter = starter }
}

// NewSession returns an unauthenticated session for server, given as
// host or host:port.
func NewSession(server string, cfg Config, opts ...Option) (*Session, error) {
	if server == "" {
		return nil, fmt.Errorf("server address is empty")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	s := &Session{
		cfg:     cfg,
		server:  server,
		client:  &http.Client{},
		logger:  slog.Default(),
		starter: ExecStarter{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("server", server)
	return s, nil
}

// Establish logs in with username and password and stores the session
// tokens from the response. On failure the session keeps whatever tokens it
// had before.
func (s *Session) Establish(ctx context.Context, username, password string) error {
	form := url.Values{}
	form.Set("WEBVAR_USERNAME", username)
	form.Add("WEBVAR_PASSWORD", password)

	resp, err := s.postForm(ctx, s.endpoint(s.cfg.LoginPath, ""), form)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAuthentication, err)
	}
	body, err := s.readBody(resp, readStrict)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAuthentication, err)
	}

	tokens, ok := s.extract(body)
	if !ok {
		return fmt.Errorf("%w: no %s in login response", ErrAuthentication, s.cfg.Fields.Cookie)
	}
	if s.cfg.RequireCSRF && tokens.CSRF == "" {
		return fmt.Errorf("%w: no %s in login response", ErrAuthentication, s.cfg.Fields.CSRF)
	}

	s.cookie = tokens.Cookie
	s.csrf = tokens.CSRF
	if s.state < Authenticated {
		s.state = Authenticated
	}
	s.logger.Info("session established", "csrf", s.csrf != "")
	return nil
}

func (s *Session) extract(body string) (Tokens, bool) {
	if s.cfg.Extractor == ExtractorScript {
		return ExtractTokensScript(body, s.cfg.Fields)
	}
	return ExtractTokens(body, s.cfg.Fields)
}

// DoAction sends a host power command. power and bios are forwarded as-is;
// the firmware decides what they mean.
func (s *Session) DoAction(ctx context.Context, power, bios int) error {
	query := fmt.Sprintf("WEBVAR_POWER_CMD=%d&WEBVAR_FORCE_BIOS=%d", power, bios)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint(s.cfg.ActionPath, query), nil)
	if err != nil {
		return fmt.Errorf("%w: build request: %w", ErrAction, err)
	}
	if err := s.authorize(req); err != nil {
		return fmt.Errorf("%w: %w", ErrAction, err)
	}
	if s.csrf != "" {
		req.Header.Set(s.cfg.CSRFHeader, s.csrf)
	}

	resp, err := s.do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAction, err)
	}
	// The response body carries nothing of interest.
	resp.Body.Close()
	s.logger.Info("power action sent", "power", power, "bios", bios)
	return nil
}
