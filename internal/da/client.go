// Package da is the client for the clinical document platform: it fetches
// source PDFs and creates patients.
package da

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/joseph-ayodele/orderbridge/internal/common"
)

const service = "da"

type Client struct {
	cfg    common.DAConfig
	http   *http.Client
	logger *slog.Logger
}

// NewClient builds a client that authenticates every request with a bearer
// token: cfg.Token when set, otherwise one obtained by password grant from
// cfg.TokenURL and refreshed when it expires.
func NewClient(ctx context.Context, cfg common.DAConfig, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	var ts oauth2.TokenSource
	if cfg.Token != "" {
		ts = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token, TokenType: "Bearer"})
	} else {
		ts = oauth2.ReuseTokenSource(nil, &passwordSource{
			ctx: context.WithoutCancel(ctx),
			conf: &oauth2.Config{Endpoint: oauth2.Endpoint{
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			}},
			username: cfg.Username,
			password: cfg.Password,
			logger:   logger,
		})
	}

	client := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: &oauth2.Transport{Source: ts, Base: http.DefaultTransport},
	}
	return &Client{cfg: cfg, http: client, logger: logger}, nil
}

// passwordSource runs the resource-owner password grant on every call;
// wrap it in oauth2.ReuseTokenSource to cache the token.
type passwordSource struct {
	ctx      context.Context
	conf     *oauth2.Config
	username string
	password string
	logger   *slog.Logger
}

func (s *passwordSource) Token() (*oauth2.Token, error) {
	tok, err := s.conf.PasswordCredentialsToken(s.ctx, s.username, s.password)
	if err != nil {
		s.logger.Error("da.token.error", "error", err)
		return nil, common.NewCollaboratorError(service, 0, "token request failed: "+err.Error())
	}
	s.logger.Info("da.token.ok", "expires", tok.Expiry)
	return tok, nil
}
