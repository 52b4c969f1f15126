package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"
	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"
	"golang.org/x/oauth2"

	"github.com/ericfisherdev/pyautofix/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.InstallationProvider = (*AppProvider)(nil)

// AppProvider authenticates as a GitHub App and hands out one cached client
// per installation.
type AppProvider struct {
	appID      int64
	privateKey []byte
	apiURL     string

	mu       sync.Mutex
	cache    map[int64]*driven.Installation
	botLogin string
}

// NewAppProvider builds the App JWT transport from the PEM private key.
// apiURL is empty for github.com or the REST root of a GitHub Enterprise host.
func NewAppProvider(appID int64, privateKey []byte, apiURL string) (*AppProvider, error) {
	if _, err := ghinstallation.NewAppsTransport(http.DefaultTransport, appID, privateKey); err != nil {
		return nil, fmt.Errorf("creating app transport: %w", err)
	}

	return &AppProvider{
		appID:      appID,
		privateKey: privateKey,
		apiURL:     apiURL,
		cache:      make(map[int64]*driven.Installation),
	}, nil
}

// Installation returns the client for installationID with the following
// transport stack:
//  1. httpcache over revalidatingTransport (every GET is revalidated by ETag)
//  2. ghinstallation (installation access token, refreshed on expiry)
//  3. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
//  4. go-github / githubv4
func (p *AppProvider) Installation(_ context.Context, installationID int64) (*driven.Installation, error) {
	if installationID <= 0 {
		return nil, fmt.Errorf("invalid installation id %d", installationID)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if inst, ok := p.cache[installationID]; ok {
		return inst, nil
	}

	cacheTransport := httpcache.NewMemoryCacheTransport()
	cacheTransport.Transport = &revalidatingTransport{base: http.DefaultTransport}
	itr, err := ghinstallation.New(cacheTransport, p.appID, installationID, p.privateKey)
	if err != nil {
		return nil, fmt.Errorf("creating installation transport: %w", err)
	}
	if p.apiURL != "" {
		itr.BaseURL = strings.TrimSuffix(p.apiURL, "/")
	}
	rateLimitClient := github_ratelimit.NewClient(itr)

	client, err := newClient(rateLimitClient, p.apiURL)
	if err != nil {
		return nil, err
	}

	inst := &driven.Installation{
		ID:     installationID,
		GitHub: client,
		Token:  &installationTokenSource{tr: itr},
	}
	p.cache[installationID] = inst
	return inst, nil
}

// BotLogin returns the login the App acts as, "<slug>[bot]". It is read once
// with the App JWT and cached.
func (p *AppProvider) BotLogin(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.botLogin != "" {
		return p.botLogin, nil
	}

	atr, err := ghinstallation.NewAppsTransport(http.DefaultTransport, p.appID, p.privateKey)
	if err != nil {
		return "", fmt.Errorf("creating app transport: %w", err)
	}
	client := gh.NewClient(&http.Client{Transport: atr})
	if p.apiURL != "" {
		atr.BaseURL = strings.TrimSuffix(p.apiURL, "/")
		u, err := url.Parse(strings.TrimSuffix(p.apiURL, "/") + "/")
		if err != nil {
			return "", fmt.Errorf("parsing base URL: %w", err)
		}
		client.BaseURL = u
	}

	app, _, err := client.Apps.Get(ctx, "")
	if err != nil {
		return "", apiError("getting authenticated app", err)
	}
	if app.GetSlug() == "" {
		return "", fmt.Errorf("authenticated app %d has no slug", p.appID)
	}
	p.botLogin = app.GetSlug() + "[bot]"
	return p.botLogin, nil
}

// installationTokenSource exposes the installation token to git transports.
type installationTokenSource struct {
	tr *ghinstallation.Transport
}

func (s *installationTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.tr.Token(context.Background())
	if err != nil {
		return nil, fmt.Errorf("fetching installation token: %w", err)
	}
	return &oauth2.Token{AccessToken: tok, TokenType: "token"}, nil
}

// revalidatingTransport marks every response as needing revalidation.
// GitHub sends "private, max-age=60", which would let httpcache answer a
// changed file list or permission from memory. With no-cache stored instead,
// each read still goes out, conditionally, and a 304 reuses the cached body.
type revalidatingTransport struct {
	base http.RoundTripper
}

func (t *revalidatingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	resp.Header.Set("Cache-Control", "no-cache")
	resp.Header.Del("Expires")
	return resp, nil
}
