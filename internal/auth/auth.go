// Package auth owns the credential lifecycle for Graph calls: interactive
// sign-in on first use, a file-backed MSAL token cache, silent refresh on
// subsequent runs, and interactive fallback when silent refresh fails.
//
// The authentication protocol itself (token exchange, PKCE, browser
// redirect) is delegated wholesale to the MSAL library; this package only
// asks it for tokens and persists its serialized session state.
package auth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AzureAD/microsoft-authentication-library-for-go/apps/public"

	"github.com/tonimelisma/workbook-go/internal/msalcache"
)

const authorityBase = "https://login.microsoftonline.com/"

// Scopes is the fixed permission set requested on every acquisition. Silent
// and interactive requests must use the identical set; a differently-scoped
// silent request would not be satisfied by the cached session.
var Scopes = []string{
	"Files.Read.All",
	"Files.ReadWrite",
	"Files.ReadWrite.All",
	"Mail.Send",
}

// Error indicates that both silent and interactive acquisition failed. It is
// unrecoverable without user action and must never be retried automatically.
type Error struct {
	Description string // provider error description when available
	Err         error
}

func (e *Error) Error() string {
	return fmt.Sprintf("auth: authentication failed: %s", e.Description)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Config holds the identity parameters for a Manager. Kept separate from the
// application config package so auth/ has no config import.
type Config struct {
	ClientID  string
	TenantID  string
	CacheFile string
}

// publicClient is the slice of MSAL's public.Client that Manager uses.
// Tests substitute a fake.
type publicClient interface {
	Accounts(ctx context.Context) ([]public.Account, error)
	AcquireTokenSilent(ctx context.Context, scopes []string, opts ...public.AcquireSilentOption) (public.AuthResult, error)
	AcquireTokenInteractive(ctx context.Context, scopes []string, opts ...public.AcquireInteractiveOption) (public.AuthResult, error)
}

// Manager produces a currently-valid bearer token on demand, using the
// cheapest available method: cached silent acquisition first, interactive
// browser sign-in as the fallback. Interactive acquisition blocks the
// calling goroutine until the user completes or abandons the browser flow.
type Manager struct {
	app    publicClient
	scopes []string
	logger *slog.Logger

	// token is the last acquired bearer token. It is never persisted; only
	// the MSAL session state that can re-derive it goes to disk.
	token string
}

// NewManager builds the MSAL public client bound to the configured tenant,
// client ID, and on-disk token cache, then immediately acquires a token so
// construction fails fast when no interactive session is available either.
// The cache file may be absent or corrupt; both degrade to "no cached
// session" and are handled by the cache store.
func NewManager(ctx context.Context, cfg Config, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}

	store := msalcache.New(cfg.CacheFile, logger)

	app, err := public.New(cfg.ClientID,
		public.WithAuthority(authorityBase+cfg.TenantID),
		public.WithCache(store),
	)
	if err != nil {
		return nil, fmt.Errorf("auth: creating MSAL client: %w", err)
	}

	m := &Manager{
		app:    app,
		scopes: Scopes,
		logger: logger,
	}

	if err := m.EnsureToken(ctx); err != nil {
		return nil, err
	}

	return m, nil
}

// EnsureToken guarantees the in-memory token is current. With a cached
// account it attempts silent acquisition first; without one, or when silent
// acquisition fails or yields no usable token, it falls back to the
// interactive browser flow with the identical scope set. MSAL persists the
// session state through the cache store if and only if its internal state
// changed.
func (m *Manager) EnsureToken(ctx context.Context) error {
	accounts, err := m.app.Accounts(ctx)
	if err != nil {
		m.logger.Warn("listing cached accounts failed, treating cache as empty",
			slog.String("error", err.Error()),
		)
	}

	if len(accounts) > 0 {
		result, silentErr := m.app.AcquireTokenSilent(ctx, m.scopes, public.WithSilentAccount(accounts[0]))
		if silentErr == nil && result.AccessToken != "" {
			m.logger.Debug("token acquired silently",
				slog.String("account", accounts[0].PreferredUsername),
				slog.Time("expiry", result.ExpiresOn),
			)

			m.token = result.AccessToken

			return nil
		}

		if silentErr != nil {
			m.logger.Info("silent acquisition failed, falling back to interactive",
				slog.String("error", silentErr.Error()),
			)
		}
	} else {
		m.logger.Info("no cached account, starting interactive sign-in")
	}

	result, err := m.app.AcquireTokenInteractive(ctx, m.scopes)
	if err != nil {
		return &Error{Description: err.Error(), Err: err}
	}

	if result.AccessToken == "" {
		return &Error{Description: "no token returned"}
	}

	m.logger.Info("interactive sign-in succeeded",
		slog.String("account", result.Account.PreferredUsername),
		slog.Time("expiry", result.ExpiresOn),
	)

	m.token = result.AccessToken

	return nil
}

// Token returns a bearer token that is current at call time. It re-validates
// through EnsureToken on every call rather than trusting a previously cached
// value. Satisfies workbook.TokenProvider.
func (m *Manager) Token(ctx context.Context) (string, error) {
	if err := m.EnsureToken(ctx); err != nil {
		return "", err
	}

	return m.token, nil
}

// AuthHeaders returns the header pair for an authenticated JSON request,
// with the token guaranteed fresh. This is the sanctioned way for callers
// outside the workbook client to build request headers.
func (m *Manager) AuthHeaders(ctx context.Context) (map[string]string, error) {
	tok, err := m.Token(ctx)
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"Authorization": "Bearer " + tok,
		"Content-Type":  "application/json",
	}, nil
}
