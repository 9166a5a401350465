package app

import (
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/tabauth/pkg/cryptox"
	"github.com/aussiebroadwan/tabauth/pkg/jwtx"
)

// InitCodec builds the token codec from the configured signing secret.
//
// In dev an empty secret is replaced by a random one generated on startup.
// Tokens signed with it do not survive a restart; every session has to log in
// again. Outside dev the config refuses to load without a secret.
func InitCodec(cfg *Config, logger *slog.Logger) (*jwtx.Codec, error) {
	secret := cfg.SigningSecret

	if secret == "" {
		generated, err := cryptox.GenerateToken(cryptox.TokenSize256)
		if err != nil {
			return nil, fmt.Errorf("failed to generate signing secret: %w", err)
		}
		secret = generated
		cfg.GeneratedSecret = true

		logger.Warn("no AUTH_SIGNING_SECRET configured, using an ephemeral secret",
			"env", cfg.Env,
		)
		logger.Warn("all existing tokens are now invalid due to key rotation on startup")
	}

	codec, err := jwtx.NewCodec([]byte(secret), jwtx.WithIssuer(cfg.Issuer))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token codec: %w", err)
	}

	logger.Info("token codec ready",
		"issuer", cfg.Issuer,
		"access_ttl", cfg.AccessTTL,
		"refresh_ttl", cfg.RefreshTTL,
	)
	return codec, nil
}
