package config

import (
	"fmt"
	"strings"
)

// Preflight checks that required secrets and endpoints are present before
// the server starts accepting traffic. It returns a joined error naming
// every missing variable so an operator fixes them in one pass instead of
// one restart per missing key.
func Preflight(cfg *Config) (warnings []string, err error) {
	var missing []string

	require := func(name, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}

	require("payuni.merchant_id", cfg.PAYUNi.MerchantID)
	require("payuni.api_base", cfg.PAYUNi.APIBase)
	require("payuni.hash_key", cfg.PAYUNi.HashKey)
	require("payuni.hash_iv", cfg.PAYUNi.HashIV)
	require("payuni.notify_url", cfg.PAYUNi.NotifyURL)
	require("turnstile.secret_key", cfg.Turnstile.SecretKey)
	require("oauth.client_id", cfg.OAuth.ClientID)
	require("oauth.client_secret", cfg.OAuth.ClientSecret)
	require("oauth.redirect_url", cfg.OAuth.RedirectURL)
	require("session.secret", cfg.Session.Secret)

	if len(cfg.Session.Secret) > 0 && len(cfg.Session.Secret) < 32 {
		missing = append(missing, "session.secret (must be at least 32 bytes)")
	}

	if len(missing) > 0 {
		return warnings, fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	if !strings.Contains(cfg.PAYUNi.APIBase, "sandbox") {
		warnings = append(warnings, fmt.Sprintf("payuni.api_base %q does not look like the sandbox host; verify this is intentional before taking live traffic", cfg.PAYUNi.APIBase))
	}

	return warnings, nil
}
