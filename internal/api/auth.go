package api

import (
	"crypto/subtle"
	"strings"

	"github.com/labstack/echo/v4"
)

// ParseAPIKeys parses the `key:secret,key:secret` configuration string
// from spec.md §6 into a map of key id to secret. Malformed entries
// (missing the ':' separator) are skipped.
func ParseAPIKeys(raw string) map[string]string {
	keys := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		id, secret, ok := strings.Cut(pair, ":")
		if !ok || id == "" || secret == "" {
			continue
		}
		keys[id] = secret
	}
	return keys
}

// apiKeyAuth validates the x-api-key header ("id:secret") against the
// configured keys using a constant-time comparison on the secret to
// avoid leaking key validity through timing.
func (c *Controller) apiKeyAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if len(c.APIKeys) == 0 {
			if c.logger != nil {
				c.logger.Warn("api key auth bypassed: no keys configured")
			}
			return next(ctx)
		}

		header := ctx.Request().Header.Get("x-api-key")
		id, secret, ok := strings.Cut(header, ":")
		if !ok {
			return writeError(ctx, codeUnauthorized, "missing or malformed x-api-key header", 401)
		}

		want, found := c.APIKeys[id]
		if !found || subtle.ConstantTimeCompare([]byte(want), []byte(secret)) != 1 {
			return writeError(ctx, codeUnauthorized, "invalid api key", 401)
		}

		ctx.Set("apiKeyID", id)
		return next(ctx)
	}
}
