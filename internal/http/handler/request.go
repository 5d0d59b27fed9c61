package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// fiberRequest exposes a Fiber request to the payment core.
type fiberRequest struct {
	c *fiber.Ctx
}

// Header lookups are case-insensitive.
func (r fiberRequest) Header(name string) string {
	return r.c.Get(name)
}

// baseURL prefers the configured public URL and falls back to the request's
// forwarded scheme and Host.
func baseURL(c *fiber.Ctx, configured string) string {
	if configured != "" {
		return configured
	}
	scheme := c.Protocol()
	if proto := c.Get(fiber.HeaderXForwardedProto); proto != "" {
		scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
	}
	return scheme + "://" + c.Get(fiber.HeaderHost)
}
