package http

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/agri-dashboard/pkg/logger"
)

const cacheKeyPrefix = "agri:cache:"

// CacheConfig caché de respuestas en Redis.
type CacheConfig struct {
	TTL     time.Duration
	Timeout time.Duration // plazo de cada operación contra Redis
}

// CacheMiddleware cachea en Redis las respuestas GET 200 por método+ruta+query.
// Si Redis falla la petición sigue sin caché.
func CacheMiddleware(client *redis.Client, cfg CacheConfig, log *logger.Logger) fiber.Handler {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 200 * time.Millisecond
	}
	return func(c *fiber.Ctx) error {
		if client == nil || c.Method() != fiber.MethodGet {
			return c.Next()
		}
		key := cacheKey(c)

		ctx, cancel := context.WithTimeout(c.UserContext(), cfg.Timeout)
		cached, err := client.Get(ctx, key).Bytes()
		cancel()
		switch {
		case err == nil && len(cached) > 0:
			c.Set("X-Cache", "HIT")
			c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
			return c.Send(cached)
		case err != nil && !errors.Is(err, redis.Nil):
			log.Warn().Err(err).Str("path", c.Path()).Msg("caché no disponible")
		}

		if err := c.Next(); err != nil {
			return err
		}
		if c.Response().StatusCode() != fiber.StatusOK {
			return nil
		}

		body := append([]byte(nil), c.Response().Body()...)
		ctx, cancel = context.WithTimeout(c.UserContext(), cfg.Timeout)
		defer cancel()
		if err := client.Set(ctx, key, body, cfg.TTL).Err(); err != nil {
			log.Warn().Err(err).Str("path", c.Path()).Msg("no se pudo guardar en caché")
			return nil
		}
		c.Set("X-Cache", "MISS")
		return nil
	}
}

func cacheKey(c *fiber.Ctx) string {
	raw := c.Method() + ":" + c.Path() + ":" + string(c.Request().URI().QueryString())
	sum := sha256.Sum256([]byte(raw))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}
