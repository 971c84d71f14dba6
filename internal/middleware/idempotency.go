package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// cachedResponse is the replay envelope stored in Redis. Status and content
// type are kept so a replayed 201 does not come back as a 200.
type cachedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"contentType"`
	Body        []byte `json:"body"`
}

// Idempotency replays the cached response for a repeated X-Correlation-ID.
// The cache key is scoped by method and path so the same correlation id sent
// to a different endpoint never replays a foreign response. Upload retries
// without the header intentionally create fresh records; only clients that
// opt in with a correlation id get replay instead of duplicates.
func Idempotency(redisClient *redis.Client, ttl time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Method() != fiber.MethodPost && c.Method() != fiber.MethodPut {
			return c.Next()
		}

		correlationID := c.Get("X-Correlation-ID")
		if correlationID == "" {
			return c.Next()
		}

		key := fmt.Sprintf("idempotency:%s:%s:%s", c.Method(), c.Path(), correlationID)
		ctx := context.Background()

		if raw, err := redisClient.Get(ctx, key).Bytes(); err == nil && len(raw) > 0 {
			var cached cachedResponse
			if err := json.Unmarshal(raw, &cached); err == nil {
				c.Set("X-Idempotent-Replay", "true")
				c.Set("Content-Type", cached.ContentType)
				return c.Status(cached.Status).Send(cached.Body)
			}
		}

		if err := c.Next(); err != nil {
			return err
		}

		// Only successful responses are worth replaying
		statusCode := c.Response().StatusCode()
		if statusCode >= 200 && statusCode < 300 {
			if body := c.Response().Body(); len(body) > 0 {
				envelope := cachedResponse{
					Status:      statusCode,
					ContentType: string(c.Response().Header.ContentType()),
					Body:        append([]byte(nil), body...),
				}
				payload, err := json.Marshal(envelope)
				if err != nil {
					return nil
				}
				go func() {
					bgCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
					defer cancel()
					redisClient.Set(bgCtx, key, payload, ttl)
				}()
			}
		}

		return nil
	}
}
