/**
 * @description
 * Authentication middleware for job endpoints.
 * Validates HS256 Bearer tokens minted with the shared sync job secret.
 * Sync triggers are machine-to-machine calls (scheduler, ops tooling), so a
 * short-lived shared-secret JWT replaces interactive user auth.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2: HTTP Context
 * - github.com/golang-jwt/jwt/v5: JWT parsing and signing
 *
 * @notes
 * - Requires JOB_SYNC_SECRET to be set in configuration.
 */

package middleware

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/materia-project/backend/internal/config"
	"github.com/materia-project/backend/internal/logger"
)

// JobAudience is the audience claim every job token must carry.
const JobAudience = "sync"

// AuthMiddlewareConfig holds the shared signing secret
type AuthMiddlewareConfig struct {
	Secret []byte
}

var mwConfig *AuthMiddlewareConfig

// InitAuthMiddleware stores the job secret. Should be called at startup.
func InitAuthMiddleware(cfg *config.Config) error {
	if cfg.Services.SyncJobSecret == "" {
		// Dev/test may run without it, but every protected call will be rejected
		logger.Info("⚠️ Warning: JOB_SYNC_SECRET is empty. Protected job endpoints will reject all requests.")
	}

	mwConfig = &AuthMiddlewareConfig{
		Secret: []byte(cfg.Services.SyncJobSecret),
	}
	logger.Info("✅ Auth Middleware Initialized")
	return nil
}

// Protected protects routes requiring a valid job token
func Protected() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if mwConfig == nil || len(mwConfig.Secret) == 0 {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Auth configuration not initialized",
			})
		}

		// 1. Get Token from Header
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing authorization header"})
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token format"})
		}

		// 2. Parse and Validate Token
		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return mwConfig.Secret, nil
		}, jwt.WithAudience(JobAudience))
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token: " + err.Error()})
		}
		if !token.Valid {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token claims"})
		}

		// 3. Extract caller identity (sub)
		sub, ok := claims["sub"].(string)
		if !ok || sub == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Token missing subject"})
		}

		// 4. Set caller in Context
		c.Locals("job_id", sub)

		return c.Next()
	}
}

// GetJobID returns the authenticated caller's subject from context
func GetJobID(c *fiber.Ctx) (string, error) {
	id, ok := c.Locals("job_id").(string)
	if !ok {
		return "", errors.New("job id not found in context")
	}
	return id, nil
}

// MintJobToken signs a short-lived HS256 token for a job caller. Used by ops
// tooling and tests.
func MintJobToken(secret []byte, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"aud": JobAudience,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	})
	return token.SignedString(secret)
}
