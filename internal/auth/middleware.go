package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// OperatorIDKey is the fiber locals key holding the authenticated operator.
const OperatorIDKey = "operator_id"

var parseMiddlewareClaimsFn = jwt.ParseWithClaims

// JWTMiddleware admits requests carrying an unexpired HS256 access token and
// stores the operator in locals. Refresh tokens are refused here; they are
// only accepted by /auth/refresh.
func JWTMiddleware(secret string) fiber.Handler {
	keyFn := func(_ *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}
	return func(c *fiber.Ctx) error {
		raw := bearerFromHeader(c.Get(fiber.HeaderAuthorization))
		if raw == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "operator token required")
		}

		parsed, err := parseMiddlewareClaimsFn(raw, &Claims{}, keyFn,
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired())
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "operator token rejected: "+err.Error())
		}

		claims, ok := parsed.Claims.(*Claims)
		switch {
		case !ok || !parsed.Valid || claims.OperatorID == "":
			return fiber.NewError(fiber.StatusUnauthorized, "operator token invalid")
		case claims.Use != tokenUseAccess:
			return fiber.NewError(fiber.StatusUnauthorized, "refresh token cannot authorize requests")
		}

		c.Locals(OperatorIDKey, claims.OperatorID)
		return c.Next()
	}
}

// OperatorID returns the operator stored by JWTMiddleware.
func OperatorID(c *fiber.Ctx) (string, bool) {
	id, ok := c.Locals(OperatorIDKey).(string)
	return id, ok && id != ""
}

func bearerFromHeader(header string) string {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
