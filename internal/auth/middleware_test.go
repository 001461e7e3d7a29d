package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestJWTMiddleware(t *testing.T) {
	app := fiber.New()
	app.Get("/private", JWTMiddleware("secret"), func(c *fiber.Ctx) error {
		if c.Locals("operator_id") != "op-1" {
			return fiber.NewError(fiber.StatusUnauthorized)
		}
		return c.SendStatus(http.StatusOK)
	})

	svc := NewService("secret", nil)

	// missing token
	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	resp, _ := app.Test(req)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected unauthorized")
	}

	// garbage token
	req = httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer nope")
	resp, _ = app.Test(req)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected unauthorized for garbage token")
	}

	// token for another secret
	foreign, _ := NewService("other", nil).signToken("op-1", tokenUseAccess)
	req = httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer "+foreign)
	resp, _ = app.Test(req)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected unauthorized for foreign token")
	}

	// refresh tokens only mint new pairs
	refresh, _ := svc.signToken("op-1", tokenUseRefresh)
	req = httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer "+refresh)
	resp, _ = app.Test(req)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected unauthorized for refresh token")
	}

	token, _ := svc.signToken("op-1", tokenUseAccess)
	req = httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, _ = app.Test(req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected ok")
	}
}

func TestBearerFromHeader(t *testing.T) {
	cases := map[string]string{
		"":             "",
		"Basic abc":    "",
		"Bearer abc":   "abc",
		"bearer  abc ": "abc",
		"Bearerabc":    "",
		"  Bearer xyz": "xyz",
	}
	for header, want := range cases {
		if got := bearerFromHeader(header); got != want {
			t.Fatalf("bearerFromHeader(%q) = %q, want %q", header, got, want)
		}
	}
}

func TestOperatorIDFromLocals(t *testing.T) {
	app := fiber.New()
	app.Get("/who", func(c *fiber.Ctx) error {
		if _, ok := OperatorID(c); ok {
			return fiber.NewError(fiber.StatusInternalServerError, "unexpected operator")
		}
		c.Locals(OperatorIDKey, "op-7")
		id, ok := OperatorID(c)
		if !ok || id != "op-7" {
			return fiber.NewError(fiber.StatusInternalServerError, "missing operator")
		}
		return c.SendStatus(http.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/who", nil))
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("expected ok, got %v %v", resp.StatusCode, err)
	}
}
