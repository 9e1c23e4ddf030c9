package platform

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/prieelo/prieelo/visibility"
)

const accessScope = "prieelo.access"

func makeToken(subject string, scope string, exp time.Time) jwt.Token {
	tok := jwt.New()
	tok.Set("scope", scope)
	tok.Set(jwt.SubjectKey, subject)
	tok.Set(jwt.IssuedAtKey, time.Now().Unix())
	tok.Set(jwt.ExpirationKey, exp.Unix())

	return tok
}

func (s *Server) createAuthTokenForAccount(accountID uint) (string, error) {
	tok := makeToken(strconv.FormatUint(uint64(accountID), 10), accessScope, time.Now().Add(24*time.Hour))

	sig, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, s.jwtSigningKey))
	if err != nil {
		return "", fmt.Errorf("signing access token: %w", err)
	}

	return string(sig), nil
}

func (s *Server) parseAuthToken(raw string) (uint, error) {
	tok, err := jwt.Parse([]byte(raw), jwt.WithKey(jwa.HS256, s.jwtSigningKey), jwt.WithValidate(true))
	if err != nil {
		return 0, fmt.Errorf("invalid token: %w", err)
	}

	scope, _ := tok.Get("scope")
	if scope != accessScope {
		return 0, fmt.Errorf("invalid token scope")
	}

	id, err := strconv.ParseUint(tok.Subject(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid token subject: %w", err)
	}

	return uint(id), nil
}

// viewerMiddleware resolves the request identity. A missing or empty
// Authorization header yields an anonymous viewer; a present but invalid
// token is rejected rather than silently downgraded.
func (s *Server) viewerMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		auth := c.Request().Header.Get(echo.HeaderAuthorization)
		if auth == "" {
			return next(c)
		}

		raw := strings.TrimPrefix(auth, "Bearer ")
		if raw == auth {
			return ErrAuthRequired
		}

		accountID, err := s.parseAuthToken(raw)
		if err != nil {
			return ErrAuthRequired
		}

		ctx := withViewer(c.Request().Context(), visibility.Authenticated(accountID))
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

// requireViewer returns the authenticated viewer or fails the request with
// the sign-in call-to-action.
func requireViewer(c echo.Context) (visibility.Viewer, error) {
	v := getViewer(c.Request().Context())
	if !v.Authenticated {
		return v, ErrAuthRequired
	}
	return v, nil
}
