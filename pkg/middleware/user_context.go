package middleware

import (
	"strings"

	"github.com/LeadFlux/AbuseGate/pkg/types"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

// ResolveUserContext builds the per-request actor descriptor. Bearer tokens
// are parsed for identity claims; anything unverifiable degrades to an
// anonymous context rather than an error, since identity here only selects a
// limit tier and never grants access.
func ResolveUserContext(ctx *fiber.Ctx, jwtSecret string, logger *logrus.Logger) *types.UserContext {
	userCtx := &types.UserContext{
		Role:      types.RoleAnonymous,
		IPAddress: ctx.IP(),
		UserAgent: ctx.Get(fiber.HeaderUserAgent),
	}

	auth := ctx.Get(fiber.HeaderAuthorization)
	if !strings.HasPrefix(auth, "Bearer ") {
		return userCtx
	}

	token, err := jwt.Parse(strings.TrimPrefix(auth, "Bearer "), func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(jwtSecret), nil
	})
	if err != nil || !token.Valid {
		logger.WithError(err).Debug("unverifiable bearer token, treating as anonymous")
		return userCtx
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return userCtx
	}

	if sub, ok := claims["sub"].(string); ok && sub != "" {
		userCtx.Authenticated = true
		userCtx.UserID = sub
	}
	if role, ok := claims["role"].(string); ok {
		userCtx.Role = types.ParseUserRole(role)
	}
	return userCtx
}
