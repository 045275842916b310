package http

import "github.com/gofiber/fiber/v2"

type Handler interface {
	Handle(ctx *fiber.Ctx) error
}

// HandlerTransport groups the admin and reporting handlers for routing.
type HandlerTransport struct {
	// Geo rules
	CreateGeoRuleHandler Handler
	ListGeoRulesHandler  Handler
	DeleteGeoRuleHandler Handler

	// Blocking rules
	CreateBlockRuleHandler Handler
	ListBlockRulesHandler  Handler

	// Bypass reporting
	ListBypassAttemptsHandler Handler
	BypassStatsHandler        Handler

	// Behavior
	BehaviorScoreHandler Handler

	// Captcha
	CreateChallengeHandler Handler
	VerifyChallengeHandler Handler

	// Suspicious IPs
	FlagSuspiciousIPHandler  Handler
	ListSuspiciousIPsHandler Handler
}
