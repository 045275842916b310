package router

import (
	handlers "github.com/LeadFlux/AbuseGate/pkg/handlers/http"
	"github.com/gofiber/fiber/v2"
)

type adminRouter struct {
	handlerTransport handlers.HandlerTransport
}

func NewAdminRouter(handlerTransport handlers.HandlerTransport) ServerRouter {
	return &adminRouter{handlerTransport: handlerTransport}
}

func (r *adminRouter) BuildRoutes(router *fiber.App) error {
	v1 := router.Group("/api/v1")
	{
		geoRules := v1.Group("/geo-rules")
		{
			geoRules.Post("", r.handlerTransport.CreateGeoRuleHandler.Handle)
			geoRules.Get("", r.handlerTransport.ListGeoRulesHandler.Handle)
			geoRules.Delete("/:rule_id", r.handlerTransport.DeleteGeoRuleHandler.Handle)
		}

		blockRules := v1.Group("/block-rules")
		{
			blockRules.Post("", r.handlerTransport.CreateBlockRuleHandler.Handle)
			blockRules.Get("", r.handlerTransport.ListBlockRulesHandler.Handle)
		}

		bypassGroup := v1.Group("/bypass")
		{
			bypassGroup.Get("/attempts", r.handlerTransport.ListBypassAttemptsHandler.Handle)
			bypassGroup.Get("/stats", r.handlerTransport.BypassStatsHandler.Handle)
		}

		v1.Get("/behavior/score", r.handlerTransport.BehaviorScoreHandler.Handle)

		suspicious := v1.Group("/suspicious-ips")
		{
			suspicious.Post("", r.handlerTransport.FlagSuspiciousIPHandler.Handle)
			suspicious.Get("", r.handlerTransport.ListSuspiciousIPsHandler.Handle)
		}
	}
	return nil
}
