package http

import (
	"github.com/LeadFlux/AbuseGate/pkg/ratelimit"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type listSuspiciousIPsHandler struct {
	logger   *logrus.Logger
	registry *ratelimit.SuspiciousRegistry
}

func NewListSuspiciousIPsHandler(logger *logrus.Logger, registry *ratelimit.SuspiciousRegistry) Handler {
	return &listSuspiciousIPsHandler{logger: logger, registry: registry}
}

// Handle lists currently flagged IPs for a country ("country" query parameter).
func (h *listSuspiciousIPsHandler) Handle(ctx *fiber.Ctx) error {
	country := ctx.Query("country")
	if country == "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "country is required"})
	}

	ips, err := h.registry.CountryMembers(ctx.Context(), country)
	if err != nil {
		h.logger.WithError(err).Error("failed to list suspicious ips")
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to list ips"})
	}
	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{"country": country, "ips": ips})
}
