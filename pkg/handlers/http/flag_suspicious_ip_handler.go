package http

import (
	"net"
	"time"

	"github.com/LeadFlux/AbuseGate/pkg/common"
	"github.com/LeadFlux/AbuseGate/pkg/ratelimit"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type flagSuspiciousIPRequest struct {
	IP         string `json:"ip"`
	Country    string `json:"country"`
	TTLSeconds int    `json:"ttl_seconds"`
}

type flagSuspiciousIPHandler struct {
	logger   *logrus.Logger
	registry *ratelimit.SuspiciousRegistry
}

func NewFlagSuspiciousIPHandler(logger *logrus.Logger, registry *ratelimit.SuspiciousRegistry) Handler {
	return &flagSuspiciousIPHandler{logger: logger, registry: registry}
}

func (h *flagSuspiciousIPHandler) Handle(ctx *fiber.Ctx) error {
	var req flagSuspiciousIPRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if net.ParseIP(req.IP) == nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid ip"})
	}

	ttl := common.SuspiciousIPTTL
	if req.TTLSeconds > 0 {
		ttl = time.Duration(req.TTLSeconds) * time.Second
	}
	if err := h.registry.Add(ctx.Context(), req.IP, req.Country, ttl); err != nil {
		h.logger.WithError(err).Error("failed to flag suspicious ip")
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to flag ip"})
	}
	return ctx.Status(fiber.StatusCreated).JSON(fiber.Map{"ip": req.IP, "ttl_seconds": int(ttl.Seconds())})
}
