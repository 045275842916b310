package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/LeadFlux/AbuseGate/pkg/config"
	handlers "github.com/LeadFlux/AbuseGate/pkg/handlers/http"
	"github.com/LeadFlux/AbuseGate/pkg/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

const (
	HealthPath = "/health"
	PingPath   = "/__/ping"
)

type (
	GuardServerDI struct {
		Config              *config.Config
		Logger              *logrus.Logger
		MiddlewareTransport middleware.Transport
		HandlerTransport    handlers.HandlerTransport
	}
	// GuardServer is the public surface. Challenge endpoints are reachable
	// without passing the guard so a limited client can still verify; every
	// other route runs the full engine chain and terminates in the decision
	// response used by forward-auth integrations.
	GuardServer struct {
		*BaseServer
		middlewareTransport middleware.Transport
		handlerTransport    handlers.HandlerTransport
	}
)

func NewGuardServer(di GuardServerDI) *GuardServer {
	s := &GuardServer{
		BaseServer:          NewBaseServer(di.Config, di.Logger),
		middlewareTransport: di.MiddlewareTransport,
		handlerTransport:    di.HandlerTransport,
	}
	s.setupMetricsEndpoint()
	return s
}

func (s *GuardServer) Run() error {
	s.Router.Get(HealthPath, func(ctx *fiber.Ctx) error {
		return ctx.Status(http.StatusOK).JSON(fiber.Map{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	s.Router.Get(PingPath, func(ctx *fiber.Ctx) error {
		return ctx.Status(http.StatusOK).JSON(fiber.Map{
			"message": "pong",
		})
	})

	challenges := s.Router.Group("/api/v1/challenges")
	{
		challenges.Post("", s.handlerTransport.CreateChallengeHandler.Handle)
		challenges.Post("/verify", s.handlerTransport.VerifyChallengeHandler.Handle)
	}

	s.Router.Use(
		s.middlewareTransport.GuardMiddleware.Middleware(),
		func(ctx *fiber.Ctx) error {
			return ctx.SendStatus(http.StatusNoContent)
		},
	)

	addr := fmt.Sprintf(":%d", s.Config.Server.Port)
	s.Logger.WithField("addr", addr).Info("Starting guard server")
	return s.Router.Listen(addr)
}

func (s *GuardServer) Shutdown() error {
	return s.Router.Shutdown()
}
