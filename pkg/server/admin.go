package server

import (
	"fmt"

	"github.com/LeadFlux/AbuseGate/pkg/config"
	handlers "github.com/LeadFlux/AbuseGate/pkg/handlers/http"
	"github.com/LeadFlux/AbuseGate/pkg/server/router"
	"github.com/sirupsen/logrus"
)

type (
	AdminServerDI struct {
		HandlerTransport handlers.HandlerTransport
		Config           *config.Config
		Logger           *logrus.Logger
	}
	AdminServer struct {
		*BaseServer
		handlerTransport handlers.HandlerTransport
	}
)

func NewAdminServer(di AdminServerDI) *AdminServer {
	return &AdminServer{
		BaseServer:       NewBaseServer(di.Config, di.Logger),
		handlerTransport: di.HandlerTransport,
	}
}

func (s *AdminServer) Run() error {
	s.setupHealthCheck()
	s.WithRouters(router.NewAdminRouter(s.handlerTransport))

	addr := fmt.Sprintf(":%d", s.Config.Server.AdminPort)
	s.Logger.WithField("addr", addr).Info("Starting admin server")
	return s.Router.Listen(addr)
}

func (s *AdminServer) Shutdown() error {
	return s.Router.Shutdown()
}
