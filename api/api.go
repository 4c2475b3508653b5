package api

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/hkbharti77/AI-Counsellor/utils/logger"
)

type APIServer struct {
	app           *fiber.App
	listenAddress string
	log           *logger.Logger
}

func NewAPIServer(listenAddress string, log *logger.Logger) *APIServer {
	return &APIServer{
		app: fiber.New(fiber.Config{
			AppName:      "AI Counsellor API",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
		}),
		listenAddress: listenAddress,
		log:           log,
	}
}

func (s *APIServer) GetEngine() *fiber.App {
	return s.app
}

// Run listens until SIGINT or SIGTERM, then drains in-flight requests
func (s *APIServer) Run() error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	go func() {
		<-quit
		s.log.Info("shutting down API server")
		if err := s.app.ShutdownWithTimeout(10 * time.Second); err != nil {
			s.log.Error("server shutdown failed", "error", err)
		}
	}()

	s.log.Info("starting API server", "address", s.listenAddress)
	return s.app.Listen(s.listenAddress)
}
