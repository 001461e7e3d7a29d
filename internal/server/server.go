package server

import (
	"context"
	"time"

	"backend-frimining/internal/activity"
	"backend-frimining/internal/auth"
	"backend-frimining/internal/config"
	"backend-frimining/internal/points"
	"backend-frimining/internal/production"
	"backend-frimining/internal/stream"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const deviceLockTTL = 12 * time.Hour

type Server struct {
	App        *fiber.App
	Cfg        config.Config
	DB         *pgxpool.Pool
	Redis      *redis.Client
	Stream     *stream.Hub
	Production *production.Service
	Log        *logrus.Logger

	recorder *production.Recorder
	stop     context.CancelFunc
	done     chan struct{}
}

func NewServer(cfg config.Config, db *pgxpool.Pool, redisClient *redis.Client, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{Output: log.Writer()}))

	s := &Server{
		App:    app,
		Cfg:    cfg,
		DB:     db,
		Redis:  redisClient,
		Stream: stream.NewHub(redisClient, log.WithField("component", "stream")),
		Log:    log,
		done:   make(chan struct{}),
	}

	registerRoutes(s)

	ctx, cancel := context.WithCancel(context.Background())
	s.stop = cancel
	go func() {
		defer close(s.done)
		s.recorder.Run(ctx)
	}()
	return s
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)
	pointService := points.NewService(s.DB)

	s.recorder = production.NewRecorder(s.DB, s.Cfg.RecorderBuffer, s.Cfg.RecorderRetries,
		s.Cfg.RecorderRetriesPerSec, s.Log.WithField("component", "recorder"))
	s.Production = production.NewService(s.DB, s.Stream, pointService, s.recorder, production.Options{
		DefaultRadiusM: s.Cfg.ProximityRadiusM,
		Locks:          production.NewDeviceLocks(s.Redis, deviceLockTTL),
		Logger:         s.Log.WithField("component", "production"),
	})

	auth.RegisterRoutes(s.App.Group("/auth"), auth.NewService(s.Cfg.JWTSecret, s.DB))
	points.RegisterRoutes(s.App.Group("/points"), pointService, jwtMiddleware)
	production.RegisterRoutes(s.App.Group("/production"), s.Production, jwtMiddleware)
	activity.RegisterRoutes(s.App.Group("/activities"), activity.NewService(s.DB), jwtMiddleware)
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream, s.Production.Snapshot)
}

// Close stops the cycle recorder and the stream forwarder.
func (s *Server) Close() {
	s.stop()
	<-s.done
	s.Stream.Close()
}
