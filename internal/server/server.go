package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/xid"
	"github.com/valyala/tcplisten"

	"go-pms-api/internal/handler"
	"go-pms-api/internal/metrics"
	"go-pms-api/internal/middleware"
	"go-pms-api/internal/model"
	"go-pms-api/internal/service"
	"go-pms-api/internal/ws"
	"go-pms-api/pkg/database"
	"go-pms-api/pkg/jwt"
)

// Deps are the per-process collaborators of the HTTP server.
type Deps struct {
	Manager         *database.Manager
	Tokens          *jwt.TokenManager
	Cache           service.PermissionCache
	Metrics         *metrics.Metrics
	Logger          *slog.Logger
	ShutdownTimeout time.Duration
	AccessLog       bool
}

// Server is the fiber application of one worker process.
type Server struct {
	app     *fiber.App
	hub     *ws.Hub
	stopHub context.CancelFunc
	manager *database.Manager
	logger  *slog.Logger
	timeout time.Duration
}

// New wires services, handlers and routes.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	opts := []service.RecordOption{service.WithLogger(deps.Logger), service.WithObserver(deps.Metrics)}

	roleRecords, err := service.NewRecordService[model.Role](deps.Manager, opts...)
	if err != nil {
		return nil, err
	}
	userRecords, err := service.NewRecordService[model.User](deps.Manager, opts...)
	if err != nil {
		return nil, err
	}
	projects, err := service.NewRecordService[model.Project](deps.Manager, opts...)
	if err != nil {
		return nil, err
	}
	tasks, err := service.NewRecordService[model.Task](deps.Manager, opts...)
	if err != nil {
		return nil, err
	}
	comments, err := service.NewRecordService[model.Comment](deps.Manager, opts...)
	if err != nil {
		return nil, err
	}

	roles := service.NewRoleService(roleRecords, deps.Cache, deps.Logger)
	users := service.NewUserService(userRecords, roles)
	auth := service.NewAuthService(users, deps.Tokens)

	hub := ws.NewHub(deps.Logger)
	hubCtx, stopHub := context.WithCancel(context.Background())
	go hub.Run(hubCtx)

	app := fiber.New(fiber.Config{
		AppName:               "PMS API",
		DisableStartupMessage: true,
	})
	app.Use(requestid.New(requestid.Config{
		Generator: func() string { return xid.New().String() },
	}))
	if deps.AccessLog {
		app.Use(logger.New(logger.Config{
			Format: "${time} ${pid} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
		}))
	}
	app.Use(recover.New())
	app.Use(cors.New())

	s := &Server{
		app:     app,
		hub:     hub,
		stopHub: stopHub,
		manager: deps.Manager,
		logger:  deps.Logger,
		timeout: deps.ShutdownTimeout,
	}

	app.Get("/ping", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"message": "pong", "pid": os.Getpid()})
	})
	app.Get("/metrics", adaptor.HTTPHandler(deps.Metrics.Handler()))

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})
	app.Get("/ws", websocket.New(func(c *websocket.Conn) {
		hub.Register(c)
		defer hub.Unregister(c)

		for {
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
	}))

	api := app.Group("/api")

	authHandler := handler.NewAuthHandler(auth)
	api.Post("/login", authHandler.Login)
	api.Post("/refresh_token", authHandler.RefreshToken)

	protected := api.Group("", middleware.RequireAuth(auth))

	roleHandler := handler.NewRoleHandler(roles, hub)
	userHandler := handler.NewUserHandler(users, hub)
	protected.Get("/me", userHandler.Me)
	protected.Get("/permissions", middleware.RequireAnyPermission(model.RolePermissions.All()...), roleHandler.Permissions)

	mount(protected, "/roles", model.RolePermissions, crud{
		list: roleHandler.List, get: roleHandler.Get, create: roleHandler.Create,
		update: roleHandler.Update, remove: roleHandler.Delete,
	})
	mount(protected, "/users", model.UserPermissions, crud{
		list: userHandler.List, get: userHandler.Get, create: userHandler.Create,
		update: userHandler.Update, remove: userHandler.Delete,
	})
	mount(protected, "/projects", model.ProjectPermissions, handlers(handler.NewRecordHandler[model.Project](projects, hub)))
	mount(protected, "/tasks", model.TaskPermissions, handlers(handler.NewRecordHandler[model.Task](tasks, hub)))
	mount(protected, "/comments", model.CommentPermissions, handlers(handler.NewRecordHandler[model.Comment](comments, hub)))

	return s, nil
}

type crud struct {
	list, get, create, update, remove fiber.Handler
}

func handlers[T any](h *handler.RecordHandler[T]) crud {
	return crud{list: h.List, get: h.Get, create: h.Create, update: h.Update, remove: h.Delete}
}

// mount registers the five record routes, each guarded by its catalog permission.
func mount(r fiber.Router, path string, perms model.PermissionGroup, h crud) {
	g := r.Group(path)
	g.Get("/", middleware.RequirePermission(perms.GetAll), h.list)
	g.Post("/", middleware.RequirePermission(perms.Add), h.create)
	g.Get("/:id", middleware.RequirePermission(perms.GetDetails), h.get)
	g.Put("/:id", middleware.RequirePermission(perms.Edit), h.update)
	g.Delete("/:id", middleware.RequirePermission(perms.Delete), h.remove)
}

// App exposes the fiber application, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen opens a SO_REUSEPORT listener so every worker can bind the same port.
func Listen(addr string) (net.Listener, error) {
	cfg := tcplisten.Config{ReusePort: true, DeferAccept: true, FastOpen: true}
	ln, err := cfg.NewListener("tcp4", addr)
	if err != nil {
		return nil, fmt.Errorf("server: listen %s: %w", addr, err)
	}
	return ln, nil
}

// Serve accepts connections until Close is called.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("worker listening", slog.String("addr", ln.Addr().String()), slog.Int("pid", os.Getpid()))
	return s.app.Listener(ln)
}

// Close stops accepting connections, drains in-flight requests and releases the pool.
func (s *Server) Close() error {
	timeout := s.timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	err := s.app.ShutdownWithTimeout(timeout)
	s.stopHub()
	if s.manager != nil {
		err = errors.Join(err, s.manager.Close())
	}
	return err
}
