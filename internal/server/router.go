package server

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/tunehub/internal/catalog"
	"github.com/any-hub/tunehub/internal/logging"
)

// AppOptions controls how the Fiber application should behave on a specific port.
type AppOptions struct {
	Logger     *logrus.Logger
	Registry   *SourceRegistry
	ListenPort int
}

const (
	contextKeySource    = "_tunehub_source"
	contextKeyRequestID = "_tunehub_request_id"
)

// NewApp builds a Fiber application with request-id middleware and a JSON
// fallback for unknown routes. Routes are attached by browse/routes packages.
func NewApp(opts AppOptions) (*fiber.App, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Registry == nil {
		return nil, errors.New("source registry is required")
	}
	if opts.ListenPort <= 0 {
		return nil, fmt.Errorf("invalid listen port: %d", opts.ListenPort)
	}

	app := fiber.New(fiber.Config{
		CaseSensitive: true,
		UnescapePath:  true,
		ErrorHandler:  errorHandler(opts.Logger),
	})

	app.Use(recover.New())
	app.Use(requestContextMiddleware(opts))

	return app, nil
}

// NotFound 注册兜底路由，必须在所有业务路由之后调用。
func NotFound(app *fiber.App) {
	app.Use(func(c fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "route_not_found"})
	})
}

// requestContextMiddleware 负责生成请求 ID，并在请求结束后输出访问日志。
func requestContextMiddleware(opts AppOptions) fiber.Handler {
	return func(c fiber.Ctx) error {
		reqID := uuid.NewString()
		c.Locals(contextKeyRequestID, reqID)
		c.Set("X-Request-ID", reqID)

		err := c.Next()

		status := c.Response().StatusCode()
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			status = fiberErr.Code
		} else if err != nil {
			status = fiber.StatusInternalServerError
		}
		fields := logging.RequestFields(reqID, SourceName(c), c.Path(), status)
		fields["action"] = "request"
		fields["method"] = c.Method()
		opts.Logger.WithFields(fields).Debug("请求完成")
		return err
	}
}

func errorHandler(logger *logrus.Logger) fiber.ErrorHandler {
	return func(c fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		label := "internal_error"
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			code = fiberErr.Code
			label = strings.ToLower(strings.ReplaceAll(fiberErr.Message, " ", "_"))
		} else {
			logger.WithFields(logrus.Fields{
				"action":     "request",
				"request_id": RequestID(c),
				"path":       c.Path(),
			}).WithError(err).Error("请求处理失败")
		}
		return c.Status(code).JSON(fiber.Map{"error": label})
	}
}

// LookupSource 按路由参数 :source 查找 Catalog，并记录到请求上下文供日志使用。
func LookupSource(c fiber.Ctx, registry *SourceRegistry) (*catalog.Catalog, bool) {
	name := strings.TrimSpace(c.Params("source"))
	c.Locals(contextKeySource, name)
	return registry.Lookup(name)
}

// SourceName returns the source recorded by LookupSource.
func SourceName(c fiber.Ctx) string {
	if value := c.Locals(contextKeySource); value != nil {
		if name, ok := value.(string); ok {
			return name
		}
	}
	return ""
}

// RequestID returns the request identifier stored by the router middleware.
func RequestID(c fiber.Ctx) string {
	if value := c.Locals(contextKeyRequestID); value != nil {
		if reqID, ok := value.(string); ok {
			return reqID
		}
	}
	return ""
}
