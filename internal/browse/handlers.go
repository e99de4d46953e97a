// Package browse 暴露目录源的只读浏览接口：列目录、取文件内容、列出目录下全部曲目。
package browse

import (
	"errors"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/tunehub/internal/catalog"
	"github.com/any-hub/tunehub/internal/listing"
	"github.com/any-hub/tunehub/internal/logging"
	"github.com/any-hub/tunehub/internal/mirror"
	"github.com/any-hub/tunehub/internal/server"
	"github.com/any-hub/tunehub/internal/store"
	"github.com/any-hub/tunehub/internal/vpath"
)

type sourcePayload struct {
	Name        string   `json:"name"`
	Module      string   `json:"module"`
	Description string   `json:"description"`
	Mirrors     []string `json:"mirrors"`
}

type entryPayload struct {
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	Description string `json:"description,omitempty"`
	Size        string `json:"size,omitempty"`
}

type listPayload struct {
	Source  string         `json:"source"`
	Path    string         `json:"path"`
	Entries []entryPayload `json:"entries"`
}

type tracksPayload struct {
	Source string        `json:"source"`
	Path   string        `json:"path"`
	Tracks []store.Track `json:"tracks"`
}

// entryCollector 把 Visitor 回调收集为响应条目。
type entryCollector struct {
	entries []entryPayload
}

func (e *entryCollector) OnDirectory(name, description string) {
	e.entries = append(e.entries, entryPayload{Name: name, Kind: "dir", Description: description})
}

func (e *entryCollector) OnFile(name, description, size string) {
	e.entries = append(e.entries, entryPayload{Name: name, Kind: "file", Description: description, Size: size})
}

type handler struct {
	registry *server.SourceRegistry
	logger   *logrus.Logger
}

// Register 挂载 /sources 系列路由。
func Register(app *fiber.App, registry *server.SourceRegistry, logger *logrus.Logger) {
	if app == nil || registry == nil || logger == nil {
		return
	}
	h := &handler{registry: registry, logger: logger}

	app.Get("/sources", h.listSources)
	app.Get("/sources/:source/list/*", h.listDirectory)
	app.Get("/sources/:source/content/*", h.getContent)
	app.Get("/sources/:source/tracks/*", h.listTracks)
}

func (h *handler) listSources(c fiber.Ctx) error {
	catalogs := h.registry.List()
	result := make([]sourcePayload, 0, len(catalogs))
	for _, cat := range catalogs {
		meta := cat.Module()
		result = append(result, sourcePayload{
			Name:        cat.Name(),
			Module:      meta.Key,
			Description: meta.Description,
			Mirrors:     cat.Root().Mirrors(),
		})
	}
	return c.JSON(fiber.Map{"sources": result})
}

func (h *handler) listDirectory(c fiber.Ctx) error {
	cat, p, err := h.resolve(c)
	if err != nil {
		return err
	}
	collector := &entryCollector{entries: []entryPayload{}}
	if err := cat.ListDirectory(c.Context(), p, collector); err != nil {
		return h.renderError(c, err)
	}
	return c.JSON(listPayload{Source: cat.Name(), Path: p.LocalID(), Entries: collector.entries})
}

func (h *handler) getContent(c fiber.Ctx) error {
	cat, p, err := h.resolve(c)
	if err != nil {
		return err
	}
	data, err := cat.GetContent(c.Context(), p)
	if err != nil {
		return h.renderError(c, err)
	}
	c.Set(fiber.HeaderContentType, mimetype.Detect(data).String())
	return c.Send(data)
}

func (h *handler) listTracks(c fiber.Ctx) error {
	cat, p, err := h.resolve(c)
	if err != nil {
		return err
	}
	tracks, err := cat.Tracks(c.Context(), p)
	if err != nil {
		return h.renderError(c, err)
	}
	if tracks == nil {
		tracks = []store.Track{}
	}
	return c.JSON(tracksPayload{Source: cat.Name(), Path: p.AsDir().LocalID(), Tracks: tracks})
}

// resolve 查找目录源并解析通配段。
func (h *handler) resolve(c fiber.Ctx) (*catalog.Catalog, vpath.Path, error) {
	cat, ok := server.LookupSource(c, h.registry)
	if !ok {
		return nil, vpath.Path{}, fiber.NewError(fiber.StatusNotFound, "source_not_found")
	}
	// 非严格路由匹配时通配段会丢掉末尾的 "/"，这里补回以保留显式目录标记
	raw := c.Params("*")
	if strings.HasSuffix(c.Path(), "/") && !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	p, err := cat.Resolve(raw)
	if err != nil {
		return nil, vpath.Path{}, fiber.NewError(fiber.StatusBadRequest, "invalid_path")
	}
	return cat, p, nil
}

func (h *handler) renderError(c fiber.Ctx, err error) error {
	status, label := classify(err)
	entry := h.logger.WithFields(logging.RequestFields(server.RequestID(c), server.SourceName(c), c.Path(), status)).
		WithError(err)
	if status >= fiber.StatusInternalServerError {
		entry.Warn("浏览请求失败")
	} else {
		entry.Info("浏览请求未命中")
	}
	return fiber.NewError(status, label)
}

// classify 将引擎错误映射为 HTTP 状态码与错误标签。
func classify(err error) (int, string) {
	var parseErr *listing.ParseError
	var hostErr *mirror.HostError
	var connErr *mirror.ConnectivityError
	switch {
	case errors.As(err, &parseErr):
		return fiber.StatusUnprocessableEntity, "listing_unparseable"
	case errors.As(err, &connErr):
		return fiber.StatusBadGateway, "no_connectivity"
	case errors.As(err, &hostErr):
		return fiber.StatusBadGateway, "upstream_failed"
	case errors.Is(err, catalog.ErrListingTooLarge):
		return fiber.StatusBadGateway, "listing_too_large"
	case errors.Is(err, catalog.ErrNotCached):
		return fiber.StatusNotFound, "not_cached"
	case errors.Is(err, catalog.ErrNotFile):
		return fiber.StatusBadRequest, "not_a_file"
	default:
		return fiber.StatusInternalServerError, "internal_error"
	}
}
