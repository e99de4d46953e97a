package routes

import (
	"bytes"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/any-hub/tunehub/internal/catalog"
	"github.com/any-hub/tunehub/internal/listing"
	"github.com/any-hub/tunehub/internal/server"
	"github.com/any-hub/tunehub/internal/sourcemodule"
)

// RegisterModuleRoutes 暴露 /-/modules 诊断接口，供 SRE 查询模块与目录源绑定关系。
func RegisterModuleRoutes(app *fiber.App, registry *server.SourceRegistry) {
	if app == nil || registry == nil {
		return
	}

	app.Get("/-/modules", func(c fiber.Ctx) error {
		payload := fiber.Map{
			"modules": encodeModules(sourcemodule.List()),
			"sources": encodeSourceBindings(registry.List()),
		}
		return c.JSON(payload)
	})

	app.Get("/-/modules/:key", func(c fiber.Ctx) error {
		key := strings.ToLower(strings.TrimSpace(c.Params("key")))
		if key == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "module_key_required"})
		}
		meta, ok := sourcemodule.Resolve(key)
		if !ok {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "module_not_found"})
		}
		return c.JSON(encodeModule(meta))
	})
}

type modulePayload struct {
	Key            string           `json:"key"`
	Description    string           `json:"description"`
	DefaultMirrors []string         `json:"default_mirrors"`
	Formats        []listing.Format `json:"formats"`
	TTLSeconds     map[string]int64 `json:"ttl_seconds"`
}

type sourceBindingPayload struct {
	SourceName string   `json:"source_name"`
	ModuleKey  string   `json:"module_key"`
	Mirrors    []string `json:"mirrors"`
}

func encodeModules(mods []sourcemodule.ModuleMetadata) []modulePayload {
	if len(mods) == 0 {
		return nil
	}
	sort.Slice(mods, func(i, j int) bool {
		return mods[i].Key < mods[j].Key
	})
	result := make([]modulePayload, 0, len(mods))
	for _, meta := range mods {
		result = append(result, encodeModule(meta))
	}
	return result
}

func encodeModule(meta sourcemodule.ModuleMetadata) modulePayload {
	ttl := make(map[string]int64, len(sourcemodule.Classes()))
	for _, class := range sourcemodule.Classes() {
		ttl[string(class)] = int64(class.TTL() / time.Second)
	}
	return modulePayload{
		Key:            meta.Key,
		Description:    meta.Description,
		DefaultMirrors: append([]string(nil), meta.DefaultMirrors...),
		Formats:        append([]listing.Format(nil), meta.Formats...),
		TTLSeconds:     ttl,
	}
}

func encodeSourceBindings(catalogs []*catalog.Catalog) []sourceBindingPayload {
	if len(catalogs) == 0 {
		return nil
	}
	result := make([]sourceBindingPayload, 0, len(catalogs))
	for _, c := range catalogs {
		result = append(result, sourceBindingPayload{
			SourceName: c.Name(),
			ModuleKey:  c.Module().Key,
			Mirrors:    c.Root().Mirrors(),
		})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].SourceName < result[j].SourceName
	})
	return result
}

// RegisterMetricsRoute 以 Prometheus 文本格式暴露 /-/metrics。
func RegisterMetricsRoute(app *fiber.App, write func(io.Writer) error) {
	if app == nil || write == nil {
		return
	}
	app.Get("/-/metrics", func(c fiber.Ctx) error {
		var buf bytes.Buffer
		if err := write(&buf); err != nil {
			return err
		}
		c.Set(fiber.HeaderContentType, "text/plain; version=0.0.4; charset=utf-8")
		return c.Send(buf.Bytes())
	})
}
