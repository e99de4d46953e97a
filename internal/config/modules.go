package config

import (
	_ "github.com/any-hub/tunehub/internal/sourcemodule/httpdir"
	_ "github.com/any-hub/tunehub/internal/sourcemodule/modland"
	_ "github.com/any-hub/tunehub/internal/sourcemodule/scene"
)
