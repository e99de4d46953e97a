package sourcemodule

import (
	"errors"
	"testing"
	"time"

	"github.com/any-hub/tunehub/internal/listing"
	"github.com/any-hub/tunehub/internal/vpath"
)

func replaceRegistry(t *testing.T) func() {
	t.Helper()
	prev := globalRegistry
	globalRegistry = newRegistry()
	return func() { globalRegistry = prev }
}

func TestRegisterResolveAndList(t *testing.T) {
	cleanup := replaceRegistry(t)
	defer cleanup()

	if err := Register(ModuleMetadata{Key: "beta"}); err != nil {
		t.Fatalf("register beta failed: %v", err)
	}
	if err := Register(ModuleMetadata{Key: " Gamma "}); err != nil {
		t.Fatalf("register gamma failed: %v", err)
	}

	if _, ok := Resolve("beta"); !ok {
		t.Fatalf("expected beta to resolve")
	}
	if _, ok := Resolve("BETA"); !ok {
		t.Fatalf("resolve should be case-insensitive")
	}
	if _, ok := Resolve(""); ok {
		t.Fatalf("empty key must not resolve")
	}

	list := List()
	if len(list) != 2 {
		t.Fatalf("list length mismatch: %d", len(list))
	}
	if list[0].Key != "beta" || list[1].Key != "gamma" {
		t.Fatalf("unexpected order: %+v", list)
	}
	if keys := Keys(); len(keys) != 2 || keys[1] != "gamma" {
		t.Fatalf("unexpected keys: %v", keys)
	}
}

func TestRegisterDuplicateFails(t *testing.T) {
	cleanup := replaceRegistry(t)
	defer cleanup()

	if err := Register(ModuleMetadata{Key: "httpdir"}); err != nil {
		t.Fatalf("first registration should succeed: %v", err)
	}
	if err := Register(ModuleMetadata{Key: "HTTPDIR"}); err == nil {
		t.Fatalf("duplicate registration should fail")
	}
	if err := Register(ModuleMetadata{Key: "  "}); err == nil {
		t.Fatalf("blank key should fail")
	}
}

func TestRegisterValidatesModuleMetadata(t *testing.T) {
	cleanup := replaceRegistry(t)
	defer cleanup()

	cases := map[string]ModuleMetadata{
		"key with slash":      {Key: "mod/land"},
		"key with space":      {Key: "mod land"},
		"unknown format":      {Key: "json", Formats: []listing.Format{"json-index"}},
		"relative mirror":     {Key: "rel", DefaultMirrors: []string{"ftp.example.org/pub"}},
		"ftp mirror":          {Key: "ftp", DefaultMirrors: []string{"ftp://ftp.example.org/pub"}},
		"mirror without host": {Key: "nohost", DefaultMirrors: []string{"https:///pub"}},
		"mirror with query":   {Key: "query", DefaultMirrors: []string{"https://example.org/pub?x=1"}},
		"duplicate mirror":    {Key: "dup", DefaultMirrors: []string{"https://example.org/pub/", "https://example.org/pub"}},
	}
	for name, meta := range cases {
		err := Register(meta)
		if !errors.Is(err, ErrInvalidModule) {
			t.Fatalf("%s: expected ErrInvalidModule, got %v", name, err)
		}
	}
	if len(List()) != 0 {
		t.Fatalf("rejected modules must not be registered: %v", Keys())
	}
}

func TestRegisterNormalizesModuleMetadata(t *testing.T) {
	cleanup := replaceRegistry(t)
	defer cleanup()

	mirrors := []string{" https://a.example.org/pub/ ", "http://b.example.org/mods"}
	formats := []listing.Format{listing.FormatTable, listing.FormatPre, listing.FormatTable}
	if err := Register(ModuleMetadata{Key: "Archive_2", DefaultMirrors: mirrors, Formats: formats}); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	mirrors[0] = "https://mutated.example.org"

	meta, ok := Resolve("archive_2")
	if !ok {
		t.Fatalf("expected archive_2 to resolve")
	}
	if len(meta.DefaultMirrors) != 2 || meta.DefaultMirrors[0] != "https://a.example.org/pub" || meta.DefaultMirrors[1] != "http://b.example.org/mods" {
		t.Fatalf("unexpected mirrors: %v", meta.DefaultMirrors)
	}
	if len(meta.Formats) != 2 || meta.Formats[0] != listing.FormatTable || meta.Formats[1] != listing.FormatPre {
		t.Fatalf("unexpected formats: %v", meta.Formats)
	}
}

func TestClassTTL(t *testing.T) {
	cases := map[Class]time.Duration{
		ClassDirectory:      24 * time.Hour,
		ClassGroupList:      7 * 24 * time.Hour,
		ClassClassification: 28 * 24 * time.Hour,
		ClassContent:        30 * 24 * time.Hour,
		Class("unknown"):    24 * time.Hour,
	}
	for class, want := range cases {
		if got := class.TTL(); got != want {
			t.Fatalf("%s ttl: expected %v got %v", class, want, got)
		}
	}
}

func TestLifetimeClass(t *testing.T) {
	root := vpath.Root("https://example.org/pub")
	plain := ModuleMetadata{Key: "plain"}
	if got := plain.LifetimeClass(root.Child("music")); got != ClassDirectory {
		t.Fatalf("expected directory class, got %s", got)
	}
	if got := plain.LifetimeClass(root.Child("music/song.mod")); got != ClassContent {
		t.Fatalf("expected content class, got %s", got)
	}

	custom := ModuleMetadata{Classify: func(vpath.Path) Class { return ClassGroupList }}
	if got := custom.LifetimeClass(root.Child("authors")); got != ClassGroupList {
		t.Fatalf("expected classifier result, got %s", got)
	}
	if got := custom.LifetimeClass(root.Child("authors/x.xm")); got != ClassContent {
		t.Fatalf("files are always content, got %s", got)
	}
}
