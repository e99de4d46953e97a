package scene

import (
	"testing"

	"github.com/any-hub/tunehub/internal/sourcemodule"
	"github.com/any-hub/tunehub/internal/vpath"
)

func TestModuleRegistered(t *testing.T) {
	meta, ok := sourcemodule.Resolve(Key)
	if !ok {
		t.Fatalf("scene module not registered")
	}
	if meta.DefaultMirrors[0] != "https://ftp.scene.org/pub" {
		t.Fatalf("primary mirror mismatch: %v", meta.DefaultMirrors)
	}

	root := vpath.Root(meta.DefaultMirrors...)
	if got := meta.LifetimeClass(root.Child("music/groups")); got != sourcemodule.ClassDirectory {
		t.Fatalf("expected directory class, got %s", got)
	}
	locs := root.Child("music/groups/").RemoteLocations()
	if locs[1] != "https://ftp.fau.de/scene.org/music/groups/" {
		t.Fatalf("unexpected fallback location: %v", locs)
	}
}
