package modland

import (
	"testing"
	"time"

	"github.com/any-hub/tunehub/internal/sourcemodule"
	"github.com/any-hub/tunehub/internal/vpath"
)

func TestModuleRegistered(t *testing.T) {
	meta, ok := sourcemodule.Resolve(Key)
	if !ok {
		t.Fatalf("modland module not registered")
	}
	if len(meta.DefaultMirrors) != 2 {
		t.Fatalf("unexpected default mirrors: %v", meta.DefaultMirrors)
	}
}

func TestLifetimeClasses(t *testing.T) {
	meta, _ := sourcemodule.Resolve(Key)
	root := vpathRoot()

	cases := []struct {
		path string
		want sourcemodule.Class
		ttl  time.Duration
	}{
		{"", sourcemodule.ClassClassification, 28 * 24 * time.Hour},
		{"Protracker", sourcemodule.ClassGroupList, 7 * 24 * time.Hour},
		{"Protracker/4-mat", sourcemodule.ClassGroupList, 7 * 24 * time.Hour},
		{"Protracker/4-mat/aurora.mod", sourcemodule.ClassContent, 30 * 24 * time.Hour},
	}
	for _, tc := range cases {
		p := root
		if tc.path != "" {
			p = root.Child(tc.path)
		}
		class := meta.LifetimeClass(p)
		if class != tc.want {
			t.Fatalf("%q: expected %s got %s", tc.path, tc.want, class)
		}
		if class.TTL() != tc.ttl {
			t.Fatalf("%q: expected ttl %v got %v", tc.path, tc.ttl, class.TTL())
		}
	}
}

func vpathRoot() vpath.Path {
	return vpath.Root(defaultMirrors...)
}
