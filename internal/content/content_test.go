package content

import (
	"errors"
	"strings"
	"testing"
	"testing/fstest"
)

func TestLoad_EmbeddedPages(t *testing.T) {
	lib, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	for _, k := range []Kind{KindResource, KindBlog, KindTestimonial, KindAbout} {
		if len(lib.List(k)) == 0 {
			t.Errorf("no pages of kind %s", k)
		}
	}
	about, err := lib.Get(KindAbout, "about")
	if err != nil {
		t.Fatalf("Get about: %v", err)
	}
	if !strings.Contains(about.HTML, "<h1>About the portal</h1>") {
		t.Errorf("about html not rendered: %q", about.HTML)
	}
}

func TestList_NewestFirst(t *testing.T) {
	fsys := fstest.MapFS{
		"p/old.md": {Data: []byte("---\nkind: blog\nslug: old\ntitle: Old\npublished: 2023-01-01\n---\nold")},
		"p/new.md": {Data: []byte("---\nkind: blog\nslug: new\ntitle: New\npublished: 2024-01-01\n---\nnew")},
	}
	lib, err := LoadFS(fsys, "p")
	if err != nil {
		t.Fatalf("LoadFS: %v", err)
	}
	got := lib.List(KindBlog)
	if len(got) != 2 || got[0].Slug != "new" || got[1].Slug != "old" {
		t.Errorf("order: %+v", got)
	}
}

func TestGet_Unknown(t *testing.T) {
	lib, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := lib.Get(KindBlog, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestLoadFS_Rejects(t *testing.T) {
	cases := map[string]string{
		"no frontmatter": "# just markdown",
		"unknown kind":   "---\nkind: podcast\nslug: a\ntitle: A\n---\nbody",
		"missing slug":   "---\nkind: blog\ntitle: A\n---\nbody",
		"bad date":       "---\nkind: blog\nslug: a\ntitle: A\npublished: yesterday\n---\nbody",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			fsys := fstest.MapFS{"p/x.md": {Data: []byte(src)}}
			if _, err := LoadFS(fsys, "p"); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestParseKind(t *testing.T) {
	cases := map[string]Kind{
		"resources":    KindResource,
		"blog":         KindBlog,
		"Testimonials": KindTestimonial,
		"about":        KindAbout,
	}
	for in, want := range cases {
		got, ok := ParseKind(in)
		if !ok || got != want {
			t.Errorf("ParseKind(%q) = %q, %v", in, got, ok)
		}
	}
	if _, ok := ParseKind("podcasts"); ok {
		t.Error("podcasts should not parse")
	}
}
