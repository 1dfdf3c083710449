// Package content serves the portal's static informational pages: self-help
// resources, blog posts, testimonials and the about page. Pages are markdown
// files with YAML frontmatter, embedded in the binary and rendered to HTML
// once at load.
package content

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"gopkg.in/yaml.v3"
)

//go:embed pages/*.md
var pagesFS embed.FS

// Kind groups pages into the portal's sections.
type Kind string

const (
	KindResource    Kind = "resource"
	KindBlog        Kind = "blog"
	KindTestimonial Kind = "testimonial"
	KindAbout       Kind = "about"
)

// ParseKind accepts both singular and plural section names ("blog", "blogs").
func ParseKind(s string) (Kind, bool) {
	k := Kind(strings.TrimSuffix(strings.ToLower(s), "s"))
	switch k {
	case KindResource, KindBlog, KindTestimonial, KindAbout:
		return k, true
	}
	return "", false
}

var ErrNotFound = errors.New("content: page not found")

// Summary is the list form of a page.
type Summary struct {
	Kind      Kind      `json:"kind"`
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary"`
	Author    string    `json:"author,omitempty"`
	Published time.Time `json:"published"`
	Tags      []string  `json:"tags,omitempty"`
}

// Page is a fully rendered page.
type Page struct {
	Summary
	HTML string `json:"html"`
}

type frontmatter struct {
	Kind      string   `yaml:"kind"`
	Slug      string   `yaml:"slug"`
	Title     string   `yaml:"title"`
	Summary   string   `yaml:"summary"`
	Author    string   `yaml:"author"`
	Published string   `yaml:"published"`
	Tags      []string `yaml:"tags"`
}

// Library is the loaded, read-only page set.
type Library struct {
	byKind map[Kind][]Page // newest first
}

// Load parses and renders every embedded page.
func Load() (*Library, error) {
	return LoadFS(pagesFS, "pages")
}

// LoadFS parses every *.md file directly under dir in fsys.
func LoadFS(fsys fs.FS, dir string) (*Library, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("content: read %s: %w", dir, err)
	}

	md := goldmark.New()
	lib := &Library{byKind: make(map[Kind][]Page)}
	seen := make(map[string]bool)

	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".md" {
			continue
		}
		raw, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("content: read %s: %w", e.Name(), err)
		}
		page, err := parsePage(md, raw)
		if err != nil {
			return nil, fmt.Errorf("content: %s: %w", e.Name(), err)
		}
		key := string(page.Kind) + "/" + page.Slug
		if seen[key] {
			return nil, fmt.Errorf("content: %s: duplicate slug %q", e.Name(), key)
		}
		seen[key] = true
		lib.byKind[page.Kind] = append(lib.byKind[page.Kind], page)
	}

	for _, pages := range lib.byKind {
		sort.SliceStable(pages, func(i, j int) bool {
			if pages[i].Published.Equal(pages[j].Published) {
				return pages[i].Slug < pages[j].Slug
			}
			return pages[i].Published.After(pages[j].Published)
		})
	}
	return lib, nil
}

func parsePage(md goldmark.Markdown, raw []byte) (Page, error) {
	body, fmRaw := extractFrontmatter(raw)
	if fmRaw == nil {
		return Page{}, errors.New("missing frontmatter")
	}
	var fm frontmatter
	if err := yaml.Unmarshal(fmRaw, &fm); err != nil {
		return Page{}, fmt.Errorf("parse frontmatter: %w", err)
	}

	kind, ok := ParseKind(fm.Kind)
	if !ok {
		return Page{}, fmt.Errorf("unknown kind %q", fm.Kind)
	}
	if fm.Slug == "" || fm.Title == "" {
		return Page{}, errors.New("slug and title are required")
	}
	var published time.Time
	if fm.Published != "" {
		t, err := time.Parse(time.DateOnly, fm.Published)
		if err != nil {
			return Page{}, fmt.Errorf("published: %w", err)
		}
		published = t
	}

	var html bytes.Buffer
	if err := md.Convert(body, &html); err != nil {
		return Page{}, fmt.Errorf("render: %w", err)
	}

	return Page{
		Summary: Summary{
			Kind:      kind,
			Slug:      fm.Slug,
			Title:     fm.Title,
			Summary:   fm.Summary,
			Author:    fm.Author,
			Published: published,
			Tags:      fm.Tags,
		},
		HTML: html.String(),
	}, nil
}

// extractFrontmatter splits a leading "---" delimited YAML block from the
// markdown body. It returns nil frontmatter when there is none.
func extractFrontmatter(content []byte) ([]byte, []byte) {
	lines := bytes.Split(content, []byte("\n"))
	if len(lines) < 3 || !bytes.Equal(bytes.TrimSpace(lines[0]), []byte("---")) {
		return content, nil
	}
	for i := 1; i < len(lines); i++ {
		if bytes.Equal(bytes.TrimSpace(lines[i]), []byte("---")) {
			return bytes.Join(lines[i+1:], []byte("\n")), bytes.Join(lines[1:i], []byte("\n"))
		}
	}
	return content, nil
}

// List returns the summaries of every page of kind, newest first.
func (l *Library) List(kind Kind) []Summary {
	pages := l.byKind[kind]
	out := make([]Summary, len(pages))
	for i, p := range pages {
		out[i] = p.Summary
		out[i].Tags = append([]string(nil), p.Tags...)
	}
	return out
}

// Get returns one page.
func (l *Library) Get(kind Kind, slug string) (Page, error) {
	for _, p := range l.byKind[kind] {
		if p.Slug == slug {
			p.Tags = append([]string(nil), p.Tags...)
			return p, nil
		}
	}
	return Page{}, ErrNotFound
}
