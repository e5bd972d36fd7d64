package boxfs

import (
	"errors"
	"reflect"
	"testing"
)

func TestSplitPath(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", nil},
		{"root", "/", nil},
		{"relative", "a/b", []string{"a", "b"}},
		{"absolute", "/a/b", []string{"a", "b"}},
		{"trailing", "a/b/", []string{"a", "b"}},
		{"doubled", "a//b", []string{"a", "b"}},
		{"dot", "./a/./b", []string{"a", "b"}},
	}

	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			got, err := splitPath(c.in)
			if err != nil {
				t.Fatalf("splitPath(%q) error = %v", c.in, err)
			}
			if !reflect.DeepEqual(got, c.want) {
				t.Fatalf("splitPath(%q) = %#v, want %#v", c.in, got, c.want)
			}
		})
	}
}

func TestSplitPath_RejectsParentSegments(t *testing.T) {
	for _, in := range []string{"..", "a/../b", "/a/.."} {
		if _, err := splitPath(in); !errors.Is(err, ErrInvalidPath) {
			t.Fatalf("splitPath(%q) error = %v, want ErrInvalidPath", in, err)
		}
	}
}

func TestNormalizePath(t *testing.T) {
	cases := []struct{ in, want string }{
		{"", "/"},
		{"/", "/"},
		{"docs", "/docs"},
		{"docs/2024/", "/docs/2024"},
		{"//docs///2024", "/docs/2024"},
	}
	for _, c := range cases {
		got, err := normalizePath(c.in)
		if err != nil {
			t.Fatalf("normalizePath(%q) error = %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("normalizePath(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestParentAndLeaf(t *testing.T) {
	cases := []struct{ in, parent, leaf string }{
		{"/a", "/", "a"},
		{"/a/b", "/a", "b"},
		{"/a/b/c.txt", "/a/b", "c.txt"},
		{"a", "/", "a"},
		{"/", "/", ""},
	}
	for _, c := range cases {
		parent, leaf := parentAndLeaf(c.in)
		if parent != c.parent || leaf != c.leaf {
			t.Fatalf("parentAndLeaf(%q) = (%q, %q), want (%q, %q)", c.in, parent, leaf, c.parent, c.leaf)
		}
	}
}

func TestBasename(t *testing.T) {
	cases := []struct{ in, want string }{
		{"/a/b.txt", "b.txt"},
		{"a/b/", "b"},
		{"b", "b"},
		{"/", ""},
		{"", ""},
	}
	for _, c := range cases {
		if got := basename(c.in); got != c.want {
			t.Fatalf("basename(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestPrefixer(t *testing.T) {
	cases := []struct {
		name     string
		prefix   string
		in       string
		root     string
		prefixed string
		stripped string
	}{
		{"no prefix", "", "docs/a.txt", "/", "/docs/a.txt", "docs/a.txt"},
		{"no prefix root", "", "", "/", "/", ""},
		{"prefix", "base", "docs/a.txt", "/base", "/base/docs/a.txt", "docs/a.txt"},
		{"prefix slashes", "/base/inner/", "/docs", "/base/inner", "/base/inner/docs", "docs"},
		{"prefix root", "base", "", "/base", "/base", ""},
	}

	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			p, err := newPrefixer(c.prefix)
			if err != nil {
				t.Fatalf("newPrefixer(%q) error = %v", c.prefix, err)
			}
			if got := p.root(); got != c.root {
				t.Fatalf("root() = %q, want %q", got, c.root)
			}
			got, err := p.prefixPath(c.in)
			if err != nil {
				t.Fatalf("prefixPath(%q) error = %v", c.in, err)
			}
			if got != c.prefixed {
				t.Fatalf("prefixPath(%q) = %q, want %q", c.in, got, c.prefixed)
			}
			if got := p.stripPrefix(got); got != c.stripped {
				t.Fatalf("stripPrefix(%q) = %q, want %q", c.prefixed, got, c.stripped)
			}
		})
	}
}

func TestPrefixer_InvalidPrefix(t *testing.T) {
	if _, err := newPrefixer("a/../b"); !errors.Is(err, ErrInvalidPath) {
		t.Fatalf("newPrefixer() error = %v, want ErrInvalidPath", err)
	}
}
