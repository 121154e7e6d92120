package ident

import (
	"strings"
	"testing"
)

func TestFromURLDeterministic(t *testing.T) {
	t.Parallel()

	url := "https://example.com/articles/42"
	if FromURL(url) != FromURL(url) {
		t.Fatal("equal URLs must yield equal identifiers")
	}
}

func TestFromURLDistinct(t *testing.T) {
	t.Parallel()

	a := FromURL("https://example.com/a")
	b := FromURL("https://example.com/b")
	if a == b {
		t.Fatalf("distinct URLs yielded the same identifier %s", a)
	}
}

func TestFromURLCanonicalForm(t *testing.T) {
	t.Parallel()

	id := FromURL("https://example.com/a")
	s := id.String()
	if len(s) != 36 || strings.Count(s, "-") != 4 {
		t.Fatalf("identifier %q is not a hyphenated UUID", s)
	}
	if s != strings.ToLower(s) {
		t.Fatalf("identifier %q is not lowercase", s)
	}
}

func TestFromString(t *testing.T) {
	t.Parallel()

	t.Run("canonicalizes uppercase", func(t *testing.T) {
		t.Parallel()
		id, err := FromString("2CC4E60A-6212-4DA6-BDD2-FDD713D70943")
		if err != nil {
			t.Fatalf("FromString() error = %v", err)
		}
		if id != "2cc4e60a-6212-4da6-bdd2-fdd713d70943" {
			t.Errorf("id = %s, want lowercase form", id)
		}
	})

	t.Run("rejects empty string", func(t *testing.T) {
		t.Parallel()
		if _, err := FromString(""); err == nil {
			t.Fatal("FromString(\"\") error = nil, want error")
		}
	})

	t.Run("rejects garbage", func(t *testing.T) {
		t.Parallel()
		if _, err := FromString("not-a-uuid"); err == nil {
			t.Fatal("FromString() error = nil, want error")
		}
	})
}

func TestNewIsRandom(t *testing.T) {
	t.Parallel()

	if New() == New() {
		t.Fatal("two fresh identifiers collided")
	}
}

func TestIsZero(t *testing.T) {
	t.Parallel()

	if !ID("").IsZero() {
		t.Error("empty ID should be zero")
	}
	if !ID("00000000-0000-0000-0000-000000000000").IsZero() {
		t.Error("nil UUID should be zero")
	}
	if New().IsZero() {
		t.Error("fresh ID should not be zero")
	}
}
