package assets

import (
	"bytes"
	"errors"
	"testing"

	"reelforge/internal/services"
)

func TestKindOf(t *testing.T) {
	tests := map[string]Kind{
		"clip.MP4":   KindVideo,
		"loop.webm":  KindVideo,
		"photo.jpeg": KindImage,
		"meme.gif":   KindImage,
		"noext":      KindImage,
	}
	for name, want := range tests {
		if got := KindOf(name); got != want {
			t.Fatalf("KindOf(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestLibraryAddEnforcesLimits(t *testing.T) {
	lib := NewLibrary()
	if _, err := lib.Add("big.png", bytes.Repeat([]byte{1}, MaxImageBytes+1)); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for oversized image, got %v", err)
	}
	if _, err := lib.Add("ok.mp4", bytes.Repeat([]byte{1}, MaxImageBytes+1)); err != nil {
		t.Fatalf("video under its own limit should be accepted: %v", err)
	}
	if _, err := lib.Add("empty.png", nil); err == nil {
		t.Fatal("expected error for empty file")
	}
	if lib.Len() != 1 {
		t.Fatalf("expected one asset, got %d", lib.Len())
	}
}

func TestLibraryLookupAndOrder(t *testing.T) {
	lib := NewLibrary()
	for _, name := range []string{"b.png", "a.mp4", "b.png"} {
		if _, err := lib.Add(name, []byte(name)); err != nil {
			t.Fatalf("Add(%q): %v", name, err)
		}
	}
	all := lib.All()
	if len(all) != 2 || all[0].Filename != "b.png" || all[1].Filename != "a.mp4" {
		t.Fatalf("unexpected order %+v", all)
	}
	asset, ok := lib.Lookup(" a.mp4 ")
	if !ok || asset.Kind != KindVideo || asset.Extension() != ".mp4" {
		t.Fatalf("unexpected lookup result %+v %v", asset, ok)
	}
	if _, ok := lib.Lookup("missing.png"); ok {
		t.Fatal("expected missing asset")
	}
	var nilLib *Library
	if _, ok := nilLib.Lookup("x"); ok || nilLib.Len() != 0 {
		t.Fatal("nil library should be empty")
	}
}
