package media

import (
	"os"
	"path/filepath"
	"testing"
)

func TestIsRasterImage(t *testing.T) {
	cases := []struct {
		name string
		want bool
	}{
		{"photo.jpg", true},
		{"photo.JPEG", true},
		{"scan.png", true},
		{"scan.tiff", true},
		{"notes.txt", false},
		{"archive.zip", false},
		{"noextension", false},
	}
	for _, c := range cases {
		if got := IsRasterImage(c.name); got != c.want {
			t.Errorf("IsRasterImage(%q) = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestHashFileStable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.bin")
	if err := os.WriteFile(path, []byte("same bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	copyPath := filepath.Join(dir, "b.bin")
	if err := os.WriteFile(copyPath, []byte("same bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	h1, err := HashFile(path)
	if err != nil {
		t.Fatalf("HashFile failed: %v", err)
	}
	h2, err := HashFile(copyPath)
	if err != nil {
		t.Fatalf("HashFile failed: %v", err)
	}
	if h1 != h2 {
		t.Errorf("identical content hashed differently: %s vs %s", h1, h2)
	}
	if len(h1) != 64 {
		t.Errorf("hash length = %d, want 64 hex chars", len(h1))
	}
}

func TestListImagesNaturalOrder(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"img10.jpg", "img2.jpg", "img1.jpg", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "subdir.jpg"), 0o755); err != nil {
		t.Fatal(err)
	}

	paths, err := ListImages(dir)
	if err != nil {
		t.Fatalf("ListImages failed: %v", err)
	}

	want := []string{"img1.jpg", "img2.jpg", "img10.jpg"}
	if len(paths) != len(want) {
		t.Fatalf("paths = %v, want %d images", paths, len(want))
	}
	for i, name := range want {
		if filepath.Base(paths[i]) != name {
			t.Errorf("paths[%d] = %s, want %s", i, filepath.Base(paths[i]), name)
		}
	}
}
