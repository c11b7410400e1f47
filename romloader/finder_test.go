package romloader

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
)

func writeZip(t *testing.T, path string, entries map[string][]byte) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	zw := zip.NewWriter(f)
	for name, data := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		w.Write(data)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestFinder_ByNameAndHash(t *testing.T) {
	dir := t.TempDir()
	game := []byte("game data")
	os.WriteFile(filepath.Join(dir, "Game.nes"), []byte("other revision"), 0644)
	os.WriteFile(filepath.Join(dir, "Renamed.nes"), game, 0644)

	f := &Finder{Dirs: []string{dir}}
	rom, err := f.Find("Game.nes", SHA1Hex(game))
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if rom.Path != filepath.Join(dir, "Renamed.nes") {
		t.Errorf("found %s, want the file with the matching digest", rom.Path)
	}
}

func TestFinder_InsideArchive(t *testing.T) {
	dir := t.TempDir()
	game := []byte{0x4E, 0x45, 0x53, 0x1A, 7}
	writeZip(t, filepath.Join(dir, "Game.zip"), map[string][]byte{"Game.nes": game})

	f := &Finder{Dirs: []string{dir}}
	rom, err := f.Find("Game.nes", SHA1Hex(game))
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if rom.Name != "Game.nes" || rom.Path != filepath.Join(dir, "Game.zip") {
		t.Errorf("got %+v", rom)
	}
}

func TestFinder_HashIsCaseInsensitive(t *testing.T) {
	dir := t.TempDir()
	game := []byte("abc")
	os.WriteFile(filepath.Join(dir, "Game.nes"), game, 0644)

	f := &Finder{Dirs: []string{dir}}
	if _, err := f.Find("Game.nes", "a9993e364706816aba3e25717850c26c9cd0d89d"); err != nil {
		t.Errorf("lowercase digest should match: %v", err)
	}
}

func TestFinder_Recursive(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "nes", "rpg")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}
	game := []byte("deep")
	os.WriteFile(filepath.Join(sub, "Quest.nes"), game, 0644)

	flat := &Finder{Dirs: []string{dir}}
	if _, err := flat.Find("Quest.nes", SHA1Hex(game)); !errors.Is(err, ErrROMNotFound) {
		t.Errorf("non-recursive search should not descend, got %v", err)
	}

	deep := &Finder{Dirs: []string{dir}, Recursive: true}
	if _, err := deep.Find("Quest.nes", SHA1Hex(game)); err != nil {
		t.Errorf("recursive search failed: %v", err)
	}
}

func TestFinder_NotFound(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "Game.nes"), []byte("x"), 0644)
	os.WriteFile(filepath.Join(dir, "broken.zip"), []byte("not a zip"), 0644)

	f := &Finder{Dirs: []string{dir, filepath.Join(dir, "missing")}}
	if _, err := f.Find("Game.nes", SHA1Hex([]byte("y"))); !errors.Is(err, ErrROMNotFound) {
		t.Errorf("expected ErrROMNotFound, got %v", err)
	}
}

func TestBaseName(t *testing.T) {
	tests := map[string]string{
		"Game.nes":             "Game",
		"/roms/Game (USA).zip": "Game (USA)",
		`C:\roms\Game.7z`:      "Game",
		"pack.tar.gz":          "pack",
		"NoExt":                "NoExt",
	}
	for in, want := range tests {
		if got := baseName(in); got != want {
			t.Errorf("baseName(%q) = %q, want %q", in, got, want)
		}
	}
}
