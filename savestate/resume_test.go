package savestate

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	emucore "github.com/user-none/savestates/api"
)

type resumeFixture struct {
	*managerFixture
	resume *ResumeManager
	video  *fakeScreenshotter
	recent string
}

func newResumeFixture(t *testing.T, opts ResumeOptions) *resumeFixture {
	t.Helper()
	mf := newManagerFixture(t)
	f := &resumeFixture{
		managerFixture: mf,
		video:          &fakeScreenshotter{data: []byte("\x89PNG fake")},
		recent:         filepath.Join(t.TempDir(), "RecentGames"),
	}
	opts.States = mf.mgr
	opts.Video = f.video
	opts.Loader = mf.loader
	opts.Pauser = mf.pauser
	opts.Folder = f.recent
	f.resume = NewResumeManager(opts)
	return f
}

func TestRomInfoText(t *testing.T) {
	info := RomInfo{RomName: "Game.nes", RomPath: "/roms/Game.zip", PatchPath: ""}
	data, err := info.MarshalText()
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "Game.nes\n/roms/Game.zip\n\n" {
		t.Errorf("unexpected text %q", data)
	}

	var got RomInfo
	if err := got.UnmarshalText(data); err != nil {
		t.Fatal(err)
	}
	if got != info {
		t.Errorf("got %+v, want %+v", got, info)
	}
}

func TestRomInfoTextCRLFAndShort(t *testing.T) {
	var got RomInfo
	if err := got.UnmarshalText([]byte("A.nes\r\nC:\\roms\\A.nes\r\n")); err != nil {
		t.Fatal(err)
	}
	if got.RomName != "A.nes" || got.RomPath != `C:\roms\A.nes` || got.PatchPath != "" {
		t.Errorf("got %+v", got)
	}
}

func TestRomInfoRejectsLineBreaks(t *testing.T) {
	if _, err := (RomInfo{RomName: "a\nb"}).MarshalText(); err == nil {
		t.Error("expected error for embedded newline")
	}
}

func TestBuildAndResume(t *testing.T) {
	f := newResumeFixture(t, ResumeOptions{})

	built, err := f.resume.Build("Game.nes", "/roms/Game.nes", "/patches/fix.ips")
	if err != nil || !built {
		t.Fatalf("Build = %v, %v", built, err)
	}
	f.pauser.balanced(t)

	path := filepath.Join(f.recent, "Game.rgd")
	if f.resume.ArchivePath() != path {
		t.Errorf("ArchivePath = %q", f.resume.ArchivePath())
	}

	r, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("archive not readable: %v", err)
	}
	var names []string
	for _, zf := range r.File {
		names = append(names, zf.Name)
	}
	r.Close()
	want := []string{"Screenshot.png", "Savestate.mst", "RomInfo.txt"}
	if len(names) != len(want) {
		t.Fatalf("entries = %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("entry %d = %q, want %q", i, names[i], want[i])
		}
	}

	a, err := OpenResumeArchive(path, "mst")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a.Screenshot, f.video.data) {
		t.Error("screenshot mismatch")
	}
	if a.Info.PatchPath != "/patches/fix.ips" {
		t.Errorf("info = %+v", a.Info)
	}

	// Resume into a fresh session
	f.machine.id = emucore.RomIdentity{}
	f.machine.restored = nil
	if err := f.resume.Resume(path, false); err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	if len(f.loader.fileCalls) != 1 || f.loader.fileCalls[0] != "/roms/Game.nes|/patches/fix.ips" {
		t.Errorf("ROM loads = %v", f.loader.fileCalls)
	}
	if !bytes.Equal(f.machine.restored, []byte{1, 2, 3}) {
		t.Errorf("restored = %v", f.machine.restored)
	}
	if f.pauser.stops != 0 {
		t.Error("session should keep running")
	}
	f.pauser.balanced(t)
}

func TestResumeResetGame(t *testing.T) {
	f := newResumeFixture(t, ResumeOptions{})
	if _, err := f.resume.Build("Game.nes", "/roms/Game.nes", ""); err != nil {
		t.Fatal(err)
	}

	if err := f.resume.Resume(f.resume.ArchivePath(), true); err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	if f.machine.loadCalls != 0 {
		t.Error("resetGame must skip the bundled state")
	}
	if len(f.loader.fileCalls) != 1 {
		t.Error("ROM should still be loaded")
	}
}

func TestResumeROMFailureStopsSession(t *testing.T) {
	f := newResumeFixture(t, ResumeOptions{})
	if _, err := f.resume.Build("Game.nes", "/roms/Game.nes", ""); err != nil {
		t.Fatal(err)
	}

	f.loader.err = errors.New("file gone")
	if err := f.resume.Resume(f.resume.ArchivePath(), false); err == nil {
		t.Fatal("Resume should fail")
	}
	if f.pauser.stops != 1 {
		t.Errorf("expected session stop, got %d", f.pauser.stops)
	}
	if f.machine.loadCalls != 0 {
		t.Error("state must not be replayed")
	}
	f.pauser.balanced(t)
}

func TestResumeROMPanicStopsSession(t *testing.T) {
	f := newResumeFixture(t, ResumeOptions{})
	if _, err := f.resume.Build("Game.nes", "/roms/Game.nes", ""); err != nil {
		t.Fatal(err)
	}

	f.loader.panicMsg = "corrupt header"
	if err := f.resume.Resume(f.resume.ArchivePath(), false); err == nil {
		t.Fatal("Resume should fail")
	}
	if f.pauser.stops != 1 {
		t.Errorf("expected session stop, got %d", f.pauser.stops)
	}
	f.pauser.balanced(t)
}

func TestBuildSkipped(t *testing.T) {
	tests := []struct {
		name   string
		opts   ResumeOptions
		format emucore.RomFormat
	}{
		{"console mode", ResumeOptions{ConsoleMode: true}, emucore.FormatINES},
		{"no selection screen", ResumeOptions{DisableGameSelectionScreen: true}, emucore.FormatINES},
		{"sound file", ResumeOptions{}, emucore.FormatNSF},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newResumeFixture(t, tc.opts)
			f.machine.id.Format = tc.format

			built, err := f.resume.Build("Game.nes", "/roms/Game.nes", "")
			if err != nil || built {
				t.Fatalf("Build = %v, %v", built, err)
			}
			if _, err := os.Stat(f.resume.ArchivePath()); !os.IsNotExist(err) {
				t.Error("no archive should be written")
			}
		})
	}
}

func TestBuildPausesMachine(t *testing.T) {
	f := newResumeFixture(t, ResumeOptions{})
	depth := -1
	f.machine.onSave = func() { depth = f.pauser.depth }

	if built, err := f.resume.Build("Game.nes", "/roms/Game.nes", ""); err != nil || !built {
		t.Fatalf("Build = %v, %v", built, err)
	}
	if depth != 1 {
		t.Errorf("machine state read at pause depth %d, want 1", depth)
	}
	if f.pauser.pauses != 1 {
		t.Errorf("expected 1 pause, got %d", f.pauser.pauses)
	}
	f.pauser.balanced(t)
}

func TestBuildScreenshotFailure(t *testing.T) {
	f := newResumeFixture(t, ResumeOptions{})
	f.video.err = errors.New("no frame")

	if built, err := f.resume.Build("Game.nes", "/roms/Game.nes", ""); err == nil || built {
		t.Fatalf("Build = %v, %v", built, err)
	}
	if _, err := os.Stat(f.resume.ArchivePath()); !os.IsNotExist(err) {
		t.Error("no archive should be written")
	}
	f.pauser.balanced(t)
}

func TestOpenResumeArchiveIncomplete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Broken.rgd")
	fh, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(fh)
	w, _ := zw.Create("Screenshot.png")
	w.Write([]byte("png"))
	zw.Close()
	fh.Close()

	if _, err := OpenResumeArchive(path, "mst"); !errors.Is(err, ErrIncompleteArchive) {
		t.Errorf("expected ErrIncompleteArchive, got %v", err)
	}
}

func TestOpenResumeArchiveNotZip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.rgd")
	if err := os.WriteFile(path, []byte("not a zip"), 0644); err != nil {
		t.Fatal(err)
	}
	f := newResumeFixture(t, ResumeOptions{})
	if err := f.resume.Resume(path, false); err == nil {
		t.Error("expected error")
	}
	if f.pauser.pauses != 0 {
		t.Error("an unreadable archive should not pause the machine")
	}
}

func TestListRecentGames(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	files := []struct {
		name string
		age  time.Duration
	}{
		{"Old.rgd", 2 * time.Hour},
		{"New.rgd", 0},
		{"Middle.RGD", time.Hour},
		{"notes.txt", 0},
	}
	for _, f := range files {
		p := filepath.Join(dir, f.name)
		if err := os.WriteFile(p, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
		ts := now.Add(-f.age)
		if err := os.Chtimes(p, ts, ts); err != nil {
			t.Fatal(err)
		}
	}

	games, err := ListRecentGames(dir)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"New", "Middle", "Old"}
	if len(games) != len(want) {
		t.Fatalf("games = %+v", games)
	}
	for i, w := range want {
		if games[i].Name != w {
			t.Errorf("game %d = %q, want %q", i, games[i].Name, w)
		}
	}

	missing, err := ListRecentGames(filepath.Join(dir, "nope"))
	if err != nil || len(missing) != 0 {
		t.Errorf("missing folder: %v, %v", missing, err)
	}
}
