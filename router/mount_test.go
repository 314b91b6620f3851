package router

import (
	"os"
	"path/filepath"
	"testing"
)

func setupMountTree(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "hello.txt"), []byte("hi\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "assets"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "assets", "style.css"), []byte("body{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestMatchMountLongestPrefixWins(t *testing.T) {
	dir := setupMountTree(t)
	r := New()
	if err := r.AddMount(&Mount{Prefix: "/", BaseDir: dir}); err != nil {
		t.Fatal(err)
	}
	if err := r.AddMount(&Mount{Prefix: "/assets", BaseDir: filepath.Join(dir, "assets")}); err != nil {
		t.Fatal(err)
	}

	mm, ok, err := r.MatchMount("/assets/style.css")
	if err != nil || !ok {
		t.Fatalf("MatchMount failed: ok=%v err=%v", ok, err)
	}
	want := filepath.Join(dir, "assets", "style.css")
	if mm.AbsPath != want {
		t.Fatalf("want the /assets mount to win (%s), got %s", want, mm.AbsPath)
	}
}

func TestMatchMountFile(t *testing.T) {
	dir := setupMountTree(t)
	r := New()
	if err := r.AddMount(&Mount{Prefix: "/static", BaseDir: dir}); err != nil {
		t.Fatal(err)
	}

	mm, ok, err := r.MatchMount("/static/hello.txt")
	if err != nil || !ok || mm.IsDir {
		t.Fatalf("want a matched regular file, got mm=%+v ok=%v err=%v", mm, ok, err)
	}
}

func TestMatchMountDirectoryNeedsTrailingSlash(t *testing.T) {
	dir := setupMountTree(t)
	r := New()
	if err := r.AddMount(&Mount{Prefix: "/static", BaseDir: dir}); err != nil {
		t.Fatal(err)
	}

	mm, ok, err := r.MatchMount("/static/assets")
	if err != nil || !ok || !mm.IsDir || !mm.TrailingSlashMissing {
		t.Fatalf("want a directory match needing a redirect, got mm=%+v ok=%v err=%v", mm, ok, err)
	}

	mm, ok, err = r.MatchMount("/static/assets/")
	if err != nil || !ok || !mm.IsDir || mm.TrailingSlashMissing {
		t.Fatalf("want a directory match with no redirect needed, got mm=%+v ok=%v err=%v", mm, ok, err)
	}
}

func TestMatchMountRejectsTraversal(t *testing.T) {
	dir := setupMountTree(t)
	r := New()
	if err := r.AddMount(&Mount{Prefix: "/static", BaseDir: dir}); err != nil {
		t.Fatal(err)
	}

	if _, _, err := r.MatchMount("/static/../../etc/passwd"); err != ErrPathEscape {
		t.Fatalf("want ErrPathEscape, got %v", err)
	}
}

func TestMatchMountNoMatch(t *testing.T) {
	r := New()
	if err := r.AddMount(&Mount{Prefix: "/static", BaseDir: t.TempDir()}); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := r.MatchMount("/other/path"); ok || err != nil {
		t.Fatalf("want no match for an unrelated prefix, got ok=%v err=%v", ok, err)
	}
}

func TestRemoveMount(t *testing.T) {
	r := New()
	if err := r.AddMount(&Mount{Prefix: "/static", BaseDir: t.TempDir()}); err != nil {
		t.Fatal(err)
	}
	if !r.RemoveMount("/static") {
		t.Fatal("RemoveMount should report true for an existing mount")
	}
	if r.RemoveMount("/static") {
		t.Fatal("RemoveMount should report false the second time")
	}
}
