package attribute

import (
	"os"
	"path/filepath"
	"testing"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
}

// TestDiscoverEnrollment_Layout поддиректории + файлы в корне
func TestDiscoverEnrollment_Layout(t *testing.T) {
	root := t.TempDir()

	touch(t, filepath.Join(root, "alice", "a1.wav"))
	touch(t, filepath.Join(root, "alice", "nested", "a2.WAV"))
	touch(t, filepath.Join(root, "bob", "b1.mp3"))
	touch(t, filepath.Join(root, "carol.wav"))
	touch(t, filepath.Join(root, "readme.txt"))

	entries, err := DiscoverEnrollment(root)
	if err != nil {
		t.Fatal(err)
	}

	if len(entries) != 3 {
		t.Fatalf("expected 3 speakers, got %d: %+v", len(entries), entries)
	}

	// Имена отсортированы
	names := []string{entries[0].SpeakerName, entries[1].SpeakerName, entries[2].SpeakerName}
	if names[0] != "alice" || names[1] != "bob" || names[2] != "carol" {
		t.Errorf("unexpected speaker order: %v", names)
	}

	if len(entries[0].ReferencePaths) != 2 {
		t.Errorf("alice should have 2 references (incl. nested), got %d", len(entries[0].ReferencePaths))
	}
	if len(entries[2].ReferencePaths) != 1 {
		t.Errorf("carol should have 1 reference, got %d", len(entries[2].ReferencePaths))
	}
}

// TestDiscoverEnrollment_StemClaimedByDir файл в корне с именем уже занятой
// поддиректории не создаёт дубликата
func TestDiscoverEnrollment_StemClaimedByDir(t *testing.T) {
	root := t.TempDir()

	touch(t, filepath.Join(root, "alice", "a1.wav"))
	touch(t, filepath.Join(root, "alice.wav"))

	entries, err := DiscoverEnrollment(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 speaker, got %d", len(entries))
	}
	if len(entries[0].ReferencePaths) != 1 {
		t.Errorf("loose file should not be merged into directory speaker: %+v", entries[0])
	}
}

// TestDiscoverEnrollment_EmptySubdirSkipped поддиректория без аудио
// не становится спикером
func TestDiscoverEnrollment_EmptySubdirSkipped(t *testing.T) {
	root := t.TempDir()

	touch(t, filepath.Join(root, "alice", "a1.wav"))
	if err := os.MkdirAll(filepath.Join(root, "empty"), 0755); err != nil {
		t.Fatal(err)
	}
	touch(t, filepath.Join(root, "notes", "todo.txt"))

	entries, err := DiscoverEnrollment(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].SpeakerName != "alice" {
		t.Fatalf("expected only alice, got %+v", entries)
	}
}

// TestDiscoverEnrollment_Empty пустой корень -> ошибка конфигурации
func TestDiscoverEnrollment_Empty(t *testing.T) {
	if _, err := DiscoverEnrollment(t.TempDir()); err == nil {
		t.Fatal("expected error for empty enrollment root")
	}
}

// TestDiscoverEnrollment_MissingRoot несуществующая директория -> ошибка
func TestDiscoverEnrollment_MissingRoot(t *testing.T) {
	if _, err := DiscoverEnrollment(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected error for missing enrollment root")
	}
}
