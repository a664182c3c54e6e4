package attribute

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"speakerid/audio"
	"speakerid/refine"
)

// mockScorer управляемый Scorer: счёт по имени reference артефакта.
// Нормализованные reference файлы материализуются как ref_<speaker>_<file>.wav
// в порядке отсортированных имён спикеров.
type mockScorer struct {
	scores map[string]float64 // ключ = префикс имени reference файла
	errFor map[string]bool
}

func (m *mockScorer) Score(ctx context.Context, refA, refB string) (float64, error) {
	base := filepath.Base(refB)
	for prefix, fail := range m.errFor {
		if fail && strings.HasPrefix(base, prefix) {
			return 0, errors.New("model rejected input")
		}
	}
	for prefix, score := range m.scores {
		if strings.HasPrefix(base, prefix) {
			return score, nil
		}
	}
	return 0, nil
}

func writeTestWAV(t *testing.T, path string, seconds float64) {
	t.Helper()
	n := int(seconds * float64(audio.TargetSampleRate))
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = 0.1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := audio.SaveWAV(path, samples, audio.TargetSampleRate); err != nil {
		t.Fatal(err)
	}
}

// testFixture аудио на 2s + enrollment с alice и bob
func testFixture(t *testing.T) (audioPath, enrollRoot string) {
	t.Helper()
	dir := t.TempDir()
	audioPath = filepath.Join(dir, "meeting.wav")
	writeTestWAV(t, audioPath, 2.0)

	enrollRoot = filepath.Join(dir, "speakers")
	writeTestWAV(t, filepath.Join(enrollRoot, "alice", "ref.wav"), 0.5)
	writeTestWAV(t, filepath.Join(enrollRoot, "bob", "ref.wav"), 0.5)
	return audioPath, enrollRoot
}

func segment(start, end float64, text string) refine.RefinedSegment {
	return refine.RefinedSegment{Start: start, End: end, Text: text}
}

// TestAttribute_ThresholdDecision один и тот же счёт, два порога:
// 0.25 принимает alice, 0.5 даёт unknown, счёт сохраняется в обоих случаях
func TestAttribute_ThresholdDecision(t *testing.T) {
	audioPath, enrollRoot := testFixture(t)

	// alice = ref_000_*, bob = ref_001_* (спикеры отсортированы по имени)
	scorer := &mockScorer{scores: map[string]float64{
		"ref_000": 0.30,
		"ref_001": 0.10,
	}}
	engine := NewEngine(scorer, DefaultConfig())
	segments := []refine.RefinedSegment{segment(0.0, 1.0, "안녕하세요")}

	results, err := engine.Attribute(context.Background(), audioPath, segments, enrollRoot, 0.25)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Speaker != "alice" || results[0].Score != 0.3 {
		t.Errorf("threshold 0.25: got %q/%.4f, want alice/0.3", results[0].Speaker, results[0].Score)
	}

	results, err = engine.Attribute(context.Background(), audioPath, segments, enrollRoot, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Speaker != UnknownSpeaker || results[0].Score != 0.3 {
		t.Errorf("threshold 0.5: got %q/%.4f, want unknown/0.3", results[0].Speaker, results[0].Score)
	}
}

// TestAttribute_MaxOverReferences лучший из reference файлов спикера
// определяет его счёт
func TestAttribute_MaxOverReferences(t *testing.T) {
	dir := t.TempDir()
	audioPath := filepath.Join(dir, "audio.wav")
	writeTestWAV(t, audioPath, 1.0)

	enrollRoot := filepath.Join(dir, "speakers")
	writeTestWAV(t, filepath.Join(enrollRoot, "alice", "calm.wav"), 0.5)
	writeTestWAV(t, filepath.Join(enrollRoot, "alice", "loud.wav"), 0.5)

	scorer := &mockScorer{scores: map[string]float64{
		"ref_000_000": 0.2,
		"ref_000_001": 0.4,
	}}
	engine := NewEngine(scorer, DefaultConfig())

	results, err := engine.Attribute(context.Background(), audioPath,
		[]refine.RefinedSegment{segment(0.0, 1.0, "테스트")}, enrollRoot, 0.25)
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Score != 0.4 || results[0].Speaker != "alice" {
		t.Errorf("got %q/%.4f, want alice/0.4", results[0].Speaker, results[0].Score)
	}
}

// TestAttribute_DegenerateSegmentsSkipped сегменты нулевой длины и за
// пределами аудио пропускаются без результата
func TestAttribute_DegenerateSegmentsSkipped(t *testing.T) {
	audioPath, enrollRoot := testFixture(t)

	scorer := &mockScorer{scores: map[string]float64{"ref_": 0.9}}
	engine := NewEngine(scorer, DefaultConfig())

	segments := []refine.RefinedSegment{
		segment(0.0, 0.0, "нулевой"),
		segment(5.0, 6.0, "за пределами"),
		segment(0.0, 1.0, "정상"),
	}

	results, err := engine.Attribute(context.Background(), audioPath, segments, enrollRoot, 0.25)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Text != "정상" {
		t.Fatalf("expected only the valid segment, got %+v", results)
	}
}

// TestAttribute_ScoringFailureIsNotFatal сбой скоринга одной пары не
// прерывает вызов и не дисквалифицирует остальных
func TestAttribute_ScoringFailureIsNotFatal(t *testing.T) {
	audioPath, enrollRoot := testFixture(t)

	scorer := &mockScorer{
		scores: map[string]float64{"ref_000": 0.6},
		errFor: map[string]bool{"ref_001": true},
	}
	engine := NewEngine(scorer, DefaultConfig())

	results, err := engine.Attribute(context.Background(), audioPath,
		[]refine.RefinedSegment{segment(0.0, 1.0, "테스트")}, enrollRoot, 0.25)
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Speaker != "alice" {
		t.Errorf("expected alice despite bob scoring failure, got %q", results[0].Speaker)
	}
}

// TestAttribute_NoComparableScore все пары провалились -> unknown со
// счётом -1.0, не ошибка
func TestAttribute_NoComparableScore(t *testing.T) {
	audioPath, enrollRoot := testFixture(t)

	scorer := &mockScorer{errFor: map[string]bool{"ref_": true}}
	engine := NewEngine(scorer, DefaultConfig())

	results, err := engine.Attribute(context.Background(), audioPath,
		[]refine.RefinedSegment{segment(0.0, 1.0, "테스트")}, enrollRoot, 0.25)
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Speaker != UnknownSpeaker || results[0].Score != -1.0 {
		t.Errorf("got %q/%.4f, want unknown/-1.0", results[0].Speaker, results[0].Score)
	}
}

// TestAttribute_ScoreRounding счёт округляется до 4 знаков
func TestAttribute_ScoreRounding(t *testing.T) {
	audioPath, enrollRoot := testFixture(t)

	scorer := &mockScorer{scores: map[string]float64{
		"ref_000": 0.123456,
		"ref_001": 0.0,
	}}
	engine := NewEngine(scorer, DefaultConfig())

	results, err := engine.Attribute(context.Background(), audioPath,
		[]refine.RefinedSegment{segment(0.0, 1.0, "테스트")}, enrollRoot, 0.1)
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Score != 0.1235 {
		t.Errorf("expected rounded score 0.1235, got %v", results[0].Score)
	}
}

// TestAttribute_EmptyEnrollmentFatal пустой enrollment прерывает вызов
func TestAttribute_EmptyEnrollmentFatal(t *testing.T) {
	dir := t.TempDir()
	audioPath := filepath.Join(dir, "audio.wav")
	writeTestWAV(t, audioPath, 1.0)

	engine := NewEngine(&mockScorer{}, DefaultConfig())
	_, err := engine.Attribute(context.Background(), audioPath,
		[]refine.RefinedSegment{segment(0.0, 1.0, "테스트")}, t.TempDir(), 0.25)
	if err == nil {
		t.Fatal("expected error for empty enrollment root")
	}
}

// TestAttribute_WorkspaceCleanedUp временные артефакты не переживают вызов
func TestAttribute_WorkspaceCleanedUp(t *testing.T) {
	audioPath, enrollRoot := testFixture(t)

	tempBase := t.TempDir()
	cfg := DefaultConfig()
	cfg.TempDir = tempBase

	scorer := &mockScorer{scores: map[string]float64{"ref_": 0.5}}
	engine := NewEngine(scorer, cfg)

	_, err := engine.Attribute(context.Background(), audioPath,
		[]refine.RefinedSegment{segment(0.0, 1.0, "테스트")}, enrollRoot, 0.25)
	if err != nil {
		t.Fatal(err)
	}

	leftovers, err := filepath.Glob(filepath.Join(tempBase, "speakerid-*"))
	if err != nil {
		t.Fatal(err)
	}
	if len(leftovers) != 0 {
		t.Errorf("workspace not cleaned up: %v", leftovers)
	}
}

// TestAttribute_Progress прогресс доходит до (total, total)
func TestAttribute_Progress(t *testing.T) {
	audioPath, enrollRoot := testFixture(t)

	scorer := &mockScorer{scores: map[string]float64{"ref_": 0.5}}
	cfg := DefaultConfig()
	cfg.Workers = 1 // сериализуем воркеров, чтобы читать прогресс без гонки
	engine := NewEngine(scorer, cfg)

	var lastDone, lastTotal int
	engine.OnProgress = func(done, total int) {
		if done > lastDone {
			lastDone = done
		}
		lastTotal = total
	}

	segments := []refine.RefinedSegment{
		segment(0.0, 0.5, "하나"),
		segment(0.5, 1.0, "둘"),
		segment(1.0, 1.5, "셋"),
	}
	_, err := engine.Attribute(context.Background(), audioPath, segments, enrollRoot, 0.25)
	if err != nil {
		t.Fatal(err)
	}
	if lastDone != 3 || lastTotal != 3 {
		t.Errorf("progress ended at %d/%d, want 3/3", lastDone, lastTotal)
	}
}

// TestAttribute_CancelledContext отменённый контекст -> ошибка
func TestAttribute_CancelledContext(t *testing.T) {
	audioPath, enrollRoot := testFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine := NewEngine(&mockScorer{}, DefaultConfig())
	_, err := engine.Attribute(ctx, audioPath,
		[]refine.RefinedSegment{segment(0.0, 1.0, "테스트")}, enrollRoot, 0.25)
	if err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
