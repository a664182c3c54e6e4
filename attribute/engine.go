package attribute

import (
	"context"
	"fmt"
	"log"
	"math"
	"runtime"
	"sync"

	"speakerid/ai"
	"speakerid/audio"
	"speakerid/refine"
)

// Config параметры движка атрибуции
type Config struct {
	// DefaultThreshold порог похожести, когда вызов не задал свой
	DefaultThreshold float64
	// Workers число параллельных сегментов в скоринге
	Workers int
	// TempDir база для временных артефактов ("" = системный temp)
	TempDir string
}

// DefaultConfig возвращает параметры по умолчанию
func DefaultConfig() Config {
	return Config{
		DefaultThreshold: 0.25,
		Workers:          runtime.NumCPU(),
		TempDir:          "",
	}
}

// Engine сопоставляет сегменты с зарегистрированными голосами.
// Scorer внедряется при конструировании; движок не знает, какая модель
// за ним стоит.
type Engine struct {
	scorer ai.Scorer
	config Config

	// OnProgress опциональный callback прогресса скоринга (done, total)
	OnProgress func(done, total int)
}

// NewEngine создаёт движок атрибуции
func NewEngine(scorer ai.Scorer, config Config) *Engine {
	if config.Workers <= 0 {
		config.Workers = 1
	}
	return &Engine{
		scorer: scorer,
		config: config,
	}
}

// Attribute выполняет атрибуцию: на каждый не-вырожденный сегмент — лучший
// спикер по максимуму похожести среди его reference файлов, либо
// UnknownSpeaker, если лучший результат ниже порога.
//
// Фатальные ошибки (нечитаемое аудио, пустой enrollment) прерывают вызов
// целиком; сбой скоринга одной пары (сегмент, reference) только логируется.
// Все временные артефакты удаляются на любом пути выхода.
func (e *Engine) Attribute(
	ctx context.Context,
	audioPath string,
	segments []refine.RefinedSegment,
	enrollRoot string,
	threshold float64,
) ([]Result, error) {
	entries, err := DiscoverEnrollment(enrollRoot)
	if err != nil {
		return nil, err
	}

	// Нормализованный буфер строится один раз и дальше только читается
	samples, err := audio.LoadMono16k(audioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load audio %s: %w", audioPath, err)
	}

	ws, err := NewWorkspace(e.config.TempDir)
	if err != nil {
		return nil, err
	}
	defer ws.Cleanup()

	refs := e.normalizeReferences(entries, ws)

	// Вырожденные сегменты пропускаются до запуска воркеров,
	// чтобы total в прогрессе был честным
	type job struct {
		index      int
		start, end int
		segment    refine.RefinedSegment
	}
	var jobs []job
	for i, seg := range segments {
		start := int(seg.Start * float64(audio.TargetSampleRate))
		end := int(seg.End * float64(audio.TargetSampleRate))
		if start < 0 {
			start = 0
		}
		if end > len(samples) {
			end = len(samples)
		}
		if end <= start {
			log.Printf("[Attribute] skipping degenerate segment %d (%.2f-%.2f)", i, seg.Start, seg.End)
			continue
		}
		jobs = append(jobs, job{index: i, start: start, end: end, segment: seg})
	}

	results := make([]*Result, len(segments))
	var (
		wg   sync.WaitGroup
		sem  = make(chan struct{}, e.config.Workers)
		done int
		mu   sync.Mutex
	)

	for _, j := range jobs {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(j job) {
			defer wg.Done()
			defer func() { <-sem }()

			if ctx.Err() != nil {
				return
			}

			res := e.scoreSegment(ctx, ws, samples[j.start:j.end], j.index, j.segment, refs, threshold)

			mu.Lock()
			results[j.index] = res
			done++
			progress := done
			mu.Unlock()

			if e.OnProgress != nil {
				e.OnProgress(progress, len(jobs))
			}
		}(j)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("attribution aborted: %w", err)
	}

	out := make([]Result, 0, len(jobs))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}

	log.Printf("[Attribute] %d/%d segments attributed against %d speakers",
		len(out), len(segments), len(refs))
	return out, nil
}

// normalizedEntry спикер с reference файлами, приведёнными к mono 16kHz WAV
type normalizedEntry struct {
	name  string
	paths []string
}

// normalizeReferences приводит каждый reference к формату скоринга и
// материализует его в workspace. Сбой нормализации одного файла не
// дисквалифицирует спикера.
func (e *Engine) normalizeReferences(entries []EnrollmentEntry, ws *Workspace) []normalizedEntry {
	out := make([]normalizedEntry, 0, len(entries))
	for i, entry := range entries {
		ne := normalizedEntry{name: entry.SpeakerName}
		for j, ref := range entry.ReferencePaths {
			samples, err := audio.LoadMono16k(ref)
			if err != nil {
				log.Printf("[Attribute] failed to normalize reference %s: %v", ref, err)
				continue
			}
			path := ws.Path(fmt.Sprintf("ref_%03d_%03d.wav", i, j))
			if err := audio.SaveWAV(path, samples, audio.TargetSampleRate); err != nil {
				log.Printf("[Attribute] failed to write reference artifact %s: %v", path, err)
				continue
			}
			ne.paths = append(ne.paths, path)
		}
		if len(ne.paths) == 0 {
			log.Printf("[Attribute] speaker %s has no usable references", entry.SpeakerName)
		}
		out = append(out, ne)
	}
	return out
}

// scoreSegment извлекает срез сегмента, материализует его и находит
// лучшего спикера по максимуму похожести
func (e *Engine) scoreSegment(
	ctx context.Context,
	ws *Workspace,
	samples []float32,
	index int,
	seg refine.RefinedSegment,
	refs []normalizedEntry,
	threshold float64,
) *Result {
	segPath := ws.Path(fmt.Sprintf("seg_%04d.wav", index))
	if err := audio.SaveWAV(segPath, samples, audio.TargetSampleRate); err != nil {
		log.Printf("[Attribute] failed to write segment artifact %s: %v", segPath, err)
		return &Result{
			Start: seg.Start, End: seg.End, Text: seg.Text,
			Speaker: UnknownSpeaker, Score: -1.0,
		}
	}

	bestScore := math.Inf(-1)
	bestSpeaker := ""
	found := false

	for _, entry := range refs {
		// Максимум по reference файлам спикера
		for _, refPath := range entry.paths {
			if ctx.Err() != nil {
				return nil
			}
			score, err := e.scorer.Score(ctx, segPath, refPath)
			if err != nil {
				log.Printf("[Attribute] scoring failed (segment %d vs %s): %v", index, refPath, err)
				continue
			}
			if !found || score > bestScore {
				bestScore = score
				bestSpeaker = entry.name
				found = true
			}
		}
	}

	if !found {
		return &Result{
			Start: seg.Start, End: seg.End, Text: seg.Text,
			Speaker: UnknownSpeaker, Score: -1.0,
		}
	}

	speaker := UnknownSpeaker
	if bestScore >= threshold {
		speaker = bestSpeaker
	}

	return &Result{
		Start:   seg.Start,
		End:     seg.End,
		Text:    seg.Text,
		Speaker: speaker,
		Score:   roundScore(bestScore),
	}
}

// roundScore округляет до 4 знаков после запятой
func roundScore(v float64) float64 {
	return math.Round(v*10000) / 10000
}
