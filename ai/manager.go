package ai

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"

	"speakerid/audio"
)

// BackendType тип embedding бэкенда
type BackendType string

const (
	BackendSherpa BackendType = "sherpa"
	BackendOnnx   BackendType = "onnx"
)

// ManagerConfig конфигурация менеджера
type ManagerConfig struct {
	Backend    BackendType
	ModelPath  string
	NumThreads int
	Provider   string
}

// Manager владеет активным Embedder и реализует Scorer поверх него.
// Embeddings файлов кэшируются по пути+mtime: reference файлы enrollment
// статичны и не должны пересчитываться на каждый сегмент.
type Manager struct {
	config   ManagerConfig
	embedder Embedder

	cacheMu sync.Mutex
	cache   map[string]cachedEmbedding
}

type cachedEmbedding struct {
	modTime   int64
	size      int64
	embedding []float32
}

// maxCacheEntries ограничивает рост кэша: временные файлы сегментов
// имеют уникальные имена и никогда не переиспользуются
const maxCacheEntries = 1024

// NewManager создаёт менеджер и сразу загружает модель выбранного бэкенда.
// Ошибка загрузки фатальна: сервис без модели бесполезен.
func NewManager(config ManagerConfig) (*Manager, error) {
	var embedder Embedder
	var err error

	switch config.Backend {
	case BackendSherpa:
		cfg := DefaultSherpaEmbedderConfig(config.ModelPath)
		if config.NumThreads > 0 {
			cfg.NumThreads = config.NumThreads
		}
		if config.Provider != "" {
			cfg.Provider = config.Provider
		}
		embedder, err = NewSherpaEmbedder(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create sherpa embedder: %w", err)
		}

	case BackendOnnx:
		embedder, err = NewOnnxEmbedder(DefaultOnnxEmbedderConfig(config.ModelPath))
		if err != nil {
			return nil, fmt.Errorf("failed to create onnx embedder: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported embedding backend: %s", config.Backend)
	}

	log.Printf("[AI] embedding backend ready: %s (model=%s)", config.Backend, config.ModelPath)
	return &Manager{
		config:   config,
		embedder: embedder,
		cache:    make(map[string]cachedEmbedding),
	}, nil
}

// EmbedFile декодирует файл, приводит к mono 16kHz и считает embedding.
// Результат кэшируется по пути и mtime.
func (m *Manager) EmbedFile(path string) ([]float32, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	m.cacheMu.Lock()
	if entry, ok := m.cache[path]; ok &&
		entry.modTime == info.ModTime().UnixNano() && entry.size == info.Size() {
		m.cacheMu.Unlock()
		return entry.embedding, nil
	}
	m.cacheMu.Unlock()

	samples, err := audio.LoadMono16k(path)
	if err != nil {
		return nil, err
	}

	embedding, err := m.embedder.Encode(samples)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", path, err)
	}

	m.cacheMu.Lock()
	if len(m.cache) >= maxCacheEntries {
		m.cache = make(map[string]cachedEmbedding)
	}
	m.cache[path] = cachedEmbedding{
		modTime:   info.ModTime().UnixNano(),
		size:      info.Size(),
		embedding: embedding,
	}
	m.cacheMu.Unlock()

	return embedding, nil
}

// Score сравнивает два аудиофайла: косинусное сходство их embeddings
func (m *Manager) Score(ctx context.Context, refA, refB string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	embA, err := m.EmbedFile(refA)
	if err != nil {
		return 0, err
	}

	if err := ctx.Err(); err != nil {
		return 0, err
	}

	embB, err := m.EmbedFile(refB)
	if err != nil {
		return 0, err
	}

	return CosineSimilarity(embA, embB), nil
}

// Backend возвращает тип активного бэкенда
func (m *Manager) Backend() BackendType {
	return m.config.Backend
}

// Close освобождает ресурсы бэкенда
func (m *Manager) Close() {
	if m.embedder != nil {
		m.embedder.Close()
	}
}

var _ Scorer = (*Manager)(nil)
