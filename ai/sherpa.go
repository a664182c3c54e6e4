package ai

import (
	"fmt"
	"log"
	"os"
	"runtime"
	"sync"

	sherpa "github.com/k2-fsa/sherpa-onnx-go/sherpa_onnx"
)

// SherpaEmbedderConfig конфигурация sherpa-onnx бэкенда
type SherpaEmbedderConfig struct {
	ModelPath  string // ONNX модель embedding extractor (3dspeaker/wespeaker/eres2net)
	NumThreads int
	Provider   string // cpu, cuda, coreml, auto
}

// detectBestProvider определяет лучший provider для текущей платформы
func detectBestProvider() string {
	if runtime.GOOS == "darwin" && runtime.GOARCH == "arm64" {
		return "coreml"
	}
	return "cpu"
}

// DefaultSherpaEmbedderConfig возвращает конфигурацию по умолчанию
func DefaultSherpaEmbedderConfig(modelPath string) SherpaEmbedderConfig {
	return SherpaEmbedderConfig{
		ModelPath:  modelPath,
		NumThreads: 4,
		Provider:   "auto",
	}
}

// SherpaEmbedder считает speaker embeddings через sherpa-onnx extractor.
// Фронтенд (fbank) у sherpa свой, на вход подаются сырые семплы 16kHz.
type SherpaEmbedder struct {
	config    SherpaEmbedderConfig
	extractor *sherpa.SpeakerEmbeddingExtractor
	mu        sync.Mutex
}

// NewSherpaEmbedder создаёт новый extractor
func NewSherpaEmbedder(config SherpaEmbedderConfig) (*SherpaEmbedder, error) {
	if _, err := os.Stat(config.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("embedding model not found: %s", config.ModelPath)
	}

	provider := config.Provider
	if provider == "auto" || provider == "" {
		provider = detectBestProvider()
	}

	sherpaConfig := sherpa.SpeakerEmbeddingExtractorConfig{
		Model:      config.ModelPath,
		NumThreads: config.NumThreads,
		Debug:      0,
		Provider:   provider,
	}

	extractor := sherpa.NewSpeakerEmbeddingExtractor(&sherpaConfig)
	if extractor == nil {
		// Если аппаратный provider не завёлся, пробуем CPU
		if provider != "cpu" {
			log.Printf("[SherpaEmbedder] %s provider failed, falling back to CPU", provider)
			sherpaConfig.Provider = "cpu"
			extractor = sherpa.NewSpeakerEmbeddingExtractor(&sherpaConfig)
		}
		if extractor == nil {
			return nil, fmt.Errorf("failed to create sherpa-onnx embedding extractor")
		}
		provider = "cpu"
	}

	log.Printf("[SherpaEmbedder] initialized: provider=%s, model=%s, dim=%d",
		provider, config.ModelPath, extractor.Dim())

	config.Provider = provider
	return &SherpaEmbedder{
		config:    config,
		extractor: extractor,
	}, nil
}

// Encode извлекает embedding из аудио (mono 16kHz)
func (e *SherpaEmbedder) Encode(samples []float32) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.extractor == nil {
		return nil, fmt.Errorf("extractor is closed")
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("empty audio")
	}

	stream := e.extractor.CreateStream()
	if stream == nil {
		return nil, fmt.Errorf("failed to create extractor stream")
	}
	defer sherpa.DeleteOnlineStream(stream)

	stream.AcceptWaveform(16000, samples)
	stream.InputFinished()

	if !e.extractor.IsReady(stream) {
		return nil, fmt.Errorf("audio too short for embedding (%d samples)", len(samples))
	}

	embedding := e.extractor.Compute(stream)
	if len(embedding) == 0 {
		return nil, fmt.Errorf("extractor returned empty embedding")
	}

	return normalizeVector(embedding), nil
}

// Dim возвращает размерность embedding
func (e *SherpaEmbedder) Dim() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.extractor == nil {
		return 0
	}
	return e.extractor.Dim()
}

// Close освобождает ресурсы
func (e *SherpaEmbedder) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.extractor != nil {
		sherpa.DeleteSpeakerEmbeddingExtractor(e.extractor)
		e.extractor = nil
	}
}

var _ Embedder = (*SherpaEmbedder)(nil)
