package ai

import (
	"fmt"
	"log"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var (
	ortInitOnce sync.Once
	ortInitErr  error
)

// initONNXRuntime инициализирует ONNX Runtime один раз на процесс
func initONNXRuntime() error {
	ortInitOnce.Do(func() {
		if lib := os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH"); lib != "" {
			ort.SetSharedLibraryPath(lib)
		}
		ortInitErr = ort.InitializeEnvironment()
	})
	return ortInitErr
}

// OnnxEmbedderConfig конфигурация прямого ONNX бэкенда
type OnnxEmbedderConfig struct {
	ModelPath string
	Fbank     FbankConfig
}

// DefaultOnnxEmbedderConfig возвращает конфигурацию для WeSpeaker/ERes2Net
// моделей, экспортированных в ONNX со входом [B, T, 80]
func DefaultOnnxEmbedderConfig(modelPath string) OnnxEmbedderConfig {
	return OnnxEmbedderConfig{
		ModelPath: modelPath,
		Fbank:     DefaultFbankConfig(),
	}
}

// OnnxEmbedder считает speaker embeddings напрямую через ONNX Runtime.
// Используется для моделей, которые sherpa-onnx не оборачивает.
type OnnxEmbedder struct {
	config  OnnxEmbedderConfig
	session *ort.DynamicAdvancedSession
	fbank   *FbankProcessor
	dim     int
	mu      sync.Mutex
}

// NewOnnxEmbedder создаёт новый энкодер
func NewOnnxEmbedder(config OnnxEmbedderConfig) (*OnnxEmbedder, error) {
	if _, err := os.Stat(config.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", config.ModelPath)
	}

	if err := initONNXRuntime(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX Runtime: %w", err)
	}

	inputInfo, outputInfo, err := ort.GetInputOutputInfo(config.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get model info: %w", err)
	}

	inputNames := make([]string, len(inputInfo))
	for i, info := range inputInfo {
		inputNames[i] = info.Name
	}
	outputNames := make([]string, len(outputInfo))
	for i, info := range outputInfo {
		outputNames[i] = info.Name
	}
	log.Printf("[OnnxEmbedder] inputs: %v, outputs: %v", inputNames, outputNames)

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer options.Destroy()

	session, err := ort.NewDynamicAdvancedSession(
		config.ModelPath,
		inputNames,
		outputNames,
		options,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &OnnxEmbedder{
		config:  config,
		session: session,
		fbank:   NewFbankProcessor(config.Fbank),
	}, nil
}

// Encode извлекает embedding из аудио (mono 16kHz)
func (e *OnnxEmbedder) Encode(samples []float32) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return nil, fmt.Errorf("encoder is closed")
	}
	if len(samples) < e.config.Fbank.SampleRate/10 {
		return nil, fmt.Errorf("audio too short for embedding (%d samples)", len(samples))
	}

	fbank := e.fbank.Compute(samples)
	numFrames := len(fbank)
	nMels := e.config.Fbank.NMels

	// Вход [1, T, 80], row-major
	flatInput := make([]float32, numFrames*nMels)
	for t := 0; t < numFrames; t++ {
		copy(flatInput[t*nMels:], fbank[t])
	}

	inputShape := ort.NewShape(1, int64(numFrames), int64(nMels))
	inputTensor, err := ort.NewTensor(inputShape, flatInput)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	outputs := []ort.Value{nil}
	if err := e.session.Run([]ort.Value{inputTensor}, outputs); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	defer func() {
		for _, out := range outputs {
			if out != nil {
				out.Destroy()
			}
		}
	}()

	outputTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected output tensor type")
	}

	embedding := normalizeVector(outputTensor.GetData())
	result := make([]float32, len(embedding))
	copy(result, embedding)
	e.dim = len(result)

	return result, nil
}

// Dim возвращает размерность embedding (0 до первого Encode)
func (e *OnnxEmbedder) Dim() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dim
}

// Close освобождает ресурсы
func (e *OnnxEmbedder) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session != nil {
		e.session.Destroy()
		e.session = nil
	}
}

var _ Embedder = (*OnnxEmbedder)(nil)
