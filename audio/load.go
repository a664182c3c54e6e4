package audio

import (
	"fmt"
	"path/filepath"
	"strings"
)

// TargetSampleRate частота, которую ожидает speaker embedding модель (16kHz)
const TargetSampleRate = 16000

// Clip декодированный аудиофайл: interleaved семплы + параметры
type Clip struct {
	Samples    []float32 // interleaved, [-1.0, 1.0]
	Channels   int
	SampleRate int
}

// Duration возвращает длительность в секундах
func (c *Clip) Duration() float64 {
	if c.SampleRate == 0 || c.Channels == 0 {
		return 0
	}
	return float64(len(c.Samples)/c.Channels) / float64(c.SampleRate)
}

// Mono сводит все каналы в один усреднением
func (c *Clip) Mono() []float32 {
	if c.Channels <= 1 {
		return c.Samples
	}

	frames := len(c.Samples) / c.Channels
	mono := make([]float32, frames)
	for i := 0; i < frames; i++ {
		sum := float32(0)
		for ch := 0; ch < c.Channels; ch++ {
			sum += c.Samples[i*c.Channels+ch]
		}
		mono[i] = sum / float32(c.Channels)
	}
	return mono
}

// supportedExtensions расширения, которые распознаются при обходе enrollment
// директорий (без учёта регистра)
var supportedExtensions = map[string]bool{
	".wav": true,
	".mp3": true,
}

// IsAudioFile проверяет расширение файла (case-insensitive)
func IsAudioFile(path string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(path))]
}

// Load декодирует аудиофайл по расширению
func Load(path string) (*Clip, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return LoadWAV(path)
	case ".mp3":
		return LoadMP3(path)
	default:
		return nil, fmt.Errorf("unsupported audio format: %s", path)
	}
}

// LoadMono16k декодирует файл и приводит его к mono 16kHz —
// единый формат для всех операций сравнения голосов
func LoadMono16k(path string) ([]float32, error) {
	clip, err := Load(path)
	if err != nil {
		return nil, err
	}
	return Resample(clip.Mono(), clip.SampleRate, TargetSampleRate), nil
}
