// Package audio предоставляет чтение и запись аудиофайлов (WAV, MP3),
// ресемплинг и сведение каналов. Весь код на чистом Go, без FFmpeg.
package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"sync"
)

// WAVWriter потоковый писатель WAV файлов (PCM16)
type WAVWriter struct {
	file           *os.File
	filePath       string
	sampleRate     int
	channels       int
	bitsPerSample  int
	samplesWritten int64
	mu             sync.Mutex
}

// NewWAVWriter создаёт новый WAV writer
func NewWAVWriter(filePath string, sampleRate, channels, bitsPerSample int) (*WAVWriter, error) {
	file, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create WAV file: %w", err)
	}

	w := &WAVWriter{
		file:          file,
		filePath:      filePath,
		sampleRate:    sampleRate,
		channels:      channels,
		bitsPerSample: bitsPerSample,
	}

	// Записываем placeholder header, финальный размер проставит Finalize
	if err := w.writeHeader(); err != nil {
		file.Close()
		return nil, err
	}

	return w, nil
}

// writeHeader записывает WAV header
func (w *WAVWriter) writeHeader() error {
	w.file.Seek(0, 0)

	byteRate := w.sampleRate * w.channels * w.bitsPerSample / 8
	blockAlign := w.channels * w.bitsPerSample / 8
	dataSize := uint32(w.samplesWritten * int64(w.bitsPerSample/8))

	// RIFF header
	w.file.WriteString("RIFF")
	binary.Write(w.file, binary.LittleEndian, uint32(36+dataSize))
	w.file.WriteString("WAVE")

	// fmt chunk
	w.file.WriteString("fmt ")
	binary.Write(w.file, binary.LittleEndian, uint32(16))           // chunk size
	binary.Write(w.file, binary.LittleEndian, uint16(1))            // PCM
	binary.Write(w.file, binary.LittleEndian, uint16(w.channels))   // channels
	binary.Write(w.file, binary.LittleEndian, uint32(w.sampleRate)) // sample rate
	binary.Write(w.file, binary.LittleEndian, uint32(byteRate))     // byte rate
	binary.Write(w.file, binary.LittleEndian, uint16(blockAlign))   // block align
	binary.Write(w.file, binary.LittleEndian, uint16(w.bitsPerSample))

	// data chunk
	w.file.WriteString("data")
	binary.Write(w.file, binary.LittleEndian, dataSize)

	return nil
}

// Write записывает float32 семплы в файл (конвертирует в PCM16)
func (w *WAVWriter) Write(samples []float32) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		// Clamp
		if s > 1.0 {
			s = 1.0
		} else if s < -1.0 {
			s = -1.0
		}
		sample := int16(s * 32767)
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(sample))
	}

	if _, err := w.file.Write(buf); err != nil {
		return err
	}
	w.samplesWritten += int64(len(samples))
	return nil
}

// Finalize завершает запись и обновляет header
func (w *WAVWriter) Finalize() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writeHeader()
}

// Close закрывает файл
func (w *WAVWriter) Close() error {
	w.Finalize()
	return w.file.Close()
}

// FilePath возвращает путь к файлу
func (w *WAVWriter) FilePath() string {
	return w.filePath
}

// SaveWAV сохраняет моно float32 семплы в WAV файл (PCM16)
func SaveWAV(path string, samples []float32, sampleRate int) error {
	w, err := NewWAVWriter(path, sampleRate, 1, 16)
	if err != nil {
		return err
	}
	if err := w.Write(samples); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// LoadWAV читает WAV файл целиком и возвращает interleaved float32 семплы.
// Парсит chunk-структуру честно: загруженные пользователем файлы часто
// содержат LIST/fact chunks перед data, фиксированные 44 байта не работают.
func LoadWAV(path string) (*Clip, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read WAV file: %w", err)
	}

	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, fmt.Errorf("not a RIFF/WAVE file: %s", path)
	}

	var (
		channels      int
		sampleRate    int
		bitsPerSample int
		audioFormat   int
		pcmData       []byte
	)

	// Обходим chunks
	pos := 12
	for pos+8 <= len(data) {
		chunkID := string(data[pos : pos+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		if body+chunkSize > len(data) {
			chunkSize = len(data) - body
		}

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return nil, fmt.Errorf("malformed fmt chunk in %s", path)
			}
			audioFormat = int(binary.LittleEndian.Uint16(data[body : body+2]))
			channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bitsPerSample = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
		case "data":
			pcmData = data[body : body+chunkSize]
		}

		// Chunks выровнены по 2 байта
		pos = body + chunkSize
		if chunkSize%2 == 1 {
			pos++
		}
	}

	if channels == 0 || sampleRate == 0 {
		return nil, fmt.Errorf("missing fmt chunk in %s", path)
	}
	if pcmData == nil {
		return nil, fmt.Errorf("missing data chunk in %s", path)
	}

	var samples []float32
	switch {
	case audioFormat == 1 && bitsPerSample == 16:
		n := len(pcmData) / 2
		samples = make([]float32, n)
		for i := 0; i < n; i++ {
			s := int16(binary.LittleEndian.Uint16(pcmData[i*2:]))
			samples[i] = float32(s) / 32768.0
		}
	case audioFormat == 3 && bitsPerSample == 32:
		// IEEE float
		n := len(pcmData) / 4
		samples = make([]float32, n)
		for i := 0; i < n; i++ {
			bits := binary.LittleEndian.Uint32(pcmData[i*4:])
			samples[i] = math.Float32frombits(bits)
		}
	default:
		return nil, fmt.Errorf("unsupported WAV encoding (format=%d, bits=%d) in %s",
			audioFormat, bitsPerSample, path)
	}

	return &Clip{
		Samples:    samples,
		Channels:   channels,
		SampleRate: sampleRate,
	}, nil
}
