package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/hajimehoshi/go-mp3"
)

// LoadMP3 декодирует MP3 файл целиком в interleaved float32 семплы.
// go-mp3 всегда отдаёт signed 16-bit stereo PCM.
func LoadMP3(path string) (*Clip, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open MP3 file: %w", err)
	}
	defer file.Close()

	decoder, err := mp3.NewDecoder(file)
	if err != nil {
		return nil, fmt.Errorf("failed to create MP3 decoder: %w", err)
	}

	// Длина в байтах: 2 байта на семпл, 2 канала
	pcmData := make([]byte, decoder.Length())
	n, err := io.ReadFull(decoder, pcmData)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("failed to read PCM data: %w", err)
	}
	pcmData = pcmData[:n]

	totalSamples := n / 2
	samples := make([]float32, totalSamples)
	for i := 0; i < totalSamples; i++ {
		s := int16(binary.LittleEndian.Uint16(pcmData[i*2:]))
		samples[i] = float32(s) / 32768.0
	}

	return &Clip{
		Samples:    samples,
		Channels:   2,
		SampleRate: decoder.SampleRate(),
	}, nil
}
