package ai

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// FbankConfig конфигурация log-mel fbank фронтенда (kaldi-совместимый)
type FbankConfig struct {
	SampleRate int
	NMels      int
	HopLength  int     // 10ms при 16kHz = 160
	WinLength  int     // 25ms при 16kHz = 400
	NFFT       int     // 512 для 80 mels
	Preemph    float64 // коэффициент предыскажения, 0.97
	CMN        bool    // вычитание среднего по каждой mel-компоненте
}

// DefaultFbankConfig возвращает конфигурацию для WeSpeaker/3D-Speaker
// embedding моделей (80 mel, 16kHz)
func DefaultFbankConfig() FbankConfig {
	return FbankConfig{
		SampleRate: 16000,
		NMels:      80,
		HopLength:  160,
		WinLength:  400,
		NFFT:       512,
		Preemph:    0.97,
		CMN:        true,
	}
}

// FbankProcessor вычисляет log-mel спектрограммы для embedding моделей
type FbankProcessor struct {
	config     FbankConfig
	melFilters [][]float64
	window     []float64
	fft        *fourier.FFT
}

// NewFbankProcessor создаёт новый процессор
func NewFbankProcessor(config FbankConfig) *FbankProcessor {
	return &FbankProcessor{
		config:     config,
		melFilters: melFilterbank(config.NFFT, config.NMels, config.SampleRate),
		window:     hannWindow(config.WinLength),
		fft:        fourier.NewFFT(config.NFFT),
	}
}

// Compute вычисляет log-mel fbank, результат [numFrames][nMels].
// Фреймы выровнены по левому краю, без центрирования.
func (p *FbankProcessor) Compute(samples []float32) [][]float32 {
	cfg := p.config

	// Предыскажение поднимает высокие частоты, как kaldi fbank
	emph := make([]float64, len(samples))
	for i := range samples {
		if i == 0 {
			emph[i] = float64(samples[i])
		} else {
			emph[i] = float64(samples[i]) - cfg.Preemph*float64(samples[i-1])
		}
	}

	numFrames := 1
	if len(emph) >= cfg.WinLength {
		numFrames = (len(emph)-cfg.WinLength)/cfg.HopLength + 1
	}

	fbank := make([][]float32, numFrames)
	frameData := make([]float64, cfg.NFFT)
	powerSpec := make([]float64, cfg.NFFT/2+1)

	for frame := 0; frame < numFrames; frame++ {
		frameStart := frame * cfg.HopLength

		for i := 0; i < cfg.NFFT; i++ {
			frameData[i] = 0
		}
		for i := 0; i < cfg.WinLength; i++ {
			idx := frameStart + i
			if idx < len(emph) {
				frameData[i] = emph[idx] * p.window[i]
			}
		}

		coeffs := p.fft.Coefficients(nil, frameData)
		for i := 0; i <= cfg.NFFT/2; i++ {
			re := real(coeffs[i])
			im := imag(coeffs[i])
			powerSpec[i] = re*re + im*im
		}

		fbank[frame] = make([]float32, cfg.NMels)
		for m := 0; m < cfg.NMels; m++ {
			sum := 0.0
			for k := range powerSpec {
				sum += powerSpec[k] * p.melFilters[m][k]
			}
			if sum < 1e-9 {
				sum = 1e-9
			}
			fbank[frame][m] = float32(math.Log(sum))
		}
	}

	if cfg.CMN {
		applyCMN(fbank)
	}

	return fbank
}

// applyCMN вычитает среднее по времени из каждой mel-компоненты;
// embedding модели WeSpeaker обучены на нормированных фичах
func applyCMN(fbank [][]float32) {
	if len(fbank) == 0 {
		return
	}
	nMels := len(fbank[0])
	for m := 0; m < nMels; m++ {
		mean := float32(0)
		for t := range fbank {
			mean += fbank[t][m]
		}
		mean /= float32(len(fbank))
		for t := range fbank {
			fbank[t][m] -= mean
		}
	}
}

// melFilterbank строит треугольные mel-фильтры (HTK формула, в Hz)
func melFilterbank(nFFT, nMels, sampleRate int) [][]float64 {
	hzToMel := func(hz float64) float64 {
		return 2595.0 * math.Log10(1.0+hz/700.0)
	}
	melToHz := func(mel float64) float64 {
		return 700.0 * (math.Pow(10.0, mel/2595.0) - 1.0)
	}

	numBins := nFFT/2 + 1
	fMax := float64(sampleRate) / 2.0

	allFreqs := make([]float64, numBins)
	for i := range allFreqs {
		allFreqs[i] = float64(i) * fMax / float64(numBins-1)
	}

	// nMels + 2 опорные точки: левый край, центры, правый край
	mMin := hzToMel(0)
	mMax := hzToMel(fMax)
	fPts := make([]float64, nMels+2)
	for i := range fPts {
		mel := mMin + float64(i)*(mMax-mMin)/float64(nMels+1)
		fPts[i] = melToHz(mel)
	}

	filters := make([][]float64, nMels)
	for m := 0; m < nMels; m++ {
		filters[m] = make([]float64, numBins)
		for k, freq := range allFreqs {
			lower := (freq - fPts[m]) / (fPts[m+1] - fPts[m])
			upper := (fPts[m+2] - freq) / (fPts[m+2] - fPts[m+1])
			val := math.Min(lower, upper)
			if val < 0 {
				val = 0
			}
			filters[m][k] = val
		}
	}

	return filters
}

// hannWindow создаёт окно Ханна
func hannWindow(size int) []float64 {
	window := make([]float64, size)
	for i := range window {
		window[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(size-1)))
	}
	return window
}
