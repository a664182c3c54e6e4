// Package ai предоставляет вычисление speaker embeddings и сравнение
// голосов. Два бэкенда: sherpa-onnx (готовый extractor) и прямой ONNX
// Runtime со своим fbank фронтендом.
package ai

import (
	"context"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Scorer сравнивает два аудиофайла и возвращает скалярную похожесть.
// Контракт: детерминированный float, сравнимый в пределах одного процесса;
// больше = более похожи.
type Scorer interface {
	Score(ctx context.Context, refA, refB string) (float64, error)
}

// Embedder преобразует аудио (mono 16kHz) в L2-нормированный вектор
type Embedder interface {
	Encode(samples []float32) ([]float32, error)
	Dim() int
	Close()
}

// CosineSimilarity вычисляет косинусное сходство двух векторов, [-1, 1]
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	fa := make([]float64, len(a))
	fb := make([]float64, len(b))
	for i := range a {
		fa[i] = float64(a[i])
		fb[i] = float64(b[i])
	}

	normA := floats.Norm(fa, 2)
	normB := floats.Norm(fb, 2)
	if normA == 0 || normB == 0 {
		return 0
	}

	return floats.Dot(fa, fb) / (normA * normB)
}

// normalizeVector нормализует вектор до единичной длины
func normalizeVector(v []float32) []float32 {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x * x)
	}
	norm := float32(math.Sqrt(sumSq))
	if norm < 1e-6 {
		return v
	}

	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}
