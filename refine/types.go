// Package refine пересобирает сырой STT-вывод в связные предложения.
// Границы определяются сменой спикера, завершающими окончаниями (종결어미)
// и паузами между словами; короткие кандидаты сливаются с предыдущим
// сегментом того же спикера, чтобы не отдавать скорингу слишком
// короткие фрагменты.
package refine

// Word слово с точными таймстемпами
type Word struct {
	Start      float64 `json:"start"`             // Начало в секундах
	End        float64 `json:"end"`               // Конец в секундах
	Text       string  `json:"text"`              // Текст слова (не пустой)
	SpeakerTag string  `json:"speaker,omitempty"` // Метка диаризации, "" если её не было
}

// RefinedSegment предложение, собранное из подряд идущих слов одного спикера
type RefinedSegment struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Text       string  `json:"text"`
	SpeakerTag string  `json:"speaker,omitempty"`
}

// Duration возвращает длительность сегмента в секундах
func (s RefinedSegment) Duration() float64 {
	return s.End - s.Start
}
