// Package attribute сопоставляет сегменты речи с зарегистрированными
// голосами (enrollment) через попарное сравнение speaker embeddings.
package attribute

// UnknownSpeaker метка для сегментов, не прошедших порог похожести
const UnknownSpeaker = "unknown"

// EnrollmentEntry один зарегистрированный голос: имя и reference файлы.
// Строится заново на каждый запрос из директории enrollment, никогда
// не персистится.
type EnrollmentEntry struct {
	SpeakerName    string
	ReferencePaths []string
}

// Result результат атрибуции одного сегмента
type Result struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
	Speaker string  `json:"speaker"`
	// Score лучшая наблюдённая похожесть, округлённая до 4 знаков;
	// -1.0 если сравнивать было не с чем. Поле заполняется независимо
	// от порогового решения, чтобы потребитель мог пере-порогировать
	// без пересчёта.
	Score float64 `json:"score"`
}
