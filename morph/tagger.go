// Package morph предоставляет морфологическую классификацию окончаний
// для сегментации корейской речи на предложения.
package morph

// Ending тип окончания токена
type Ending int

const (
	// EndingNone токен не несёт функции окончания
	EndingNone Ending = iota
	// EndingTerminal завершающее окончание (종결어미, EF) — конец предложения
	EndingTerminal
	// EndingConnective соединительное окончание (연결어미, EC) — граница
	// возможна, но не обязательна
	EndingConnective
)

// String возвращает строковое представление
func (e Ending) String() string {
	switch e {
	case EndingTerminal:
		return "terminal"
	case EndingConnective:
		return "connective"
	default:
		return "none"
	}
}

// SentenceSpan предложение внутри строки с позициями в рунах
type SentenceSpan struct {
	StartChar int    `json:"startChar"`
	EndChar   int    `json:"endChar"`
	Text      string `json:"text"`
}

// Tagger классифицирует окончания токенов и разбивает текст на предложения.
// Реализация внедряется в Refiner при конструировании: движок сегментации
// не зависит от конкретного анализатора.
type Tagger interface {
	// ClassifyEnding определяет тип окончания токена
	ClassifyEnding(token string) (Ending, error)
	// SplitSentences разбивает произвольную строку на предложения
	SplitSentences(text string) ([]SentenceSpan, error)
}
