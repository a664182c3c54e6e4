package refine

import (
	"log"
	"strings"

	"speakerid/morph"
)

// Config параметры сегментации
type Config struct {
	// GapThreshold минимальная пауза (сек) после соединительного окончания,
	// при которой группа закрывается
	GapThreshold float64
	// MinDuration кандидаты короче этого (сек) сливаются с предыдущим
	// сегментом того же спикера
	MinDuration float64
}

// DefaultConfig возвращает параметры по умолчанию
func DefaultConfig() Config {
	return Config{
		GapThreshold: 0.5,
		MinDuration:  1.0,
	}
}

// Refiner собирает слова в предложения. Tagger внедряется при
// конструировании, глобального состояния нет — инстансы независимы.
type Refiner struct {
	tagger morph.Tagger
	config Config
}

// NewRefiner создаёт новый Refiner
func NewRefiner(tagger morph.Tagger, config Config) *Refiner {
	return &Refiner{
		tagger: tagger,
		config: config,
	}
}

// RefineTranscript нормализует сырой JSON и выполняет сегментацию
func (r *Refiner) RefineTranscript(data []byte) ([]RefinedSegment, error) {
	words, err := ParseTranscript(data)
	if err != nil {
		return nil, err
	}
	return r.Refine(words), nil
}

// Refine выполняет двухфазную сегментацию:
// 1) первичное разбиение — группа закрывается на смене спикера,
//    на завершающем окончании, либо на соединительном окончании с паузой;
// 2) слияние по длительности — кандидаты короче MinDuration приклеиваются
//    к предыдущему принятому сегменту, но только в пределах одного спикера.
// Каждое входное слово попадает ровно в один сегмент.
func (r *Refiner) Refine(words []Word) []RefinedSegment {
	if len(words) == 0 {
		return nil
	}

	var candidates []RefinedSegment
	var group []Word

	flush := func() {
		if len(group) == 0 {
			return
		}
		texts := make([]string, len(group))
		for i, w := range group {
			texts[i] = w.Text
		}
		candidates = append(candidates, RefinedSegment{
			Start:      group[0].Start,
			End:        group[len(group)-1].End,
			Text:       strings.Join(texts, " "),
			SpeakerTag: group[0].SpeakerTag,
		})
		group = group[:0]
	}

	for i := range words {
		w := &words[i]
		group = append(group, *w)

		var next *Word
		if i+1 < len(words) {
			next = &words[i+1]
		}

		// Смена спикера всегда закрывает группу: идентичность спикера
		// не может пересекать границу сегмента
		if next != nil && next.SpeakerTag != w.SpeakerTag {
			flush()
			continue
		}

		ending, err := r.tagger.ClassifyEnding(w.Text)
		if err != nil {
			// Сбой анализатора не должен ронять сегментацию
			log.Printf("[Refine] ending classification failed for %q: %v", w.Text, err)
			ending = morph.EndingNone
		}

		switch ending {
		case morph.EndingTerminal:
			flush()
		case morph.EndingConnective:
			if next == nil || next.Start-w.End >= r.config.GapThreshold {
				flush()
			}
		}
	}
	flush()

	// Слияние по длительности
	var out []RefinedSegment
	for _, c := range candidates {
		if c.Duration() < r.config.MinDuration && len(out) > 0 &&
			out[len(out)-1].SpeakerTag == c.SpeakerTag {
			prev := &out[len(out)-1]
			if c.End > prev.End {
				prev.End = c.End
			}
			prev.Text += " " + c.Text
			continue
		}
		out = append(out, c)
	}

	log.Printf("[Refine] %d words -> %d candidates -> %d segments",
		len(words), len(candidates), len(out))
	return out
}
