package refine

import (
	"encoding/json"
	"fmt"
	"strings"
)

// rawWord слово в любом из принимаемых форматов: whisperX пишет "word",
// whisper.cpp и наш собственный бэкенд — "text"
type rawWord struct {
	Word    string   `json:"word"`
	Text    string   `json:"text"`
	Start   *float64 `json:"start"`
	End     *float64 `json:"end"`
	Speaker string   `json:"speaker"`
}

// rawSegment сегмент или chunk; время либо start/end, либо timestamp: [s, e]
type rawSegment struct {
	Start     *float64  `json:"start"`
	End       *float64  `json:"end"`
	Timestamp []float64 `json:"timestamp"`
	Text      string    `json:"text"`
	Speaker   string    `json:"speaker"`
	Words     []rawWord `json:"words"`
}

// rawTranscript верхний уровень: whisperX отдаёт segments,
// HF-пайплайны — плоский chunks
type rawTranscript struct {
	Segments []rawSegment `json:"segments"`
	Chunks   []rawSegment `json:"chunks"`
}

func (w *rawWord) text() string {
	if t := strings.TrimSpace(w.Word); t != "" {
		return t
	}
	return strings.TrimSpace(w.Text)
}

func (s *rawSegment) bounds() (float64, float64) {
	start, end := 0.0, 0.0
	if len(s.Timestamp) == 2 {
		start, end = s.Timestamp[0], s.Timestamp[1]
	}
	if s.Start != nil {
		start = *s.Start
	}
	if s.End != nil {
		end = *s.End
	}
	return start, end
}

// ParseTranscript нормализует сырой JSON любой принимаемой формы в плоскую
// последовательность Word. Вся вариативность входного формата изолирована
// здесь: дальше движок работает только с Word.
func ParseTranscript(data []byte) ([]Word, error) {
	var doc rawTranscript
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse transcript JSON: %w", err)
	}

	segments := doc.Segments
	if len(segments) == 0 {
		segments = doc.Chunks
	}

	var words []Word
	for i := range segments {
		seg := &segments[i]
		segStart, segEnd := seg.bounds()

		if len(seg.Words) == 0 {
			// Нет word-level данных: сегмент целиком становится
			// одним синтетическим словом
			text := strings.TrimSpace(seg.Text)
			if text == "" {
				continue
			}
			words = append(words, Word{
				Start:      segStart,
				End:        segEnd,
				Text:       text,
				SpeakerTag: seg.Speaker,
			})
			continue
		}

		for j := range seg.Words {
			w := &seg.Words[j]
			text := w.text()
			if text == "" {
				continue
			}

			start, end := 0.0, 0.0
			if w.Start != nil {
				start = *w.Start
			}
			if w.End != nil {
				end = *w.End
			}

			speaker := w.Speaker
			if speaker == "" {
				speaker = seg.Speaker
			}

			words = append(words, Word{
				Start:      start,
				End:        end,
				Text:       text,
				SpeakerTag: speaker,
			})
		}
	}

	return words, nil
}
