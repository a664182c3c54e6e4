package morph

import (
	"bufio"
	"embed"
	"log"
	"strings"
	"sync"
	"unicode"
)

//go:embed dictionaries/*.txt
var dictionariesFS embed.FS

// SuffixTagger классификатор окончаний на основе словарей суффиксов.
// Полноценный морфологический анализатор (Kiwi) остаётся внешним
// коллаборатором; для сегментации достаточно суффиксов종결/연결 어미
// плюс пунктуации.
type SuffixTagger struct {
	terminal      map[string]bool
	connective    map[string]bool
	maxSuffixRune int
	mu            sync.RWMutex
	initialized   bool
}

// NewSuffixTagger создаёт новый SuffixTagger со встроенными словарями
func NewSuffixTagger() *SuffixTagger {
	t := &SuffixTagger{
		terminal:   make(map[string]bool),
		connective: make(map[string]bool),
	}
	t.loadDictionaries()
	return t
}

// loadDictionaries загружает словари из embedded файлов
func (t *SuffixTagger) loadDictionaries() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.initialized {
		return
	}

	termCount := t.loadDictionary("dictionaries/terminal_endings.txt", t.terminal)
	log.Printf("[Morph] Loaded %d terminal endings", termCount)

	connCount := t.loadDictionary("dictionaries/connective_endings.txt", t.connective)
	log.Printf("[Morph] Loaded %d connective endings", connCount)

	t.initialized = true
}

// loadDictionary загружает словарь из файла, возвращает число записей
func (t *SuffixTagger) loadDictionary(path string, dict map[string]bool) int {
	data, err := dictionariesFS.ReadFile(path)
	if err != nil {
		log.Printf("[Morph] Warning: could not load dictionary %s: %v", path, err)
		return 0
	}

	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	count := 0
	for scanner.Scan() {
		entry := strings.TrimSpace(scanner.Text())
		if entry == "" || strings.HasPrefix(entry, "#") {
			continue
		}
		dict[entry] = true
		if n := len([]rune(entry)); n > t.maxSuffixRune {
			t.maxSuffixRune = n
		}
		count++
	}
	return count
}

// ClassifyEnding определяет тип окончания токена.
// Сначала пунктуация, затем суффиксы по убыванию длины
// (при равной длине terminal имеет приоритет).
func (t *SuffixTagger) ClassifyEnding(token string) (Ending, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return EndingNone, nil
	}

	// Закрывающие кавычки и скобки не мешают классификации
	trimmed = strings.TrimRight(trimmed, "\"'»)]」』”’")

	if hasTerminalPunct(trimmed) {
		return EndingTerminal, nil
	}
	if hasConnectivePunct(trimmed) {
		return EndingConnective, nil
	}

	runes := []rune(strings.TrimRightFunc(trimmed, unicode.IsPunct))
	if len(runes) == 0 {
		return EndingNone, nil
	}

	maxLen := t.maxSuffixRune
	if maxLen > len(runes) {
		maxLen = len(runes)
	}
	for n := maxLen; n >= 1; n-- {
		suffix := string(runes[len(runes)-n:])
		if t.terminal[suffix] {
			return EndingTerminal, nil
		}
		if t.connective[suffix] {
			return EndingConnective, nil
		}
	}

	return EndingNone, nil
}

// SplitSentences разбивает строку на предложения по завершающим окончаниям.
// Позиции в рунах, чтобы корректно работать с хангылем.
func (t *SuffixTagger) SplitSentences(text string) ([]SentenceSpan, error) {
	runes := []rune(text)

	var spans []SentenceSpan
	sentenceStart := -1 // -1 = ещё не видели непробельных рун

	flush := func(end int) {
		if sentenceStart < 0 || end <= sentenceStart {
			return
		}
		spans = append(spans, SentenceSpan{
			StartChar: sentenceStart,
			EndChar:   end,
			Text:      strings.TrimSpace(string(runes[sentenceStart:end])),
		})
		sentenceStart = -1
	}

	tokenStart := -1
	for i := 0; i <= len(runes); i++ {
		atEnd := i == len(runes)
		if !atEnd && !unicode.IsSpace(runes[i]) {
			if tokenStart < 0 {
				tokenStart = i
			}
			if sentenceStart < 0 {
				sentenceStart = i
			}
			continue
		}

		if tokenStart >= 0 {
			token := string(runes[tokenStart:i])
			ending, err := t.ClassifyEnding(token)
			if err == nil && ending == EndingTerminal {
				flush(i)
			}
			tokenStart = -1
		}
		if atEnd {
			flush(i)
		}
	}

	return spans, nil
}

// hasTerminalPunct проверяет завершающую пунктуацию
func hasTerminalPunct(s string) bool {
	return strings.HasSuffix(s, ".") || strings.HasSuffix(s, "!") ||
		strings.HasSuffix(s, "?") || strings.HasSuffix(s, "…") ||
		strings.HasSuffix(s, "。") || strings.HasSuffix(s, "！") ||
		strings.HasSuffix(s, "？")
}

// hasConnectivePunct проверяет соединительную пунктуацию
func hasConnectivePunct(s string) bool {
	return strings.HasSuffix(s, ",") || strings.HasSuffix(s, ";") ||
		strings.HasSuffix(s, "、")
}

// Проверяем что SuffixTagger реализует Tagger
var _ Tagger = (*SuffixTagger)(nil)
