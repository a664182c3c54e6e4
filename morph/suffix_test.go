package morph

import "testing"

// TestClassifyEnding_Terminal токены с завершающими окончаниями
func TestClassifyEnding_Terminal(t *testing.T) {
	tagger := NewSuffixTagger()

	for _, token := range []string{
		"합니다",
		"하세요",
		"좋아요",
		"갔습니까",
		"먹는다",
		"그렇죠",
	} {
		ending, err := tagger.ClassifyEnding(token)
		if err != nil {
			t.Fatalf("ClassifyEnding(%q): %v", token, err)
		}
		if ending != EndingTerminal {
			t.Errorf("ClassifyEnding(%q) = %v, want terminal", token, ending)
		}
	}
}

// TestClassifyEnding_Connective токены с соединительными окончаниями
func TestClassifyEnding_Connective(t *testing.T) {
	tagger := NewSuffixTagger()

	for _, token := range []string{
		"먹으면서",
		"좋지만",
		"그러니까",
		"하려고",
		"와서",
	} {
		ending, err := tagger.ClassifyEnding(token)
		if err != nil {
			t.Fatalf("ClassifyEnding(%q): %v", token, err)
		}
		if ending != EndingConnective {
			t.Errorf("ClassifyEnding(%q) = %v, want connective", token, ending)
		}
	}
}

// TestClassifyEnding_Punctuation пунктуация имеет приоритет над суффиксами
func TestClassifyEnding_Punctuation(t *testing.T) {
	tagger := NewSuffixTagger()

	cases := []struct {
		token string
		want  Ending
	}{
		{"안녕.", EndingTerminal},
		{"정말?", EndingTerminal},
		{"와!", EndingTerminal},
		{"그래서…", EndingTerminal},
		{"먼저,", EndingConnective},
		{"다음;", EndingConnective},
		// Завершающая пунктуация внутри кавычек
		{"\"했다.\"", EndingTerminal},
	}
	for _, c := range cases {
		got, err := tagger.ClassifyEnding(c.token)
		if err != nil {
			t.Fatalf("ClassifyEnding(%q): %v", c.token, err)
		}
		if got != c.want {
			t.Errorf("ClassifyEnding(%q) = %v, want %v", c.token, got, c.want)
		}
	}
}

// TestClassifyEnding_None токены без распознаваемого окончания
func TestClassifyEnding_None(t *testing.T) {
	tagger := NewSuffixTagger()

	for _, token := range []string{"안녕", "커피", "", "   ", "hello"} {
		ending, err := tagger.ClassifyEnding(token)
		if err != nil {
			t.Fatalf("ClassifyEnding(%q): %v", token, err)
		}
		if ending != EndingNone {
			t.Errorf("ClassifyEnding(%q) = %v, want none", token, ending)
		}
	}
}

// TestClassifyEnding_LongestSuffixWins длинный соединительный суффикс
// побеждает короткий завершающий: 는데 (connective) содержит 데,
// но классифицируется как connective
func TestClassifyEnding_LongestSuffixWins(t *testing.T) {
	tagger := NewSuffixTagger()

	ending, err := tagger.ClassifyEnding("말하는데")
	if err != nil {
		t.Fatal(err)
	}
	if ending != EndingConnective {
		t.Errorf("ClassifyEnding(말하는데) = %v, want connective", ending)
	}
}

// TestSplitSentences разбиение текста на предложения с позициями в рунах
func TestSplitSentences(t *testing.T) {
	tagger := NewSuffixTagger()

	text := "안녕하세요. 반갑습니다"
	spans, err := tagger.SplitSentences(text)
	if err != nil {
		t.Fatal(err)
	}
	if len(spans) != 2 {
		t.Fatalf("expected 2 sentences, got %d: %+v", len(spans), spans)
	}
	if spans[0].Text != "안녕하세요." {
		t.Errorf("first sentence: %q", spans[0].Text)
	}
	if spans[1].Text != "반갑습니다" {
		t.Errorf("second sentence: %q", spans[1].Text)
	}
	if spans[0].StartChar != 0 || spans[0].EndChar != 6 {
		t.Errorf("first span chars: %d-%d", spans[0].StartChar, spans[0].EndChar)
	}

	// Остаток без завершающего окончания всё равно попадает в выход
	runes := []rune(text)
	if got := string(runes[spans[1].StartChar:spans[1].EndChar]); got != "반갑습니다" {
		t.Errorf("second span does not address source runes: %q", got)
	}
}

// TestSplitSentences_Empty пустая строка и пробелы -> ноль предложений
func TestSplitSentences_Empty(t *testing.T) {
	tagger := NewSuffixTagger()

	for _, text := range []string{"", "   "} {
		spans, err := tagger.SplitSentences(text)
		if err != nil {
			t.Fatal(err)
		}
		if len(spans) != 0 {
			t.Errorf("SplitSentences(%q) = %d spans, want 0", text, len(spans))
		}
	}
}
