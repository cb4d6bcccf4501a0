package signals

import (
	"strings"
	"testing"
	"time"
)

// #region count-tests

func TestCount_Empty(t *testing.T) {
	c := Count("")
	if c.Words != 0 {
		t.Errorf("expected 0 words, got %d", c.Words)
	}
	if c.Lines != 1 {
		t.Errorf("expected 1 line for empty text, got %d", c.Lines)
	}
	if c.Brackets != 0 || c.Semicolons != 0 || c.Keywords != 0 {
		t.Errorf("expected no punctuation or keywords, got %+v", c)
	}
}

func TestCount_Words(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"one", 1},
		{"one two  three", 3},
		{"  leading and trailing  ", 3},
		{"tabs\tand\nnewlines", 3},
		{"\n\n\n", 0},
	}
	for _, tt := range tests {
		if got := Count(tt.text).Words; got != tt.want {
			t.Errorf("Count(%q).Words = %d, want %d", tt.text, got, tt.want)
		}
	}
}

func TestCount_LinesBracketsSemicolons(t *testing.T) {
	c := Count("a();\nb[0] = {1};\n")
	if c.Lines != 3 {
		t.Errorf("expected 3 lines, got %d", c.Lines)
	}
	if c.Brackets != 6 {
		t.Errorf("expected 6 brackets, got %d", c.Brackets)
	}
	if c.Semicolons != 2 {
		t.Errorf("expected 2 semicolons, got %d", c.Semicolons)
	}
}

func TestCount_KeywordsWholeTokens(t *testing.T) {
	c := Count("def format(): return iffy if forest else classy")
	// def, return, if
	if c.Keywords != 3 {
		t.Errorf("expected 3 keywords, got %d", c.Keywords)
	}
}

// #endregion count-tests

// #region language-tests

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		current Language
		want    Language
	}{
		{"empty keeps current", "", LanguageJava, LanguageJava},
		{"python def", "def main():\n    pass", LanguageJava, LanguagePython},
		{"java", "public static void main", LanguagePython, LanguageJava},
		{"cpp include", "#include <iostream>", LanguagePython, LanguageCpp},
		{"python wins over java on class", "class Foo:", LanguageCpp, LanguagePython},
		{"no markers keeps current", "hello world", LanguageCpp, LanguageCpp},
		{"marker inside a word is ignored", "undefined classic voided", LanguageCpp, LanguageCpp},
		{"marker after an inner match", "undefined = def_x; def f(): pass", LanguageJava, LanguagePython},
		{"dunder main guard", "if __name__ == '__main__':", LanguageJava, LanguagePython},
		{"cpp marker inside a word", "include_dirs = stdcout", LanguageJava, LanguageCpp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectLanguage(tt.text, tt.current); got != tt.want {
				t.Errorf("DetectLanguage(%q) = %s, want %s", tt.text, got, tt.want)
			}
		})
	}
}

func TestDetectReportsNoMatch(t *testing.T) {
	for _, text := range []string{"", "plain prose only"} {
		if lang, ok := Detect(text); ok {
			t.Fatalf("Detect(%q) = %s, want no match", text, lang)
		}
	}
	if lang, ok := Detect("private int x;"); !ok || lang != LanguageJava {
		t.Fatalf("expected java, got %s (ok=%v)", lang, ok)
	}
}

func TestDetectLargeBuffer(t *testing.T) {
	text := strings.Repeat("undefined voided classic ", 80_000) + "lambda x: x"
	start := time.Now()
	lang, ok := Detect(text)
	elapsed := time.Since(start)
	if !ok || lang != LanguagePython {
		t.Fatalf("expected python from the trailing marker, got %s (ok=%v)", lang, ok)
	}
	if elapsed > 200*time.Millisecond {
		t.Fatalf("detection over %d bytes took %s", len(text), elapsed)
	}
}

// #endregion language-tests
