package signals

import (
	"regexp"
	"strings"
)

// #region patterns

// StressKeywords are the tokens counted toward the keyword penalty.
var StressKeywords = []string{
	"function", "class", "if", "for", "while", "def", "return", "import", "const", "let", "var",
}

var (
	keywordPattern = regexp.MustCompile(`\b(` + strings.Join(StressKeywords, "|") + `)\b`)

	// Python and Java markers match as whole words, C++ markers anywhere.
	pythonMarkers = []string{"def", "import", "from", "class", "print", "if __name__", "lambda"}
	javaMarkers   = []string{"public", "private", "static", "void", "class", "extends", "implements", "package"}
	cppMarkers    = []string{"#include", "std::", "cout", "cin", "namespace", "template"}
)

const bracketChars = "{}[]()"

// #endregion patterns

// #region count

// Count measures text. Empty text counts as a single line with no words.
func Count(text string) Counts {
	c := Counts{
		Words: len(tokenize(text)),
		Lines: strings.Count(text, "\n") + 1,
	}
	for _, r := range text {
		switch {
		case r == ';':
			c.Semicolons++
		case strings.ContainsRune(bracketChars, r):
			c.Brackets++
		}
	}
	c.Keywords = len(keywordPattern.FindAllStringIndex(text, -1))
	return c
}

// #endregion count

// #region detect-language

// DetectLanguage guesses the language of text, falling back to current when nothing matches
// or text is empty. Python markers win over Java, Java over C++.
func DetectLanguage(text string, current Language) Language {
	if lang, ok := Detect(text); ok {
		return lang
	}
	return current
}

// Detect reports the language whose markers text contains. It needs no engine state,
// so callers can run it before taking a lock.
func Detect(text string) (Language, bool) {
	switch {
	case text == "":
		return "", false
	case containsWord(text, pythonMarkers):
		return LanguagePython, true
	case containsWord(text, javaMarkers):
		return LanguageJava, true
	case containsAny(text, cppMarkers):
		return LanguageCpp, true
	}
	return "", false
}

// containsWord reports whether any marker occurs in text with a word boundary on both sides.
func containsWord(text string, markers []string) bool {
	for _, m := range markers {
		for from := 0; from < len(text); {
			i := strings.Index(text[from:], m)
			if i < 0 {
				break
			}
			start := from + i
			end := start + len(m)
			if (start == 0 || !isWordByte(text[start-1])) && (end == len(text) || !isWordByte(text[end])) {
				return true
			}
			from = start + 1
		}
	}
	return false
}

func containsAny(text string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}

// isWordByte matches the ASCII word class used by \b.
func isWordByte(b byte) bool {
	return b == '_' || '0' <= b && b <= '9' || 'a' <= b && b <= 'z' || 'A' <= b && b <= 'Z'
}

// #endregion detect-language

// #region helpers

// tokenize splits text into whitespace-delimited tokens.
func tokenize(text string) []string {
	return strings.Fields(text)
}

// #endregion helpers
