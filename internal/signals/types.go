package signals

// #region counts

// Counts holds the raw text measurements that feed the stress model.
type Counts struct {
	Words      int // whitespace-delimited non-empty tokens
	Lines      int // newline-delimited segments, 1 for empty text
	Brackets   int // characters in {}[]()
	Semicolons int
	Keywords   int // whole-token keyword matches
}

// #endregion counts

// #region language

// Language is the detected source language of the buffer.
type Language string

const (
	LanguagePython Language = "python"
	LanguageJava   Language = "java"
	LanguageCpp    Language = "cpp"
)

// #endregion language
