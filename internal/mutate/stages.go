package mutate

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// #region quote-bank
// Quotes is the comment bank used by comment injection.
var Quotes = []string{
	"# reality.reformat()",
	"# entropy increasing...",
	"# system evolution detected",
	"# mutation protocol active",
	"# generation consciousness emerging",
	"# code dreams of electric sheep",
	"# the void compiles",
	"# digital entropy manifest",
	"# chaos.init()",
	"# evolution in progress",
	"# syntax.mutate()",
	"# reality.glitch()",
	"# consciousness.emerge()",
	"# void.execute()",
}

// #endregion quote-bank

// #region patterns
var (
	conditionalPattern = regexp.MustCompile(`\bif\s+(.+?):\s*\n\s+(.+?)\s*\n\s*else:\s*\n\s+(.+)`)
	assignPattern      = regexp.MustCompile(`^(\w+)\s*=\s*([^=].*)$`)
	identPattern       = regexp.MustCompile(`\b[A-Za-z_][A-Za-z0-9_]{2,}\b`)
	rangeLoopPattern   = regexp.MustCompile(`(?m)^([ \t]*)for\s+(\w+)\s+in\s+range\((\d+)\):`)
	singleQuotePattern = regexp.MustCompile(`'([^']*)'`)
)

// reserved identifiers are never corrupted. Compared case-insensitively.
var reserved = map[string]struct{}{
	"def": {}, "class": {}, "if": {}, "else": {}, "elif": {}, "for": {}, "while": {},
	"return": {}, "import": {}, "from": {}, "print": {}, "range": {}, "len": {},
	"str": {}, "int": {}, "list": {}, "dict": {}, "true": {}, "false": {}, "none": {},
}

const (
	vowels      = "aeiouAEIOU"
	consonants  = "bcdfghjklmnpqrstvwxyzBCDFGHJKLMNPQRSTVWXYZ"
	operators   = "+-*/%="
	corruptions = 6
)

// #endregion patterns

// #region fold-conditionals
// FoldConditionals rewrites `if c:` / `v = a` / `else:` / `v = b` into `v = a if c else b`.
// Pairs whose branches are not both assignments to the same name are kept.
func FoldConditionals(text string, r Rand, config Config) string {
	return replaceSubmatches(conditionalPattern, text, func(groups []string) (string, bool) {
		if r.Float64() >= config.FoldChance {
			return "", false
		}
		cond := strings.TrimSpace(groups[1])
		ifAssign := assignPattern.FindStringSubmatch(strings.TrimSpace(groups[2]))
		elseAssign := assignPattern.FindStringSubmatch(strings.TrimSpace(groups[3]))
		if ifAssign == nil || elseAssign == nil || ifAssign[1] != elseAssign[1] {
			return "", false
		}
		return ifAssign[1] + " = " + strings.TrimSpace(ifAssign[2]) + " if " + cond + " else " + strings.TrimSpace(elseAssign[2]), true
	})
}

// #endregion fold-conditionals

// #region corrupt-identifiers
// CorruptIdentifiers rewrites each distinct identifier with probability CorruptChance.
// Every occurrence of a corrupted identifier gets the same replacement within one call.
func CorruptIdentifiers(text string, r Rand, config Config) string {
	decided := make(map[string]string)
	return identPattern.ReplaceAllStringFunc(text, func(ident string) string {
		if _, ok := reserved[strings.ToLower(ident)]; ok {
			return ident
		}
		if out, ok := decided[ident]; ok {
			return out
		}
		out := ident
		if r.Float64() < config.CorruptChance {
			out = corrupt(ident, r.Intn(corruptions), r, config)
		}
		decided[ident] = out
		return out
	})
}

// corrupt applies one of the six corruption strategies to ident.
func corrupt(ident string, strategy int, r Rand, config Config) string {
	switch strategy {
	case 0:
		return stripVowels(ident)
	case 1:
		return ident + "_v" + strconv.Itoa(r.Intn(9)+1)
	case 2:
		return randomCaps(ident, r, config.CapitalizeChance)
	case 3:
		return doubleFirstConsonant(ident)
	case 4:
		return ident + "_mut"
	default:
		return replaceFirstVowel(ident, strconv.Itoa(r.Intn(10)))
	}
}

// stripVowels removes every vowel except one in first position.
func stripVowels(s string) string {
	var b strings.Builder
	for i, c := range s {
		if i > 0 && strings.ContainsRune(vowels, c) {
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

func randomCaps(s string, r Rand, chance float64) string {
	out := []rune(s)
	for i, c := range out {
		if r.Float64() < chance {
			out[i] = unicode.ToUpper(c)
		}
	}
	return string(out)
}

func doubleFirstConsonant(s string) string {
	i := strings.IndexAny(s, consonants)
	if i < 0 {
		return s
	}
	return s[:i+1] + s[i:]
}

func replaceFirstVowel(s, with string) string {
	i := strings.IndexAny(s, vowels)
	if i < 0 {
		return s
	}
	return s[:i] + with + s[i+1:]
}

// #endregion corrupt-identifiers

// #region inject-comments
// InjectComments adds a quote-bank comment under def and class lines, indented one level deeper.
func InjectComments(text string, r Rand, config Config) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		out = append(out, line)
		trimmed := strings.TrimSpace(line)
		chance := 0.0
		switch {
		case strings.HasPrefix(trimmed, "def "):
			chance = config.FunctionCommentChance
		case strings.HasPrefix(trimmed, "class "):
			chance = config.ClassCommentChance
		default:
			continue
		}
		if r.Float64() < chance {
			out = append(out, leadingSpace(line)+"    "+Quotes[r.Intn(len(Quotes))])
		}
	}
	return strings.Join(out, "\n")
}

// #endregion inject-comments

// #region substitute-loops
// SubstituteLoops turns `for x in range(N):` into a counter line plus `while x < N:`
// at the loop's own indentation.
func SubstituteLoops(text string, r Rand, config Config) string {
	return replaceSubmatches(rangeLoopPattern, text, func(groups []string) (string, bool) {
		if r.Float64() >= config.LoopChance {
			return "", false
		}
		indent, name, bound := groups[1], groups[2], groups[3]
		return indent + name + " = 0\n" + indent + "while " + name + " < " + bound + ":", true
	})
}

// #endregion substitute-loops

// #region flip-quotes
// FlipQuotes rewrites every single-quoted literal to double quotes, or none of them.
func FlipQuotes(text string, r Rand, config Config) string {
	if r.Float64() >= config.QuoteFlipChance {
		return text
	}
	return singleQuotePattern.ReplaceAllString(text, `"$1"`)
}

// #endregion flip-quotes

// #region jitter-indentation
// JitterIndentation shifts the leading whitespace of indented lines by +2 or -1 spaces.
func JitterIndentation(text string, r Rand, config Config) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lead := len(leadingSpace(line))
		if lead == 0 {
			continue
		}
		if r.Float64() >= config.IndentJitterChance {
			continue
		}
		shift := -1
		if r.Float64() > 0.5 {
			shift = 2
		}
		n := lead + shift
		if n < 0 {
			n = 0
		}
		lines[i] = strings.Repeat(" ", n) + strings.TrimSpace(line)
	}
	return strings.Join(lines, "\n")
}

// #endregion jitter-indentation

// #region jitter-operators
var operatorSpacings = [...]func(op string) string{
	func(op string) string { return " " + op + " " },
	func(op string) string { return "  " + op + "  " },
	func(op string) string { return op },
	func(op string) string { return " " + op },
	func(op string) string { return op + " " },
}

// JitterOperators re-spaces every arithmetic/assignment character, or none of them.
func JitterOperators(text string, r Rand, config Config) string {
	if r.Float64() >= config.OperatorChance {
		return text
	}
	var b strings.Builder
	b.Grow(len(text) * 2)
	for _, c := range text {
		if !strings.ContainsRune(operators, c) {
			b.WriteRune(c)
			continue
		}
		b.WriteString(operatorSpacings[r.Intn(len(operatorSpacings))](string(c)))
	}
	return b.String()
}

// #endregion jitter-operators

// #region insert-blank-lines
// InsertBlankLines, once activated, follows non-empty lines with a blank line at random.
func InsertBlankLines(text string, r Rand, config Config) string {
	if r.Float64() >= config.BlankLineChance {
		return text
	}
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		out = append(out, line)
		if strings.TrimSpace(line) != "" && r.Float64() < config.BlankLinePerLine {
			out = append(out, "")
		}
	}
	return strings.Join(out, "\n")
}

// #endregion insert-blank-lines

// #region helpers
// leadingSpace returns the run of spaces and tabs at the start of line.
func leadingSpace(line string) string {
	return line[:len(line)-len(strings.TrimLeft(line, " \t"))]
}

// replaceSubmatches calls fn for every match of re in s with the submatch strings.
// When fn reports false the match is left as is.
func replaceSubmatches(re *regexp.Regexp, s string, fn func(groups []string) (string, bool)) string {
	matches := re.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return s
	}
	var b strings.Builder
	last := 0
	for _, m := range matches {
		groups := make([]string, len(m)/2)
		for g := range groups {
			if m[2*g] >= 0 {
				groups[g] = s[m[2*g]:m[2*g+1]]
			}
		}
		b.WriteString(s[last:m[0]])
		if out, ok := fn(groups); ok {
			b.WriteString(out)
		} else {
			b.WriteString(groups[0])
		}
		last = m[1]
	}
	b.WriteString(s[last:])
	return b.String()
}

// #endregion helpers
