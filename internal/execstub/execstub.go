package execstub

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// #region output-constants
const (
	header    = ">>> Running Python code...\n\n"
	noPrint   = "Code executed successfully.\n"
	footer    = "\n[Process completed]"
	quoteSet  = `'"`
	printWord = "print"
)

var printPattern = regexp.MustCompile(`print\((.*?)\)`)

// ErrTooLarge is returned for code above Config.MaxCodeBytes.
var ErrTooLarge = errors.New("code too large")

// #endregion output-constants

// #region config
// Config controls the simulated run.
type Config struct {
	Delay        time.Duration // simulated execution time
	MaxCodeBytes int           // 0 means unlimited
}

// DefaultConfig returns the standard half-second delay and a 1 MiB limit.
func DefaultConfig() Config {
	return Config{
		Delay:        500 * time.Millisecond,
		MaxCodeBytes: 1 << 20,
	}
}

// #endregion config

// #region result
// Result is the rendered console output of a run.
type Result struct {
	Output   string        `json:"output"`
	Prints   []string      `json:"prints"`
	Duration time.Duration `json:"durationNs"`
}

// #endregion result

// #region runner
// Runner pretends to execute Python by echoing the arguments of print calls.
// Nothing is interpreted.
type Runner struct {
	config Config
}

// New creates a runner.
func New(config Config) *Runner {
	return &Runner{config: config}
}

// Execute waits for the configured delay, then renders the output for code.
// It returns ctx.Err() if ctx ends first.
func (r *Runner) Execute(ctx context.Context, code string) (Result, error) {
	if r.config.MaxCodeBytes > 0 && len(code) > r.config.MaxCodeBytes {
		return Result{}, fmt.Errorf("execute: %w: %d bytes > %d", ErrTooLarge, len(code), r.config.MaxCodeBytes)
	}

	start := time.Now()
	if r.config.Delay > 0 {
		timer := time.NewTimer(r.config.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return Result{}, fmt.Errorf("execute: %w", ctx.Err())
		case <-timer.C:
		}
	}

	output, prints := Render(code)
	return Result{Output: output, Prints: prints, Duration: time.Since(start)}, nil
}

// #endregion runner

// #region render
// Render builds the console output for code. Each print(...) argument is echoed on its
// own line with quote characters removed; code without the word print reports success.
func Render(code string) (string, []string) {
	var b strings.Builder
	b.WriteString(header)

	prints := []string{}
	if strings.Contains(code, printWord) {
		for _, m := range printPattern.FindAllStringSubmatch(code, -1) {
			line := strings.Map(func(r rune) rune {
				if strings.ContainsRune(quoteSet, r) {
					return -1
				}
				return r
			}, m[1])
			prints = append(prints, line)
			b.WriteString(line)
			b.WriteString("\n")
		}
	} else {
		b.WriteString(noPrint)
	}

	b.WriteString(footer)
	return b.String(), prints
}

// #endregion render
