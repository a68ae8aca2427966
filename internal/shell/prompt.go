package shell

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"unicode"
)

// blockEnd terminates multi-line input.
const blockEnd = "."

// MaxLineSize is the longest input line accepted, in bytes. Longer lines
// fail the read with bufio.ErrTooLong.
const MaxLineSize = 1 << 20

// Prompter reads answers line by line from an input stream.
type Prompter struct {
	scanner *bufio.Scanner
	out     io.Writer
}

// NewPrompter creates a Prompter reading from in and printing labels to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxLineSize)
	return &Prompter{scanner: scanner, out: out}
}

// Line prints label and returns the next input line.
// It reports false when the input is exhausted.
func (p *Prompter) Line(label string) (string, bool) {
	if label != "" {
		fmt.Fprint(p.out, label)
	}
	if !p.scanner.Scan() {
		return "", false
	}
	return p.scanner.Text(), true
}

// Block reads lines until a line holding only "." or the end of input.
// Each line read is passed to onLine along with all lines so far.
// A read error is returned with the lines read before it; callers must not
// treat them as the complete block.
func (p *Prompter) Block(onLine func(lines []string)) ([]string, error) {
	var lines []string
	for p.scanner.Scan() {
		line := p.scanner.Text()
		if strings.TrimSpace(line) == blockEnd {
			break
		}
		lines = append(lines, line)
		if onLine != nil {
			onLine(lines)
		}
	}
	if err := p.scanner.Err(); err != nil {
		return lines, fmt.Errorf("read input: %w", err)
	}
	return lines, nil
}

// Err returns the first non-EOF read error.
func (p *Prompter) Err() error {
	return p.scanner.Err()
}

// tail returns line without its first n whitespace-separated fields.
func tail(line string, n int) string {
	s := strings.TrimSpace(line)
	for i := 0; i < n; i++ {
		idx := strings.IndexFunc(s, unicode.IsSpace)
		if idx < 0 {
			return ""
		}
		s = strings.TrimLeftFunc(s[idx:], unicode.IsSpace)
	}
	return s
}
