package gcode

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// word is one letter-number pair from a program line.
type word struct {
	letter byte
	value  float64
}

// stripComments removes parenthesis comments and everything after a
// semicolon. Unterminated parentheses swallow the rest of the line, which
// matches how most controllers behave.
func stripComments(line string) string {
	var b strings.Builder
	depth := 0
	for _, r := range line {
		switch {
		case r == '(':
			depth++
		case r == ')':
			if depth > 0 {
				depth--
			}
		case r == ';':
			return b.String()
		case depth == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// parseLine tokenizes one program line into words. A tokenization failure
// reports which fragment was malformed; the caller turns that into an
// issue, never an abort.
func parseLine(line string) ([]word, error) {
	line = strings.TrimSpace(stripComments(line))
	if line == "" {
		return nil, nil
	}

	var words []word
	i := 0
	for i < len(line) {
		c := line[i]
		if c == ' ' || c == '\t' {
			i++
			continue
		}
		if !unicode.IsLetter(rune(c)) {
			return words, fmt.Errorf("unexpected character %q", string(c))
		}

		letter := byte(unicode.ToUpper(rune(c)))
		i++
		j := i
		for j < len(line) {
			d := line[j]
			if (d >= '0' && d <= '9') || d == '.' || d == '-' || d == '+' {
				j++
				continue
			}
			break
		}
		if j == i {
			return words, fmt.Errorf("word %q has no number", string(letter))
		}
		v, err := strconv.ParseFloat(line[i:j], 64)
		if err != nil {
			return words, fmt.Errorf("word %q has invalid number %q", string(letter), line[i:j])
		}
		words = append(words, word{letter: letter, value: v})
		i = j
	}
	return words, nil
}

// findWord returns the first word with the given letter.
func findWord(words []word, letter byte) (float64, bool) {
	for _, w := range words {
		if w.letter == letter {
			return w.value, true
		}
	}
	return 0, false
}
