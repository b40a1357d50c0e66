package fits

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	blockSize = 2880 // Block size of header and data units
	cardSize  = 80   // Length of one header card
)

// Header holds the keywords of one header unit, sorted by value type.
type Header struct {
	Bools    map[string]bool
	Ints     map[string]int64
	Floats   map[string]float64
	Strings  map[string]string
	Comments []string
	History  []string
	End      bool
	// Length is the size of the header in bytes, a multiple of 2880.
	Length int64
}

func newHeader() *Header {
	return &Header{
		Bools:   make(map[string]bool),
		Ints:    make(map[string]int64),
		Floats:  make(map[string]float64),
		Strings: make(map[string]string),
	}
}

// Float returns a numeric keyword whether it was written as an integer or
// a real.
func (h *Header) Float(key string) (float64, bool) {
	if v, ok := h.Floats[key]; ok {
		return v, true
	}
	if v, ok := h.Ints[key]; ok {
		return float64(v), true
	}
	return 0, false
}

// readHeader reads 2880 byte blocks from r until the END card. It returns
// io.EOF when r is exhausted before the first block.
func readHeader(r io.Reader) (*Header, error) {
	h := newHeader()
	block := make([]byte, blockSize)
	for !h.End {
		if _, err := io.ReadFull(r, block); err != nil {
			if errors.Is(err, io.EOF) && h.Length == 0 {
				return nil, io.EOF
			}
			return nil, &HeaderError{Card: int(h.Length / cardSize), Reason: "header ends before the END card"}
		}
		for i := 0; i < blockSize && !h.End; i += cardSize {
			card := int(h.Length/cardSize) + i/cardSize + 1
			if err := h.parseCard(string(block[i : i+cardSize])); err != nil {
				return nil, &HeaderError{Card: card, Reason: err.Error()}
			}
		}
		h.Length += blockSize
	}
	return h, nil
}

func (h *Header) parseCard(card string) error {
	key := strings.TrimSpace(card[:8])
	switch key {
	case "END":
		h.End = true
		return nil
	case "COMMENT":
		h.Comments = append(h.Comments, strings.TrimSpace(card[8:]))
		return nil
	case "HISTORY":
		h.History = append(h.History, strings.TrimSpace(card[8:]))
		return nil
	case "":
		return nil
	}
	if card[8:10] != "= " {
		return nil
	}
	v, err := parseValue(card[10:])
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	switch v := v.(type) {
	case bool:
		h.Bools[key] = v
	case int64:
		h.Ints[key] = v
	case float64:
		h.Floats[key] = v
	case string:
		h.Strings[key] = v
	}
	return nil
}

// parseValue types the value field of a card by its spelling: strings are
// quoted, logicals are T or F, and numbers with a decimal point or an
// exponent are reals. Comments after a slash are dropped.
func parseValue(text string) (interface{}, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("missing value")
	}
	switch text[0] {
	case '\'':
		var sb strings.Builder
		for i := 1; i < len(text); i++ {
			if text[i] != '\'' {
				sb.WriteByte(text[i])
				continue
			}
			if i+1 < len(text) && text[i+1] == '\'' {
				sb.WriteByte('\'')
				i++
				continue
			}
			return strings.TrimRight(sb.String(), " "), nil
		}
		return nil, errors.New("unterminated string")
	case 'T', 't':
		return true, nil
	case 'F', 'f':
		return false, nil
	}
	if before, _, found := strings.Cut(text, "/"); found {
		text = strings.TrimSpace(before)
	}
	if strings.ContainsAny(text, ".EeDd") {
		v, err := strconv.ParseFloat(strings.NewReplacer("D", "E", "d", "e").Replace(text), 64)
		if err != nil {
			return nil, fmt.Errorf("bad real %q", text)
		}
		return v, nil
	}
	v, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bad integer %q", text)
	}
	return v, nil
}

// card formats one keyword record in fixed format, padded to 80
// characters. Strings start in column 11, other values end in column 30.
func card(key, value string) string {
	c := fmt.Sprintf("%-8s= %20s", key, value)
	if strings.HasPrefix(value, "'") {
		c = fmt.Sprintf("%-8s= %s", key, value)
	}
	return fmt.Sprintf("%-80.80s", c)
}

// quoted formats a string value, doubling embedded quotes. Long strings
// are cut to fit one card.
func quoted(s string) string {
	s = strings.ReplaceAll(s, "'", "''")
	if len(s) > 68 {
		s = s[:68]
		if n := len(s) - len(strings.TrimRight(s, "'")); n%2 == 1 {
			s = s[:len(s)-1]
		}
	}
	return fmt.Sprintf("'%-8s'", s)
}
