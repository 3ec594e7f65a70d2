package a1

import "strings"

// ColumnToLetters converts a 1-indexed column number to its spreadsheet
// letter form (1 -> "A", 26 -> "Z", 27 -> "AA").
func ColumnToLetters(col int64) string {
	if col < 1 {
		return ""
	}
	var b []byte
	for col > 0 {
		col--
		b = append([]byte{byte('A' + col%26)}, b...)
		col /= 26
	}
	return string(b)
}

// LettersToColumn converts a spreadsheet column letter string (case
// insensitive) to its 1-indexed column number. Returns ok=false on an empty
// or malformed string.
func LettersToColumn(letters string) (int64, bool) {
	letters = strings.ToUpper(letters)
	if letters == "" {
		return 0, false
	}
	var col int64
	for i := 0; i < len(letters); i++ {
		c := letters[i]
		if c < 'A' || c > 'Z' {
			return 0, false
		}
		col = col*26 + int64(c-'A') + 1
	}
	return col, true
}
