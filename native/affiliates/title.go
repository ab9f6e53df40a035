package affiliates

import (
	"fmt"
	"unicode/utf8"
)

// titleReservedBytes is the worst-case encoded width of a title: every
// character may take up to four bytes of UTF-8.
const titleReservedBytes = 4 * MaxProjectTitleLength

// Title is a project title of at most MaxProjectTitleLength characters.
type Title struct {
	value string
}

// NewTitle validates s and wraps it.
func NewTitle(s string) (Title, error) {
	if !utf8.ValidString(s) {
		return Title{}, fmt.Errorf("%w: title is not valid utf-8", ErrInvalidCommand)
	}
	if n := utf8.RuneCountInString(s); n > MaxProjectTitleLength {
		return Title{}, fmt.Errorf("%w: %d characters, max %d", ErrProjectTitleTooLong, n, MaxProjectTitleLength)
	}
	return Title{value: s}, nil
}

func (t Title) String() string { return t.value }

func (t Title) MarshalText() ([]byte, error) { return []byte(t.value), nil }

func (t *Title) UnmarshalText(text []byte) error {
	parsed, err := NewTitle(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
