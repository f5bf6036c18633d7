package validate

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/fablefill/fablefill/internal/story"
)

var (
	ErrNameEmpty  = errors.New("name must not be empty")
	ErrNameLength = errors.New("name must be 2-20 characters")
	ErrNameChars  = errors.New("name may only contain letters, digits and spaces")
	ErrWordEmpty  = errors.New("word must not be empty")
	ErrWordLength = errors.New("word is too long")
	ErrWordChars  = errors.New("word may only contain letters, spaces, hyphens and apostrophes")
	ErrWordNumber = errors.New("a number blank takes digits only")
)

var (
	roomCodeRe = regexp.MustCompile(`^[A-Z0-9]{6}$`)
	nameRe     = regexp.MustCompile(`^[\p{L}\p{N} ]+$`)
	wordRe     = regexp.MustCompile(`^[\p{L}' -]+$`)
	numberRe   = regexp.MustCompile(`^[0-9]+$`)
)

// RoomCode reports whether s has the shape of a room code. It does not say
// whether such a room exists.
func RoomCode(s string) bool {
	return roomCodeRe.MatchString(s)
}

// PlayerName trims and checks a display name, returning the trimmed form.
func PlayerName(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrNameEmpty
	}
	n := utf8.RuneCountInString(s)
	if n < 2 || n > 20 {
		return "", ErrNameLength
	}
	if !nameRe.MatchString(s) {
		return "", ErrNameChars
	}
	return s, nil
}

// Word trims and checks a submitted word against the blank type it is
// meant to fill, returning the trimmed form.
func Word(t story.WordType, s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrWordEmpty
	}
	if t == story.TypeNumber {
		if utf8.RuneCountInString(s) > 12 {
			return "", ErrWordLength
		}
		if !numberRe.MatchString(s) {
			return "", ErrWordNumber
		}
		return s, nil
	}
	if utf8.RuneCountInString(s) > 30 {
		return "", ErrWordLength
	}
	if !wordRe.MatchString(s) {
		return "", ErrWordChars
	}
	return s, nil
}
