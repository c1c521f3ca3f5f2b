package validator

import (
	"net/mail"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/exp/constraints"
)

var (
	EmailRX = regexp.MustCompile("^[a-zA-Z0-9.!#$%&'*+/=?^_`{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$")
	PhoneRX = regexp.MustCompile(`^\+\d{1,2} \(\d{3}\) \d{3}-\d{2}-\d{2}$`)
)

func NotBlank(value string) bool {
	return strings.TrimSpace(value) != ""
}

func MinRunes(value string, n int) bool {
	return utf8.RuneCountInString(value) >= n
}

func MaxRunes(value string, n int) bool {
	return utf8.RuneCountInString(value) <= n
}

func ExactRunes(value string, n int) bool {
	return utf8.RuneCountInString(value) == n
}

func Between[T constraints.Ordered](value, min, max T) bool {
	return value >= min && value <= max
}

func AtLeast[T constraints.Ordered](value, min T) bool {
	return value >= min
}

func Positive[T constraints.Integer | constraints.Float](value T) bool {
	return value > 0
}

func Matches(value string, rx *regexp.Regexp) bool {
	return rx.MatchString(value)
}

func IsEmail(value string) bool {
	if len(value) > 254 || !Matches(value, EmailRX) {
		return false
	}

	_, err := mail.ParseAddress(value)
	return err == nil
}

func OnlyDigits(value string) bool {
	if value == "" {
		return false
	}

	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}

	return true
}

// DigitsInNumber reports whether the decimal form of num has exactly count digits.
func DigitsInNumber[T constraints.Integer](num T, count int) bool {
	if num < 0 {
		return false
	}

	return len(strconv.FormatUint(uint64(num), 10)) == count
}
