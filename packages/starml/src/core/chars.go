package core

import "unicode"

// Character code constants
const (
	CharEOF       = 0
	CharTAB       = 9
	CharLF        = 10
	CharVTAB      = 11
	CharFF        = 12
	CharCR        = 13
	CharSPACE     = 32
	CharBANG      = 33
	CharDQ        = 34
	CharHASH      = 35
	CharDollar    = 36
	CharAMPERSAND = 38
	CharLPAREN    = 40
	CharRPAREN    = 41
	CharSTAR      = 42
	CharCOMMA     = 44
	CharMINUS     = 45
	CharPERIOD    = 46
	CharLT        = 60
	CharEQ        = 61
	CharGT        = 62
	CharAT        = 64

	Char0 = 48
	Char9 = 57

	CharA = 65
	CharZ = 90

	CharCARET      = 94
	CharUnderscore = 95

	CharLowerA = 97
	CharLowerZ = 122

	CharLBRACE = 123
	CharPIPE   = 124
	CharRBRACE = 125
	CharTILDA  = 126
)

// IsWhitespace checks if a character code represents whitespace
func IsWhitespace(code int) bool {
	return (code >= CharTAB && code <= CharCR) || code == CharSPACE
}

// IsDigit checks if a character code represents a digit
func IsDigit(code int) bool {
	return Char0 <= code && code <= Char9
}

// IsAsciiLetter checks if a character code represents an ASCII letter
func IsAsciiLetter(code int) bool {
	return (code >= CharLowerA && code <= CharLowerZ) || (code >= CharA && code <= CharZ)
}

// IsNameStart checks if a character code may begin a tag, attribute or handler name
func IsNameStart(code int) bool {
	return IsAsciiLetter(code) || (code > 127 && unicode.IsLetter(rune(code)))
}

// IsNameChar checks if a character code may continue a name
func IsNameChar(code int) bool {
	return IsNameStart(code) || IsDigit(code) || code == CharMINUS || code == CharUnderscore ||
		(code > 127 && unicode.IsDigit(rune(code)))
}
