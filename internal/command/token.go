package command

import (
	"strings"
	"unicode"
)

type TokenKind int

const (
	TokenText TokenKind = iota
	TokenUserMention
	TokenRoleMention
)

func (k TokenKind) String() string {
	switch k {
	case TokenUserMention:
		return "user"
	case TokenRoleMention:
		return "role"
	default:
		return "text"
	}
}

// Token is one whitespace-separated word of a command line. ID is set for mentions.
type Token struct {
	Kind TokenKind
	Raw  string
	ID   string
}

// Tokenize splits a single line on whitespace and classifies each word.
func Tokenize(line string) []Token {
	words := strings.Fields(line)
	tokens := make([]Token, 0, len(words))
	for _, w := range words {
		tokens = append(tokens, classify(w))
	}
	return tokens
}

// classify recognizes <@ID>, <@!ID> and <@&ID>, optionally followed by punctuation
// such as "<@1>,". Anything else is text.
func classify(word string) Token {
	end := strings.IndexByte(word, '>')
	if !strings.HasPrefix(word, "<@") || end < 0 || !isPunctuation(word[end+1:]) {
		return Token{Kind: TokenText, Raw: word}
	}
	inner := word[2:end]
	kind := TokenUserMention
	switch {
	case strings.HasPrefix(inner, "&"):
		kind = TokenRoleMention
		inner = inner[1:]
	case strings.HasPrefix(inner, "!"):
		inner = inner[1:]
	}
	if !isDigits(inner) {
		return Token{Kind: TokenText, Raw: word}
	}
	return Token{Kind: kind, Raw: word, ID: inner}
}

func isPunctuation(s string) bool {
	for _, r := range s {
		if !unicode.IsPunct(r) {
			return false
		}
	}
	return true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func UserMention(id string) string { return "<@" + id + ">" }
func RoleMention(id string) string { return "<@&" + id + ">" }
