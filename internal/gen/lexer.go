package gen

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

type TokenKind int

const (
	TokenNote TokenKind = iota + 1
	TokenRest
	TokenSlash
	TokenHalf
	TokenWhole
	TokenDot
	TokenSharp
	TokenFlat
	TokenNatural
	TokenCaret
	TokenUnderscore
	TokenLeftBracket
	TokenRightBracket
	TokenNumber
	TokenHyphen
	TokenLeftParen
	TokenRightParen
	TokenRepeatStart
	TokenRepeatEnd
	TokenFirstEnding
	TokenSecondEnding
	TokenNewline
	TokenWhitespace
	TokenMetadataFence
)

var tokenKindNames = map[TokenKind]string{
	TokenNote:          "note",
	TokenRest:          "rest '$'",
	TokenSlash:         "'/'",
	TokenHalf:          "'p'",
	TokenWhole:         "'o'",
	TokenDot:           "'*'",
	TokenSharp:         "'#'",
	TokenFlat:          "'b'",
	TokenNatural:       "'%'",
	TokenCaret:         "'^'",
	TokenUnderscore:    "'_'",
	TokenLeftBracket:   "'['",
	TokenRightBracket:  "']'",
	TokenNumber:        "number",
	TokenHyphen:        "'-'",
	TokenLeftParen:     "'('",
	TokenRightParen:    "')'",
	TokenRepeatStart:   "'||:'",
	TokenRepeatEnd:     "':||'",
	TokenFirstEnding:   "'1.'",
	TokenSecondEnding:  "'2.'",
	TokenNewline:       "newline",
	TokenWhitespace:    "whitespace",
	TokenMetadataFence: "'---'",
}

func (k TokenKind) String() string {
	if name, ok := tokenKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("token(%d)", int(k))
}

// Token is a lexeme with its 1-indexed position in the original source.
// Count holds the slash run length or the digit value; Note holds the letter.
type Token struct {
	Kind   TokenKind
	Line   int
	Column int
	Count  int
	Note   NoteName
}

func (t Token) String() string {
	switch t.Kind {
	case TokenNote:
		return "note " + t.Note.String()
	case TokenNumber:
		return fmt.Sprintf("number %d", t.Count)
	case TokenSlash:
		return "'" + strings.Repeat("/", t.Count) + "'"
	}
	return t.Kind.String()
}

type lexer struct {
	tokens []Token
	lineNo int
	line   string
}

// Tokenize converts Gen source into tokens. The first metadata block is
// consumed whole; annotations are validated and skipped.
func Tokenize(src string) ([]Token, error) {
	lines := splitLines(src)
	start, end, found := metadataSpan(lines)
	if start >= 0 && !found {
		col := strings.Index(lines[start], metadataFence) + 1
		return nil, parseErrorf(start+1, col, "Unterminated metadata block")
	}

	lx := &lexer{tokens: make([]Token, 0, len(src)/2)}
	for i, line := range lines {
		lx.lineNo = i + 1
		lx.line = line
		last := i == len(lines)-1
		switch {
		case found && i == start:
			lx.emit(TokenMetadataFence, strings.Index(line, metadataFence))
		case found && i > start && i <= end:
			continue
		default:
			if err := lx.lexLine(last); err != nil {
				return nil, err
			}
		}
		if !last || strings.HasSuffix(src, "\n") {
			lx.emit(TokenNewline, len(line))
		}
	}
	return lx.tokens, nil
}

func (lx *lexer) column(offset int) int {
	return utf8.RuneCountInString(lx.line[:offset]) + 1
}

func (lx *lexer) emit(kind TokenKind, offset int) *Token {
	lx.tokens = append(lx.tokens, Token{Kind: kind, Line: lx.lineNo, Column: lx.column(offset)})
	return &lx.tokens[len(lx.tokens)-1]
}

func (lx *lexer) errorAt(offset int, format string, args ...any) error {
	return parseErrorf(lx.lineNo, lx.column(offset), format, args...)
}

var singleCharTokens = map[byte]TokenKind{
	'p': TokenHalf,
	'o': TokenWhole,
	'*': TokenDot,
	'#': TokenSharp,
	'b': TokenFlat,
	'%': TokenNatural,
	'^': TokenCaret,
	'_': TokenUnderscore,
	'[': TokenLeftBracket,
	']': TokenRightBracket,
	'-': TokenHyphen,
	'(': TokenLeftParen,
	')': TokenRightParen,
}

func (lx *lexer) lexLine(last bool) error {
	s := lx.line
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case isBlank(c):
			lx.emit(TokenWhitespace, i)
			i++
		case c == '@':
			_, next, aerr := scanAnnotation(s, i)
			if aerr != nil {
				return lx.errorAt(aerr.offset, "%s", aerr.message)
			}
			i = next
		case c == '{':
			_, next, aerr := scanChordBlock(s, i)
			if aerr != nil {
				msg := aerr.message
				if msg == "Unclosed chord annotation" && !last {
					msg = "Unexpected newline inside chord annotation"
				}
				return lx.errorAt(aerr.offset, "%s", msg)
			}
			i = next
		case c == '$':
			lx.emit(TokenRest, i)
			i++
		case isElementChar(c):
			name, _ := noteNameFromByte(c)
			lx.emit(TokenNote, i).Note = name
			i++
		case c == '/':
			j := i
			for j < len(s) && s[j] == '/' {
				j++
			}
			if j-i > 3 {
				return lx.errorAt(i, "Too many slashes in rhythm (max 3)")
			}
			lx.emit(TokenSlash, i).Count = j - i
			i = j
		case c == '|':
			if !strings.HasPrefix(s[i:], "||:") {
				return lx.errorAt(i, "Unexpected '|'. Did you mean '||:' for repeat start?")
			}
			lx.emit(TokenRepeatStart, i)
			i += 3
		case c == ':':
			if !strings.HasPrefix(s[i:], ":||") {
				return lx.errorAt(i, "Unexpected ':'. Did you mean ':||' for repeat end?")
			}
			lx.emit(TokenRepeatEnd, i)
			i += 3
		case c >= '0' && c <= '9':
			if (c == '1' || c == '2') && i+1 < len(s) && s[i+1] == '.' && strings.TrimLeft(stripAnnotations(s[:i]), " \t\r") == "" {
				kind := TokenFirstEnding
				if c == '2' {
					kind = TokenSecondEnding
				}
				lx.emit(kind, i)
				i += 2
				continue
			}
			lx.emit(TokenNumber, i).Count = int(c - '0')
			i++
		default:
			kind, ok := singleCharTokens[c]
			if !ok {
				r, _ := utf8.DecodeRuneInString(s[i:])
				return lx.errorAt(i, "Unexpected character: '%c'", r)
			}
			lx.emit(kind, i)
			i++
		}
	}
	return nil
}
