package gen

import "fmt"

// ParseError is a lexical or structural problem at a source position.
type ParseError struct {
	Line    int
	Column  int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("Parse error at line %d, column %d: %s", e.Line, e.Column, e.Message)
}

// MetadataError reports malformed content in the metadata block.
type MetadataError struct {
	Message string
}

func (e *MetadataError) Error() string {
	return "Invalid metadata: " + e.Message
}

// SemanticError is a validation failure for a 1-indexed measure.
type SemanticError struct {
	Measure int
	Message string
}

func (e *SemanticError) Error() string {
	return fmt.Sprintf("Semantic error at measure %d: %s", e.Measure, e.Message)
}

func parseErrorf(line, column int, format string, args ...any) *ParseError {
	return &ParseError{Line: line, Column: column, Message: fmt.Sprintf(format, args...)}
}

func metadataErrorf(format string, args ...any) *MetadataError {
	return &MetadataError{Message: fmt.Sprintf(format, args...)}
}
