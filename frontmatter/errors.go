package frontmatter

import "errors"

var (
	// ErrMissingFrontMatter indicates the file does not start with a "---" block.
	ErrMissingFrontMatter = errors.New("missing front matter")

	// ErrUnterminatedFrontMatter indicates no closing "---" line was found.
	ErrUnterminatedFrontMatter = errors.New("unterminated front matter")

	// ErrInvalidFrontMatter indicates the YAML block could not be decoded.
	ErrInvalidFrontMatter = errors.New("invalid front matter")

	// ErrInvalidDate indicates a date in an unsupported format.
	ErrInvalidDate = errors.New("invalid date")
)
