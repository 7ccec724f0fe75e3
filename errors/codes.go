package errors

// Category classifies errors by their nature and retry semantics.
type Category string

const (
	// CategoryTransient indicates temporary failures where retry may succeed.
	// Examples: embedding backend timeouts, LLM rate limits.
	CategoryTransient Category = "transient"

	// CategoryPermanent indicates failures where retry will not help.
	// Examples: unsupported document type, unknown message kind.
	CategoryPermanent Category = "permanent"

	// CategoryInternal indicates unexpected errors or corrupted state.
	CategoryInternal Category = "internal"
)

// String returns the string representation of the category.
func (c Category) String() string {
	return string(c)
}

// IsRetryable returns true if errors in this category may succeed on retry.
func (c Category) IsRetryable() bool {
	return c == CategoryTransient
}

// Code identifies specific failure types within categories.
type Code string

const (
	// CodeParse indicates an unsupported or malformed document.
	CodeParse Code = "PARSE_FAILED"

	// CodeEmbedding indicates an embedding backend failure.
	CodeEmbedding Code = "EMBEDDING_FAILED"

	// CodeSearch indicates a vector or keyword index failure.
	CodeSearch Code = "SEARCH_FAILED"

	// CodeGeneration indicates an LLM backend failure.
	CodeGeneration Code = "GENERATION_FAILED"

	// CodeTimeout indicates no correlated response arrived within the deadline.
	CodeTimeout Code = "TIMEOUT"

	// CodeInvalidKind indicates an unknown message kind tag on decode.
	CodeInvalidKind Code = "INVALID_KIND"

	// CodeInvalidInput indicates malformed payload contents.
	CodeInvalidInput Code = "INVALID_INPUT"

	// CodeInternal indicates an unexpected internal error.
	CodeInternal Code = "INTERNAL"
)

// String returns the string representation of the code.
func (c Code) String() string {
	return string(c)
}

// DefaultCategory returns the default category for a code.
func (c Code) DefaultCategory() Category {
	switch c {
	case CodeEmbedding, CodeGeneration, CodeTimeout:
		return CategoryTransient
	case CodeParse, CodeInvalidKind, CodeInvalidInput:
		return CategoryPermanent
	default:
		return CategoryInternal
	}
}
