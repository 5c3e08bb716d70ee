package normalization

import "fmt"

// EnumNormalizer wraps a Normalizer with a field name for error messages.
type EnumNormalizer[T comparable] struct {
	normalizer *Normalizer[T]
	enumName   string
}

// NewEnumNormalizer creates an enum normalizer with descriptive error messages.
func NewEnumNormalizer[T comparable](enumName string, values map[string]T, defaultValue T) *EnumNormalizer[T] {
	return &EnumNormalizer[T]{normalizer: NewNormalizer(values, defaultValue), enumName: enumName}
}

// Normalize converts raw to an enum value, returning the default on invalid input.
func (e *EnumNormalizer[T]) Normalize(raw string) T {
	return e.normalizer.Normalize(raw)
}

// NormalizeWithValidation converts raw to an enum value or reports why it cannot.
func (e *EnumNormalizer[T]) NormalizeWithValidation(raw string) (T, error) {
	v, err := e.normalizer.NormalizeWithError(raw)
	if err != nil {
		return v, fmt.Errorf("invalid %s: %w", e.enumName, err)
	}
	return v, nil
}

// Result is the outcome of NormalizeWithWarning.
type Result[T comparable] struct {
	Value   T
	Changed bool
	Warning string
}

// NormalizeWithWarning normalizes raw and describes any rewrite of the input.
func (e *EnumNormalizer[T]) NormalizeWithWarning(field, raw string) Result[T] {
	cleaned := clean(raw)
	res := Result[T]{Value: e.normalizer.Normalize(raw), Changed: cleaned != raw}
	if res.Changed {
		res.Warning = fmt.Sprintf("normalized %s from '%s' to '%s'", field, raw, cleaned)
	}
	return res
}

// ValidValues returns the accepted spellings.
func (e *EnumNormalizer[T]) ValidValues() []string {
	return e.normalizer.ValidKeys()
}
