package scenario

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	sferrors "github.com/randalmurphal/sagaflow/pkg/sagaflow/errors"
)

// translateValidationError converts a validator.ValidationErrors into
// one *errors.ConfigurationError per failed field, with a dotted path
// derived from the struct's validator namespace (stripping the leading
// type name validator always includes).
func translateValidationError(err error) []error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []error{&sferrors.ConfigurationError{Message: err.Error()}}
	}

	issues := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		path := dottedPath(fe.Namespace())
		issues = append(issues, &sferrors.ConfigurationError{
			Path:    path,
			Message: fmt.Sprintf("failed %q validation", fe.Tag()),
		})
	}
	return issues
}

// dottedPath strips the leading "Scenario." namespace segment that
// go-playground/validator always prefixes the root struct name with,
// and lower-cases the first rune of each remaining segment to match
// the scenario document's own field naming.
func dottedPath(namespace string) string {
	segments := strings.SplitN(namespace, ".", 2)
	if len(segments) != 2 {
		return namespace
	}
	parts := strings.Split(segments[1], ".")
	for i, part := range parts {
		r, size := utf8.DecodeRuneInString(part)
		if size == 0 {
			continue
		}
		parts[i] = string(unicode.ToLower(r)) + part[size:]
	}
	return strings.Join(parts, ".")
}
