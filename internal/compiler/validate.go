package compiler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/roach88/factstore/internal/condition"
	"github.com/roach88/factstore/internal/ir"
)

// Validation error codes (E100-E199)
const (
	ErrSchema              = "E100" // struct-level constraint violated
	ErrInvalidFactKey      = "E101" // fact key rejected by key rules
	ErrInvalidFactValue    = "E102" // fact value absent, non-finite, or too long
	ErrDuplicateFact       = "E103" // fact key declared twice
	ErrInvalidComputedKey  = "E104" // computed key rejected by key rules
	ErrDuplicateComputed   = "E105" // computed key declared twice
	ErrComputedShadowsFact = "E106" // computed key also declared as a fact
	ErrInvalidCondition    = "E107" // condition fails to parse
	ErrCircularDependency  = "E108" // computed facts form a cycle
	ErrInvalidPersistence  = "E109" // persistence key empty or invalid
)

// ValidationError represents a spec validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// specValidate checks the struct tags on ir.FactSpec and its sections.
var specValidate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks a compiled spec and returns every problem found
// (does not fail-fast). A nil or empty result means the spec can be loaded
// by engine.FromSpec.
func Validate(spec *ir.FactSpec) []ValidationError {
	if spec == nil {
		return []ValidationError{{Field: "spec", Message: "spec is nil", Code: ErrSchema}}
	}

	var errs []ValidationError
	errs = append(errs, validateSchema(spec)...)

	facts := make(map[string]bool, len(spec.Facts))
	for i, f := range spec.Facts {
		field := fmt.Sprintf("facts[%d]", i)
		key, err := ir.NormalizeKey(f.Key)
		if err != nil {
			errs = append(errs, ValidationError{Field: field, Message: keyMessage(err), Code: ErrInvalidFactKey})
			continue
		}
		if facts[key] {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("duplicate fact %q", key),
				Code:    ErrDuplicateFact,
			})
		}
		facts[key] = true

		// null facts are simply absent
		if f.Value == nil {
			continue
		}
		if err := ir.ValidateValue(key, f.Value); err != nil {
			errs = append(errs, ValidationError{
				Field:   "facts." + key,
				Message: keyMessage(err),
				Code:    ErrInvalidFactValue,
			})
		}
	}

	computed := make(map[string]bool, len(spec.Computed))
	for i, c := range spec.Computed {
		field := fmt.Sprintf("computed[%d]", i)
		key, err := ir.NormalizeKey(c.Key)
		if err != nil {
			errs = append(errs, ValidationError{Field: field, Message: keyMessage(err), Code: ErrInvalidComputedKey})
			continue
		}
		field = "computed." + key

		if computed[key] {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("computed flag %q declared twice", key),
				Code:    ErrDuplicateComputed,
			})
		}
		computed[key] = true

		if facts[key] {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("computed flag %q is also declared as a fact", key),
				Code:    ErrComputedShadowsFact,
			})
		}

		errs = append(errs, validateCondition(field, c.Condition)...)
	}

	for _, cycle := range AnalyzeCycles(spec) {
		errs = append(errs, ValidationError{
			Field:   "computed." + cycle.Path[0],
			Message: cycle.Message,
			Code:    ErrCircularDependency,
		})
	}

	if p := spec.Persistence; p != nil {
		if _, err := ir.NormalizeKey(p.Key); err != nil && strings.TrimSpace(p.Key) != "" {
			errs = append(errs, ValidationError{
				Field:   "persistence.key",
				Message: keyMessage(err),
				Code:    ErrInvalidPersistence,
			})
		}
	}

	return errs
}

// validateSchema runs the struct tag constraints.
func validateSchema(spec *ir.FactSpec) []ValidationError {
	err := specValidate.Struct(spec)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []ValidationError{{Field: "spec", Message: err.Error(), Code: ErrSchema}}
	}

	errs := make([]ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		code := ErrSchema
		if strings.HasPrefix(fe.Namespace(), "FactSpec.Persistence.Key") {
			code = ErrInvalidPersistence
		}
		errs = append(errs, ValidationError{
			Field:   schemaField(fe.Namespace()),
			Message: schemaMessage(fe),
			Code:    code,
		})
	}
	return errs
}

func validateCondition(field, cond string) []ValidationError {
	// Empty and oversized conditions are reported by the schema check
	if cond == "" || len(cond) > ir.MaxConditionLength {
		return nil
	}
	if err := condition.Validate(cond); err != nil {
		return []ValidationError{{Field: field, Message: err.Error(), Code: ErrInvalidCondition}}
	}
	return nil
}

// schemaField turns "FactSpec.Computed[0].Key" into "computed[0].key".
func schemaField(ns string) string {
	ns = strings.TrimPrefix(ns, "FactSpec.")
	parts := strings.Split(ns, ".")
	for i, p := range parts {
		parts[i] = toSnake(p)
	}
	return strings.Join(parts, ".")
}

func toSnake(s string) string {
	var sb strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && s[i-1] != '[' {
				sb.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func schemaMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s long", fe.Param())
	case "gte":
		return fmt.Sprintf("must be >= %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be <= %s", fe.Param())
	default:
		return fmt.Sprintf("failed %q constraint", fe.Tag())
	}
}

// keyMessage strips the code prefix from ir validation errors.
func keyMessage(err error) string {
	var ve *ir.ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	return err.Error()
}
