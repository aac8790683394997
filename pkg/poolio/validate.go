package poolio

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/arnavshah/course-planner-api/pkg/models"
)

// ErrParse is matched by every *ParseError
var ErrParse = errors.New("malformed course pool")

// ParseError points at the record and field that could not be read
type ParseError struct {
	Index int
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	switch {
	case e.Index < 0:
		return fmt.Sprintf("course pool: %v", e.Err)
	case e.Field == "":
		return fmt.Sprintf("course pool record %d: %v", e.Index, e.Err)
	}
	return fmt.Sprintf("course pool record %d, field %s: %v", e.Index, e.Field, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrParse }

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report wire names (time_slots[0].day) instead of Go field names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks a single section's field constraints
func Validate(c models.CourseSection) error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			field := fe.Namespace()
			if i := strings.Index(field, "."); i >= 0 {
				field = field[i+1:]
			}
			return &ParseError{Index: -1, Field: field, Err: fmt.Errorf("failed %q constraint (value %v)", fe.Tag(), fe.Value())}
		}
		return err
	}
	return nil
}

// ValidatePool validates every section and rejects repeated (name, class_id)
// pairs. Errors carry the index of the offending record.
func ValidatePool(sections []models.CourseSection) error {
	seen := make(map[string]int, len(sections))
	for i, c := range sections {
		if err := Validate(c); err != nil {
			var pe *ParseError
			if errors.As(err, &pe) {
				pe.Index = i
				return pe
			}
			return &ParseError{Index: i, Err: err}
		}
		if first, ok := seen[c.Key()]; ok {
			return &ParseError{
				Index: i,
				Field: "class_id",
				Err:   fmt.Errorf("course %q already has class %q (record %d)", c.Name, c.ClassID, first),
			}
		}
		seen[c.Key()] = i
	}
	return nil
}
