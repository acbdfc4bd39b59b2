package services

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// roundTo rounds v half away from zero to the given decimal places, matching
// what a numeric column of that scale stores.
func roundTo(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}

// checkShape runs the struct-tag rules on input and turns the first
// violation into an InvalidInput error.
func checkShape(input any) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("validate input: %w", err)
	}

	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return invalidInput("The %s field is required.", fe.Field())
	case "max":
		return invalidInput("The %s field must be at most %s characters long.", fe.Field(), fe.Param())
	default:
		return invalidInput("The %s field is invalid.", fe.Field())
	}
}
