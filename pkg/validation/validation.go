package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var v *validator.Validate

// Validator returns a singleton validator with custom rules registered.
func Validator() *validator.Validate {
	if v == nil {
		v = validator.New()
		// Custom: grid source path must have a supported extension.
		_ = v.RegisterValidation("gridpath_ext", func(fl validator.FieldLevel) bool {
			s := strings.TrimSpace(fl.Field().String())
			if s == "" {
				return false
			}
			s = strings.ToLower(s)
			for _, ext := range []string{".csv", ".tsv", ".xlsx", ".xlsm", ".xltx", ".xltm"} {
				if strings.HasSuffix(s, ext) {
					return true
				}
			}
			return false
		})
		// Custom: a field/column name must be a plausible header token --
		// 1 to 128 of letters, digits, underscore, colon (for role prefixes
		// like in:/out:), slash (set/nil, set/blank), dot, hyphen and space.
		_ = v.RegisterValidation("colname", func(fl validator.FieldLevel) bool {
			s := strings.TrimSpace(fl.Field().String())
			if s == "" {
				return false
			}
			return colNameRe.MatchString(s)
		})
	}
	return v
}

var colNameRe = regexp.MustCompile(`^[A-Za-z0-9_:/.\- ]{1,128}$`)

// ValidateStruct validates a struct and returns a user-friendly error string
// suitable for MCP tool errors. Returns empty string when valid.
func ValidateStruct(s any) string {
	if err := Validator().Struct(s); err != nil {
		if ve, ok := err.(validator.ValidationErrors); ok && len(ve) > 0 {
			fe := ve[0]
			field := strings.ToLower(fe.Field())
			switch fe.Tag() {
			case "required":
				return fmt.Sprintf("VALIDATION: %s is required", field)
			case "gridpath_ext":
				return "VALIDATION: path must be a supported grid file (.csv, .tsv, .xlsx, .xlsm, .xltx, .xltm)"
			case "colname":
				return fmt.Sprintf("VALIDATION: %s is not a valid column name", field)
			case "min", "max", "gte", "lte":
				return fmt.Sprintf("VALIDATION: %s must satisfy %s=%s", field, fe.Tag(), fe.Param())
			}
			// Fallback generic
			return fmt.Sprintf("VALIDATION: invalid %s", field)
		}
		return "VALIDATION: invalid inputs"
	}
	return ""
}
