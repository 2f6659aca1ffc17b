package catalog

import (
	"errors"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/kaziconnect/kaziconnect/internal/model"
)

// ValidationError lists every rejected field with a short reason.
type ValidationError struct {
	Fields map[string]string `json:"fields"`
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

const (
	tagNonNegative = "nonnegative"
	tagSalaryRange = "salary_range"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonName)
	v.RegisterStructValidation(salaryRules, model.Job{})
	return v
}

// jsonName reports fields under their wire names.
func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}

func salaryRules(sl validator.StructLevel) {
	j := sl.Current().Interface().(model.Job)
	switch {
	case j.Salary.Min < 0 || j.Salary.Max < 0:
		sl.ReportError(j.Salary, "salary", "Salary", tagNonNegative, "")
	case j.Salary.Max > 0 && j.Salary.Min > j.Salary.Max:
		sl.ReportError(j.Salary, "salary", "Salary", tagSalaryRange, "")
	}
}

func validateJob(j *model.Job) error {
	return check(validate.Struct(j))
}

func validateCompany(co *model.Company) error {
	return check(validate.Struct(co))
}

func validateResource(r *model.Resource) error {
	return check(validate.Struct(r))
}

// check translates validator errors into a ValidationError. The first
// reason reported for a field wins.
func check(err error) error {
	if err == nil {
		return nil
	}

	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return err
	}

	fields := make(map[string]string, len(errs))
	for _, fe := range errs {
		if _, exists := fields[fe.Field()]; !exists {
			fields[fe.Field()] = reason(fe)
		}
	}
	return &ValidationError{Fields: fields}
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of " + strings.Join(strings.Fields(fe.Param()), ", ")
	case "http_url":
		return "must be an http or https url"
	case tagNonNegative:
		return "must not be negative"
	case tagSalaryRange:
		return "min must not exceed max"
	default:
		return "is invalid"
	}
}

// cleanList trims entries, drops empty ones and removes case-insensitive
// duplicates keeping the first spelling.
func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}
