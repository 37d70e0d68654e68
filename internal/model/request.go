package model

import (
	"errors"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// OptimizationRequest is one submission to the optimizer. It is built once
// and never mutated.
type OptimizationRequest struct {
	TotalAudience float64    `json:"total_audience" validate:"gt=0"`
	Budget        float64    `json:"budget" validate:"gt=0"`
	SheetName     string     `json:"sheet_name" validate:"notblank"`
	SourceFile    SourceFile `json:"source_file"`
}

// SourceFile is the uploaded workbook.
type SourceFile struct {
	Name    string `json:"name"`
	Content []byte `json:"-" validate:"min=1"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func requestValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		_ = validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
	})
	return validate
}

// Validate checks every field of the request and returns a *ValidationError
// naming the failed fields.
func (r OptimizationRequest) Validate() error {
	err := requestValidator().Struct(r)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &ValidationError{Fields: []string{"request"}, Err: err}
	}

	fields := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields = append(fields, fieldLabel(fe.StructNamespace()))
	}
	return &ValidationError{Fields: fields, Err: err}
}

// fieldLabel maps struct namespaces to the names a user typed into the form.
func fieldLabel(ns string) string {
	switch strings.TrimPrefix(ns, "OptimizationRequest.") {
	case "TotalAudience":
		return "totalAudience"
	case "Budget":
		return "budget"
	case "SheetName":
		return "sheetName"
	case "SourceFile", "SourceFile.Content":
		return "file"
	default:
		return ns
	}
}
