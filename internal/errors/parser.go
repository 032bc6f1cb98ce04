package errors

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrorInfo is the client-facing classification of an error.
type ErrorInfo struct {
	Status  int
	Code    string
	Message string
}

// ParseError classifies err without leaking driver details. resource names
// the thing being handled ("custom outfit") and is used in messages.
func ParseError(err error, resource string) ErrorInfo {
	if err == nil {
		return ErrorInfo{Status: http.StatusInternalServerError, Code: InternalServerError, Message: "Something went wrong"}
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrorInfo{Status: http.StatusNotFound, Code: ResourceNotFound, Message: notFoundMessage(resource)}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrorInfo{
			Status:  http.StatusServiceUnavailable,
			Code:    InternalDatabaseError,
			Message: "The request timed out. Please try again",
		}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch strings.TrimSpace(pgErr.Code) {
		case "23505": // unique_violation
			return ErrorInfo{Status: http.StatusConflict, Code: ResourceAlreadyExists, Message: "This record already exists"}
		case "23503": // foreign_key_violation
			return ErrorInfo{Status: http.StatusConflict, Code: ResourceConflict, Message: "A referenced record does not exist"}
		case "23502": // not_null_violation
			return ErrorInfo{Status: http.StatusBadRequest, Code: ValidationRequired, Message: requiredMessage(pgErr.ColumnName)}
		case "23514": // check_violation
			return ErrorInfo{Status: http.StatusBadRequest, Code: ValidationInvalidInput, Message: "A value is out of the allowed range"}
		case "22P02": // invalid_text_representation
			return ErrorInfo{Status: http.StatusBadRequest, Code: ValidationInvalidFormat, Message: "A value has an invalid format"}
		}
	}

	// drivers that do not expose SQLSTATE
	errLower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errLower, "duplicate key"), strings.Contains(errLower, "unique constraint"):
		return ErrorInfo{Status: http.StatusConflict, Code: ResourceAlreadyExists, Message: "This record already exists"}
	case strings.Contains(errLower, "not null constraint"), strings.Contains(errLower, "violates not-null constraint"):
		return ErrorInfo{Status: http.StatusBadRequest, Code: ValidationRequired, Message: "A required field is missing"}
	case strings.Contains(errLower, "connection refused"),
		strings.Contains(errLower, "no such host"),
		strings.Contains(errLower, "timeout"):
		return ErrorInfo{
			Status:  http.StatusServiceUnavailable,
			Code:    InternalDatabaseError,
			Message: "A backing service is unavailable. Please try again later",
		}
	}

	return ErrorInfo{Status: http.StatusInternalServerError, Code: InternalServerError, Message: defaultMessage(resource)}
}

// ParseAndRespond writes the classified error.
func ParseAndRespond(c *gin.Context, err error, resource string) ErrorInfo {
	info := ParseError(err, resource)
	RespondWithError(c, info.Status, info.Code, info.Message)
	return info
}

func init() {
	UseJSONFieldNames()
}

// UseJSONFieldNames makes gin's validator report fields by their json tag,
// so FieldErrors keys match the request body.
func UseJSONFieldNames() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
}

// FieldErrors flattens binding errors into field -> message. Errors that
// are not validator errors (malformed JSON) are reported under "body".
func FieldErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"body": "request body is not valid JSON for this endpoint"}
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fieldPath(fe)] = fieldMessage(fe)
	}
	return fields
}

// fieldPath drops the top-level struct name: "canvas_data.placedItems[0].scale".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "min":
		return "must be at least " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "url":
		return "must be a valid URL"
	default:
		return "is invalid (" + fe.Tag() + ")"
	}
}

func requiredMessage(column string) string {
	if column == "" {
		return "A required field is missing"
	}
	return column + " is required"
}

func notFoundMessage(resource string) string {
	if resource == "" {
		return "The requested resource was not found"
	}
	return strings.ToUpper(resource[:1]) + resource[1:] + " not found"
}

func defaultMessage(resource string) string {
	if resource == "" {
		return "Something went wrong. Please try again later"
	}
	return "Failed to process " + resource + ". Please try again later"
}
