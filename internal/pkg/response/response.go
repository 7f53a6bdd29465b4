// internal/pkg/response/response.go
package response

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	xerrors "storelinker-service/internal/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// Response defines the standard API response format.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Success sends a successful response with a message and optional data.
func Success(c *gin.Context, status int, message string, data interface{}) {
	if status == 0 {
		status = http.StatusOK
	}

	c.JSON(status, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Error sends a standardized error response.
func Error(c *gin.Context, code int, message string, err error, data ...interface{}) {
	// Abort first so later handlers in the chain never write.
	c.Abort()

	resp := Response{
		Success: false,
		Message: message,
	}

	if err != nil {
		resp.Error = err.Error()
	}

	if len(data) > 0 {
		resp.Data = data[0]
	}

	c.JSON(code, resp)
}

// Fail maps a service error onto the envelope. Only taxonomy messages reach
// the client; validation errors also carry their field messages in data.
func Fail(c *gin.Context, err error) {
	status := xerrors.HTTPStatus(err)
	msg := xerrors.PublicMessage(err)

	var vErr *xerrors.ValidationError
	if errors.As(err, &vErr) {
		Error(c, status, msg, nil, gin.H{"fields": vErr.Fields})
		return
	}

	if status == http.StatusInternalServerError {
		Error(c, status, msg, nil)
		return
	}
	Error(c, status, msg, errors.New(msg))
}

// ValidationError sends a 400 Bad Request response for a request body that
// failed to bind. Binding tag failures are reported per field.
func ValidationError(c *gin.Context, message string, err error) {
	var vErrs validator.ValidationErrors
	if errors.As(err, &vErrs) {
		fields := make(map[string]string, len(vErrs))
		for _, fe := range vErrs {
			fields[jsonName(fe.Field())] = fieldMessage(fe)
		}
		Error(c, http.StatusBadRequest, message, xerrors.ErrValidation, gin.H{"fields": fields})
		return
	}
	Error(c, http.StatusBadRequest, message, err)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	default:
		return "is invalid"
	}
}

func jsonName(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}
