package response

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"

	"pmchat-backend/pkg/apperror"

	"github.com/gin-gonic/gin"
)

// Error writes err as {error: ...} with the status its kind maps to
func Error(c *gin.Context, err error) {
	status := apperror.HTTPStatus(err)
	if status >= 500 {
		log.Printf("[HTTP] %s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, gin.H{"error": apperror.Message(err)})
}

// CallerEmail returns the email verified by the auth middleware. The email
// the client supplied is only used when authentication is disabled.
func CallerEmail(c *gin.Context, claimed string) string {
	if email := c.GetString("email"); email != "" {
		return email
	}
	return claimed
}

// BindStrict decodes the JSON body into v and rejects fields v does not declare
func BindStrict(c *gin.Context, v interface{}) error {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return apperror.Validation("decode", "failed to read body: %v", err)
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperror.Validation("decode", "request body is required")
		}
		return apperror.Validation("decode", "%s", describe(err))
	}
	return nil
}

// Bind decodes the JSON body with gin's binding rules
func Bind(c *gin.Context, v interface{}) error {
	if err := c.ShouldBindJSON(v); err != nil {
		return apperror.Validation("decode", "%s", describe(err))
	}
	return nil
}

func describe(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return fmt.Sprintf("invalid type for field %q", typeErr.Field)
	}
	return err.Error()
}
