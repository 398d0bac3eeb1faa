package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
)

var errNotObject = errors.New("request body must be a JSON object")

// bindObject decodes a JSON object body into v. Non-object bodies, type
// mismatches and trailing data are rejected with 400.
func bindObject(c echo.Context, v any) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return NewBadRequestError("Failed to read request body", err)
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return NewBadRequestError("Invalid request body", errNotObject)
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return NewBadRequestError("Invalid request body", err)
	}
	if dec.More() {
		return NewBadRequestError("Invalid request body", errors.New("unexpected data after JSON object"))
	}
	return nil
}

// successResponse is the acknowledgement returned by deletions
type successResponse struct {
	Success bool `json:"success"`
}

func respondSuccess(c echo.Context) error {
	return c.JSON(http.StatusOK, successResponse{Success: true})
}

// jsonSerializer writes JSON without HTML escaping and reads numbers as
// json.Number.
type jsonSerializer struct{}

// Serialize implements echo.JSONSerializer
func (jsonSerializer) Serialize(c echo.Context, i interface{}, indent string) error {
	enc := json.NewEncoder(c.Response())
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return enc.Encode(i)
}

// Deserialize implements echo.JSONSerializer
func (jsonSerializer) Deserialize(c echo.Context, i interface{}) error {
	dec := json.NewDecoder(c.Request().Body)
	dec.UseNumber()
	if err := dec.Decode(i); err != nil {
		return NewBadRequestError("Invalid request body", err)
	}
	return nil
}
