package handler

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"bookrec/internal/logging"
	"bookrec/internal/recommend"
	"bookrec/internal/service"
)

// errBadRequest marks malformed query parameters.
var errBadRequest = errors.New("bad request")

func badRequest(msg string) error {
	return fmt.Errorf("%w: %s", errBadRequest, msg)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report query parameter names rather than Go field names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("query"); name != "" {
			return name
		}
		return f.Name
	})
	return v
}

// validateRequest checks v's validate tags and reports the first failure as
// a bad request.
func validateRequest(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return badRequest(err.Error())
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return badRequest(fe.Field() + " is required")
	case "required_without":
		return badRequest(fe.Field() + " or " + strings.ToLower(fe.Param()) + " is required")
	default:
		if fe.Param() != "" {
			return badRequest(fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		}
		return badRequest(fmt.Sprintf("%s must satisfy %s", fe.Field(), fe.Tag()))
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn().Err(err).Msg("encode response")
	}
}

// writeError maps err onto a status code. Internal errors are logged and
// reported without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logging.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		msg = "internal error"
	}
	writeJSON(w, status, errorBody{Error: msg})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, recommend.ErrInvalidCount):
		return http.StatusBadRequest
	case errors.Is(err, recommend.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrHistoryDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// intParam reads an integer query parameter, returning def when it is absent.
func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, badRequest(name + " must be an integer")
	}
	return v, nil
}

func boolParam(r *http.Request, name string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(name))
	return err == nil && v
}
