package web

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"studio/internal/adapters/http/middleware"
	"studio/internal/domain/apperr"
	"studio/internal/domain/calendar"
)

var clockPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// validate checks request DTOs. Field names in errors use the json tag.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		return clockPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("ymd", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(calendar.DateLayout, fl.Field().String())
		return err == nil
	})
	return v
}

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

type rejectionResponse struct {
	Reason        apperr.Reason `json:"reason"`
	Message       string        `json:"message"`
	OffsetSeconds int64         `json:"offset_seconds,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode_response_failed", "error", err.Error())
	}
}

func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
}

func badRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: message})
}

// writeError maps a domain outcome onto its status code. Anything that is not an
// *apperr.Error is an infrastructure failure and is logged, never echoed.
func writeError(w http.ResponseWriter, err error) {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		badRequest(w, err.Error())
	case apperr.KindNotFound:
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case apperr.KindConflict:
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case apperr.KindTimeWindow, apperr.KindCapacityExceeded, apperr.KindDuplicateCheckIn:
		var e *apperr.Error
		errors.As(err, &e)
		writeJSON(w, http.StatusForbidden, rejectionResponse{
			Reason:        e.Reason,
			Message:       e.Error(),
			OffsetSeconds: int64(e.Offset / time.Second),
		})
	default:
		internalError(w, err)
	}
}

// decodeJSON strictly decodes the body into v and validates it. An empty body decodes
// to the zero value when allowEmpty is set. On failure the 400 has been written.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any, allowEmpty bool) bool {
	if err := strictDecode(r, v); err != nil && !(allowEmpty && errors.Is(err, io.EOF)) {
		badRequest(w, "invalid JSON")
		return false
	}
	return validRequest(w, v)
}

func strictDecode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// validRequest runs struct validation and writes field errors as a 400.
func validRequest(w http.ResponseWriter, v any) bool {
	err := validate.Struct(v)
	if err == nil {
		return true
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		badRequest(w, "invalid input")
		return false
	}
	fields := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields[fe.Field()] = fe.Tag()
	}
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation failed", Fields: fields})
	return false
}

// requirePrincipal returns the authenticated caller or writes a 401.
func requirePrincipal(w http.ResponseWriter, r *http.Request) (middleware.Principal, bool) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		slog.Warn("auth_denied", "path", r.URL.Path, "reason", "no principal")
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "not authenticated"})
		return middleware.Principal{}, false
	}
	return p, true
}

// requireOwner returns an owner caller, or writes a 401/403.
func requireOwner(w http.ResponseWriter, r *http.Request) (middleware.Principal, bool) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return p, false
	}
	if p.Role != middleware.RoleOwner {
		forbidden(w, r, p, middleware.RoleOwner)
		return middleware.Principal{}, false
	}
	return p, true
}

func forbidden(w http.ResponseWriter, r *http.Request, p middleware.Principal, required string) {
	slog.Warn("auth_denied", "path", r.URL.Path, "user_id", p.UserID, "role", p.Role, "required", required)
	writeJSON(w, http.StatusForbidden, errorResponse{Error: "forbidden"})
}

// today is the current date in the studio timezone.
func today() string {
	return clock().In(settings.Location).Format(calendar.DateLayout)
}
