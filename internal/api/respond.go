package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	svcErr "github.com/oggyb/copal/internal/errors"
	"github.com/oggyb/copal/internal/logger"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Error string `json:"error"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// getValidator returns a validator that reports fields by their json name.
func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		logger.Error("failed to marshal JSON response", "err", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logger.Debug("failed to write JSON response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// fail maps a service error to a status and client-safe message.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	status := svcErr.HTTPStatus(err)
	log := logger.FromContext(r.Context(), nil)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", "path", r.URL.Path, "err", err)
	} else {
		log.Debug("request rejected", "path", r.URL.Path, "err", err)
	}
	writeError(w, status, svcErr.Message(err))
}

// decode reads a JSON body into dst and validates it. On failure it writes
// a 400 and returns false.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read request body")
		return false
	}
	if len(body) == 0 {
		body = []byte("{}")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	if err := getValidator().Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid request body"
	}

	var missing, other []string
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			missing = append(missing, fe.Field())
		case "len":
			other = append(other, fmt.Sprintf("%s must contain exactly %s items", fe.Field(), fe.Param()))
		default:
			other = append(other, fmt.Sprintf("%s is invalid", fe.Field()))
		}
	}
	if len(missing) > 0 {
		other = append([]string{"Missing required fields: " + strings.Join(missing, ", ")}, other...)
	}
	return strings.Join(other, "; ")
}
