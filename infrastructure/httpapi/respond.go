package httpapi

import (
	"encoding/json"
	"fmt"
	"messenger/domain"
	"messenger/errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

var validate = validator.New()

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError renders err with the status of its kind and its stable code.
func WriteError(w http.ResponseWriter, err error) {
	status := errors.MapToHTTPStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	writeJSON(w, status, errorResponse{Code: errors.CodeOf(err), Message: message})
}

// decode reads a JSON body into v and runs the struct validation tags.
func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %s", errors.ErrInvalidRequest, err.Error())
	}
	return check(v)
}

func check(v any) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %s", errors.ErrInvalidRequest, err.Error())
	}
	return nil
}

func pathInt(r *http.Request, name string) (int64, error) {
	n, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: bad %s", errors.ErrInvalidRequest, name)
	}
	return n, nil
}

func pathUser(r *http.Request, name string) (domain.UserID, error) {
	n, err := pathInt(r, name)
	return domain.UserID(n), err
}

func pathGroup(r *http.Request, name string) (domain.GroupID, error) {
	n, err := pathInt(r, name)
	return domain.GroupID(n), err
}

// formInt reads a positive integer from the query string or form body.
func formInt(r *http.Request, name string) int64 {
	n, err := strconv.ParseInt(r.FormValue(name), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
