package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rohits-web03/radiologix/internal/common"
	"github.com/rohits-web03/radiologix/internal/utils"
)

// maxJSONBody bounds auth request bodies.
const maxJSONBody = 1 << 20

var errEmptyBody = errors.New("empty body")

// decodeJSON decodes exactly one JSON object into dst, rejecting unknown
// fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	if dec.More() {
		return fmt.Errorf("unexpected data after JSON object")
	}
	return nil
}

func badRequest(w http.ResponseWriter, message string) {
	utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{
		Success: false,
		Message: message,
	})
}

func internalError(w http.ResponseWriter) {
	utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{
		Success: false,
		Message: "Internal server error",
	})
}

// validationMessage strips the sentinel prefix so clients see only the field
// problem.
func validationMessage(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, common.ErrValidation.Error()+": "); i >= 0 {
		msg = msg[i+len(common.ErrValidation.Error())+2:]
	}
	if msg == "" {
		return "Invalid input"
	}
	return msg
}
