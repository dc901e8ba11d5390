package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/lfca/lfca/internal/lfcaerrors"
)

// envelope is the uniform response wrapper named in §6: a successful
// response never carries an "error" key, and an error response never
// carries a result body alongside it.
type envelope struct {
	Error *errorBody `json:"error,omitempty"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError maps err onto the closed §7 error taxonomy's HTTP
// projection. An *lfcaerrors.Error's Kind picks the status and code; any
// other error is treated as Internal and never leaks its raw message.
func writeError(w http.ResponseWriter, logger *logrus.Logger, err error) {
	kind := lfcaerrors.GetKind(err)

	status, code := http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"
	message := "internal error"

	switch kind {
	case lfcaerrors.KindValidation:
		status, code = http.StatusBadRequest, "VALIDATION_ERROR"
		message = err.Error()
	case lfcaerrors.KindNotFound:
		status, code = http.StatusNotFound, "HTTP_404"
		message = err.Error()
	case lfcaerrors.KindState:
		status, code = http.StatusBadRequest, "STATE_ERROR"
		message = err.Error()
	default:
		logger.WithError(err).Error("internal error serving request")
	}

	writeJSON(w, status, envelope{Error: &errorBody{Code: code, Message: message}})
}

func badRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, envelope{Error: &errorBody{Code: "HTTP_400", Message: message}})
}
