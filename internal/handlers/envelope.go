package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jhalloran/linkgate/internal/models"
)

// Wire codes of the code-style envelope.
const (
	CodeSuccess       = 0
	CodeInvalidParam  = 1
	CodeInvalidAction = 2
	CodeNotLogin      = 3
	CodeServerError   = 4
	CodeIncompletion  = 5
)

// codeEnvelope is the {"code": int, "data": ...} response shape used
// by the credential-issuing actions.
type codeEnvelope struct {
	Code int         `json:"code"`
	Data interface{} `json:"data"`
}

// booleanEnvelope is the {"result": bool, "data": ...} response shape
// used by the lookup actions.
type booleanEnvelope struct {
	Result bool        `json:"result"`
	Data   interface{} `json:"data"`
}

func writeCodeEnvelope(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(codeEnvelope{Code: code, Data: data})
}

func writeBooleanEnvelope(w http.ResponseWriter, result bool, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(booleanEnvelope{Result: result, Data: data})
}

// codeForError maps a service failure to its wire code and message.
// Messages carry no internal identifiers.
func codeForError(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrInvalidParam), errors.Is(err, models.ErrEmptyOpens):
		return CodeInvalidParam, err.Error()
	case errors.Is(err, models.ErrProfileIncomplete):
		return CodeIncompletion, err.Error()
	case errors.Is(err, models.ErrAccountLocked),
		errors.Is(err, models.ErrAccountUnavailable),
		errors.Is(err, models.ErrRestricted):
		return CodeInvalidAction, err.Error()
	case errors.Is(err, models.ErrNotFound),
		errors.Is(err, models.ErrInvalidCredential),
		errors.Is(err, models.ErrInvalidAccess),
		errors.Is(err, models.ErrExpired),
		errors.Is(err, models.ErrReplayRejected):
		return CodeNotLogin, err.Error()
	default:
		return CodeServerError, "internal server error"
	}
}

// messageForError is the boolean-envelope rendering of the same
// taxonomy.
func messageForError(err error) string {
	code, message := codeForError(err)
	if code == CodeServerError {
		return "internal server error"
	}
	return message
}

func writeCodeError(w http.ResponseWriter, err error) {
	code, message := codeForError(err)
	writeCodeEnvelope(w, code, message)
}

func writeBooleanError(w http.ResponseWriter, err error) {
	writeBooleanEnvelope(w, false, messageForError(err))
}
