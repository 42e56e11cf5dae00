package httpjson

import (
	"encoding/json"
	"net/http"

	log "github.com/sirupsen/logrus"
)

type contentType string

const JSON contentType = "application/json; charset=utf-8"

// Render writes v to the response body as JSON with a 200 status code.
func Render(w http.ResponseWriter, v any, cType contentType) {
	RenderStatus(w, http.StatusOK, v, cType)
}

// RenderStatus writes v to the response body as JSON with the given status code.
// The body is marshaled before any byte is written, so a marshaling failure
// still produces a well-formed 500 response.
func RenderStatus(w http.ResponseWriter, statusCode int, v any, cType contentType) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Errorf("Error marshaling response body: %s", err)
		http.Error(w, `{"error": "An internal error occurred while processing this request."}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", string(cType))
	w.WriteHeader(statusCode)
	if _, err = w.Write(body); err != nil {
		log.Errorf("Error writing response body: %s", err)
	}
}
