package pkg

import (
	"encoding/json"
	"net/http"

	log "github.com/sirupsen/logrus"
)

var ContentType = struct {
	JSON string
	Text string
}{
	JSON: "application/json",
	Text: "text/plain",
}

func WriteResponse(w http.ResponseWriter, contentType, message string, statusCode int) {
	WriteResponseBytes(w, contentType, []byte(message), statusCode)
}

func WriteResponseBytes(w http.ResponseWriter, contentType string, message []byte, statusCode int) {
	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	w.WriteHeader(statusCode)
	if _, err := w.Write(message); err != nil {
		log.Errorf("failed to write response [%s]: %s", message, err)
	}
}

func WriteResponseBytesOK(w http.ResponseWriter, contentType string, message []byte) {
	WriteResponseBytes(w, contentType, message, http.StatusOK)
}

func WriteTextResponseOK(w http.ResponseWriter, message string) {
	WriteResponse(w, ContentType.Text, message, http.StatusOK)
}

func WriteJSONResponseOK(w http.ResponseWriter, message string) {
	WriteResponse(w, ContentType.JSON, message, http.StatusOK)
}

// WriteJSONError writes the error payload shape the display clients expect:
// {"error": "...", "details": "..."}, details omitted when empty.
func WriteJSONError(w http.ResponseWriter, statusCode int, errMessage, details string) {
	payload := struct {
		Error   string `json:"error"`
		Details string `json:"details,omitempty"`
	}{
		Error:   errMessage,
		Details: details,
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		log.Errorf("marshal error response [%s]: %s", errMessage, err)
		http.Error(w, errMessage, statusCode)
		return
	}

	WriteResponseBytes(w, ContentType.JSON, payloadBytes, statusCode)
}
