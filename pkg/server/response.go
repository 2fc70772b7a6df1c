package server

import (
	"encoding/json"
	"net/http"

	errs "reelproxy/pkg/errors"
	"reelproxy/pkg/logger"
)

// apiError is the JSON error envelope returned by every endpoint
type apiError struct {
	Success     bool     `json:"success"`
	Message     string   `json:"message"`
	IsPrivate   bool     `json:"isPrivate,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// User-facing messages. The service fronts a Hindi/English audience,
// so most of these mix both.
const (
	msgURLRequired     = "Instagram URL required hai"
	msgInvalidURL      = "Valid Instagram URL नहीं है"
	msgResolveFailed   = "Video URL नहीं मिल रहा। कृपया valid रील URL डालें।"
	msgPrivateContent  = "यह रील private account की है। Private content download नहीं हो सकता।"
	msgCropFailed      = "Crop processing में error आया। कृपया फिर से try करें।"
	msgDownloadFailed  = "Download में error आया। कृपया फिर से try करें।"
	msgFileNotFound    = "File नहीं मिली"
	msgUploadRequired  = "कृपया कोई file upload करें"
	msgUnsupportedType = "Unsupported file format"
	msgFileInfoFailed  = "File information नहीं मिल सकी"
)

// privateSuggestions accompany a private-content denial
var privateSuggestions = []string{
	"Public account की रील try करें",
	"Account owner से content share करने को कहें",
	"Check करें कि URL सही है",
	"कुछ देर बाद फिर try करें",
	"दूसरी रील का URL use करें",
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.GetLogger().WithError(err).Warn("could not write response body")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, apiError{Success: false, Message: message})
}

// writeResolveError maps a tagged resolution error onto the envelope,
// marking private denials so clients can show the right guidance
func writeResolveError(w http.ResponseWriter, err error) {
	tagged := errs.Classify(err)
	if tagged.Type == errs.ErrorTypePrivate {
		writeJSON(w, http.StatusForbidden, apiError{
			Success:     false,
			Message:     msgPrivateContent,
			IsPrivate:   true,
			Suggestions: privateSuggestions,
		})
		return
	}
	writeJSON(w, errs.HTTPStatus(tagged), apiError{
		Success: false,
		Message: msgResolveFailed,
	})
}
