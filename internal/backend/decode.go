package backend

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
)

const (
	maxJSONBodySize  = 32 << 20
	maxErrorBodySize = 4 << 10
)

// readBody reads a size-limited, decompressed response body.
func readBody(resp *http.Response, limit int64) ([]byte, error) {
	var reader io.Reader = resp.Body
	switch strings.ToLower(resp.Header.Get("Content-Encoding")) {
	case "gzip":
		gzReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("creating gzip reader: %w", err)
		}
		defer gzReader.Close()
		reader = gzReader
	case "br":
		reader = brotli.NewReader(resp.Body)
	}

	body, err := io.ReadAll(io.LimitReader(reader, limit))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	return body, nil
}

func isJSON(resp *http.Response) bool {
	mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

type errorBody struct {
	Error                string `json:"error"`
	Message              string `json:"message"`
	Restricted           bool   `json:"restricted"`
	LoginRequired        bool   `json:"login_required"`
	VerificationRequired bool   `json:"verification_required"`
}

func (b errorBody) message() string {
	if b.Error != "" {
		return b.Error
	}
	return b.Message
}

func (b errorBody) restricted() bool {
	return b.Restricted || b.LoginRequired || b.VerificationRequired
}

// parseErrorBody extracts a message and the restricted flag from an error
// response. A body that claims to be JSON but is not yields no message.
func parseErrorBody(resp *http.Response, body []byte) (string, bool) {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return "", false
	}

	if isJSON(resp) || strings.HasPrefix(trimmed, "{") {
		var eb errorBody
		if err := json.Unmarshal(body, &eb); err != nil {
			return "", false
		}
		msg := strings.TrimSpace(eb.message())
		return msg, eb.restricted() || looksRestricted(msg)
	}

	if mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type")); mediaType == "text/html" {
		return "", false
	}

	return trimmed, looksRestricted(trimmed)
}

// restrictedMarkers are fragments of extractor messages about gated
// content. Matching them is a fallback for backends that do not send the
// restricted flag and breaks whenever the upstream wording changes.
var restrictedMarkers = []string{
	"sign in to confirm",
	"confirm you're not a bot",
	"confirm you’re not a bot",
	"login required",
	"requires login",
	"verification required",
}

func looksRestricted(msg string) bool {
	lower := strings.ToLower(msg)
	for _, m := range restrictedMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// dispositionFilename returns the file name suggested by a
// Content-Disposition header value.
func dispositionFilename(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	return params["filename"]
}
