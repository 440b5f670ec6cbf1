package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"devhelper/internal/review"
)

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"error": strings.TrimSpace(message),
	})
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	encoded, err := json.Marshal(value)
	if err != nil {
		http.Error(w, `{"error":"encode response"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(encoded, '\n'))
}

// payload is a decoded request body. JSON bodies keep their types; form
// bodies hold a string per key, or []any for repeated keys.
type payload map[string]any

// decode reads a JSON or form body. On failure it writes the response and
// returns false.
func (h *handler) decode(w http.ResponseWriter, r *http.Request) (payload, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxBodyBytes)
	body, err := decodeBody(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return nil, false
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return body, true
}

func decodeBody(r *http.Request) (payload, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		var err error
		if mediaType == "multipart/form-data" {
			err = r.ParseMultipartForm(1 << 20)
		} else {
			err = r.ParseForm()
		}
		if err != nil {
			return nil, unwrapBodyError(err, "decode request form")
		}
		out := payload{}
		for key, values := range r.PostForm {
			if len(values) == 1 {
				out[key] = values[0]
				continue
			}
			list := make([]any, len(values))
			for i, v := range values {
				list[i] = v
			}
			out[key] = list
		}
		return out, nil
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, unwrapBodyError(err, "read request body")
	}
	out := payload{}
	if len(strings.TrimSpace(string(data))) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, errors.New("decode request JSON")
	}
	return out, nil
}

func unwrapBodyError(err error, message string) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return err
	}
	return errors.New(message)
}

// str returns a string field, accepting numbers for id-like fields.
func (p payload) str(key string) string {
	switch v := p[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

// prURLs reads the optional PR list. A string is split on newlines and
// commas; an array is taken element-wise. A missing or empty value returns
// nil, which asks for auto-detection.
func (p payload) prURLs(key string) []string {
	switch v := p[key].(type) {
	case string:
		if v == "" {
			return nil
		}
		return review.SplitPRURLs(v)
	case []any:
		var out []string
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, review.SplitPRURLs(s)...)
			}
		}
		return out
	default:
		return nil
	}
}
