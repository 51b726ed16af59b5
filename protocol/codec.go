package protocol

import (
	"fmt"
	"io"
	"net/http"

	"github.com/bytedance/sonic"
)

// WriteJSON encodes v as JSON onto w with the given HTTP status.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) error {
	data, err := sonic.Marshal(v)
	if err != nil {
		return fmt.Errorf("protocol: marshal response: %w", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(data)
	return err
}

// WriteError writes the uniform upstream-failure envelope. The detail string
// always carries the "Error:" prefix so callers can pattern-match on it.
func WriteError(w http.ResponseWriter, status int, err error) {
	_ = WriteJSON(w, status, ErrorResponse{Detail: fmt.Sprintf("Error: %v", err)})
}

// DecodeJSON reads and decodes a JSON body into a typed struct.
func DecodeJSON[T any](r io.Reader) (T, error) {
	var v T
	data, err := io.ReadAll(r)
	if err != nil {
		return v, fmt.Errorf("protocol: read body: %w", err)
	}
	if err := sonic.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("protocol: unmarshal body: %w", err)
	}
	return v, nil
}
