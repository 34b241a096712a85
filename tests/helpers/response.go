package helpers

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"
)

// AssertStatus verifies the HTTP status code
func AssertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("Expected status %d, got %d", expected, resp.StatusCode)
	}
}

// ParseJSON decodes the response body into the target
func ParseJSON(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response body: %v", err)
	}
	defer resp.Body.Close()

	if err := json.Unmarshal(body, target); err != nil {
		t.Fatalf("Failed to decode JSON: %v. Body: %s", err, string(body))
	}
}

// AssertErrorType verifies the error envelope carries the expected type
func AssertErrorType(t *testing.T, resp *http.Response, expected string) {
	t.Helper()
	var envelope struct {
		Ok   bool   `json:"ok"`
		Type string `json:"type"`
	}
	ParseJSON(t, resp, &envelope)
	if envelope.Ok {
		t.Error("Expected ok=false in error envelope")
	}
	if envelope.Type != expected {
		t.Errorf("Expected error type %q, got %q", expected, envelope.Type)
	}
}
