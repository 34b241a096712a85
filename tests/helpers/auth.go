package helpers

import (
	"bytes"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"testing"
)

func randInt(max int) int {
	n, _ := rand.Int(rand.Reader, big.NewInt(int64(max)))
	return int(n.Int64())
}

// GeneratePassword generates a 10 character password with a capital and special char
func GeneratePassword() string {
	const (
		lower   = "abcdefghijklmnopqrstuvwxyz"
		upper   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
		special = "!@#$%^&*"
		numbers = "0123456789"
		all     = lower + upper + special + numbers
	)

	password := make([]byte, 10)
	password[0] = upper[randInt(len(upper))]
	password[1] = special[randInt(len(special))]
	password[2] = numbers[randInt(len(numbers))]

	for i := 3; i < 10; i++ {
		password[i] = all[randInt(len(all))]
	}

	for i := range password {
		j := randInt(len(password))
		password[i], password[j] = password[j], password[i]
	}

	return string(password)
}

// Signup creates an account through the public API
func Signup(t *testing.T, baseURL, username, name, password string) *http.Response {
	t.Helper()
	body, _ := json.Marshal(map[string]string{
		"username":   username,
		"name":       name,
		"password":   password,
		"password_2": password,
	})
	resp, err := http.Post(baseURL+"/api/auth/signup", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("Signup request failed: %v", err)
	}
	return resp
}

// Login authenticates through the public API and returns the session cookie
func Login(t *testing.T, baseURL, username, password string) *http.Cookie {
	t.Helper()
	body, _ := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	resp, err := http.Post(baseURL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("Login request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Login failed with status %d", resp.StatusCode)
	}

	for _, cookie := range resp.Cookies() {
		if cookie.Name == "session_token" {
			return cookie
		}
	}

	t.Fatal("Login response did not set the session cookie")
	return nil
}

// AcquireAccount performs signup and login to get a session cookie
func AcquireAccount(t *testing.T, baseURL, username, password string) *http.Cookie {
	t.Helper()
	resp := Signup(t, baseURL, username, fmt.Sprintf("Test account %s", username), password)
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusConflict {
		t.Fatalf("Signup failed with status %d", resp.StatusCode)
	}
	resp.Body.Close()

	return Login(t, baseURL, username, password)
}

// AuthedRequest performs an HTTP request with the session cookie attached
func AuthedRequest(t *testing.T, method, url string, body []byte, cookie *http.Cookie) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Request %s %s failed: %v", method, url, err)
	}
	return resp
}
