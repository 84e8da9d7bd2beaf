package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TestContext carries per-scenario state: the actors, their tokens and the
// last HTTP exchange.
type TestContext struct {
	BaseURL    string
	SigningKey string
	Issuer     string
	Audience   string
	HTTPClient *http.Client

	users        map[string]uuid.UUID
	currentUser  string
	saved        map[string]string
	lastStatus   int
	lastBody     []byte
	lastResponse map[string]any
}

// NewTestContext reads the target server and token settings from the
// environment so the suite can run against any deployment.
func NewTestContext() *TestContext {
	return &TestContext{
		BaseURL:    getEnv("BLOODLINK_E2E_URL", "http://localhost:8080"),
		SigningKey: getEnv("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		Issuer:     os.Getenv("JWT_ISSUER"),
		Audience:   getEnv("JWT_AUDIENCE", "authenticated"),
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Reset clears scenario state between scenarios.
func (tc *TestContext) Reset() {
	tc.users = make(map[string]uuid.UUID)
	tc.saved = make(map[string]string)
	tc.currentUser = ""
	tc.lastStatus = 0
	tc.lastBody = nil
	tc.lastResponse = nil
}

// ActAs switches the caller. Unknown names get a fresh user ID.
func (tc *TestContext) ActAs(name string) {
	if _, ok := tc.users[name]; !ok {
		tc.users[name] = uuid.New()
	}
	tc.currentUser = name
}

// ActAnonymously drops the bearer token from subsequent requests.
func (tc *TestContext) ActAnonymously() {
	tc.currentUser = ""
}

func (tc *TestContext) UserID(name string) string {
	return tc.users[name].String()
}

func (tc *TestContext) Save(key, value string) {
	tc.saved[key] = value
}

func (tc *TestContext) Saved(key string) string {
	return tc.saved[key]
}

// Expand replaces {key} placeholders in a path with saved values.
func (tc *TestContext) Expand(path string) string {
	for k, v := range tc.saved {
		path = strings.ReplaceAll(path, "{"+k+"}", v)
	}
	return path
}

func (tc *TestContext) POST(path string, body interface{}) error {
	return tc.do(http.MethodPost, path, body)
}

func (tc *TestContext) PUT(path string, body interface{}) error {
	return tc.do(http.MethodPut, path, body)
}

func (tc *TestContext) GET(path string) error {
	return tc.do(http.MethodGet, path, nil)
}

func (tc *TestContext) GetLastResponseStatus() int {
	return tc.lastStatus
}

func (tc *TestContext) GetLastResponseBody() []byte {
	return tc.lastBody
}

// GetResponseField returns a top-level or dotted field ("statistics.total")
// from the last JSON response.
func (tc *TestContext) GetResponseField(field string) (interface{}, error) {
	if tc.lastResponse == nil {
		return nil, fmt.Errorf("no JSON response available")
	}
	var current any = tc.lastResponse
	for _, part := range strings.Split(field, ".") {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("field %q: %q is not an object", field, part)
		}
		value, ok := obj[part]
		if !ok {
			return nil, fmt.Errorf("field %q not found in response", field)
		}
		current = value
	}
	return current, nil
}

func (tc *TestContext) do(method, path string, body interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, tc.BaseURL+tc.Expand(path), reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tc.currentUser != "" {
		token, err := tc.mintToken(tc.users[tc.currentUser])
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := tc.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	tc.lastStatus = resp.StatusCode
	tc.lastBody, err = io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	tc.lastResponse = nil
	if len(tc.lastBody) > 0 {
		var parsed map[string]any
		if json.Unmarshal(tc.lastBody, &parsed) == nil {
			tc.lastResponse = parsed
		}
	}
	return nil
}

func (tc *TestContext) mintToken(userID uuid.UUID) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		Issuer:    tc.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(15 * time.Minute)),
	}
	if tc.Audience != "" {
		claims.Audience = jwt.ClaimStrings{tc.Audience}
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(tc.SigningKey))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
