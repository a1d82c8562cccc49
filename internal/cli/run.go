// Package cli implements a thin client for the diagnostics HTTP API, useful
// for smoke-testing a deployment without crafting curl invocations.
package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

type apiClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type apiError struct {
	Status    int
	Code      string
	Message   string
	RequestID string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("api error status=%d code=%s message=%s", e.Status, e.Code, e.Message)
}

func Run(args []string, stdout io.Writer, stderr io.Writer) int {
	root := flag.NewFlagSet("aiops", flag.ContinueOnError)
	root.SetOutput(stderr)

	defaultBaseURL := envOrDefault("AIOPS_BASE_URL", "http://localhost:8080")
	defaultAPIKey := strings.TrimSpace(os.Getenv("AIOPS_API_KEY"))

	baseURL := root.String("base-url", defaultBaseURL, "Diagnostics API base URL")
	apiKey := root.String("api-key", defaultAPIKey, "API key for X-API-Key header")
	timeout := root.Duration("timeout", 5*time.Minute, "HTTP timeout, e.g. 120s")

	if err := root.Parse(args); err != nil {
		writeCLIError(stdout, "invalid_arguments", err.Error(), 0)
		return 2
	}

	remaining := root.Args()
	if len(remaining) == 0 {
		writeCLIError(stdout, "missing_command", usageText(), 0)
		return 2
	}

	client := &apiClient{
		baseURL: strings.TrimRight(strings.TrimSpace(*baseURL), "/"),
		apiKey:  strings.TrimSpace(*apiKey),
		httpClient: &http.Client{
			Timeout: *timeout,
		},
	}

	command := remaining[0]
	commandArgs := remaining[1:]

	switch command {
	case "health":
		return runRequest(context.Background(), client, stdout, http.MethodGet, "/healthz", nil)
	case "diagnose":
		return runDiagnose(context.Background(), client, stdout, stderr, commandArgs)
	default:
		writeCLIError(stdout, "unknown_command", fmt.Sprintf("unknown command %q\n%s", command, usageText()), 0)
		return 2
	}
}

func runDiagnose(ctx context.Context, client *apiClient, stdout io.Writer, stderr io.Writer, args []string) int {
	fs := flag.NewFlagSet("diagnose", flag.ContinueOnError)
	fs.SetOutput(stderr)

	text := fs.String("text", "", "Incident description")
	file := fs.String("file", "", "File with the incident description or JSON payload")

	if err := fs.Parse(args); err != nil {
		writeCLIError(stdout, "invalid_arguments", err.Error(), 0)
		return 2
	}

	body := strings.TrimSpace(*text)
	if body == "" && strings.TrimSpace(*file) != "" {
		raw, err := os.ReadFile(strings.TrimSpace(*file))
		if err != nil {
			writeCLIError(stdout, "invalid_arguments", err.Error(), 0)
			return 2
		}
		body = strings.TrimSpace(string(raw))
	}
	if body == "" {
		writeCLIError(stdout, "missing_incident", "diagnose requires -text or -file", 0)
		return 2
	}

	// Forward as-is: the API accepts JSON payloads and plain descriptions.
	return runRawRequest(ctx, client, stdout, http.MethodPost, "/diagnose", []byte(body))
}

func runRequest(ctx context.Context, client *apiClient, stdout io.Writer, method string, path string, payload any) int {
	var body []byte
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			writeCLIError(stdout, "invalid_payload", err.Error(), 0)
			return 1
		}
		body = encoded
	}
	return runRawRequest(ctx, client, stdout, method, path, body)
}

func runRawRequest(ctx context.Context, client *apiClient, stdout io.Writer, method string, path string, body []byte) int {
	responseBody, err := client.request(ctx, method, path, body)
	if err != nil {
		var apiErr *apiError
		if errors.As(err, &apiErr) {
			writeCLIError(stdout, apiErr.Code, apiErr.Message, apiErr.Status)
			return 1
		}
		writeCLIError(stdout, "request_failed", err.Error(), 0)
		return 1
	}

	if err := writeStructuredJSON(stdout, responseBody); err != nil {
		writeCLIError(stdout, "invalid_response", err.Error(), 0)
		return 1
	}
	return 0
}

func (c *apiClient) request(ctx context.Context, method string, path string, body []byte) ([]byte, error) {
	requestURL, err := c.resolveURL(path)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, reader)
	if err != nil {
		return nil, err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	responseBody, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}

	if res.StatusCode >= 400 {
		apiErr := &apiError{
			Status:  res.StatusCode,
			Code:    "http_error",
			Message: strings.TrimSpace(string(responseBody)),
		}

		var envelope struct {
			Error struct {
				Code      string `json:"code"`
				Message   string `json:"message"`
				RequestID string `json:"requestId"`
			} `json:"error"`
		}

		if err := json.Unmarshal(responseBody, &envelope); err == nil && envelope.Error.Code != "" {
			apiErr.Code = envelope.Error.Code
			apiErr.Message = envelope.Error.Message
			apiErr.RequestID = envelope.Error.RequestID
		}

		return nil, apiErr
	}

	return responseBody, nil
}

func (c *apiClient) resolveURL(path string) (string, error) {
	base := strings.TrimSpace(c.baseURL)
	if base == "" {
		return "", errors.New("base URL is required")
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	pathURL, err := url.Parse(path)
	if err != nil {
		return "", err
	}

	return baseURL.ResolveReference(pathURL).String(), nil
}

func writeStructuredJSON(output io.Writer, body []byte) error {
	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return err
	}

	encoder := json.NewEncoder(output)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func writeCLIError(output io.Writer, code string, message string, status int) {
	payload := map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	}
	if status > 0 {
		payload["error"].(map[string]any)["status"] = status
	}

	encoder := json.NewEncoder(output)
	encoder.SetIndent("", "  ")
	_ = encoder.Encode(payload)
}

func usageText() string {
	return strings.Join([]string{
		"usage: aiops [global flags] <command> [command flags]",
		"commands: health, diagnose",
		"global flags: -base-url -api-key -timeout",
	}, "\n")
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}
