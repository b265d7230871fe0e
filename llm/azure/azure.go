// Package azure implements llm.Client using the Azure OpenAI Chat
// Completions API.
package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jxucoder/PatchPilot/llm"
)

// Client implements llm.Client against a single Azure OpenAI deployment.
type Client struct {
	endpoint   string
	apiKey     string
	deployment string
	apiVersion string
	client     *http.Client
}

// New creates a client for the given deployment. Endpoint is the resource
// URL, e.g. "https://myresource.openai.azure.com".
func New(endpoint, apiKey, deployment, apiVersion string) *Client {
	return &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		apiKey:     apiKey,
		deployment: deployment,
		apiVersion: apiVersion,
		client:     &http.Client{Timeout: 2 * time.Minute},
	}
}

func (c *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	reqBody := map[string]any{
		"max_tokens":  req.MaxTokens,
		"temperature": req.Temperature,
		"messages": []map[string]string{
			{"role": "user", "content": req.Prompt},
		},
	}
	url := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		c.endpoint, c.deployment, c.apiVersion)
	err := doJSONRoundTrip(ctx, c.client, "POST", url,
		map[string]string{
			"Content-Type": "application/json",
			"api-key":      c.apiKey,
		},
		reqBody, &result)
	if err != nil {
		return "", fmt.Errorf("azure OpenAI API: %w", err)
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	return result.Choices[0].Message.Content, nil
}

func doJSONRoundTrip(
	ctx context.Context,
	client *http.Client,
	method, url string,
	headers map[string]string,
	reqBody any,
	respBody any,
) error {
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(jsonBody))
	if err != nil {
		return err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("error (%d): %s", resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, respBody); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}
