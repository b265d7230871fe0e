// Package vertex implements llm.Client using the Anthropic publisher
// endpoint on Vertex AI, authenticated with a service-account key file.
package vertex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/jxucoder/PatchPilot/llm"
)

// Client implements llm.Client against the rawPredict endpoint of a
// single Anthropic model.
type Client struct {
	projectID string
	location  string
	model     string
	client    *http.Client
}

// New reads the service-account JSON key at keyPath and prepares an
// authenticated client. The GCP project ID comes from the key file.
func New(ctx context.Context, keyPath, location, model string) (*Client, error) {
	data, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("reading service-account key: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, data, "https://www.googleapis.com/auth/cloud-platform")
	if err != nil {
		return nil, fmt.Errorf("parsing service-account key: %w", err)
	}
	if creds.ProjectID == "" {
		return nil, fmt.Errorf("service-account key %s has no project_id", keyPath)
	}
	client := oauth2.NewClient(ctx, creds.TokenSource)
	client.Timeout = 2 * time.Minute
	return &Client{
		projectID: creds.ProjectID,
		location:  location,
		model:     model,
		client:    client,
	}, nil
}

func (c *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	var result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	reqBody := map[string]any{
		"anthropic_version": "vertex-2023-10-16",
		"max_tokens":        req.MaxTokens,
		"temperature":       req.Temperature,
		"messages": []map[string]string{
			{"role": "user", "content": req.Prompt},
		},
	}
	url := fmt.Sprintf("https://%s-aiplatform.googleapis.com/v1/projects/%s/locations/%s/publishers/anthropic/models/%s:rawPredict",
		c.location, c.projectID, c.location, c.model)
	err := doJSONRoundTrip(ctx, c.client, "POST", url,
		map[string]string{
			"Content-Type": "application/json",
		},
		reqBody, &result)
	if err != nil {
		return "", fmt.Errorf("vertex AI API: %w", err)
	}

	for _, block := range result.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("no text content in response")
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
