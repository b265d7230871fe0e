// Package bedrock implements llm.Client using Anthropic models on AWS
// Bedrock. Credentials come from the standard AWS environment chain.
package bedrock

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/jxucoder/PatchPilot/llm"
)

// Client implements llm.Client for a single Bedrock model ID.
type Client struct {
	modelID string
	runtime *bedrockruntime.Client
}

// New loads the default AWS config for the region and returns a client
// for modelID, e.g. "anthropic.claude-3-5-sonnet-20241022-v2:0".
func New(ctx context.Context, region, modelID string) (*Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return &Client{
		modelID: modelID,
		runtime: bedrockruntime.NewFromConfig(cfg),
	}, nil
}

type invokeRequest struct {
	AnthropicVersion string    `json:"anthropic_version"`
	MaxTokens        int       `json:"max_tokens"`
	Temperature      float64   `json:"temperature"`
	Messages         []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type invokeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (c *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	body, err := json.Marshal(invokeRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        req.MaxTokens,
		Temperature:      req.Temperature,
		Messages: []message{
			{Role: "user", Content: req.Prompt},
		},
	})
	if err != nil {
		return "", err
	}

	out, err := c.runtime.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return "", fmt.Errorf("bedrock API: %w", err)
	}

	var result invokeResponse
	if err := json.Unmarshal(out.Body, &result); err != nil {
		return "", fmt.Errorf("parsing response: %w", err)
	}
	for _, block := range result.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("no text content in response")
}
