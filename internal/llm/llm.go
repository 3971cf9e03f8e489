// Package llm turns raw question-paper text or a topic into a draft exam
// using any OpenAI-compatible chat completion endpoint. The response is
// untrusted input: it is decoded defensively and normalized before anything
// downstream sees it.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/smartexam/smartexam/internal/model"
)

// maxPromptChars caps how much extracted document text is sent per request.
const maxPromptChars = 30000

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api   *openai.Client
	model string
}

// New creates a new LLM client.
func New(baseURL, apiKey, modelName string) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:   openai.NewClientWithConfig(config),
		model: modelName,
	}
}

// Ping verifies the endpoint is reachable and serves the configured model.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// draftPayload is the JSON shape the model is asked to produce. Every field
// is optional in practice; missing pieces are defaulted during conversion.
type draftPayload struct {
	Title        string          `json:"title"`
	Instructions []string        `json:"instructions"`
	Questions    []draftQuestion `json:"questions"`
}

type draftQuestion struct {
	Text               string   `json:"text"`
	Type               string   `json:"type"`
	Options            []string `json:"options"`
	CorrectOptionIndex *int     `json:"correct_option_index"`
	CorrectAnswer      string   `json:"correct_answer"`
}

// ParseDocuments extracts a draft exam from raw question-paper text.
// On failure nothing is created; the caller can retry with the same input.
func (c *Client) ParseDocuments(ctx context.Context, rawText string) (model.Exam, error) {
	if len(rawText) > maxPromptChars {
		rawText = rawText[:maxPromptChars]
	}
	payload, err := c.complete(ctx, buildParsePrompt(rawText), 0.1)
	if err != nil {
		return model.Exam{}, fmt.Errorf("parse documents: %w", err)
	}
	return draftToExam(payload), nil
}

// GenerateByTopic produces a draft mock exam for a topic.
func (c *Client) GenerateByTopic(ctx context.Context, topic string) (model.Exam, error) {
	payload, err := c.complete(ctx, buildGeneratePrompt(topic), 0.5)
	if err != nil {
		return model.Exam{}, fmt.Errorf("generate by topic: %w", err)
	}
	exam := draftToExam(payload)
	if exam.Title == model.FallbackTitle && strings.TrimSpace(topic) != "" {
		exam.Title = topic
	}
	return exam, nil
}

func (c *Client) complete(ctx context.Context, prompt string, temperature float32) (draftPayload, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: temperature,
	})
	if err != nil {
		return draftPayload{}, fmt.Errorf("LLM API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return draftPayload{}, fmt.Errorf("LLM returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("LLM response", "raw", raw)

	var payload draftPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return draftPayload{}, fmt.Errorf("parse LLM response: %w (raw: %s)", err, raw)
	}
	return payload, nil
}

// draftToExam converts the untrusted payload into a normalized draft exam:
// fresh ids, defaulted discriminators, at most one correct option per MCQ.
func draftToExam(p draftPayload) model.Exam {
	exam := model.Exam{
		Title:        strings.TrimSpace(p.Title),
		Instructions: p.Instructions,
	}
	for _, dq := range p.Questions {
		q := model.Question{
			Text:          dq.Text,
			Type:          model.QuestionType(strings.ToUpper(strings.TrimSpace(dq.Type))),
			CorrectAnswer: dq.CorrectAnswer,
		}
		for i, text := range dq.Options {
			q.Options = append(q.Options, model.Option{
				Text:      text,
				IsCorrect: dq.CorrectOptionIndex != nil && *dq.CorrectOptionIndex == i,
			})
		}
		exam.Questions = append(exam.Questions, q)
	}
	model.Normalize(&exam)
	return exam
}

const systemPrompt = `You are an expert exam parser and author. ` +
	`Respond ONLY with a JSON object of this shape: ` +
	`{"title": "<exam title>", "instructions": ["<instruction>", ...], "questions": [` +
	`{"text": "<question text>", "type": "MCQ" or "INTEGER", ` +
	`"options": ["<option text>", ...], ` +
	`"correct_option_index": <zero-based index of the correct option, or null>, ` +
	`"correct_answer": "<numeric answer as a string for INTEGER questions, else empty>"}]}`

func buildParsePrompt(text string) string {
	var sb strings.Builder
	sb.WriteString("Analyze the following text extracted from question paper documents.\n")
	sb.WriteString("Extract the exam title, the general instructions, and every question.\n\n")
	sb.WriteString("Determine the type of each question:\n")
	sb.WriteString("- MCQ: the question has multiple choice options (A, B, C, D).\n")
	sb.WriteString("- INTEGER: the question asks for a numeric value without options.\n\n")
	sb.WriteString("For MCQ questions extract all options and, if the answer is indicated, set correct_option_index.\n")
	sb.WriteString("For INTEGER questions leave options empty and, if an answer key is present, put the numeric value in correct_answer.\n\n")
	sb.WriteString("Here is the text:\n")
	sb.WriteString(text)
	return sb.String()
}

func buildGeneratePrompt(topic string) string {
	var sb strings.Builder
	sb.WriteString("Create a comprehensive mock exam for the following topic: " + topic + "\n\n")
	sb.WriteString("Requirements:\n")
	sb.WriteString("1. The title should be the topic name.\n")
	sb.WriteString("2. Include standard timed-exam instructions.\n")
	sb.WriteString("3. Generate 15 high-quality questions.\n")
	sb.WriteString("4. Mix MCQ and INTEGER questions, roughly 70% MCQ and 30% INTEGER.\n")
	sb.WriteString("5. For INTEGER questions provide the exact numeric answer in correct_answer.\n")
	sb.WriteString("6. For MCQ questions ensure exactly one option is correct.\n")
	return sb.String()
}
