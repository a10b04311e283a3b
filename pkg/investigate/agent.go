package investigate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/cloudwego/eino-ext/adk/backend/local"
	"github.com/cloudwego/eino-ext/components/model/openrouter"
	"github.com/cloudwego/eino/adk"
	fsmw "github.com/cloudwego/eino/adk/middlewares/filesystem"

	llmconfig "github.com/strrl/logmend/pkg/config"
	"github.com/strrl/logmend/pkg/repair"
	"github.com/strrl/logmend/pkg/store"
)

func buildSystemPrompt(workDir string) string {
	return fmt.Sprintf(`You are a log parsing expert reviewing template repair outcomes.

Your workspace contains a snapshot of one system's data at %s:
- %s/templates.txt — every event with occurrence count, template and description
- %s/corpus.txt — sample corpus lines grouped by event
- %s/repairs.txt — repair outcomes: terminal status, reason, accepted fixes

Start by reading %s/repairs.txt to see which events remain broken.
Then use grep and read_file on the other files to inspect the evidence.
You can also use the execute tool to run shell commands (e.g., awk, sort, wc) for deeper analysis.

Provide:
1. Which events are still failing and why
2. Whether the failures share a pattern (bad placeholders, mixed formats, generation slips)
3. Concrete next steps: which events deserve another repair pass and with which strategy

Be concise and actionable. Focus on what matters.`,
		workDir, workDir, workDir, workDir, workDir)
}

// Config holds configuration for the investigation agent.
type Config struct {
	APIKey string
	Model  string
}

// Investigate builds a workspace for the system and runs the agent over it,
// returning the agent's final report.
func Investigate(ctx context.Context, config Config, st store.Store, system string, entries map[string]repair.LedgerEntry, question string) (string, error) {
	config.Model = llmconfig.ResolveModel(config.Model)

	tmpDir, err := os.MkdirTemp("", "logmend-investigate-*")
	if err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	absDir, err := filepath.Abs(tmpDir)
	if err != nil {
		return "", fmt.Errorf("resolve temp dir: %w", err)
	}

	if err := BuildWorkspace(absDir, st, system, entries); err != nil {
		return "", fmt.Errorf("build workspace: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Investigating %s with model %s...\n", system, config.Model)

	if err := preflightCheck(config); err != nil {
		return "", err
	}

	// Fixup transport patches eino's tool messages before they reach
	// OpenRouter.
	chatModel, err := openrouter.NewChatModel(ctx, &openrouter.Config{
		APIKey:     config.APIKey,
		Model:      config.Model,
		HTTPClient: &http.Client{Transport: &fixupRoundTripper{base: http.DefaultTransport}},
	})
	if err != nil {
		return "", fmt.Errorf("create chat model: %w", err)
	}

	backend, err := local.NewBackend(ctx, &local.Config{})
	if err != nil {
		return "", fmt.Errorf("create local backend: %w", err)
	}

	fsMiddleware, err := fsmw.NewMiddleware(ctx, &fsmw.Config{
		Backend: backend,
	})
	if err != nil {
		return "", fmt.Errorf("create filesystem middleware: %w", err)
	}

	agent, err := adk.NewChatModelAgent(ctx, &adk.ChatModelAgentConfig{
		Name:          "repair-investigator",
		Description:   "Reviews template repair outcomes to find what still needs fixing",
		Instruction:   buildSystemPrompt(absDir),
		Model:         chatModel,
		Middlewares:   []adk.AgentMiddleware{fsMiddleware},
		MaxIterations: 15,
	})
	if err != nil {
		return "", fmt.Errorf("create agent: %w", err)
	}

	userMessage := "Review the repair outcomes in the workspace."
	if question != "" {
		userMessage = fmt.Sprintf("Review the repair outcomes in the workspace. The user's question: %s", question)
	}

	runner := adk.NewRunner(ctx, adk.RunnerConfig{
		Agent: agent,
	})

	iter := runner.Query(ctx, userMessage)

	var result strings.Builder
	for {
		event, ok := iter.Next()
		if !ok {
			break
		}
		if event.Err != nil {
			return "", fmt.Errorf("agent error: %w", event.Err)
		}
		msg, _, err := adk.GetMessage(event)
		if err != nil {
			continue
		}
		if msg != nil && msg.Role == "assistant" && msg.Content != "" {
			result.WriteString(msg.Content)
		}
	}

	return result.String(), nil
}

// fixupRoundTripper patches outgoing API requests to work around eino bugs.
type fixupRoundTripper struct {
	base http.RoundTripper
}

func (rt *fixupRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	// eino omits "content" when a tool returns empty results (e.g. grep
	// with no matches), which causes the Anthropic API to return 500.
	if req.Body != nil && req.Method == "POST" {
		bodyBytes, _ := io.ReadAll(req.Body)
		bodyBytes = fixToolMessages(bodyBytes)
		req.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		req.ContentLength = int64(len(bodyBytes))
	}
	return rt.base.RoundTrip(req)
}

func fixToolMessages(body []byte) []byte {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return body
	}
	messagesRaw, ok := payload["messages"]
	if !ok {
		return body
	}
	var messages []map[string]any
	if err := json.Unmarshal(messagesRaw, &messages); err != nil {
		return body
	}

	changed := false
	for _, msg := range messages {
		if msg["role"] == "tool" {
			if _, hasContent := msg["content"]; !hasContent {
				msg["content"] = ""
				changed = true
			}
		}
	}
	if !changed {
		return body
	}

	fixedMessages, err := json.Marshal(messages)
	if err != nil {
		return body
	}
	payload["messages"] = fixedMessages
	result, err := json.Marshal(payload)
	if err != nil {
		return body
	}
	return result
}

// preflightCheck does a quick API call to verify the key works.
func preflightCheck(config Config) error {
	apiURL := "https://openrouter.ai/api/v1/models"
	req, err := http.NewRequest("GET", apiURL, nil)
	if err != nil {
		return fmt.Errorf("preflight: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+config.APIKey)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("preflight: cannot reach OpenRouter: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("API error (HTTP %d) from OpenRouter: %s", resp.StatusCode, string(body))
	}
	return nil
}
