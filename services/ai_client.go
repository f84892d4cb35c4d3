package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"edgescope/config"
	"edgescope/models"
)

// ErrAnalysisTimeout marks an analysis call cancelled by the fixed request
// timeout, as opposed to other transport or model failures.
var ErrAnalysisTimeout = errors.New("analysis request timed out")

const systemPrompt = `You are a Senior Site Reliability Engineer specialized in debugging and log analysis. When analyzing logs, stack traces, or error messages:

1. Identify the root cause of the issue
2. Explain the reasoning behind the error
3. Provide actionable fixes

IMPORTANT: You MUST respond ONLY with valid JSON in this exact format:
{
  "summary": "One-sentence summary of the error (under 20 words)",
  "reasoning": "Step-by-step explanation of what's happening and why",
  "potential_fix": "Concrete fix or code snippet to resolve the issue"
}

Do not include any text before or after the JSON. Only output valid JSON.`

// Fallback strings used when the model reply cannot be parsed or the call
// fails. The dashboard shows these in place of the explanation, so they are
// part of the API contract.
const (
	fallbackParseSummary = "Analysis completed but response format was unexpected"
	fallbackParseFix     = "Please review the reasoning section for details."
	failedSummary        = "Failed to analyze the log"
	failedFix            = "Please try again or check the log format."
)

// how many history messages are replayed to the model per request
const historyLimit = 10

// AIClient formats analysis prompts, calls the hosted model and parses its
// replies. It never propagates a raw fault: every failure mode produces a
// structured AnalysisResult the caller can show as-is.
type AIClient struct {
	cfg        *config.Config
	httpClient *http.Client
}

func NewAIClient(cfg *config.Config) *AIClient {
	return &AIClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.AITimeout(),
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
			},
		},
	}
}

// Enabled reports whether a model endpoint is configured.
func (c *AIClient) Enabled() bool {
	return c.cfg.AI.Endpoint != ""
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type modelRequest struct {
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type modelResponse struct {
	Result struct {
		Response string `json:"response"`
	} `json:"result"`
	Response string `json:"response"` // some gateways return the text at top level
	Success  bool   `json:"success"`
}

// Analyze sends a message plus recent history to the model and returns a
// structured result. Malformed model output degrades to the raw text in the
// reasoning field; transport failures return a clearly labeled failure
// result. The call is bounded by the configured timeout.
func (c *AIClient) Analyze(ctx context.Context, history []models.Message, message string) models.AnalysisResult {
	raw, err := c.call(ctx, history, message)
	if err != nil {
		reason := err.Error()
		if errors.Is(err, ErrAnalysisTimeout) {
			reason = "the AI service did not respond within the time limit"
		}
		log.Printf("AI analysis call failed: %v", err)
		return models.AnalysisResult{
			Summary:      failedSummary,
			Reasoning:    fmt.Sprintf("An error occurred while processing your request: %s", reason),
			PotentialFix: failedFix,
		}
	}

	return ParseAnalysisReply(raw)
}

// AnalyzeAnomaly formats a detected anomaly plus a slice of recent traffic
// into an analysis prompt and maps the model's reply onto the richer
// anomaly-analysis shape. Severity passes through from the anomaly itself;
// the model is not trusted to re-grade it.
func (c *AIClient) AnalyzeAnomaly(ctx context.Context, anomaly *models.Anomaly, traffic []models.TrafficRequest) models.AnomalyAnalysis {
	prompt := FormatAnomalyPrompt(anomaly, traffic)
	result := c.Analyze(ctx, nil, prompt)

	return models.AnomalyAnalysis{
		Summary:            result.Summary,
		RootCause:          result.Reasoning,
		ImpactAssessment:   result.Summary,
		RecommendedActions: []string{result.PotentialFix},
		Severity:           anomaly.Severity,
	}
}

func (c *AIClient) call(ctx context.Context, history []models.Message, message string) (string, error) {
	if !c.Enabled() {
		return "", fmt.Errorf("AI endpoint not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.AITimeout())
	defer cancel()

	messages := make([]chatMessage, 0, historyLimit+2)
	messages = append(messages, chatMessage{Role: "system", Content: systemPrompt})

	recent := history
	if len(recent) > historyLimit {
		recent = recent[len(recent)-historyLimit:]
	}
	for _, msg := range recent {
		role := models.RoleAssistant
		if msg.Role == models.RoleUser {
			role = models.RoleUser
		}
		messages = append(messages, chatMessage{Role: role, Content: msg.Content})
	}
	messages = append(messages, chatMessage{Role: models.RoleUser, Content: message})

	body, err := json.Marshal(modelRequest{
		Messages:    messages,
		Temperature: c.cfg.AI.Temperature,
		MaxTokens:   c.cfg.AI.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal model request: %w", err)
	}

	url := c.cfg.AI.Endpoint
	if strings.Contains(url, "%s") {
		url = fmt.Sprintf(url, c.cfg.AI.Model)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("failed to create model request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.AI.APIToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.AI.APIToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			return "", ErrAnalysisTimeout
		}
		return "", fmt.Errorf("model request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("model endpoint returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read model response: %w", err)
	}

	var decoded modelResponse
	if err := json.Unmarshal(data, &decoded); err != nil {
		// Not the expected envelope; let the reply parser deal with the body.
		return string(data), nil
	}
	if decoded.Result.Response != "" {
		return decoded.Result.Response, nil
	}
	if decoded.Response != "" {
		return decoded.Response, nil
	}
	return string(data), nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// ParseAnalysisReply turns the model's free text into an AnalysisResult.
// The model sometimes wraps its JSON in prose or code fences, so the first
// balanced {...} block is extracted before decoding. When no usable JSON is
// found the raw text becomes the reasoning and fixed fallback strings fill
// the other fields; this function never fails.
func ParseAnalysisReply(raw string) models.AnalysisResult {
	fallback := models.AnalysisResult{
		Summary:      fallbackParseSummary,
		Reasoning:    raw,
		PotentialFix: fallbackParseFix,
	}

	block, ok := extractJSONBlock(raw)
	if !ok {
		return fallback
	}

	var parsed models.AnalysisResult
	if err := json.Unmarshal([]byte(block), &parsed); err != nil {
		return fallback
	}
	if parsed.Summary == "" || parsed.Reasoning == "" || parsed.PotentialFix == "" {
		return fallback
	}

	return models.AnalysisResult{
		Summary:      strings.TrimSpace(parsed.Summary),
		Reasoning:    strings.TrimSpace(parsed.Reasoning),
		PotentialFix: strings.TrimSpace(parsed.PotentialFix),
	}
}

// extractJSONBlock finds the first balanced top-level {...} block, skipping
// braces inside JSON string literals.
func extractJSONBlock(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// FormatAnomalyPrompt renders an anomaly plus up to the last ten traffic
// entries as a structured description for the model.
func FormatAnomalyPrompt(anomaly *models.Anomaly, traffic []models.TrafficRequest) string {
	recent := traffic
	if len(recent) > 10 {
		recent = recent[len(recent)-10:]
	}

	var sb strings.Builder
	sb.WriteString("Network Anomaly Detected:\n")
	fmt.Fprintf(&sb, "Type: %s\n", anomaly.Type)
	fmt.Fprintf(&sb, "Severity: %s\n", anomaly.Severity)
	fmt.Fprintf(&sb, "Description: %s\n", anomaly.Description)
	fmt.Fprintf(&sb, "Affected Nodes: %s\n", strings.Join(anomaly.AffectedNodes, ", "))
	fmt.Fprintf(&sb, "Timestamp: %s\n", time.UnixMilli(anomaly.Timestamp).UTC().Format(time.RFC3339))

	sb.WriteString("\nRecent Traffic Data:\n")
	if len(recent) == 0 {
		sb.WriteString("No traffic data\n")
	}
	for _, t := range recent {
		fmt.Fprintf(&sb, "- %s -> %s: %s (%dms, %s %s)\n", t.From, t.To, t.Status, t.Latency, t.Method, t.Path)
	}

	sb.WriteString("\nPlease analyze this network anomaly and provide:\n")
	sb.WriteString("1. Root cause analysis\n")
	sb.WriteString("2. Impact assessment\n")
	sb.WriteString("3. Recommended actions to resolve\n")
	return sb.String()
}

var logIndicators = []*regexp.Regexp{
	regexp.MustCompile(`(?i)error`),
	regexp.MustCompile(`(?i)exception`),
	regexp.MustCompile(`(?i)stack trace`),
	regexp.MustCompile(`(?i)at\s+[\w.]+\s*\(`),
	regexp.MustCompile(`\d{4}-\d{2}-\d{2}`),
	regexp.MustCompile(`\[.*?\]`),
	regexp.MustCompile(`HTTP/\d\.\d`),
	regexp.MustCompile(`(?i)\d{3}\s+(OK|Error|Not Found)`),
}

// IsLikelyLog is a quick heuristic for whether a chat message looks like a
// log line or error dump rather than free-form conversation.
func IsLikelyLog(message string) bool {
	for _, pattern := range logIndicators {
		if pattern.MatchString(message) {
			return true
		}
	}
	return false
}
