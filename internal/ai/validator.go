package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"newswatch/internal/domain/entity"
	"newswatch/internal/observability/metrics"
	"newswatch/internal/pkg/config"
	"newswatch/internal/resilience/circuitbreaker"
	"newswatch/internal/resilience/retry"
	"newswatch/internal/utils/text"
)

// Verdict is the outcome of an LLM duplicate validation.
type Verdict struct {
	IsDuplicate bool    `json:"is_duplicate"`
	Confidence  float64 `json:"confidence"`
	Reasoning   string  `json:"reasoning"`
}

// Validator confirms or rejects borderline duplicate pairs. Errors mean
// the gate is unavailable; the engine then falls back to threshold-only
// decisions.
type Validator interface {
	Validate(ctx context.Context, original, candidate *entity.Article) (Verdict, error)
}

// ClaudeValidatorConfig holds configuration for the Claude validator.
type ClaudeValidatorConfig struct {
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// LoadClaudeValidatorConfig loads validator settings from environment
// variables, falling back to defaults on invalid values.
//
// Environment variables:
//   - DEDUP_LLM_MODEL: Claude model identifier
//   - DEDUP_LLM_MAX_TOKENS: response token cap (default: 512, range: 64-4096)
//   - DEDUP_LLM_TIMEOUT: per-request timeout (default: 30s)
func LoadClaudeValidatorConfig() ClaudeValidatorConfig {
	maxTokens := config.LoadEnvInt("DEDUP_LLM_MAX_TOKENS", 512, func(v int) error {
		return config.ValidateIntRange(v, 64, 4096)
	})
	timeout := config.LoadEnvDuration("DEDUP_LLM_TIMEOUT", 30*time.Second, config.ValidatePositiveDuration)
	for _, warning := range append(maxTokens.Warnings, timeout.Warnings...) {
		slog.Warn(warning)
	}

	return ClaudeValidatorConfig{
		Model:     config.LoadEnvString("DEDUP_LLM_MODEL", string(anthropic.Model("claude-sonnet-4-5-20250929"))),
		MaxTokens: maxTokens.Value.(int),
		Timeout:   timeout.Value.(time.Duration),
	}
}

// ClaudeValidator asks Claude whether two articles cover the same story.
// It is used only for borderline similarity scores, so call volume stays
// low; the circuit breaker keeps a degraded API from stalling the queue.
type ClaudeValidator struct {
	client         anthropic.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
	config         ClaudeValidatorConfig
}

// NewClaudeValidator creates a validator with the given API key.
func NewClaudeValidator(apiKey string) *ClaudeValidator {
	cfg := LoadClaudeValidatorConfig()

	slog.Info("initialized claude duplicate validator",
		slog.String("model", cfg.Model),
		slog.Int("max_tokens", cfg.MaxTokens))

	return &ClaudeValidator{
		client:         anthropic.NewClient(option.WithAPIKey(apiKey)),
		circuitBreaker: circuitbreaker.New(circuitbreaker.ClaudeAPIConfig()),
		retryConfig:    retry.AIAPIConfig(),
		config:         cfg,
	}
}

// Validate returns Claude's duplicate verdict for the pair.
func (v *ClaudeValidator) Validate(ctx context.Context, original, candidate *entity.Article) (Verdict, error) {
	ctx, cancel := context.WithTimeout(ctx, v.config.Timeout)
	defer cancel()

	var verdict Verdict

	retryErr := retry.WithBackoff(ctx, v.retryConfig, func() error {
		cbResult, err := v.circuitBreaker.Execute(func() (interface{}, error) {
			return v.doValidate(ctx, original, candidate)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("claude api circuit breaker open, request rejected",
					slog.String("service", "claude-api"),
					slog.String("state", v.circuitBreaker.State().String()))
				return fmt.Errorf("claude api unavailable: circuit breaker open")
			}
			return err
		}

		verdict = cbResult.(Verdict)
		return nil
	})

	if retryErr != nil {
		metrics.RecordLLMValidation("error")
		return Verdict{}, fmt.Errorf("claude validate failed after retries: %w", retryErr)
	}

	if verdict.IsDuplicate {
		metrics.RecordLLMValidation("confirmed")
	} else {
		metrics.RecordLLMValidation("rejected")
	}
	return verdict, nil
}

// doValidate performs the actual API call without retry or circuit breaker.
func (v *ClaudeValidator) doValidate(ctx context.Context, original, candidate *entity.Article) (interface{}, error) {
	requestID := uuid.New().String()
	prompt := buildValidationPrompt(original, candidate)

	slog.DebugContext(ctx, "starting duplicate validation",
		slog.String("request_id", requestID),
		slog.Int64("original_id", original.ID),
		slog.Int64("candidate_id", candidate.ID))

	start := time.Now()
	message, err := v.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(v.config.Model),
		MaxTokens: int64(v.config.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewTextBlock(prompt),
			),
		},
	})
	duration := time.Since(start)

	if err != nil {
		slog.ErrorContext(ctx, "duplicate validation failed",
			slog.String("request_id", requestID),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return Verdict{}, fmt.Errorf("claude api error: %w", err)
	}

	if len(message.Content) == 0 {
		return Verdict{}, fmt.Errorf("claude api returned empty response")
	}

	textBlock, ok := message.Content[0].AsAny().(anthropic.TextBlock)
	if !ok {
		return Verdict{}, fmt.Errorf("claude api returned unexpected response type")
	}

	verdict, err := parseVerdict(textBlock.Text)
	if err != nil {
		return Verdict{}, err
	}

	slog.InfoContext(ctx, "duplicate validation completed",
		slog.String("request_id", requestID),
		slog.Bool("is_duplicate", verdict.IsDuplicate),
		slog.Float64("confidence", verdict.Confidence),
		slog.Duration("duration", duration))

	return verdict, nil
}

// maxPromptBodyChars bounds each article body included in the prompt.
const maxPromptBodyChars = 1500

func buildValidationPrompt(original, candidate *entity.Article) string {
	var sb strings.Builder
	sb.WriteString("You compare two news articles and decide whether they report the same underlying story.\n")
	sb.WriteString("Rewrites, syndicated copies and translations of the same event are duplicates. ")
	sb.WriteString("Follow-ups with new developments are not.\n")
	sb.WriteString("Answer with only a JSON object: {\"is_duplicate\": true|false, \"confidence\": 0.0-1.0, \"reasoning\": \"one sentence\"}\n\n")
	writePromptArticle(&sb, "Article A", original)
	writePromptArticle(&sb, "Article B", candidate)
	return sb.String()
}

func writePromptArticle(sb *strings.Builder, label string, article *entity.Article) {
	body := article.Content
	if body == "" {
		body = article.Summary
	}
	fmt.Fprintf(sb, "%s:\nTitle: %s\nSource: %s\nPublished: %s\nBody: %s\n\n",
		label, article.Title, article.Source,
		article.PublishedAt.Format(time.RFC3339),
		text.TruncateRunes(body, maxPromptBodyChars))
}

// parseVerdict extracts the JSON object from the model response. Models
// occasionally wrap the JSON in prose or code fences.
func parseVerdict(response string) (Verdict, error) {
	begin := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if begin < 0 || end <= begin {
		return Verdict{}, fmt.Errorf("no JSON object in validation response")
	}

	var verdict Verdict
	if err := json.Unmarshal([]byte(response[begin:end+1]), &verdict); err != nil {
		return Verdict{}, fmt.Errorf("decode validation response: %w", err)
	}
	if verdict.Confidence < 0 || verdict.Confidence > 1 {
		return Verdict{}, fmt.Errorf("validation confidence %g out of range", verdict.Confidence)
	}
	return verdict, nil
}
