package translator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	lru "github.com/hashicorp/golang-lru/v2"

	"layout-translator/internal/guard"
	"layout-translator/internal/lang"
	"layout-translator/internal/logger"
)

const (
	// segmentMaxTokens bounds generation for one PDF segment.
	segmentMaxTokens = 512
	// textMaxTokens bounds generation for free text.
	textMaxTokens = 2048
	// historyMessages is how many prior turns are forwarded.
	historyMessages = 6
	// echoMinChars is the shortest context piece removed when echoed back.
	echoMinChars = 8

	summaryLabel = "[Previous Context Summary]: "
)

// Settings tunes a Service.
type Settings struct {
	// Timeout bounds each model attempt.
	Timeout time.Duration
	// MaxNewTokens bounds PDF segment generation; zero means 512.
	MaxNewTokens int
	// MaxRetries is how many times a failed call is repeated; zero means
	// one attempt, negative means DefaultMaxRetries.
	MaxRetries int
	// RetryDelay is the first backoff delay; zero means BaseRetryDelay.
	RetryDelay time.Duration
	// ContextMaxChars bounds the conversation context of free-text calls.
	ContextMaxChars int
	UnloadAfterJob  bool
	// CacheSize bounds the free-text cache; zero disables it.
	CacheSize int
}

// Message is one prior conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// History is optional conversation context for free-text translation:
// either a list of turns or a plain summary string.
type History struct {
	Summary  string
	Messages []Message
}

// Empty reports whether h carries no context.
func (h History) Empty() bool {
	return strings.TrimSpace(h.Summary) == "" && len(h.Messages) == 0
}

// Service translates PDF segments and free text through a Handle.
type Service struct {
	handle   *Handle
	settings Settings
	text     *lru.Cache[string, string]
}

// NewService wraps h.
func NewService(h *Handle, s Settings) (*Service, error) {
	if s.MaxNewTokens <= 0 {
		s.MaxNewTokens = segmentMaxTokens
	}
	if s.MaxRetries < 0 {
		s.MaxRetries = DefaultMaxRetries
	}
	if s.RetryDelay <= 0 {
		s.RetryDelay = BaseRetryDelay
	}
	svc := &Service{handle: h, settings: s}
	if s.CacheSize > 0 {
		c, err := lru.New[string, string](s.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("create text cache: %w", err)
		}
		svc.text = c
	}
	return svc, nil
}

// Handle exposes the underlying model handle.
func (s *Service) Handle() *Handle {
	return s.handle
}

// Acquire loads the model ahead of the first call.
func (s *Service) Acquire(ctx context.Context) error {
	return s.handle.Acquire(ctx)
}

// EndJob applies the unload policy.
func (s *Service) EndJob(ctx context.Context) {
	if s.settings.UnloadAfterJob {
		s.handle.Release(ctx)
	}
}

func (s *Service) generate(ctx context.Context, kind TemplateKind, vars map[string]any, maxTokens int) (string, error) {
	return withRetry(ctx, s.settings.MaxRetries+1, s.settings.RetryDelay, func(ctx context.Context) (string, error) {
		if s.settings.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.settings.Timeout)
			defer cancel()
		}
		return s.handle.Generate(ctx, kind, vars,
			model.WithMaxTokens(maxTokens),
			model.WithTemperature(0))
	})
}

// Translate sends one PDF segment to the model. It satisfies
// guard.Translator; the guard layer validates the output.
func (s *Service) Translate(ctx context.Context, text string, target lang.Language) (string, error) {
	raw, err := s.generate(ctx, SegmentTemplate, map[string]any{
		varLanguage: target.Name(),
		varText:     text,
	}, s.settings.MaxNewTokens)
	if err != nil {
		return "", err
	}
	return guard.TrimGeneration(raw), nil
}

// TranslateText translates free text into language, optionally using
// conversation history as context. The unload policy is applied before
// returning.
func (s *Service) TranslateText(ctx context.Context, text, language string, history History) (string, error) {
	target, err := lang.Normalize(language)
	if err != nil {
		return "", err
	}
	src := strings.TrimSpace(text)
	if src == "" {
		return "", nil
	}
	defer s.EndJob(ctx)

	useCache := s.text != nil && history.Empty()
	key := guard.Key(src, target)
	if useCache {
		if v, ok := s.text.Get(key); ok {
			return v, nil
		}
	}

	ctxMsgs, pieces := s.historyMessages(history)
	raw, err := s.generate(ctx, ChatTemplate, map[string]any{
		varLanguage: target.Name(),
		varText:     src,
		varHistory:  ctxMsgs,
	}, textTokenBudget(src))
	if err != nil {
		return "", fmt.Errorf("translate text: %w", err)
	}

	out := guard.TrimGeneration(raw)
	out = guard.StripLeaks(out)
	out = guard.StripNoiseMarks(out)
	out = guard.PreserveBrands(src, out)
	out = removeEcho(out, pieces)
	out = strings.TrimSpace(out)

	if useCache && out != "" {
		s.text.Add(key, out)
	}
	logger.Debug("free text translated",
		logger.String("target", string(target)),
		logger.Int("contextMessages", len(ctxMsgs)))
	return out, nil
}

// textTokenBudget is min(2048, 3*len+256).
func textTokenBudget(src string) int {
	n := len([]rune(src))*3 + 256
	if n > textMaxTokens {
		return textMaxTokens
	}
	return n
}

// historyMessages turns h into prompt messages within the context budget,
// keeping the most recent content. It also returns the raw context pieces
// so echoes can be removed from the output.
func (s *Service) historyMessages(h History) ([]*schema.Message, []string) {
	budget := s.settings.ContextMaxChars

	if len(h.Messages) > 0 {
		var kept []Message
		for _, m := range h.Messages {
			if (m.Role == "user" || m.Role == "assistant") && strings.TrimSpace(m.Content) != "" {
				kept = append(kept, m)
			}
		}
		if len(kept) > historyMessages {
			kept = kept[len(kept)-historyMessages:]
		}
		if budget > 0 {
			kept = fitBudget(kept, budget)
		}

		msgs := make([]*schema.Message, 0, len(kept))
		pieces := make([]string, 0, len(kept))
		for _, m := range kept {
			if m.Role == "assistant" {
				msgs = append(msgs, schema.AssistantMessage(m.Content, nil))
			} else {
				msgs = append(msgs, schema.UserMessage(m.Content))
			}
			pieces = append(pieces, m.Content)
		}
		return msgs, pieces
	}

	summary := strings.TrimSpace(h.Summary)
	if summary == "" {
		return nil, nil
	}
	if budget > 0 {
		summary = tail(summary, budget)
	}
	return []*schema.Message{schema.UserMessage(summaryLabel + summary)}, []string{summary}
}

// fitBudget drops the oldest turns until the total fits, trimming the head
// of the oldest kept turn if needed.
func fitBudget(msgs []Message, budget int) []Message {
	total := 0
	for i := len(msgs) - 1; i >= 0; i-- {
		n := len([]rune(msgs[i].Content))
		if total+n <= budget {
			total += n
			continue
		}
		rest := budget - total
		if rest <= 0 {
			return msgs[i+1:]
		}
		out := append([]Message(nil), msgs[i:]...)
		out[0].Content = tail(out[0].Content, rest)
		return out
	}
	return msgs
}

func tail(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}

// removeEcho deletes context pieces the model repeated verbatim.
func removeEcho(out string, pieces []string) string {
	out = strings.ReplaceAll(out, strings.TrimSpace(summaryLabel), "")
	for _, p := range pieces {
		p = strings.TrimSpace(p)
		if len([]rune(p)) < echoMinChars || p == strings.TrimSpace(out) {
			continue
		}
		out = strings.ReplaceAll(out, p, "")
	}
	return out
}
