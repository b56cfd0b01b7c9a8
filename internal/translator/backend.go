package translator

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
)

// ChatConfig describes an OpenAI-compatible chat endpoint.
type ChatConfig struct {
	Model   string
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// ChatBackend loads an eino OpenAI chat model. Offloading uses the sleep
// and wake_up endpoints exposed by vLLM-style servers; servers without
// them make Offload fail and the handle falls back to deleting.
type ChatBackend struct {
	cfg    ChatConfig
	client *http.Client
}

// NewChatBackend creates a backend for cfg.
func NewChatBackend(cfg ChatConfig) *ChatBackend {
	return &ChatBackend{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Load creates the chat model client.
func (b *ChatBackend) Load(ctx context.Context) (model.BaseChatModel, error) {
	cfg := &openai.ChatModelConfig{
		Model:   b.cfg.Model,
		APIKey:  b.cfg.APIKey,
		Timeout: b.cfg.Timeout,
	}
	if b.cfg.BaseURL != "" {
		cfg.BaseURL = b.cfg.BaseURL
	}
	cm, err := openai.NewChatModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return cm, nil
}

// Offload puts the server model to sleep, keeping weights in host memory.
func (b *ChatBackend) Offload(ctx context.Context) error {
	return b.post(ctx, "/sleep?level=1")
}

// Restore wakes a sleeping server model.
func (b *ChatBackend) Restore(ctx context.Context) error {
	return b.post(ctx, "/wake_up")
}

// serverRoot strips the OpenAI API prefix from the base URL.
func (b *ChatBackend) serverRoot() string {
	root := strings.TrimRight(b.cfg.BaseURL, "/")
	return strings.TrimSuffix(root, "/v1")
}

func (b *ChatBackend) post(ctx context.Context, path string) error {
	root := b.serverRoot()
	if root == "" {
		return fmt.Errorf("no server URL configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, root+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if b.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.cfg.APIKey)
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("request %s: status %d", path, resp.StatusCode)
	}
	return nil
}
