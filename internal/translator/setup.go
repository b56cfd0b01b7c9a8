package translator

import (
	"fmt"

	"layout-translator/internal/config"
)

// NewServiceFromConfig builds the chat backend, handle and service
// described by cfg. Nothing is loaded until the first call.
func NewServiceFromConfig(cfg *config.Config) (*Service, error) {
	mode, err := ParseUnloadMode(cfg.UnloadMode)
	if err != nil {
		return nil, err
	}
	backend := NewChatBackend(ChatConfig{
		Model:   cfg.Model,
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Timeout: cfg.Timeout,
	})
	handle := NewHandle(backend, HandleOptions{Mode: mode, KeepTemplates: cfg.KeepTokenizer})
	svc, err := NewService(handle, Settings{
		Timeout:         cfg.Timeout,
		MaxNewTokens:    cfg.MaxNewTokens,
		MaxRetries:      cfg.MaxRetries,
		ContextMaxChars: cfg.ContextMaxChars,
		UnloadAfterJob:  cfg.UnloadAfterJob,
		CacheSize:       cfg.CacheSize,
	})
	if err != nil {
		return nil, fmt.Errorf("create translator: %w", err)
	}
	return svc, nil
}
