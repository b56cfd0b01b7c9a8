package config

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"layout-translator/internal/lang"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultModel, cfg.Model)
	assert.Equal(t, lang.Korean, cfg.TargetLanguage)
	assert.True(t, cfg.UnloadAfterJob)
	assert.Equal(t, "delete", cfg.UnloadMode)
	assert.True(t, cfg.KeepTokenizer)
	assert.Equal(t, 6000, cfg.ContextMaxChars)
	assert.Equal(t, 120*time.Second, cfg.Timeout)
	assert.Equal(t, 512, cfg.MaxNewTokens)
	assert.Equal(t, DefaultMaxRetries, cfg.MaxRetries)
	assert.True(t, cfg.OCREnabled)
	assert.Equal(t, "eng+kor", cfg.OCRLang)
	assert.Equal(t, 400, cfg.OCRDPI)
	assert.Equal(t, 4, cfg.OCRPSM)
	assert.Equal(t, 40.0, cfg.OCRConfMin)
	assert.Equal(t, 2, cfg.OCRMinLineCh)
	assert.Equal(t, 5.0, cfg.MinFont)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("AX_MODEL", "local-7b")
	t.Setenv("OPENAI_BASE_URL", "http://gpu:9000/v1")
	t.Setenv("AX_TR_TARGET_LANG", "en-US")
	t.Setenv("AX_TR_UNLOAD_AFTER_JOB", "0")
	t.Setenv("AX_TR_UNLOAD_MODE", "cpu")
	t.Setenv("AX_TR_KEEP_TOKENIZER", "false")
	t.Setenv("AX_TR_CONTEXT_MAX_CHARS", "1200")
	t.Setenv("AX_TR_TIMEOUT", "45s")
	t.Setenv("AX_OCR_DPI", "300")
	t.Setenv("AX_OCR_ENABLE", "0")
	t.Setenv("AX_TR_CACHE_FILE", "/tmp/segments.json")

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "local-7b", cfg.Model)
	assert.Equal(t, "http://gpu:9000/v1", cfg.BaseURL)
	assert.Equal(t, lang.English, cfg.TargetLanguage)
	assert.False(t, cfg.UnloadAfterJob)
	assert.Equal(t, "offload", cfg.UnloadMode)
	assert.False(t, cfg.KeepTokenizer)
	assert.Equal(t, 1200, cfg.ContextMaxChars)
	assert.Equal(t, 45*time.Second, cfg.Timeout)
	assert.Equal(t, 300, cfg.OCRDPI)
	assert.False(t, cfg.OCREnabled)
	assert.Equal(t, "/tmp/segments.json", cfg.CacheFile)
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("AX_TR_TARGET_LANG", "en")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--lang", "zh-Hant", "--no-ocr"}))

	cfg, err := Load(fs)
	require.NoError(t, err)
	assert.Equal(t, lang.Chinese, cfg.TargetLanguage)
	assert.False(t, cfg.OCREnabled)
}

func TestLoadRejectsUnsupportedLanguage(t *testing.T) {
	t.Setenv("AX_TR_TARGET_LANG", "fr")
	_, err := Load(nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, lang.ErrUnsupported)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Model:           "m",
			TargetLanguage:  lang.Korean,
			UnloadMode:      "delete",
			ContextMaxChars: 10,
			Timeout:         time.Second,
			MaxNewTokens:    1,
			CacheSize:       1,
			OCRDPI:          72,
			OCRConfMin:      40,
			OCRPSM:          4,
			MinFont:         5,
			FontScale:       1,
		}
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"bad unload mode", func(c *Config) { c.UnloadMode = "swap" }},
		{"empty model", func(c *Config) { c.Model = "" }},
		{"zero context", func(c *Config) { c.ContextMaxChars = 0 }},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }},
		{"zero cache", func(c *Config) { c.CacheSize = 0 }},
		{"zero dpi", func(c *Config) { c.OCRDPI = 0 }},
		{"confidence above 100", func(c *Config) { c.OCRConfMin = 101 }},
		{"psm out of range", func(c *Config) { c.OCRPSM = 14 }},
		{"zero min font", func(c *Config) { c.MinFont = 0 }},
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }},
		{"unsupported language", func(c *Config) { c.TargetLanguage = "fr" }},
	}

	require.NoError(t, valid().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}
