// Package config loads the translator settings from AX_* environment
// variables and optional command line flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"layout-translator/internal/lang"
)

const (
	EnvPrefix = "AX"

	DefaultModel          = "AX4-Light"
	DefaultBaseURL        = "http://localhost:8000/v1"
	DefaultAPIKey         = "EMPTY"
	DefaultTargetLanguage = "ko"
	DefaultUnloadMode     = "delete"
	DefaultContextChars   = 6000
	DefaultTimeout        = 120 * time.Second
	DefaultMaxNewTokens   = 512
	DefaultMaxRetries     = 2
	DefaultCacheSize      = 4096

	DefaultOCRLang      = "eng+kor"
	DefaultOCRDPI       = 400
	DefaultOCRPSM       = 4
	DefaultOCRConfMin   = 40
	DefaultOCRMinLineCh = 2

	DefaultPdftoppm    = "pdftoppm"
	DefaultFontFile    = "/usr/share/fonts/truetype/nanum/NanumGothicBold.ttf"
	DefaultMinFont     = 5.0
	DefaultFontScale   = 1.0
	DefaultOverflowPad = 1.5
)

// Config holds every tunable of a translation job.
type Config struct {
	// Translator backend
	Model   string
	BaseURL string
	APIKey  string

	// Translation
	TargetLanguage  lang.Language
	UnloadAfterJob  bool
	UnloadMode      string // "delete" or "offload"
	KeepTokenizer   bool
	ContextMaxChars int
	Timeout         time.Duration
	MaxNewTokens    int
	MaxRetries      int
	CacheSize       int
	CacheFile       string
	TranslateLabel  bool
	GlossaryFile    string
	ShowDiff        bool

	// OCR
	OCREnabled   bool
	OCRLang      string
	OCRDPI       int
	OCRPSM       int
	OCRConfMin   float64
	OCRMinLineCh int

	// Rendering
	Pdftoppm    string
	FontFile    string
	MinFont     float64
	FontScale   float64
	OverflowPad float64

	// Logging
	LogLevel string
	LogFile  string
}

// flagKeys maps command line flag names to config keys.
var flagKeys = map[string]string{
	"lang":      "tr.target_lang",
	"model":     "model",
	"base-url":  "base_url",
	"font":      "font.file",
	"no-ocr":    "ocr.disable",
	"log-level": "log.level",
	"log-file":  "log.file",
}

// RegisterFlags defines the flags Load understands on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("lang", DefaultTargetLanguage, "target language (ko, en, zh)")
	fs.String("model", DefaultModel, "translator model name")
	fs.String("base-url", DefaultBaseURL, "OpenAI-compatible endpoint")
	fs.String("font", DefaultFontFile, "TrueType font used for inserted text")
	fs.Bool("no-ocr", false, "skip the OCR fallback")
	fs.String("log-level", "info", "log level (debug, info, warn, error)")
	fs.String("log-file", "", "also write logs to this file")
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("model", DefaultModel)
	v.SetDefault("base_url", DefaultBaseURL)
	v.SetDefault("api_key", DefaultAPIKey)
	_ = v.BindEnv("base_url", "AX_BASE_URL", "OPENAI_BASE_URL")
	_ = v.BindEnv("api_key", "AX_API_KEY", "OPENAI_API_KEY")

	v.SetDefault("tr.target_lang", DefaultTargetLanguage)
	v.SetDefault("tr.unload_after_job", true)
	v.SetDefault("tr.unload_mode", DefaultUnloadMode)
	v.SetDefault("tr.keep_tokenizer", true)
	v.SetDefault("tr.context_max_chars", DefaultContextChars)
	v.SetDefault("tr.timeout", DefaultTimeout)
	v.SetDefault("tr.max_new_tokens", DefaultMaxNewTokens)
	v.SetDefault("tr.max_retries", DefaultMaxRetries)
	v.SetDefault("tr.cache_size", DefaultCacheSize)
	v.SetDefault("tr.cache_file", "")
	v.SetDefault("tr.translate_label", true)
	v.SetDefault("tr.glossary", "")
	v.SetDefault("tr.show_diff", false)

	v.SetDefault("ocr.enable", true)
	v.SetDefault("ocr.disable", false)
	v.SetDefault("ocr.lang", DefaultOCRLang)
	v.SetDefault("ocr.dpi", DefaultOCRDPI)
	v.SetDefault("ocr.psm", DefaultOCRPSM)
	v.SetDefault("ocr.conf_min", DefaultOCRConfMin)
	v.SetDefault("ocr.min_line_ch", DefaultOCRMinLineCh)

	v.SetDefault("pdftoppm", DefaultPdftoppm)
	v.SetDefault("font.file", DefaultFontFile)
	v.SetDefault("min_font", DefaultMinFont)
	v.SetDefault("font_scale", DefaultFontScale)
	v.SetDefault("overflow_pad", DefaultOverflowPad)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	return v
}

// Load reads the environment and, when fs is non-nil, any flags that were
// set on it. The result is validated.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := newViper()
	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	cfg, err := populate(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func populate(v *viper.Viper) (*Config, error) {
	target, err := lang.Normalize(v.GetString("tr.target_lang"))
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	cfg := &Config{
		Model:   v.GetString("model"),
		BaseURL: v.GetString("base_url"),
		APIKey:  v.GetString("api_key"),

		TargetLanguage:  target,
		UnloadAfterJob:  v.GetBool("tr.unload_after_job"),
		UnloadMode:      normalizeUnloadMode(v.GetString("tr.unload_mode")),
		KeepTokenizer:   v.GetBool("tr.keep_tokenizer"),
		ContextMaxChars: v.GetInt("tr.context_max_chars"),
		Timeout:         v.GetDuration("tr.timeout"),
		MaxNewTokens:    v.GetInt("tr.max_new_tokens"),
		MaxRetries:      v.GetInt("tr.max_retries"),
		CacheSize:       v.GetInt("tr.cache_size"),
		CacheFile:       v.GetString("tr.cache_file"),
		TranslateLabel:  v.GetBool("tr.translate_label"),
		GlossaryFile:    v.GetString("tr.glossary"),
		ShowDiff:        v.GetBool("tr.show_diff"),

		OCREnabled:   v.GetBool("ocr.enable") && !v.GetBool("ocr.disable"),
		OCRLang:      v.GetString("ocr.lang"),
		OCRDPI:       v.GetInt("ocr.dpi"),
		OCRPSM:       v.GetInt("ocr.psm"),
		OCRConfMin:   v.GetFloat64("ocr.conf_min"),
		OCRMinLineCh: v.GetInt("ocr.min_line_ch"),

		Pdftoppm:    v.GetString("pdftoppm"),
		FontFile:    v.GetString("font.file"),
		MinFont:     v.GetFloat64("min_font"),
		FontScale:   v.GetFloat64("font_scale"),
		OverflowPad: v.GetFloat64("overflow_pad"),

		LogLevel: v.GetString("log.level"),
		LogFile:  v.GetString("log.file"),
	}
	return cfg, nil
}

// normalizeUnloadMode accepts "cpu" as an alias of "offload".
func normalizeUnloadMode(s string) string {
	m := strings.ToLower(strings.TrimSpace(s))
	if m == "cpu" {
		return "offload"
	}
	return m
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if _, err := lang.Normalize(string(c.TargetLanguage)); err != nil {
		return err
	}
	if c.UnloadMode != "delete" && c.UnloadMode != "offload" {
		return fmt.Errorf("unload mode must be delete, cpu or offload, got %q", c.UnloadMode)
	}
	if c.Model == "" {
		return errors.New("model name cannot be empty")
	}
	if c.ContextMaxChars <= 0 {
		return errors.New("context max chars must be positive")
	}
	if c.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	if c.MaxNewTokens <= 0 {
		return errors.New("max new tokens must be positive")
	}
	if c.MaxRetries < 0 {
		return errors.New("max retries cannot be negative")
	}
	if c.CacheSize <= 0 {
		return errors.New("cache size must be positive")
	}
	if c.OCRDPI <= 0 {
		return errors.New("OCR dpi must be positive")
	}
	if c.OCRConfMin < 0 || c.OCRConfMin > 100 {
		return errors.New("OCR confidence floor must be within [0, 100]")
	}
	if c.OCRPSM < 0 || c.OCRPSM > 13 {
		return fmt.Errorf("OCR page segmentation mode %d out of range", c.OCRPSM)
	}
	if c.MinFont <= 0 {
		return errors.New("minimum font size must be positive")
	}
	if c.FontScale <= 0 {
		return errors.New("font scale must be positive")
	}
	return nil
}
