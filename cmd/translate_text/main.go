// Command translate_text translates free text with the configured model.
//
//	translate_text --lang en "번역할 문장"
//	echo "Some text" | translate_text --context "earlier paragraph"
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"layout-translator/internal/config"
	"layout-translator/internal/logger"
	"layout-translator/internal/translator"
)

func run() int {
	fs := pflag.NewFlagSet("translate_text", pflag.ContinueOnError)
	config.RegisterFlags(fs)
	prev := fs.String("context", "", "previous context, used as advice only")
	if err := fs.Parse(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	cfg, err := config.Load(fs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	lc := logger.DefaultConfig()
	if lvl, err := logger.ParseLevel(cfg.LogLevel); err == nil {
		lc.Level = lvl
	}
	lc.FilePath = cfg.LogFile
	if err := logger.Init(lc); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer logger.Close()

	text := strings.Join(fs.Args(), " ")
	if text == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading stdin: %v\n", err)
			return 1
		}
		text = string(data)
	}

	svc, err := translator.NewServiceFromConfig(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	out, err := svc.TranslateText(context.Background(), text, string(cfg.TargetLanguage),
		translator.History{Summary: *prev})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Println(out)
	return 0
}

func main() {
	os.Exit(run())
}
