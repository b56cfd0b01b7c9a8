package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"layout-translator/internal/config"
	"layout-translator/internal/logger"
)

// printHelp displays the help information for command line usage.
func printHelp(fs *pflag.FlagSet) {
	fmt.Println("layout-translator - translate a PDF in place, keeping its layout")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  layout-translator [options] <input.pdf> <output.pdf>")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Print(fs.FlagUsages())
	fmt.Println()
	fmt.Println("Everything else is read from AX_* environment variables, e.g.")
	fmt.Println("  AX_TR_UNLOAD_MODE=offload AX_OCR_DPI=300 layout-translator in.pdf out.pdf")
}

func initLogger(cfg *config.Config) error {
	lc := logger.DefaultConfig()
	lvl, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	lc.Level = lvl
	lc.FilePath = cfg.LogFile
	return logger.Init(lc)
}

func run() int {
	fs := pflag.NewFlagSet("layout-translator", pflag.ContinueOnError)
	config.RegisterFlags(fs)
	help := fs.BoolP("help", "h", false, "show this help")
	if err := fs.Parse(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if *help {
		printHelp(fs)
		return 0
	}
	if fs.NArg() < 2 {
		printHelp(fs)
		return 1
	}
	input, output := fs.Arg(0), fs.Arg(1)

	cfg, err := config.Load(fs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if err := initLogger(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer logger.Close()

	app, err := NewApp(cfg)
	if err != nil {
		logger.Error("startup failed", err)
		return 1
	}
	defer app.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("translating",
		logger.String("input", input),
		logger.String("output", output),
		logger.String("model", cfg.Model),
		logger.String("target", cfg.TargetLanguage.Name()))

	counters, err := app.TranslatePDF(ctx, input, output, func(page, total int) {
		fmt.Fprintf(os.Stderr, "\r[%3d%%] page %d/%d", page*100/total, page, total)
	})
	fmt.Fprintln(os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	fmt.Printf("Pages:       %d\n", counters.Pages)
	fmt.Printf("Regions:     %d\n", counters.Regions)
	fmt.Printf("Reverted:    %d\n", counters.Reverted)
	fmt.Printf("Substituted: %d\n", counters.Substituted)
	fmt.Printf("OCR pages:   %d\n", counters.OCRPages)
	fmt.Printf("Output:      %s\n", output)
	return 0
}

func main() {
	os.Exit(run())
}
