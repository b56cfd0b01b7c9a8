package main

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"layout-translator/internal/config"
	"layout-translator/internal/guard"
	"layout-translator/internal/layout"
	"layout-translator/internal/logger"
	"layout-translator/internal/ocr"
	"layout-translator/internal/pdf"
	"layout-translator/internal/translator"
)

// App wires the translator, guard, OCR engine and PDF pipeline from one
// configuration and runs translation jobs with them.
type App struct {
	cfg        *config.Config
	metrics    layout.Metrics
	cache      *guard.Cache
	translator *translator.Service
	dispatcher *guard.Dispatcher
	engine     ocr.Engine
	rasterizer *pdf.Rasterizer

	mu  sync.RWMutex
	job *pdf.Job
}

// NewApp builds every long-lived component. The model is not loaded here.
func NewApp(cfg *config.Config) (*App, error) {
	a := &App{cfg: cfg}

	m, err := layout.NewMetrics(cfg.FontFile)
	if err != nil {
		logger.Warn("font metrics unavailable, estimating widths", logger.String("font", cfg.FontFile), logger.Err(err))
	}
	a.metrics = m

	a.cache, err = guard.NewCache(cfg.CacheSize, cfg.CacheFile)
	if err != nil {
		return nil, err
	}
	if err := a.cache.Load(); err != nil {
		logger.Warn("segment cache not loaded", logger.String("path", cfg.CacheFile), logger.Err(err))
	}

	glossary, err := guard.LoadGlossary(cfg.GlossaryFile)
	if err != nil {
		return nil, err
	}

	a.translator, err = translator.NewServiceFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	a.dispatcher = guard.NewDispatcher(a.translator, guard.Options{
		Target:         cfg.TargetLanguage,
		TranslateLabel: cfg.TranslateLabel,
		Glossary:       glossary,
		Cache:          a.cache,
		ShowDiff:       cfg.ShowDiff,
	})

	if cfg.OCREnabled {
		a.engine, err = ocr.NewEngine()
		switch {
		case errors.Is(err, ocr.ErrOCRNotEnabled):
			logger.Warn("OCR fallback disabled", logger.Err(err))
			a.engine = nil
		case err != nil:
			return nil, fmt.Errorf("start OCR engine: %w", err)
		}
		a.rasterizer = pdf.NewRasterizer(cfg.Pdftoppm, cfg.OCRDPI)
		if a.engine != nil && !a.rasterizer.Available() {
			logger.Warn("pdftoppm not found, OCR fallback disabled", logger.String("bin", cfg.Pdftoppm))
		}
	}
	return a, nil
}

// TranslatePDF translates input into output. It is the single document
// entry point: the translator is loaded on entry and the unload policy is
// applied on return, whether the job succeeds or not.
func (a *App) TranslatePDF(ctx context.Context, input, output string, progress pdf.ProgressFunc) (pdf.JobCounters, error) {
	doc, err := pdf.Open(input, pdf.FileOptions{
		FontFile:   a.cfg.FontFile,
		Rasterizer: a.rasterizer,
		Metrics:    a.metrics,
	})
	if err != nil {
		a.translator.EndJob(ctx)
		return pdf.JobCounters{}, err
	}
	defer doc.Close()

	acq := pdf.NewAcquirer(doc, a.engine, pdf.AcquireOptions{
		OCREnabled:       a.engine != nil && a.rasterizer != nil && a.rasterizer.Available(),
		OCRLang:          a.cfg.OCRLang,
		OCRDPI:           a.cfg.OCRDPI,
		OCRPSM:           a.cfg.OCRPSM,
		OCRConfMin:       a.cfg.OCRConfMin,
		OCRMinLineCh:     a.cfg.OCRMinLineCh,
		TranslateLabel:   a.cfg.TranslateLabel,
		NeedsTranslation: guard.NeedsTranslation,
		Metrics:          a.metrics,
	})
	renderer := pdf.NewRenderer(a.dispatcher, pdf.RenderOptions{
		FontScale:    a.cfg.FontScale,
		MinFont:      a.cfg.MinFont,
		OverflowPad:  a.cfg.OverflowPad,
		IsNumberUnit: guard.IsNumberUnit,
		ShowDiff:     a.cfg.ShowDiff,
	})

	job := pdf.NewJob(doc, acq, renderer, a.translator)
	job.SetProgressCallback(progress)
	a.mu.Lock()
	a.job = job
	a.mu.Unlock()

	return job.Run(ctx, output)
}

// Status returns the state of the current job, if any.
func (a *App) Status() (pdf.JobStatus, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.job == nil {
		return pdf.JobStatus{}, false
	}
	return a.job.Status(), true
}

// Shutdown persists the segment cache and releases the OCR engine.
func (a *App) Shutdown() {
	if err := a.cache.Save(); err != nil {
		logger.Warn("segment cache not saved", logger.String("path", a.cfg.CacheFile), logger.Err(err))
	}
	if a.engine != nil {
		if err := a.engine.Close(); err != nil {
			logger.Warn("OCR engine close failed", logger.Err(err))
		}
	}
	hits, misses := a.cache.Stats()
	logger.Debug("segment cache",
		logger.Int("entries", a.cache.Len()),
		logger.Int("hits", int(hits)),
		logger.Int("misses", int(misses)))
}
