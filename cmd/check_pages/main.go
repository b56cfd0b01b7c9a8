// Command check_pages reports, per page, what the native text layer offers
// and whether the OCR fallback would run. Nothing is translated.
//
// Usage:
//
//	go run ./cmd/check_pages <input.pdf>
package main

import (
	"fmt"
	"os"

	"layout-translator/internal/layout"
	"layout-translator/internal/pdf"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: check_pages <input.pdf>")
		fmt.Println()
		fmt.Println("Prints page sizes, span and character counts of the text layer,")
		fmt.Println("the footer blocks found, and which pages would be sent to OCR.")
		os.Exit(1)
	}
	path := os.Args[1]

	if err := pdf.ValidateFile(path); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	sizes, err := pdf.PageSizes(path)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	text, err := pdf.OpenTextLayer(path)
	if err != nil {
		fmt.Printf("Warning: no text layer: %v\n", err)
	} else {
		defer text.Close()
	}

	fmt.Printf("%-5s %-15s %6s %6s %6s %7s  %s\n", "page", "size", "blocks", "spans", "chars", "footers", "source")
	ocrPages := 0
	for i, sz := range sizes {
		page := i + 1
		var blocks []layout.Block
		if text != nil {
			blocks, err = text.Blocks(page, sz.Height)
			if err != nil {
				fmt.Printf("%-5d read error: %v\n", page, err)
			}
		}
		st := layout.LayerStats(blocks)
		footers := 0
		for _, b := range blocks {
			if layout.IsFooter(b, sz.Height) {
				footers++
			}
		}

		source := "native"
		switch {
		case st.Absent(len(blocks)):
			source = "ocr"
			ocrPages++
		case st.Sparse(len(blocks)):
			source = "native+ocr"
			ocrPages++
		}
		fmt.Printf("%-5d %6.0fx%-8.0f %6d %6d %6d %7d  %s\n",
			page, sz.Width, sz.Height, len(blocks), st.Spans, st.Chars, footers, source)
	}
	fmt.Printf("\n%d page(s), %d needing OCR\n", len(sizes), ocrPages)
}
