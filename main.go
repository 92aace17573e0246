package main

import (
	"flag"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/hltx/hightext/layout"
	"github.com/hltx/hightext/markup"
	canvasrenderer "github.com/hltx/hightext/renderer/canvas"
	"github.com/hltx/hightext/styles"
)

func main() {
	text := flag.String("text", "", "annotation text with <highlighted substrings>")
	stylePath := flag.String("styles", "", "TOML style sheet path")
	output := flag.String("out", "output/annotation.pdf", "output path (.pdf or .png)")
	debugPath := flag.String("debug", "", "layout debug JSON output path")
	delimOpen := flag.String("delim-open", "<", "opening highlight delimiter")
	delimClose := flag.String("delim-close", ">", "closing highlight delimiter")
	valign := flag.String("valign", "bottom", "vertical anchor: top/bottom/center")
	halign := flag.String("halign", "left", "horizontal anchor: left/right/center")
	hpad := flag.String("hpad", "0mm", "extra padding between fragments")
	spacing := flag.String("spacing", "0.25x", "row spacing: factor (0.25x) or length (4mm)")
	wrap := flag.Float64("wrap", 0, "wrap width in mm, 0 disables wrapping")
	fontDir := flag.String("fontdir", "", "directory for font paths in the style sheet")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           log.InfoLevel,
	})
	if *verbose {
		logger.SetLevel(log.DebugLevel)
	}

	if strings.TrimSpace(*text) == "" {
		logger.Fatal("missing -text")
	}

	sheet := &styles.Sheet{}
	if *stylePath != "" {
		var err error
		if sheet, err = styles.Load(*stylePath); err != nil {
			logger.Fatal("loading style sheet failed", "err", err)
		}
		logger.Debug("style sheet loaded", "highlights", len(sheet.Highlights), "named", len(sheet.Named))
	}

	hpadLen, err := layout.ParseLength(*hpad)
	if err != nil {
		logger.Fatal("invalid -hpad", "err", err)
	}
	spacingSpec, err := layout.ParseSpacing(*spacing)
	if err != nil {
		logger.Fatal("invalid -spacing", "err", err)
	}

	format := canvasrenderer.FormatPDF
	if strings.EqualFold(filepath.Ext(*output), ".png") {
		format = canvasrenderer.FormatPNG
	}
	r := canvasrenderer.NewRendererWithOptions(canvasrenderer.Options{
		BaseDir: *fontDir,
		Format:  format,
	})

	result, err := layout.Build(layout.Annotation{
		Text:        *text,
		Style:       sheet.Base,
		Highlights:  sheet.Highlights,
		Delim:       markup.Delimiters{Open: *delimOpen, Close: *delimClose},
		VAlign:      layout.VAlign(*valign),
		HAlign:      layout.HAlign(*halign),
		HPad:        hpadLen,
		LineSpacing: spacingSpec,
		WrapWidth:   *wrap,
	}, layout.BuildOptions{Typesetter: r})
	if err != nil {
		logger.Fatal("layout failed", "err", err)
	}
	logger.Debug("layout built", "rows", len(result.Rows), "bounds", result.Bounds)

	if *debugPath != "" {
		if err := os.MkdirAll(filepath.Dir(*debugPath), 0o755); err != nil {
			logger.Fatal("creating debug directory failed", "err", err)
		}
		if err := layout.WriteDebugJSON(result, *debugPath); err != nil {
			logger.Fatal("writing debug JSON failed", "err", err)
		}
	}

	data, err := r.Render(result)
	if err != nil {
		logger.Fatal("rendering failed", "err", err)
	}
	if err := os.MkdirAll(filepath.Dir(*output), 0o755); err != nil {
		logger.Fatal("creating output directory failed", "err", err)
	}
	if err := os.WriteFile(*output, data, 0o644); err != nil {
		logger.Fatal("writing output failed", "err", err)
	}
	logger.Info("annotation rendered", "out", *output, "format", string(format))
}
