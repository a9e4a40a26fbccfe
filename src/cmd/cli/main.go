package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"screen-schedule/src/config"
	"screen-schedule/src/extract"
	"screen-schedule/src/logutil"
	"screen-schedule/src/ocr"
	"screen-schedule/src/schedule"
)

const (
	maxFileSizeMB = 10
	maxFileSize   = maxFileSizeMB * 1024 * 1024
)

var pngMagic = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}

type cliOptions struct {
	filePath   string
	token      string
	tokenPath  string
	engine     string
	jsonOutput bool
	dryRun     bool
	icsPath    string
	verbose    bool
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	return runWithArgs(normalizeLegacyArgs(os.Args))
}

func runWithArgs(args []string) error {
	if len(args) == 0 {
		args = []string{"schedule-ocr"}
	}
	opts := &cliOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

func newRootCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "schedule-ocr",
		Short:         "Extract schedules from a PNG screenshot",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithOptions(*opts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.filePath, "file", "", "Path to PNG file (use '-' for stdin)")
	cmd.Flags().StringVar(&opts.token, "token", "", "Access token (overrides the token file)")
	cmd.Flags().StringVar(&opts.tokenPath, "token-file", "", "Path to the access token file")
	cmd.Flags().StringVar(&opts.engine, "engine", "", "OCR engine: auto, tesseract or vision")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output results as JSON")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Parse schedules but do not save them")
	cmd.Flags().StringVar(&opts.icsPath, "ics", "", "Also write the parsed schedules to this iCalendar file")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output to stderr")
	_ = cmd.MarkFlagRequired("file")

	cmd.AddCommand(newHistoryCmd())
	return cmd
}

func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}
	normalized := make([]string, len(args))
	copy(normalized, args)

	for i := 1; i < len(normalized); i++ {
		arg := normalized[i]
		for _, name := range []string{"file", "token", "token-file", "engine", "json", "dry-run", "ics", "verbose"} {
			single := "-" + name
			if arg == single || strings.HasPrefix(arg, single+"=") {
				normalized[i] = "-" + arg
				break
			}
		}
	}
	return normalized
}

// pipeline is the part of a capture flow after the screen has been read.
type pipeline struct {
	recognizer extract.Recognizer
	backend    extract.Backend
	notify     func(string)
}

type cliResult struct {
	Source     string               `json:"source"`
	Status     string               `json:"status"`
	Message    string               `json:"message"`
	Text       string               `json:"text"`
	Saved      int                  `json:"saved"`
	Total      int                  `json:"total"`
	DryRun     bool                 `json:"dry_run,omitempty"`
	Candidates []schedule.Candidate `json:"candidates,omitempty"`
	Timestamp  string               `json:"timestamp"`
	Duration   float64              `json:"duration_seconds"`
}

func runWithOptions(opts cliOptions, stdin io.Reader, stdout io.Writer) error {
	// Configure logging before anything else logs.
	if !opts.verbose {
		log.SetOutput(io.Discard)
	} else {
		log.SetOutput(os.Stderr)
		fmt.Fprintf(os.Stderr, "[verbose] Starting schedule-ocr\n")
	}

	cfg, err := config.LoadWithOptions(config.LoadOptions{
		TokenPathOverride: opts.tokenPath,
		TokenOverride:     opts.token,
		EngineOverride:    opts.engine,
	})
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if opts.verbose {
		fmt.Fprintf(os.Stderr, "[verbose] Schedule service: %s\n", cfg.APIBaseURL)
		fmt.Fprintf(os.Stderr, "[verbose] Token: %s (from %s)\n", logutil.RedactKey(cfg.Token), cfg.TokenPath)
	}

	img, err := readImage(opts.filePath, stdin)
	if err != nil {
		return err
	}

	adapter, engine, err := ocr.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("failed to configure OCR: %w", err)
	}
	if err := adapter.Init(); err != nil {
		return fmt.Errorf("failed to start OCR engine %s: %w", engine, err)
	}
	defer adapter.Close()

	p := pipeline{
		recognizer: adapter,
		backend:    schedule.NewClient(cfg.APIBaseURL, cfg.RemoteTimeout, nil),
	}
	if opts.verbose {
		p.notify = func(msg string) { fmt.Fprintf(os.Stderr, "[verbose] %s\n", msg) }
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.FlowDeadline)
	defer cancel()

	res, runErr := execute(ctx, p, img, cfg.Token, opts.dryRun)
	res.Source = opts.filePath
	if opts.icsPath != "" && len(res.Candidates) > 0 {
		if err := writeICSFile(opts.icsPath, res.Candidates); err != nil {
			return err
		}
	}
	if err := writeResult(stdout, res, opts.jsonOutput); err != nil {
		return err
	}
	return runErr
}

func writeICSFile(path string, cands []schedule.Candidate) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	n, err := schedule.WriteICS(f, cands, time.Local, time.Now())
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	log.Printf("wrote %d events to %s", n, path)
	return nil
}

// recordingBackend keeps the candidates of the last successful parse.
type recordingBackend struct {
	extract.Backend
	parsed []schedule.Candidate
}

func (b *recordingBackend) ParseText(ctx context.Context, token, text string) (schedule.ParseResult, error) {
	res, err := b.Backend.ParseText(ctx, token, text)
	if err == nil && res.OK() {
		b.parsed = res.Data
	}
	return res, err
}

func readImage(path string, stdin io.Reader) (image.Image, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(io.LimitReader(stdin, maxFileSize+1))
		if err != nil {
			return nil, fmt.Errorf("failed to read from stdin: %w", err)
		}
	} else {
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read file %s: %w", path, err)
		}
	}
	return decodePNG(data)
}

func decodePNG(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("input file is empty")
	}
	if len(data) > maxFileSize {
		return nil, fmt.Errorf("input file exceeds maximum size of %d MB", maxFileSizeMB)
	}
	if !bytes.HasPrefix(data, pngMagic) {
		return nil, fmt.Errorf("input is not a valid PNG file (invalid magic number)")
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode PNG: %w", err)
	}
	return img, nil
}

// execute runs recognition and parsing, and saves the candidates unless
// dryRun is set.
func execute(ctx context.Context, p pipeline, img image.Image, token string, dryRun bool) (res cliResult, err error) {
	start := time.Now()
	defer func() {
		res.Timestamp = time.Now().UTC().Format(time.RFC3339)
		res.Duration = time.Since(start).Seconds()
	}()

	if !dryRun {
		backend := &recordingBackend{Backend: p.backend}
		orch := &extract.Orchestrator{Recognizer: p.recognizer, Backend: backend}
		if p.notify != nil {
			orch.Notifier = extract.NotifierFunc(p.notify)
		}
		out := orch.Run(ctx, img, token)
		res.Candidates = backend.parsed
		res.Status = out.Status.String()
		res.Message = out.Message()
		res.Text = out.Text
		res.Saved, res.Total = out.Saved, out.Total
		return res, out.Err
	}

	res.DryRun = true
	if strings.TrimSpace(token) == "" {
		res.Status, res.Message = extract.StatusFailed.String(), failureMessage(extract.ErrAuthMissing)
		return res, extract.ErrAuthMissing
	}
	text, err := p.recognizer.Recognize(ctx, img)
	if err != nil {
		res.Status, res.Message = extract.StatusFailed.String(), failureMessage(err)
		return res, fmt.Errorf("OCR failed: %w", err)
	}
	res.Text = text
	if text == "" {
		res.Status = extract.StatusNoText.String()
		res.Message = extract.Outcome{Status: extract.StatusNoText}.Message()
		return res, nil
	}
	parsed, err := p.backend.ParseText(ctx, token, text)
	if err != nil {
		res.Status, res.Message = extract.StatusFailed.String(), failureMessage(err)
		return res, fmt.Errorf("parse failed: %w", err)
	}
	if !parsed.OK() {
		pf := &extract.ParseFailure{Code: parsed.Code, Message: parsed.Message}
		res.Status, res.Message = extract.StatusFailed.String(), failureMessage(pf)
		return res, pf
	}
	res.Status = "parsed"
	res.Candidates = parsed.Data
	res.Total = len(parsed.Data)
	res.Message = fmt.Sprintf("Found %d schedules", res.Total)
	return res, nil
}

func failureMessage(err error) string {
	return extract.Outcome{Status: extract.StatusFailed, Err: err}.Message()
}

func writeResult(w io.Writer, res cliResult, jsonOutput bool) error {
	if jsonOutput {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(res); err != nil {
			return fmt.Errorf("failed to encode JSON output: %w", err)
		}
		return nil
	}
	_, err := fmt.Fprintln(w, res.Message)
	return err
}
