package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"screen-schedule/src/config"
	"screen-schedule/src/eventloop"
	"screen-schedule/src/history"
	"screen-schedule/src/hotkey"
	"screen-schedule/src/logutil"
	"screen-schedule/src/overlay"
	"screen-schedule/src/runtimeinit"
	"screen-schedule/src/screenshot"
	"screen-schedule/src/session"
	"screen-schedule/src/singleinstance"
	"screen-schedule/src/tray"
)

type mainOptions struct {
	capture   bool
	token     string
	tokenPath string
	engine    string
}

type captureClient interface {
	TryCapture(ctx context.Context, token string) (bool, string, error)
}

func main() {
	enableDPIAwareness()
	// The tray and its message loop must stay on the main thread.
	runtime.LockOSThread()

	if err := runWithArgs(normalizeLegacyArgs(os.Args)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runWithArgs(args []string) error {
	if len(args) == 0 {
		args = []string{"screen-schedule"}
	}
	opts := &mainOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

func newRootCmd(opts *mainOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "screen-schedule",
		Short:         "Capture the screen and save the schedules found on it",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.capture {
				return runCapture(*opts)
			}
			return runResident(*opts)
		},
	}

	cmd.Flags().BoolVar(&opts.capture, "capture", false, "Capture once via the resident (or standalone) and exit")
	cmd.Flags().StringVar(&opts.token, "token", "", "Access token (overrides the token file)")
	cmd.Flags().StringVar(&opts.tokenPath, "token-file", "", "Path to the access token file")
	cmd.Flags().StringVar(&opts.engine, "engine", "", "OCR engine: auto, tesseract or vision")
	return cmd
}

func (o mainOptions) loadOptions() config.LoadOptions {
	return config.LoadOptions{
		TokenPathOverride: o.tokenPath,
		TokenOverride:     o.token,
		EngineOverride:    o.engine,
	}
}

func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}
	normalized := make([]string, len(args))
	copy(normalized, args)

	for i := 1; i < len(normalized); i++ {
		arg := normalized[i]
		for _, name := range []string{"capture", "token", "token-file", "engine"} {
			single := "-" + name
			if arg == single || strings.HasPrefix(arg, single+"=") {
				normalized[i] = "-" + arg
				break
			}
		}
	}
	return normalized
}

// handleCaptureWithDelegation asks a running resident to capture and falls
// back to a standalone run when none answers or delegation fails.
func handleCaptureWithDelegation(token string, client captureClient, fallback func()) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	delegated, msg, err := client.TryCapture(ctx, token)
	if err != nil {
		log.Printf("Delegation error: %v; falling back to standalone", err)
		fallback()
		return
	}
	if delegated {
		log.Printf("Delegated to resident: %s", msg)
		fmt.Println(msg)
		return
	}
	log.Printf("No resident detected, running standalone")
	fallback()
}

func runCapture(opts mainOptions) error {
	// Load .env early so SINGLEINSTANCE_PORT_* apply to the delegation scan.
	cfg, _ := config.LoadWithOptions(opts.loadOptions())
	token := opts.token
	if token == "" && cfg != nil {
		token = cfg.Token
	}

	var runErr error
	handleCaptureWithDelegation(token, singleinstance.NewClient(), func() {
		runErr = runStandalone(opts)
	})
	return runErr
}

// runStandalone runs one flow in this process and prints its message.
func runStandalone(opts mainOptions) error {
	deps, err := runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions:  opts.loadOptions(),
		SetupLogging: logutil.Setup,
	})
	if err != nil {
		return err
	}
	defer deps.Close()

	run := newRunner(deps, newCaptureManager(deps, screenshot.AskConsent), newOrchestrator(deps, nil))
	res, err := run(context.Background(), deps.Config.Token)

	out := session.StdoutTarget{}
	if err != nil {
		_ = out.OnFailure(res, err)
		return err
	}
	if err := (session.ClipboardTarget{CopyText: deps.Config.CopyText}).OnSuccess(res); err != nil {
		log.Printf("clipboard: %v", err)
	}
	return out.OnSuccess(res)
}

func runResident(opts mainOptions) error {
	// Load .env early so SINGLEINSTANCE_PORT_* are available for pre-flight.
	_, _ = config.LoadWithOptions(opts.loadOptions())
	startPort := singleinstance.CurrentRange().Start
	addr := fmt.Sprintf("127.0.0.1:%d", startPort)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		log.Printf("Pre-flight: port %d busy, resident already exists", startPort)
		return fmt.Errorf("already running on port %d", startPort)
	}
	_ = listener.Close()

	deps, err := runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions:          opts.loadOptions(),
		SetupLogging:         logutil.Setup,
		ShowBlockingOCRError: true,
	})
	if err != nil {
		return err
	}
	defer deps.Close()
	cfg := deps.Config
	logMonitorConfiguration()

	if cfg.Token == "" {
		log.Printf("No access token configured (checked %s); captures will ask to sign in", cfg.TokenPath)
	}
	log.Printf("Schedule service: %s", cfg.APIBaseURL)
	log.Printf("Hotkey: %s", cfg.Hotkey)
	log.Printf("Flow deadline: %v", cfg.FlowDeadline)
	tray.SetAboutExtra("Hotkey: " + cfg.Hotkey)
	tray.SetAboutExtra("OCR engine: " + deps.Engine)

	if deps.History != nil && cfg.HistoryRetention > 0 {
		retention, err := history.StartRetention(deps.History, cfg.HistoryPruneCron, cfg.HistoryRetention)
		if err != nil {
			log.Printf("history retention disabled: %v", err)
		} else {
			defer retention.Stop()
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tooltip := fmt.Sprintf("Screen Schedule - Press %s to capture", cfg.Hotkey)
	// Notifications are dispatched onto the loop that runs the flow.
	var run eventloop.Runner
	loop := eventloop.New(eventloop.Options{
		Run: func(ctx context.Context, token string) (session.Result, error) {
			return run(ctx, token)
		},
		Token:    cfg.Token,
		Deadline: cfg.FlowDeadline,
		Server:   singleinstance.NewServer(),
		CopyText: cfg.CopyText,
		Tooltip:  tooltip,
	})
	run = newRunner(deps, newCaptureManager(deps, screenshot.AskConsent), newOrchestrator(deps, loop))
	tray.UpdateTooltip(tooltip)

	ctrl := overlay.NewController(overlay.NewWindowManager(), loop, loop, cfg.Token, cfg.OverlayX, cfg.OverlayY)
	if err := ctrl.Start(); err != nil {
		log.Printf("overlay unavailable: %v", err)
	}
	defer func() { _ = ctrl.Destroy() }()

	tap := func() {
		if err := ctrl.Tap(); err != nil {
			log.Printf("capture trigger: %v", err)
		}
	}
	if err := hotkey.Listen(ctx, cfg.Hotkey, tap); err != nil {
		log.Printf("hotkey unavailable: %v", err)
	}

	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-ch:
			cancel()
		case <-ctx.Done():
		}
	}()

	loopErr := make(chan error, 1)
	go func() {
		err := loop.Run(ctx)
		tray.Quit()
		loopErr <- err
	}()

	tray.Run(tray.Handlers{OnCapture: tap, OnQuit: cancel}, nil)
	cancel()

	if err := <-loopErr; err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("event loop stopped: %w", err)
	}
	return nil
}
