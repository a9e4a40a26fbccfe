package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"screen-schedule/src/overlay"
	"screen-schedule/src/singleinstance"
)

type stressOptions struct {
	n        int
	token    string
	deadline time.Duration
}

type captureClient interface {
	TryCapture(ctx context.Context, token string) (bool, string, error)
}

// counts tallies how the resident answered concurrent capture requests.
// A resident that honors single-flight answers at most one of a burst
// with ok.
type counts struct {
	launched int
	ok       int32
	failed   int32
	busy     int32
	noRes    int32
	err      int32
}

func (c counts) String() string {
	return fmt.Sprintf("launched=%d ok=%d failed=%d busy=%d no_resident=%d err=%d",
		c.launched, c.ok, c.failed, c.busy, c.noRes, c.err)
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	opts := &stressOptions{}
	cmd := newRootCmd(opts)
	return cmd.Execute()
}

func newRootCmd(opts *stressOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "stress-capture",
		Short:         "Stress test delegated captures against a running resident",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			c := burst(opts.n, opts.token, opts.deadline, func() captureClient { return singleinstance.NewClient() })
			fmt.Fprintf(cmd.OutOrStdout(), "%s elapsed=%s\n", c, time.Since(start))
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.n, "n", 50, "number of clients to launch")
	cmd.Flags().StringVar(&opts.token, "token", "", "token sent with each request (empty uses the resident's)")
	cmd.Flags().DurationVar(&opts.deadline, "deadline", 30*time.Second, "per-client timeout")

	return cmd
}

// burst fires n capture requests at once and classifies the answers.
func burst(n int, token string, deadline time.Duration, newClient func() captureClient) counts {
	c := counts{launched: n}
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), deadline)
			defer cancel()
			delegated, _, err := newClient().TryCapture(ctx, token)
			switch {
			case err != nil && strings.Contains(err.Error(), overlay.ErrBusy.Error()):
				atomic.AddInt32(&c.busy, 1)
			case err != nil && delegated:
				atomic.AddInt32(&c.failed, 1)
			case err != nil:
				atomic.AddInt32(&c.err, 1)
			case delegated:
				atomic.AddInt32(&c.ok, 1)
			default:
				atomic.AddInt32(&c.noRes, 1)
			}
		}()
	}
	wg.Wait()
	return c
}
