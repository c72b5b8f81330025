package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"quick-ocr/src/config"
	"quick-ocr/src/singleinstance"
)

type stressOptions struct {
	n        int
	mode     string
	port     int
	deadline time.Duration
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
		Use:           "stress-runonce",
		Short:         "Fire concurrent run-once requests at a running resident",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.port == 0 {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				opts.port = cfg.ResidentPort
			}
			return runWithOptions(cmd.OutOrStdout(), *opts)
		},
	}

	cmd.Flags().IntVar(&opts.n, "n", 50, "number of clients to launch")
	cmd.Flags().StringVar(&opts.mode, "mode", "std", "std|clip: stdout or clipboard run-once")
	cmd.Flags().IntVar(&opts.port, "port", 0, "resident port (default from QUICKOCR_PORT)")
	cmd.Flags().DurationVar(&opts.deadline, "deadline", 5*time.Second, "per-client timeout")

	return cmd
}

// tally counts replies by status; "error" and "absent" cover clients that got none.
type tally struct {
	mu     sync.Mutex
	counts map[string]int
}

func (t *tally) add(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts[key]++
}

func (t *tally) String() string {
	keys := make([]string, 0, len(t.counts))
	for k := range t.counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", strings.ToLower(k), t.counts[k]))
	}
	return strings.Join(parts, " ")
}

func runWithOptions(out io.Writer, opts stressOptions) error {
	var wg sync.WaitGroup
	results := &tally{counts: map[string]int{}}
	req := singleinstance.Request{OutputToStdout: opts.mode == "std"}

	start := time.Now()
	for i := 0; i < opts.n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), opts.deadline)
			defer cancel()
			delegated, reply, err := singleinstance.Delegate(ctx, opts.port, req)
			switch {
			case err != nil:
				results.add("error")
			case !delegated:
				results.add("absent")
			default:
				results.add(string(reply.Status))
			}
		}()
	}
	wg.Wait()
	fmt.Fprintf(out, "launched=%d %s elapsed=%s\n", opts.n, results, time.Since(start).Round(time.Millisecond))
	return nil
}
