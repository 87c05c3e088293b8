package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/mmcdole/infiniscroll/internal/feed"
	"github.com/mmcdole/infiniscroll/internal/tui/styles"
)

// clearSpinnerLine clears the spinner line from the terminal
const clearSpinnerLine = "\r                                    \r"

// runPlain simulates the sentinel becoming visible batches times and prints
// every item as it is appended. Failed batches are reported and the next
// iteration retries them.
func runPlain(ctx context.Context, ctrl *feed.Controller, batches int, out io.Writer, spin bool) error {
	printed := printItems(out, ctrl.Snapshot(), 0)

	for i := 1; i <= batches; i++ {
		err := loadWithSpinner(ctx, ctrl, out, spin)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		snap := ctrl.Snapshot()
		if err != nil {
			fmt.Fprintf(out, "✗ batch %d failed: %v\n", i, err)
			continue
		}

		added := len(snap.Items) - printed
		printed = printItems(out, snap, printed)
		fmt.Fprintf(out, "-- batch %d: %d new, %d total\n", i, added, len(snap.Items))

		if snap.Exhausted {
			fmt.Fprintf(out, "End of list (%d items)\n", len(snap.Items))
			return nil
		}
	}
	return nil
}

func printItems(out io.Writer, snap feed.Snapshot, from int) int {
	for _, it := range snap.Items[from:] {
		fmt.Fprintf(out, "%s\t%s\n", it.Key(), it.Label())
	}
	return len(snap.Items)
}

// loadWithSpinner runs one batch load, animating a spinner when out is a terminal
func loadWithSpinner(ctx context.Context, ctrl *feed.Controller, out io.Writer, spin bool) error {
	if !spin {
		return ctrl.Load(ctx)
	}

	resultCh := make(chan error, 1)
	go func() {
		resultCh <- ctrl.Load(ctx)
	}()

	frame := 0
	fmt.Fprintf(out, "\r%s Loading...", styles.SpinnerFrames[frame])

	ticker := time.NewTicker(80 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case err := <-resultCh:
			fmt.Fprint(out, clearSpinnerLine)
			return err

		case <-ticker.C:
			frame++
			fmt.Fprintf(out, "\r%s Loading...", styles.SpinnerFrames[frame%len(styles.SpinnerFrames)])
		}
	}
}
