package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/manokeeper/internal/client/rotation"
)

const barWidth = 20

func formatProgress(p rotation.Progress) string {
	filled := p.Percent * barWidth / 100
	bar := strings.Repeat("#", filled) + strings.Repeat(".", barWidth-filled)
	if p.Label == "" {
		return fmt.Sprintf("[%s] %3d%%", bar, p.Percent)
	}
	return fmt.Sprintf("[%s] %3d%% %s", bar, p.Percent, p.Label)
}

// watchProgress prints the rotation progress to w every interval, skipping
// ticks where nothing changed. The returned func stops the watcher and waits
// for it to exit.
func watchProgress(w io.Writer, interval time.Duration, snapshot func() rotation.Snapshot, now func() time.Time) (stop func()) {
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		var last rotation.Progress
		for {
			select {
			case <-ticker.C:
				p := rotation.Report(snapshot(), now())
				if p != last {
					fmt.Fprintln(w, formatProgress(p))
					last = p
				}
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			wg.Wait()
		})
	}
}
