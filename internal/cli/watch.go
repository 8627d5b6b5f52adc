package cli

import (
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/example/meubles-dor/internal/bootstrap"
	"github.com/example/meubles-dor/internal/config"
	"github.com/example/meubles-dor/internal/infrastructure/store"
	"github.com/example/meubles-dor/internal/realtime"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow backend changes live",
	Long: `watch subscribes to the products, categories and orders change feeds and
prints every change, followed by a summary once a burst has settled.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd.Context(), false, func(cfg *config.Config, s *bootstrap.Services) error {
			if cfg.Realtime.Driver == "none" {
				return fmt.Errorf("realtime driver is disabled")
			}
			out := cmd.OutOrStdout()

			var mu sync.Mutex
			pending := map[string]int{}
			summary := realtime.NewCoalescer(cfg.Realtime.RefreshDelay, func() {
				mu.Lock()
				defer mu.Unlock()
				tables := make([]string, 0, len(pending))
				for t, n := range pending {
					tables = append(tables, fmt.Sprintf("%s=%d", t, n))
				}
				sort.Strings(tables)
				pending = map[string]int{}
				fmt.Fprintf(out, "🔄 refresh: %s\n", strings.Join(tables, " "))
			})
			defer summary.Stop()

			n := s.SubscribeAll(cmd.Context(), func(ev store.ChangeEvent) {
				mu.Lock()
				pending[ev.Table]++
				mu.Unlock()
				fmt.Fprintf(out, "%s %-10s %-7s %s\n", ev.CommitTimestamp.Local().Format(time.TimeOnly), ev.Table, ev.Type, ev.RecordID)
				summary.Trigger()
			})
			if n == 0 {
				return fmt.Errorf("no change feed could be opened")
			}
			fmt.Fprintf(out, "👀 Watching %d table(s), Ctrl+C to stop\n", n)

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigCh)
			select {
			case <-sigCh:
			case <-cmd.Context().Done():
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
