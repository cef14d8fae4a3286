package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/bookdesk/internal/cache"
)

var cacheAreas = []string{cache.Previews, cache.Downloads}

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:         "cache",
		Short:       "Manage the local preview and download cache",
		Long:        "Manage thumbnails generated for staged images and files downloaded from URLs before upload.",
		Annotations: map[string]string{annotOffline: "true"},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := rootCmd.PersistentPreRunE(cmd, args); err != nil {
				return err
			}
			cacheMgr = cache.New(cfg.Media.CacheDir)
			return nil
		},
	}

	cmd.AddCommand(
		newCacheInfoCmd(),
		newCacheClearCmd(),
	)
	return cmd
}

func newCacheInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show cache usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			header("Cache: %s", cfg.Media.CacheDir)
			var total int64
			for _, area := range cacheAreas {
				size, count := calculateDirSize(filepath.Dir(cacheMgr.Path(area, "x")))
				total += size
				fmt.Printf("  %-12s %d files (%s)\n", area+":", count, humanBytes(size))
			}
			fmt.Printf("  %-12s %s\n", "total:", color.WhiteString(humanBytes(total)))
			return nil
		},
	}
}

func newCacheClearCmd() *cobra.Command {
	var area string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove cached files",
		Long: `Remove cached previews and downloads. Nothing on the server changes.

Files staged by a running bookdesk session are removed too, so close
other sessions first.`,
		Example: `  bookdesk cache clear
  bookdesk cache clear --area previews`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			areas := cacheAreas
			if area != "" {
				if area != cache.Previews && area != cache.Downloads {
					return fmt.Errorf("unknown cache area %q (want %s or %s)", area, cache.Previews, cache.Downloads)
				}
				areas = []string{area}
			}
			removed := 0
			for _, a := range areas {
				n, err := cacheMgr.Sweep(a)
				if err != nil {
					return fmt.Errorf("clearing %s: %w", a, err)
				}
				removed += n
			}
			if removed == 0 {
				ok("Cache is already empty")
				return nil
			}
			ok("Removed %d cached files", removed)
			return nil
		},
	}

	cmd.Flags().StringVar(&area, "area", "", "Only clear previews or downloads")
	return cmd
}

func calculateDirSize(path string) (int64, int) {
	var size int64
	count := 0

	_ = filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			size += info.Size()
			count++
		}
		return nil
	})

	return size, count
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for n := n / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
