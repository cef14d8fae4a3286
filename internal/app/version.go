package app

import (
	"fmt"

	"github.com/spf13/cobra"
)

var appVersion = "dev"

// SetVersion records the build version, set by main from ldflags.
func SetVersion(v string) {
	appVersion = v
	rootCmd.Version = v
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print the bookdesk version",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotOffline: "true"},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("bookdesk %s\n", appVersion)
		},
	}
}
