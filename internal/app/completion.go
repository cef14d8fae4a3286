package app

import (
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/bookdesk/internal/dashboards"
)

var completionGenerators = map[string]func(root *cobra.Command, w io.Writer) error{
	"bash":       func(r *cobra.Command, w io.Writer) error { return r.GenBashCompletionV2(w, true) },
	"zsh":        func(r *cobra.Command, w io.Writer) error { return r.GenZshCompletion(w) },
	"fish":       func(r *cobra.Command, w io.Writer) error { return r.GenFishCompletion(w, true) },
	"powershell": func(r *cobra.Command, w io.Writer) error { return r.GenPowerShellCompletionWithDesc(w) },
}

func newCompletionCmd() *cobra.Command {
	shells := make([]string, 0, len(completionGenerators))
	for s := range completionGenerators {
		shells = append(shells, s)
	}
	sort.Strings(shells)

	return &cobra.Command{
		Use:   "completion <shell>",
		Short: "Generate shell autocompletion scripts",
		Long: `Generate autocompletion for bash, zsh, fish or powershell. Dashboard
--filter flags complete to the values each filter accepts.

  source <(bookdesk completion bash)      # ~/.bashrc
  source <(bookdesk completion zsh)       # ~/.zshrc
  bookdesk completion fish > ~/.config/fish/completions/bookdesk.fish
  bookdesk completion powershell | Out-String | Invoke-Expression`,
		Args:                  cobra.ExactArgs(1),
		Annotations:           map[string]string{annotOffline: "true"},
		DisableFlagsInUseLine: true,
		ValidArgs:             shells,
		RunE: func(cmd *cobra.Command, args []string) error {
			gen, found := completionGenerators[args[0]]
			if !found {
				return cmd.Help()
			}
			return gen(cmd.Root(), os.Stdout)
		},
	}
}

// completeFilter suggests name= prefixes, then the choices of the named
// filter once a name has been typed.
func completeFilter(name string) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		def, err := dashboards.Lookup(name, settings)
		if err != nil {
			return nil, cobra.ShellCompDirectiveError
		}
		filterName, _, typed := strings.Cut(toComplete, "=")
		var out []string
		for _, f := range def.Filters {
			switch {
			case !typed:
				out = append(out, f.Name+"=")
			case f.Name == filterName:
				for _, c := range f.Choices {
					out = append(out, f.Name+"="+c)
				}
			}
		}
		return out, cobra.ShellCompDirectiveNoSpace | cobra.ShellCompDirectiveNoFileComp
	}
}
