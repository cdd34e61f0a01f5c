package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/citekit/internal/styles"
)

// StylesOptions holds flags for the styles command.
type StylesOptions struct {
	*RootOptions
}

// ResourceListing is the styles command's JSON payload.
type ResourceListing struct {
	Styles  []string `json:"styles"`
	Locales []string `json:"locales"`
}

// NewStylesCommand creates the styles command.
func NewStylesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StylesOptions{RootOptions: rootOpts}

	return &cobra.Command{
		Use:           "styles",
		Short:         "List embedded styles and locales",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			fetcher := styles.EmbeddedFetcher{}
			listing := ResourceListing{
				Styles:  fetcher.Styles(),
				Locales: fetcher.Locales(),
			}

			if opts.Format == "json" {
				formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
				return formatter.Success(listing)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Styles:")
			for _, name := range listing.Styles {
				fmt.Fprintf(out, "  %s\n", name)
			}
			fmt.Fprintln(out, "Locales:")
			for _, name := range listing.Locales {
				fmt.Fprintf(out, "  %s\n", name)
			}
			return nil
		},
	}
}
