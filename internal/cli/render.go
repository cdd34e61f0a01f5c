package cli

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/citekit"
	"github.com/roach88/citekit/internal/cluster"
	"github.com/roach88/citekit/internal/document"
	"github.com/roach88/citekit/internal/styles"
)

// RenderOptions holds flags for the render command.
type RenderOptions struct {
	*RootOptions
	Refs    string
	Style   string
	Locale  string
	ShowAll bool
	Link    bool
	Cache   string
}

// citationPattern matches pandoc-style citation groups: [@smith2020] or
// [@smith2020; @doe2018].
var citationPattern = regexp.MustCompile(`\[@[^\]]*\]`)

// NewRenderCommand creates the render command.
func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RenderOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "render <document>",
		Short: "Render citations and a bibliography into a document",
		Long: `Render a plain-text document containing pandoc-style citation groups.

Each [@id] or [@id; @id] group becomes an inline citation; the formatted
bibliography is appended after the document body.

Example:
  citekit render --refs refs.yaml paper.txt
  citekit render --refs refs.yaml --style ieee --show-all paper.txt`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return renderDocument(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Refs, "refs", "", "path to reference YAML (required)")
	cmd.Flags().StringVar(&opts.Style, "style", citekit.DefaultStyle, "citation style")
	cmd.Flags().StringVar(&opts.Locale, "locale", citekit.DefaultLocale, "locale")
	cmd.Flags().BoolVar(&opts.ShowAll, "show-all", false, "list uncited references too")
	cmd.Flags().BoolVar(&opts.Link, "link", false, "link citations to bibliography entries")
	cmd.Flags().StringVar(&opts.Cache, "cache", "", "path to persistent resource cache (SQLite)")
	_ = cmd.MarkFlagRequired("refs")

	return cmd
}

// RenderResult is the render command's JSON payload.
type RenderResult struct {
	Document  string `json:"document"`
	Citations int    `json:"citations"`
	Failed    int    `json:"failed"`
	SessionID string `json:"session_id"`
}

func renderDocument(opts *RenderOptions, docPath string, cmd *cobra.Command) error {
	logLevel := slog.LevelWarn
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel,
	}))

	text, err := os.ReadFile(docPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read document", err)
	}
	refs, err := os.ReadFile(opts.Refs)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read references", err)
	}

	fetcher := styles.EmbeddedFetcher{}
	cache := styles.NewCache(fetcher)
	if opts.Cache != "" {
		cache, err = styles.OpenCache(fetcher, opts.Cache)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open resource cache", err)
		}
		defer cache.Close()
	}

	doc := document.NewMemDocument()
	session, err := citekit.Create(cmd.Context(), refs,
		citekit.WithDocument(doc),
		citekit.WithStyle(opts.Style),
		citekit.WithLocale(opts.Locale),
		citekit.WithLinkCitations(opts.Link),
		citekit.WithResourceCache(cache),
		citekit.WithLogger(logger),
	)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create session", err)
	}
	defer session.Dispose()

	// Anchors are substituted after the bibliography renders: the render
	// pass reprocesses every cluster, and for numeric styles that rewrites
	// the preview numbering with the authoritative one.
	var anchors []citekit.Node
	failed := 0
	body := citationPattern.ReplaceAllStringFunc(string(text), func(group string) string {
		ids := parseCitationGroup(group)
		if len(ids) == 0 {
			return group
		}
		c := session.Cite(ids...)
		if c.Err != nil {
			failed++
			logger.Warn("citation failed", "group", group, "error", c.Err)
		}
		anchors = append(anchors, c.Anchor)
		return fmt.Sprintf("\x00citekit:%d\x00", len(anchors)-1)
	})

	bib := session.Bibliography(citekit.BibliographyOptions{ShowAll: opts.ShowAll})
	for i, anchor := range anchors {
		body = strings.Replace(body,
			fmt.Sprintf("\x00citekit:%d\x00", i), anchorMarkup(anchor), 1)
	}
	citations := len(anchors)
	rendered := strings.TrimRight(body, "\n") + "\n\n" + bib.Markup() + "\n"

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	formatter.VerboseLog("rendered %d citation group(s), %d failed", citations, failed)

	if opts.Format == "json" {
		if err := formatter.Success(RenderResult{
			Document:  rendered,
			Citations: citations,
			Failed:    failed,
			SessionID: session.ID(),
		}); err != nil {
			return err
		}
	} else {
		fmt.Fprint(cmd.OutOrStdout(), rendered)
	}

	if failed > 0 {
		return WrapExitError(ExitFailure,
			fmt.Sprintf("%d citation group(s) failed to render", failed), nil)
	}
	return nil
}

// parseCitationGroup extracts reference ids from a "[@a; @b]" group.
func parseCitationGroup(group string) []string {
	inner := strings.TrimSuffix(strings.TrimPrefix(group, "["), "]")
	var ids []string
	for _, part := range strings.Split(inner, ";") {
		part = strings.TrimSpace(part)
		if strings.HasPrefix(part, "@") && len(part) > 1 {
			ids = append(ids, strings.TrimPrefix(part, "@"))
		}
	}
	return ids
}

// anchorMarkup serializes a citation anchor for inline placement, matching
// the document's own attribute ordering.
func anchorMarkup(n citekit.Node) string {
	class, _ := n.Attr("class")
	cid, _ := n.Attr(cluster.ClusterAttr)
	sid, _ := n.Attr(cluster.SessionAttr)
	return fmt.Sprintf(`<span class=%q %s=%q %s=%q>%s</span>`,
		class, cluster.ClusterAttr, cid, cluster.SessionAttr, sid, n.HTML())
}
