package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/54b3r/pdfqa-go/internal/logging"
	"github.com/54b3r/pdfqa-go/internal/session"
)

// NewAskCmd constructs the `pdfqa ask` command, which answers a single
// question against a PDF or a previously saved index.
func NewAskCmd() *cobra.Command {
	var pdfPath string
	var storePath string
	var topK int
	var detail bool

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question about an indexed document",
		Long: `Ask a natural language question about a PDF document.

Provide the document either directly with --pdf (extracted and embedded on
the fly) or as a saved index with --store. With neither flag the default
index artifact (~/.pdfqa/index.db) is loaded.

Examples:
  pdfqa ask --pdf paper.pdf "what method does the paper propose?"
  pdfqa ask --store ./paper.db "what were the main results?"
  pdfqa ask --detail "summarize the experimental setup"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			if pdfPath != "" && storePath != "" {
				return fmt.Errorf("ask: --pdf and --store are mutually exclusive")
			}

			sess, closeStore, err := buildSession(ctx, log)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer closeStore()

			switch {
			case pdfPath != "":
				report, err := sess.Ingest(ctx, pdfPath)
				if err != nil {
					return fmt.Errorf("ask: %w", err)
				}
				log.Info("document indexed",
					"document", report.DocumentName, "passages", report.PassageCount)
			default:
				if storePath == "" {
					storePath, err = defaultStorePath()
					if err != nil {
						return fmt.Errorf("ask: %w", err)
					}
				}
				if err := sess.LoadStore(storePath); err != nil {
					return fmt.Errorf("ask: %w (run 'pdfqa ingest' first or pass --pdf)", err)
				}
			}

			answer, err := sess.Ask(ctx, args[0], session.AskOptions{
				K:             topK,
				RequireDetail: detail,
			})
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			fmt.Println(answer)
			return nil
		},
	}

	cmd.Flags().StringVarP(&pdfPath, "pdf", "f", "", "PDF document to index before asking")
	cmd.Flags().StringVarP(&storePath, "store", "s", "", "Saved index artifact to load (default: ~/.pdfqa/index.db)")
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of passages to retrieve (default: 3)")
	cmd.Flags().BoolVarP(&detail, "detail", "d", false, "Request a longer, more thorough answer")

	return cmd
}
