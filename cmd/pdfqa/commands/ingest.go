package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/54b3r/pdfqa-go/internal/extractor"
	"github.com/54b3r/pdfqa-go/internal/logging"
)

// NewIngestCmd constructs the `pdfqa ingest` command, which indexes a PDF
// into the vector store and saves the index artifact for later questions.
func NewIngestCmd() *cobra.Command {
	var storePath string
	var cropTop float64
	var cropBottom float64

	cmd := &cobra.Command{
		Use:   "ingest [pdf]",
		Short: "Index a PDF document for question answering",
		Long: `Extract, split, and embed a PDF document into the vector store.

With the default in-process store the index is saved as a single artifact
file (--store, default ~/.pdfqa/index.db) that 'pdfqa ask --store' and
'pdfqa serve' can load without re-embedding. When QDRANT_COLLECTION is set
the passages are indexed into Qdrant instead and no artifact is written.

Running headers and footers can be cropped away before extraction with
--crop-top and --crop-bottom (in points).

Examples:
  pdfqa ingest paper.pdf
  pdfqa ingest --store ./paper.db paper.pdf
  pdfqa ingest --crop-top 50 --crop-bottom 40 report.pdf
  QDRANT_COLLECTION=papers pdfqa ingest paper.pdf`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			pdfPath := args[0]

			// Crop headers/footers into a temp copy when requested.
			if cropTop > 0 || cropBottom > 0 {
				cropped := filepath.Join(os.TempDir(), "pdfqa-cropped-"+filepath.Base(pdfPath))
				if err := extractor.CropHeaderFooter(pdfPath, cropped, cropTop, cropBottom); err != nil {
					return fmt.Errorf("ingest: cropping %s: %w", pdfPath, err)
				}
				defer os.Remove(cropped)
				pdfPath = cropped
				log.Info("cropped margins",
					slog.Float64("top", cropTop), slog.Float64("bottom", cropBottom))
			}

			sess, closeStore, err := buildSession(ctx, log)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			defer closeStore()

			report, err := sess.Ingest(ctx, pdfPath)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			fmt.Printf("Indexed %s: %d pages, %d passages\n",
				report.DocumentName, report.PageCount, report.PassageCount)
			if report.PassageCount == 0 {
				fmt.Println("Warning: no extractable text found in this document.")
			}

			// Qdrant persists server-side; only the flat store saves an artifact.
			if os.Getenv("QDRANT_COLLECTION") != "" {
				return nil
			}

			if storePath == "" {
				storePath, err = defaultStorePath()
				if err != nil {
					return fmt.Errorf("ingest: %w", err)
				}
			}
			if err := os.MkdirAll(filepath.Dir(storePath), 0o755); err != nil {
				return fmt.Errorf("ingest: creating store directory: %w", err)
			}
			if err := sess.SaveStore(storePath); err != nil {
				return fmt.Errorf("ingest: saving index: %w", err)
			}
			fmt.Printf("Index saved to %s\n", storePath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&storePath, "store", "s", "", "Index artifact path (default: ~/.pdfqa/index.db)")
	cmd.Flags().Float64Var(&cropTop, "crop-top", 0, "Points to crop from the top of every page before extraction")
	cmd.Flags().Float64Var(&cropBottom, "crop-bottom", 0, "Points to crop from the bottom of every page before extraction")

	return cmd
}
