package cli

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"yashubustudio/readerstudy/slicetable"
)

func newSlicesCmd(opts *rootOptions) *cobra.Command {
	var (
		progress bool
		cacheDir string
		export   string
		quiet    bool
	)
	cmd := &cobra.Command{
		Use:   "slices [FILE|URL]...",
		Short: "List the slices of HDF5 k-space files",
		Long: `Count the slices of every file and list one record per slice.

Without arguments the files listed under images.slices in the configuration are used.
URLs are downloaded once into the cache directory.`,
		Example: `  readerstudy-cli slices --progress data/file1.h5 data/file2.h5
  readerstudy-cli slices --export slices.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			paths := args
			if len(paths) == 0 {
				paths = cfg.Images.Slices
			}
			if len(paths) == 0 {
				return errors.New("no slice files given")
			}
			if cacheDir == "" {
				cacheDir = cfg.Images.CacheDir
			}
			table, err := slicetable.Build(cmd.Context(), paths, slicetable.Options{
				Progress:       progress,
				ProgressWriter: cmd.ErrOrStderr(),
				Resolver:       slicetable.NewResolver(cacheDir),
				Opener:         opts.opener,
				Logger:         opts.logger(cmd),
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !quiet {
				for _, rec := range table.Records() {
					fmt.Fprintf(out, "%s\t%d\n", rec.Path, rec.Slice)
				}
			}
			fmt.Fprintf(out, "%d slices in %d files\n", table.Len(), len(paths))
			if export != "" {
				if err := writeRecords(export, table.Records()); err != nil {
					return err
				}
				fmt.Fprintf(out, "records written to %s\n", export)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&progress, "progress", false, "Show a progress bar while counting")
	cmd.Flags().StringVar(&cacheDir, "cache-dir", "", "Download directory for URLs (default from config)")
	cmd.Flags().StringVar(&export, "export", "", "Write the records to a CSV file")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Only print the totals")
	return cmd
}

func writeRecords(path string, records []slicetable.Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	_ = w.Write([]string{"id", "path", "sl"})
	for _, rec := range records {
		_ = w.Write([]string{rec.Key(), rec.Path, strconv.Itoa(rec.Slice)})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
