package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"

	"yashubustudio/readerstudy/readerstudy"
)

func newLabelsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "labels",
		Short: "Convert and summarise label files",
		Long: `Label files are CSV/TSV (one column per category), Parquet (one row per score) or
SQLite; the format follows the file extension.`,
	}
	cmd.AddCommand(newLabelsConvertCmd(opts))
	cmd.AddCommand(newLabelsSummaryCmd(opts))
	return cmd
}

func newLabelsConvertCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "convert INPUT OUTPUT",
		Short:   "Convert a label file to another format",
		Example: `  readerstudy-cli labels convert labels.csv labels.parquet`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := readerstudy.ReadLabels(args[0])
			if err != nil {
				return err
			}
			if err := readerstudy.WriteLabels(args[1], table); err != nil {
				return err
			}
			if logger := opts.logger(cmd); logger != nil {
				logger.Printf("categories: %s", strings.Join(table.Categories(), ", "))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "converted %d label rows to %s\n", table.Len(), args[1])
			return nil
		},
	}
}

func newLabelsSummaryCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "summary [FILE]",
		Short: "Per method and category statistics of a label file",
		Long: `Print the mean and standard deviation of numeric scores and the counts of choice
scores for every method and category. Without FILE the labelsPath of the configuration
is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			} else {
				cfg, err := opts.loadConfig()
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				path = cfg.LabelsPath
			}
			if path == "" {
				return fmt.Errorf("no label file given and labelsPath is not configured")
			}
			table, err := readerstudy.ReadLabels(path)
			if err != nil {
				return err
			}
			return writeSummary(cmd.OutOrStdout(), summarize(table))
		},
	}
}

type scoreSummary struct {
	Method   string
	Category string
	N        int
	Numeric  int
	Mean     float64
	StdDev   float64
	Choices  map[string]int
}

// summarize groups the scores of every image by method and category.
func summarize(table *readerstudy.LabelTable) []scoreSummary {
	type key struct{ method, category string }
	numbers := make(map[key][]float64)
	choices := make(map[key]map[string]int)
	for _, row := range table.Rows() {
		if row.ImageID == readerstudy.DummyImageID {
			continue
		}
		for name, score := range row.Scores {
			k := key{row.Method, name}
			if score.IsChoice {
				if choices[k] == nil {
					choices[k] = make(map[string]int)
				}
				choices[k][score.Choice]++
				continue
			}
			numbers[k] = append(numbers[k], score.Number)
		}
	}
	seen := make(map[key]struct{})
	var out []scoreSummary
	add := func(k key) {
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		s := scoreSummary{Method: k.method, Category: k.category, Choices: choices[k]}
		if values := numbers[k]; len(values) > 0 {
			s.Numeric = len(values)
			s.N = len(values)
			s.Mean, s.StdDev = stat.MeanStdDev(values, nil)
			if s.Numeric == 1 {
				s.StdDev = 0
			}
		}
		for _, c := range s.Choices {
			s.N += c
		}
		out = append(out, s)
	}
	for k := range numbers {
		add(k)
	}
	for k := range choices {
		add(k)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Method != out[j].Method {
			return out[i].Method < out[j].Method
		}
		return out[i].Category < out[j].Category
	})
	return out
}

func writeSummary(w io.Writer, rows []scoreSummary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "METHOD\tCATEGORY\tN\tMEAN\tSTD\tCHOICES")
	for _, r := range rows {
		mean, std := "-", "-"
		if r.Numeric > 0 {
			mean = fmt.Sprintf("%.3f", r.Mean)
			std = fmt.Sprintf("%.3f", r.StdDev)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n", r.Method, r.Category, r.N, mean, std, formatChoices(r.Choices))
	}
	return tw.Flush()
}

func formatChoices(counts map[string]int) string {
	if len(counts) == 0 {
		return "-"
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s=%d", name, counts[name])
	}
	return strings.Join(parts, " ")
}
