package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jenezis/harmonizer/client"
)

func newHarmonizeCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "harmonize [skill...]",
		Short: "Map skills onto canonical names",
		Long:  "Map skills onto canonical names. Skills come from arguments or, with --file, one per line (\"-\" reads stdin).",
		RunE: func(cmd *cobra.Command, args []string) error {
			skills := args
			if file != "" {
				fromFile, err := readLines(file)
				if err != nil {
					return err
				}
				skills = append(skills, fromFile...)
			}
			if len(skills) == 0 {
				return fmt.Errorf("no skills given")
			}

			results, err := apiClient.Skills.Harmonize(context.Background(), skills)
			if err != nil {
				fatal("harmonize", err)
			}
			switch flagFmt {
			case "table":
				rows := make([][]string, 0, len(results))
				for _, r := range results {
					known := failMark()
					if r.IsKnown {
						known = okMark()
					}
					rows = append(rows, []string{r.Original, r.Canonical, known})
				}
				formatTable([]string{"SKILL", "CANONICAL", "KNOWN"}, rows)
			case "quiet":
				for _, r := range results {
					formatQuiet(r.Canonical)
				}
			default:
				formatJSON(map[string]any{"results": results})
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read skills from a file, one per line")
	return cmd
}

func newSuggestCmd() *cobra.Command {
	var (
		topK   int
		useLLM bool
	)
	cmd := &cobra.Command{
		Use:   "suggest <skill>",
		Short: "Rank canonical candidates for an unknown skill",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			resp, err := apiClient.Skills.Suggest(context.Background(), client.SuggestRequest{
				Skill:  args[0],
				TopK:   topK,
				UseLLM: useLLM,
			})
			if err != nil {
				fatal("suggest", err)
			}
			switch flagFmt {
			case "table":
				rows := make([][]string, 0, len(resp.Suggestions))
				for _, s := range resp.Suggestions {
					rows = append(rows, []string{s.CanonicalName, fmt.Sprintf("%.3f", s.Score), strings.Join(s.Parents, ",")})
				}
				formatTable([]string{"CANONICAL", "SCORE", "PARENTS"}, rows)
				fmt.Printf("\nmethod: %s\n", resp.Method)
			case "quiet":
				for _, s := range resp.Suggestions {
					formatQuiet(s.CanonicalName)
				}
			default:
				formatJSON(resp)
			}
		},
	}
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of suggestions (server default when 0)")
	cmd.Flags().BoolVar(&useLLM, "llm", false, "Ask the server to re-rank with its language model")
	return cmd
}

// readLines returns the non-blank lines of path, or of stdin for "-".
func readLines(path string) ([]string, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}

	var lines []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return lines, nil
}
