package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	mmerrors "github.com/matchmedia-go/matchmedia/internal/errors"
	"github.com/matchmedia-go/matchmedia/pkg/mediaquery"
)

func checkCmd() *cobra.Command {
	var (
		file    string
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "check [queries...]",
		Short: "Validate media query syntax",
		Long: `Parse media query expressions without evaluating them and report
syntax errors with their exact position.

Queries come from the arguments, or one per line from --file
("-" reads stdin). Blank lines and lines starting with # are skipped.`,
		Example: `  matchmedia check "(min-width: 768px) and (orientation: landscape)"
  matchmedia check --file queries.txt
  grep media: styles.css | matchmedia check --file -`,
		RunE: func(cmd *cobra.Command, args []string) error {
			queries := args
			if file != "" {
				fromFile, err := readQueryFile(file)
				if err != nil {
					return err
				}
				queries = append(queries, fromFile...)
			}
			if len(queries) == 0 {
				return fmt.Errorf("no queries to check; pass arguments or --file")
			}

			bad := 0
			for _, raw := range queries {
				_, err := mediaquery.Compile(raw)
				if err == nil {
					if !jsonOut {
						success("%s", raw)
					}
					continue
				}

				bad++
				if pe, ok := err.(*mediaquery.ParseError); ok {
					e := mmerrors.New(pe.Code).WithQuery(pe.Query, pe.Pos)
					e.Message = pe.Message
					if jsonOut {
						fmt.Println(e.FormatJSON())
					} else {
						fmt.Println(e.Format())
					}
				} else {
					errorMsg("%s: %v", raw, err)
				}
			}

			if bad > 0 {
				cmd.SilenceUsage = true
				return fmt.Errorf("%d of %d queries invalid", bad, len(queries))
			}
			if !jsonOut {
				fmt.Println()
				info("%d queries ok", len(queries))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Read queries from file, one per line (- for stdin)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit errors as JSON, one object per line")

	return cmd
}

// readQueryFile reads one query per line, skipping blanks and comments.
func readQueryFile(path string) ([]string, error) {
	var r *os.File
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var queries []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		queries = append(queries, line)
	}
	return queries, scanner.Err()
}
