package main

import (
	"fmt"

	"github.com/spf13/cobra"

	mmerrors "github.com/matchmedia-go/matchmedia/internal/errors"
	"github.com/matchmedia-go/matchmedia/pkg/mediaquery"
)

func evalCmd() *cobra.Command {
	var (
		width         int
		height        int
		dpr           float64
		dark          bool
		reducedMotion bool
		printMedia    bool
		coarse        bool
		noHover       bool
		quiet         bool
	)

	cmd := &cobra.Command{
		Use:   "eval [queries...]",
		Short: "Evaluate media queries against a synthetic environment",
		Long: `Evaluate one or more media query expressions against an environment
described by flags, and print whether each matches.

The exit code is 0 when every query matches and 1 otherwise, so eval
can back shell conditionals.`,
		Example: `  matchmedia eval "(max-width: 768px)" --width 500
  matchmedia eval "(orientation: landscape)" "(prefers-color-scheme: dark)" --dark
  matchmedia eval --width 375 --height 812 --coarse --no-hover "(pointer: coarse)"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			media := mediaquery.DefaultMedia()
			media.Width = width
			media.Height = height
			media.DPR = dpr
			if dark {
				media.ColorScheme = mediaquery.SchemeDark
			}
			media.ReducedMotion = reducedMotion
			if printMedia {
				media.Type = mediaquery.MediaPrint
			}
			if coarse {
				media.Pointer = mediaquery.PointerCoarse
				media.AnyPointer = mediaquery.PointerCoarse
			}
			if noHover {
				media.Hover = false
				media.AnyHover = false
			}

			if !quiet {
				info("environment: %dx%d @%gx type=%s scheme=%s",
					media.Width, media.Height, media.DPR, media.Type, media.ColorScheme)
				fmt.Println()
			}

			allMatch := true
			for _, raw := range args {
				q, err := mediaquery.Compile(raw)
				if err != nil {
					printQueryError(raw, err)
					allMatch = false
					continue
				}

				if q.Matches(media) {
					success("%s", raw)
				} else {
					errorMsg("%s", raw)
					allMatch = false
				}
			}

			if !allMatch {
				cmd.SilenceUsage = true
				return errExit
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&width, "width", "W", 1024, "Viewport width in CSS pixels")
	cmd.Flags().IntVarP(&height, "height", "H", 768, "Viewport height in CSS pixels")
	cmd.Flags().Float64Var(&dpr, "dpr", 1.0, "Device pixel ratio")
	cmd.Flags().BoolVar(&dark, "dark", false, "Prefer a dark color scheme")
	cmd.Flags().BoolVar(&reducedMotion, "reduced-motion", false, "Prefer reduced motion")
	cmd.Flags().BoolVar(&printMedia, "print", false, "Evaluate as a print device")
	cmd.Flags().BoolVar(&coarse, "coarse", false, "Coarse primary pointer (touch)")
	cmd.Flags().BoolVar(&noHover, "no-hover", false, "Primary input cannot hover")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress the environment line")

	return cmd
}

// errExit signals a non-matching evaluation without an extra message;
// main already prints per-query results.
var errExit = &silentError{}

type silentError struct{}

func (*silentError) Error() string { return "one or more queries did not match" }

// printQueryError upgrades a compiler ParseError to the rich terminal
// rendering with the caret under the offending offset.
func printQueryError(raw string, err error) {
	if pe, ok := err.(*mediaquery.ParseError); ok {
		e := mmerrors.New(pe.Code).WithQuery(pe.Query, pe.Pos)
		e.Message = pe.Message
		fmt.Println(e.Format())
		return
	}
	errorMsg("%s: %v", raw, err)
}
