package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	errs "team-matcher/pkg/errors"
	"team-matcher/pkg/similarity"
	"team-matcher/pkg/utils"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "teammatch",
		Short: "Fuzzy similarity scores for team and event names",
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newScoreCmd(), newTeamsCmd(), newNormalizeCmd(), newVersionCmd())
	return root
}

func newScoreCmd() *cobra.Command {
	var clear bool
	var lengthDiff uint
	cmd := &cobra.Command{
		Use:   "score FIRST SECOND",
		Short: "Print how similar two strings are, 0 to 100",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var got int16
			if cmd.Flags().Changed("length-diff") {
				got = similarity.InPercentWithinLength(args[0], args[1], clear, lengthDiff)
			} else {
				got = similarity.InPercent(args[0], args[1], clear)
			}
			fmt.Fprintln(cmd.OutOrStdout(), got)
			return nil
		},
	}
	cmd.Flags().BoolVar(&clear, "clear", false, "strip punctuation and whitespace before scoring")
	cmd.Flags().UintVar(&lengthDiff, "length-diff", 0, "score 0 when normalized lengths differ by more than this")
	return cmd
}

func newTeamsCmd() *cobra.Command {
	var clear bool
	var dateFirst, dateSecond, locale string
	cmd := &cobra.Command{
		Use:   "teams FIRST SECOND",
		Short: "Score two team names of events on the given dates",
		Long: `Score two team names. Events on different calendar days score 0, and so
do names where only one side carries an age-group marker such as U21.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := parseLocale(locale)
			if err != nil {
				return err
			}
			d1, ok := utils.ParseTime(dateFirst, loc)
			if !ok {
				return errs.NewValidation("teams", fmt.Sprintf("cannot parse --date-first %q", dateFirst), nil)
			}
			d2, ok := utils.ParseTime(dateSecond, loc)
			if !ok {
				return errs.NewValidation("teams", fmt.Sprintf("cannot parse --date-second %q", dateSecond), nil)
			}
			fmt.Fprintln(cmd.OutOrStdout(), similarity.ForSportTeams(args[0], args[1], clear, d1, d2))
			return nil
		},
	}
	cmd.Flags().BoolVar(&clear, "clear", false, "strip punctuation and whitespace before scoring")
	cmd.Flags().StringVar(&dateFirst, "date-first", "", "date of the first event")
	cmd.Flags().StringVar(&dateSecond, "date-second", "", "date of the second event")
	cmd.Flags().StringVar(&locale, "locale", "", "BCP 47 tag for date formats, e.g. de-DE (default ISO only)")
	_ = cmd.MarkFlagRequired("date-first")
	_ = cmd.MarkFlagRequired("date-second")
	return cmd
}

func newNormalizeCmd() *cobra.Command {
	var clear bool
	cmd := &cobra.Command{
		Use:   "normalize TEXT",
		Short: "Print TEXT the way it is compared",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), similarity.Normalize(args[0], clear))
			return nil
		},
	}
	cmd.Flags().BoolVar(&clear, "clear", false, "strip punctuation and whitespace")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "teammatch", version)
		},
	}
}

func parseLocale(s string) (utils.Locale, error) {
	if strings.TrimSpace(s) == "" {
		return utils.InvariantLocale, nil
	}
	tag, err := language.Parse(s)
	if err != nil {
		return utils.Locale{}, errs.NewValidation("locale", fmt.Sprintf("unknown locale %q", s), err)
	}
	return utils.NewLocale(tag), nil
}
