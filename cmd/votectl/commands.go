// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/danielhkuo/tokenvote/db"
	"github.com/danielhkuo/tokenvote/models"
)

func newMigrateCmd(a *app) *cobra.Command {
	cmd := cobra.Command{
		Use:   "migrate",
		Short: "Create the schema if it does not exist",
		Args:  cobra.NoArgs,
		RunE: a.withStore(func(cmd *cobra.Command, args []string) error {
			if err := db.CreateSchema(a.conn, a.cfg.DatabaseType); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Schema ready (%s)\n", a.cfg.DatabaseType)
			return nil
		}),
	}
	return &cmd
}

func newIssueCmd(a *app) *cobra.Command {
	var count int
	var elections []string

	cmd := cobra.Command{
		Use:     "issue",
		Short:   "Issue a batch of tokens granted the given elections",
		Example: `  votectl issue --count 200 --election 1 --election Treasurer`,
		Args:    cobra.NoArgs,
		RunE: a.withStore(func(cmd *cobra.Command, args []string) error {
			refs := lo.Map(elections, func(s string, _ int) models.ElectionRef { return models.ParseElectionRef(s) })

			batch, err := a.svc.IssueBatch(cmd.Context(), count, refs)
			if err != nil {
				return err
			}

			for _, tok := range batch.Tokens {
				fmt.Fprintln(a.out, tok.Code)
			}
			fmt.Fprintf(a.out, "Issued %s tokens in batch %s for %s\n",
				humanize.Comma(int64(len(batch.Tokens))), batch.BatchID,
				pluralCount(len(batch.ElectionIDs), "election"))
			return nil
		}),
	}

	cmd.Flags().IntVarP(&count, "count", "n", 1, "Number of tokens to issue")
	cmd.Flags().StringArrayVarP(&elections, "election", "e", nil, "Election id or name (repeatable)")
	_ = cmd.MarkFlagRequired("election")
	return &cmd
}

func newTokensCmd(a *app) *cobra.Command {
	var electionID int64

	cmd := cobra.Command{
		Use:   "tokens",
		Short: "List tokens grouped by batch",
		Args:  cobra.NoArgs,
		RunE: a.withStore(func(cmd *cobra.Command, args []string) error {
			batches, err := a.svc.ListTokens(cmd.Context(), electionID)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "BATCH\tID\tCODE\tSTATUS\tCREATED")
			for _, b := range batches {
				batchID := b.BatchID
				if batchID == "" {
					batchID = "-"
				}
				for _, tok := range b.Tokens {
					status := "unused"
					if tok.Consumed && tok.ConsumedAt != nil {
						status = "used " + humanize.Time(*tok.ConsumedAt)
					} else if tok.Consumed {
						status = "used"
					}
					fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n", batchID, tok.ID, tok.Code, status, humanize.Time(tok.CreatedAt))
				}
			}
			return w.Flush()
		}),
	}

	cmd.Flags().Int64Var(&electionID, "election", 0, "Only tokens granted this election id")
	return &cmd
}

func newRevokeCmd(a *app) *cobra.Command {
	cmd := cobra.Command{
		Use:   "revoke TOKEN_ID...",
		Short: "Revoke tokens by id",
		Args:  cobra.MinimumNArgs(1),
		RunE: a.withStore(func(cmd *cobra.Command, args []string) error {
			for _, arg := range args {
				id, err := strconv.ParseInt(arg, 10, 64)
				if err != nil || id <= 0 {
					return fmt.Errorf("invalid token id %q", arg)
				}
				if err := a.svc.Revoke(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Revoked token %d\n", id)
			}
			return nil
		}),
	}
	return &cmd
}

func newResultsCmd(a *app) *cobra.Command {
	var token string

	cmd := cobra.Command{
		Use:   "results",
		Short: "Print tallies for every election",
		Args:  cobra.NoArgs,
		RunE: a.withStore(func(cmd *cobra.Command, args []string) error {
			var results []models.ElectionResult
			var err error
			if token != "" {
				results, err = a.svc.TallyForToken(cmd.Context(), token)
			} else {
				results, err = a.svc.TallyByElection(cmd.Context())
			}
			if err != nil {
				return err
			}

			for _, r := range results {
				fmt.Fprintf(a.out, "%s [%s] - %s\n", r.Election.Name, r.Election.Status, pluralCount(int(r.TotalVotes), "vote"))
				for i, c := range r.Candidates {
					share := 0.0
					if r.TotalVotes > 0 {
						share = float64(c.Tally) / float64(r.TotalVotes) * 100
					}
					fmt.Fprintf(a.out, "  %s %-24s %8s  %5.1f%%\n", humanize.Ordinal(i+1), c.Name, humanize.Comma(c.Tally), share)
				}
			}
			return nil
		}),
	}

	cmd.Flags().StringVar(&token, "token", "", "Only elections granted to this token")
	return &cmd
}

func pluralCount(n int, word string) string {
	return humanize.Comma(int64(n)) + " " + english.PluralWord(n, word, "")
}
