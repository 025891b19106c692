package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/sant0-9/promptly/internal/history"
	"github.com/sant0-9/promptly/internal/tui/styles"
)

func newModelsCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the target models prompts can be optimized for",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			registry, err := loadRegistry(cfg)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, registry.All())
			}

			t := newTable("MODEL", "TITLE")
			for _, m := range registry.All() {
				key := m.Key
				if m.Key == cfg.TargetModel {
					key += " *"
				}
				t.Row(styles.Key.Render(key), m.Title)
			}
			_, err = fmt.Fprintln(out, t.Render())
			return err
		},
	}
	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "Output as JSON")
	return cmd
}

func newHistoryCmd() *cobra.Command {
	var (
		limit    int
		asJSON   bool
		clearAll bool
	)
	cmd := &cobra.Command{
		Use:   "history [id]",
		Short: "Show saved optimizer sessions",
		Long: `List recent sessions, newest first, or show one in full by id.
Sessions are saved while save_history is on in the config.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if clearAll {
				if err := store.Clear(ctx); err != nil {
					return err
				}
				fmt.Fprintln(out, styles.Success.Render("History cleared"))
				return nil
			}

			if len(args) == 1 {
				e, err := store.Get(ctx, args[0])
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(out, e)
				}
				printEntry(out, e)
				return nil
			}

			entries, err := store.List(ctx, limit)
			if err != nil {
				return err
			}
			if asJSON {
				if entries == nil {
					entries = []history.Entry{}
				}
				return writeJSON(out, entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(out, styles.Muted.Render("No history yet"))
				return nil
			}

			t := newTable("ID", "DATE", "MODE", "MODEL", "PROMPT")
			for _, e := range entries {
				t.Row(
					styles.Muted.Render(e.ID),
					e.CreatedAt.Local().Format("2006-01-02 15:04"),
					e.Mode,
					e.TargetModel,
					preview(e.InitialPrompt, 50),
				)
			}
			_, err = fmt.Fprintln(out, t.Render())
			return err
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", history.DefaultLimit, "Maximum number of sessions to list")
	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "Output as JSON")
	cmd.Flags().BoolVar(&clearAll, "clear", false, "Delete all saved sessions")
	return cmd
}

// newTable is a borderless table with a muted header row.
func newTable(headers ...string) *table.Table {
	cell := lipgloss.NewStyle().PaddingRight(2)
	header := cell.Inherit(styles.Muted).Bold(true)
	return table.New().
		Border(lipgloss.HiddenBorder()).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderHeader(false).
		BorderColumn(false).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		})
}

func printEntry(out io.Writer, e history.Entry) {
	fmt.Fprintln(out, styles.Heading.Render(e.Mode+" for "+e.TargetModel))
	fmt.Fprintln(out, styles.Muted.Render(e.ID+"  "+e.CreatedAt.Local().Format("2006-01-02 15:04:05")))
	fmt.Fprintln(out)
	fmt.Fprintln(out, styles.Key.Render("Prompt"))
	fmt.Fprintln(out, e.InitialPrompt)
	fmt.Fprintln(out)

	if !e.OK {
		fmt.Fprintln(out, styles.Warning.Render("Rejected"))
		fmt.Fprintln(out, e.RejectReason)
		return
	}

	fmt.Fprintln(out, styles.Key.Render("Optimized"))
	fmt.Fprintln(out, e.OptimizedPrompt)
	if len(e.Questions) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, styles.Key.Render("Clarifying questions"))
		for i, q := range e.Questions {
			fmt.Fprintf(out, "  %d. %s\n", i+1, q)
		}
	}
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(v), "encode output")
}

// preview flattens s onto one line and cuts it to n runes.
func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
