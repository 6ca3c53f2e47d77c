package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"loom/internal/crashstore"
)

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Inspect stored crash reports",
}

var reportsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored crash reports, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		recs, err := store.List()
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")
		if limit > 0 && len(recs) > limit {
			recs = recs[:limit]
		}
		renderReportTable(cmd.OutOrStdout(), recs)
		return nil
	},
}

var reportsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print one crash report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		rec, err := store.Get(args[0])
		if err != nil {
			return err
		}
		withTrace, _ := cmd.Flags().GetBool("trace")
		renderReport(cmd.OutOrStdout(), rec, withTrace)
		return nil
	},
}

var reportsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every stored crash report",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		if err := store.DropAll(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "cleared %s\n", store.Dir())
		return nil
	},
}

func init() {
	reportsListCmd.Flags().Int("limit", 20, "show at most this many reports (0 for all)")
	reportsShowCmd.Flags().Bool("trace", false, "include the recorded trace events")
	reportsCmd.AddCommand(reportsListCmd, reportsShowCmd, reportsClearCmd)
}

var (
	headerColor = color.New(color.Bold)
	threadColor = color.New(color.FgMagenta)
)

const messageWidth = 48

func renderReportTable(out io.Writer, recs []crashstore.Record) {
	if len(recs) == 0 {
		fmt.Fprintln(out, "no crash reports")
		return
	}
	threadWidth := len("THREAD")
	for _, r := range recs {
		threadWidth = max(threadWidth, runewidth.StringWidth(r.Thread))
	}
	fmt.Fprintln(out, headerColor.Sprintf("%-8s  %-19s  %s  %s", "ID", "TIME", runewidth.FillRight("THREAD", threadWidth), "MESSAGE"))
	for _, r := range recs {
		msg := r.Message
		if !r.HasMessage {
			msg = "-"
		}
		msg = runewidth.Truncate(strings.ReplaceAll(msg, "\n", " "), messageWidth, "...")
		fmt.Fprintf(out, "%-8s  %-19s  %s  %s\n",
			shortID(r.ID),
			r.Time.Local().Format("2006-01-02 15:04:05"),
			threadColor.Sprint(runewidth.FillRight(r.Thread, threadWidth)),
			msg)
	}
}

func renderReport(out io.Writer, rec crashstore.Record, withTrace bool) {
	fmt.Fprintf(out, "%s %s\n", headerColor.Sprint("id:    "), rec.ID)
	fmt.Fprintf(out, "%s %s\n", headerColor.Sprint("time:  "), rec.Time.Local().Format("2006-01-02 15:04:05.000"))
	fmt.Fprintf(out, "%s %s\n", headerColor.Sprint("thread:"), threadColor.Sprint(rec.Thread))
	if rec.File != "" {
		fmt.Fprintf(out, "%s %s:%d\n", headerColor.Sprint("at:    "), rec.File, rec.Line)
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.TrimRight(rec.Text, "\n"))
	if withTrace && len(rec.Trace) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, headerColor.Sprint("recent events:"))
		for _, l := range rec.Trace {
			fmt.Fprintln(out, "  "+l)
		}
	}
}
