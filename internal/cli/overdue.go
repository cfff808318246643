package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/xraph/salesdoc"
	"github.com/xraph/salesdoc/invoice"
	"github.com/xraph/salesdoc/types"
)

// ValidFormats defines the allowed report formats.
var ValidFormats = []string{"text", "json"}

// reportActor is the staff identity the CLI reads as.
var reportActor = salesdoc.Staff("salesdoc-cli")

// NewOverdueCommand creates the overdue report command.
func NewOverdueCommand(root *RootOptions) *cobra.Command {
	var (
		asOf   string
		format string
		fail   bool
	)

	cmd := &cobra.Command{
		Use:   "overdue",
		Short: "List invoices past their due date with a balance",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !isValidFormat(format) {
				return WrapExitError(ExitCommandError, "overdue",
					fmt.Errorf("invalid format %q: must be one of %v", format, ValidFormats))
			}
			var at time.Time
			if asOf != "" {
				t, err := time.Parse(time.DateOnly, asOf)
				if err != nil {
					return WrapExitError(ExitCommandError, "parse --as-of", err)
				}
				at = t
			}

			ctx := cmd.Context()
			rt, err := newRuntime(ctx, root.Config, root.Logger)
			if err != nil {
				return err
			}
			defer rt.Close()

			if at.IsZero() {
				at = rt.engine.Now()
			}
			invs, err := rt.engine.ListOverdueInvoices(ctx, reportActor, at)
			if err != nil {
				return err
			}
			if err := writeOverdue(cmd.OutOrStdout(), format, at, invs); err != nil {
				return err
			}
			if fail && len(invs) > 0 {
				return &ExitError{Code: ExitFailure, Message: fmt.Sprintf("%d overdue invoice(s)", len(invs))}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&asOf, "as-of", "", "evaluate as of this date (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&format, "format", "text", "output format (json|text)")
	cmd.Flags().BoolVar(&fail, "fail-on-overdue", false, "exit 1 when any invoice is overdue")
	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

type overdueRow struct {
	Number      string      `json:"number"`
	ContactID   string      `json:"contact_id"`
	DueDate     string      `json:"due_date"`
	DaysOverdue int         `json:"days_overdue"`
	Total       types.Money `json:"total"`
	AmountDue   types.Money `json:"amount_due"`
}

type overdueReport struct {
	AsOf     string       `json:"as_of"`
	Count    int          `json:"count"`
	Due      types.Money  `json:"amount_due"`
	Invoices []overdueRow `json:"invoices"`
}

func buildOverdueReport(asOf time.Time, invs []*invoice.Invoice) overdueReport {
	r := overdueReport{
		AsOf:     asOf.Format(time.DateOnly),
		Count:    len(invs),
		Invoices: make([]overdueRow, 0, len(invs)),
	}
	for _, inv := range invs {
		row := overdueRow{
			Number:    inv.Number,
			ContactID: inv.ContactID,
			Total:     inv.Total,
			AmountDue: inv.AmountDue,
		}
		if inv.DueDate != nil {
			row.DueDate = inv.DueDate.Format(time.DateOnly)
			row.DaysOverdue = int(asOf.Sub(*inv.DueDate) / (24 * time.Hour))
		}
		r.Due = r.Due.Add(inv.AmountDue)
		r.Invoices = append(r.Invoices, row)
	}
	// Oldest debt first.
	sort.SliceStable(r.Invoices, func(i, j int) bool {
		a, b := r.Invoices[i], r.Invoices[j]
		if a.DueDate != b.DueDate {
			return a.DueDate < b.DueDate
		}
		return a.Number < b.Number
	})
	return r
}

// writeOverdue renders the report in format.
func writeOverdue(w io.Writer, format string, asOf time.Time, invs []*invoice.Invoice) error {
	report := buildOverdueReport(asOf, invs)

	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	const row = "%-15s %-12s %-10s %5s %12s\n"
	fmt.Fprintf(w, "Overdue invoices as of %s\n\n", report.AsOf)
	if report.Count == 0 {
		_, err := fmt.Fprintln(w, "none")
		return err
	}
	fmt.Fprintf(w, row, "NUMBER", "CONTACT", "DUE", "DAYS", "AMOUNT DUE")
	for _, r := range report.Invoices {
		fmt.Fprintf(w, row, r.Number, r.ContactID, r.DueDate, fmt.Sprint(r.DaysOverdue), r.AmountDue.String())
	}
	_, err := fmt.Fprintf(w, "\n%d invoice(s), %s due\n", report.Count, report.Due.String())
	return err
}
