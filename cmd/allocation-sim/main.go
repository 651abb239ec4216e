package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/mmdatafocus/allocation_backend/config"
	"github.com/mmdatafocus/allocation_backend/models"
	"github.com/mmdatafocus/allocation_backend/models/reports"
	"github.com/mmdatafocus/allocation_backend/utils"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

type manualUpdate struct {
	orderId string
	qty     int
}

// setFlags collects repeated -set ORD-001=7 flags in command line order.
// Fractional quantities are truncated toward zero.
type setFlags []manualUpdate

func (s *setFlags) String() string {
	parts := make([]string, 0, len(*s))
	for _, u := range *s {
		parts = append(parts, fmt.Sprintf("%s=%d", u.orderId, u.qty))
	}
	return strings.Join(parts, ",")
}

func (s *setFlags) Set(v string) error {
	id, raw, ok := strings.Cut(v, "=")
	id = strings.TrimSpace(id)
	if !ok || id == "" {
		return fmt.Errorf("expected ORDER=QTY, got %q", v)
	}
	qty, err := utils.ParseDecimal(raw)
	if err != nil {
		return fmt.Errorf("invalid quantity for %s: %w", id, err)
	}
	*s = append(*s, manualUpdate{orderId: id, qty: utils.CoerceQuantity(qty)})
	return nil
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("allocation-sim", flag.ContinueOnError)
	fs.SetOutput(stderr)
	seedPath := fs.String("seed", config.SeedFile(), "Snapshot to start from (.yaml or .xlsx); empty uses the demo data")
	runningCredit := fs.Bool("running-credit", config.RunningCustomerCredit(), "Charge orders of one customer against a running credit balance")
	out := fs.String("out", "", "Write the allocation table to this .xlsx file")
	lang := fs.String("lang", "en", "Language tag for number formatting")
	skipAuto := fs.Bool("no-auto", false, "Skip the auto-assignment pass")
	var updates setFlags
	fs.Var(&updates, "set", "Manual allocation ORDER=QTY applied after the auto pass (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	seed := models.DefaultSnapshot()
	if *seedPath != "" {
		var err error
		if seed, err = reports.LoadSeedFile(*seedPath); err != nil {
			return fmt.Errorf("load seed %s: %w", *seedPath, err)
		}
	}

	logger := config.GetLogger()
	session, err := models.NewAllocationSession("cli", seed, models.AllocationPolicy{RunningCustomerCredit: *runningCredit}, logger)
	if err != nil {
		return err
	}

	var snap models.SessionSnapshot
	if !*skipAuto {
		snap = session.RunAutoAssignment()
	}
	var violations []models.Violation
	violations = append(violations, snap.Violations...)
	for _, u := range updates {
		snap = session.UpdateAllocation(u.orderId, u.qty)
		if snap.State.FindOrder(u.orderId) == nil {
			logger.WithFields(logrus.Fields{"order_id": u.orderId}).Warn("manual allocation skipped: unknown order")
		}
		violations = append(violations, snap.Violations...)
	}
	snap = session.Snapshot()

	printer := message.NewPrinter(language.Make(*lang))
	printReport(stdout, printer, snap.State, violations)

	if *out != "" {
		f, err := reports.AllocationWorkbook(snap.State, violations)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := f.SaveAs(*out); err != nil {
			return fmt.Errorf("write %s: %w", *out, err)
		}
		printer.Fprintf(stdout, "wrote %s\n", *out)
	}
	return nil
}

func printReport(w io.Writer, p *message.Printer, state *models.AllocationState, violations []models.Violation) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "ORDER\tCUSTOMER\tREQUESTED\tALLOCATED\tPRICE\tTOTAL\t")
	for _, o := range state.Orders {
		p.Fprintf(tw, "%s\t%s\t%d\t%d\t%.2f\t%.2f\t\n",
			o.ID, o.CustomerId, o.RequestedQty, o.AllocatedQty,
			o.PricePerUnit.InexactFloat64(), o.Total.InexactFloat64())
	}
	tw.Flush()

	p.Fprintf(w, "\nallocated %d of %d units, %d remaining, value %.2f\n",
		state.AllocatedUnits(), state.TotalStock, state.RemainingStock(), state.AllocatedValue().InexactFloat64())
	if len(violations) == 0 {
		return
	}
	fmt.Fprintln(w, "\nviolations:")
	for _, v := range violations {
		fmt.Fprintf(w, "  [%s] %s\n", v.Kind, v.Message)
	}
}
