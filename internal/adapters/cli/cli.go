package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"erp-ledger/internal/app"
)

// ErrUsage is returned for unknown commands and malformed arguments.
var ErrUsage = errors.New("usage")

// ErrVerifyFailed is returned by the verify command when the books do not
// check out, so the process can exit non-zero.
var ErrVerifyFailed = errors.New("books verification failed")

const usage = `Available commands:
  pl YEAR MONTH                profit and loss
  cf YEAR MONTH                cash flow statement
  recon YEAR MONTH             profit vs cash reconciliation
  tb YEAR MONTH                trial balance at month end
  bs YEAR MONTH                balance sheet at month end
  gl YEAR MONTH [ACCOUNT]      general ledger
  exceptions YEAR MONTH        expense spikes, sales drop, overdue receivables
  aging                        receivable and payable aging
  parties YEAR MONTH           customer totals, outstanding and payment delay
  alerts                       expiry and low-stock alerts
  products                     product catalogue
  cogs PRODUCT_ID QTY          FIFO cost preview
  verify YEAR MONTH            stock and ledger consistency checks
  ask "QUESTION"               insights for the current month
  json <command> ...           any report command as JSON`

// Run executes a one-shot CLI command. args is os.Args[1:]; the first element
// is the subcommand name. Output goes to out.
func Run(ctx context.Context, svc app.ApplicationService, args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: no command\n%s", ErrUsage, usage)
	}
	asJSON := false
	if args[0] == "json" {
		asJSON = true
		args = args[1:]
		if len(args) == 0 {
			return fmt.Errorf("%w: json needs a command", ErrUsage)
		}
	}

	result, printer, err := dispatch(ctx, svc, args)
	if err != nil {
		return err
	}
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	} else {
		printer(out)
	}

	if v, ok := result.(*app.VerifyResult); ok && !v.OK {
		return ErrVerifyFailed
	}
	return nil
}

func dispatch(ctx context.Context, svc app.ApplicationService, args []string) (any, func(io.Writer), error) {
	switch args[0] {
	case "pl", "profit-and-loss":
		p, err := period(args)
		if err != nil {
			return nil, nil, err
		}
		r, err := svc.GetProfitAndLoss(ctx, p)
		if err != nil {
			return nil, nil, err
		}
		return r, func(w io.Writer) { printProfitAndLoss(w, r) }, nil

	case "cf", "cash-flow":
		p, err := period(args)
		if err != nil {
			return nil, nil, err
		}
		r, err := svc.GetCashFlow(ctx, p)
		if err != nil {
			return nil, nil, err
		}
		return r, func(w io.Writer) { printCashFlow(w, r) }, nil

	case "recon", "reconciliation":
		p, err := period(args)
		if err != nil {
			return nil, nil, err
		}
		r, err := svc.GetReconciliation(ctx, p)
		if err != nil {
			return nil, nil, err
		}
		return r, func(w io.Writer) { printReconciliation(w, r) }, nil

	case "tb", "bal", "trial-balance":
		p, err := period(args)
		if err != nil {
			return nil, nil, err
		}
		r, err := svc.GetTrialBalance(ctx, p)
		if err != nil {
			return nil, nil, err
		}
		return r, func(w io.Writer) { printTrialBalance(w, r) }, nil

	case "bs", "balance-sheet":
		p, err := period(args)
		if err != nil {
			return nil, nil, err
		}
		r, err := svc.GetBalanceSheet(ctx, p)
		if err != nil {
			return nil, nil, err
		}
		return r, func(w io.Writer) { printBalanceSheet(w, r) }, nil

	case "gl", "ledger":
		p, err := period(args)
		if err != nil {
			return nil, nil, err
		}
		account := ""
		if len(args) > 3 {
			account = args[3]
		}
		r, err := svc.GetGeneralLedger(ctx, p, account)
		if err != nil {
			return nil, nil, err
		}
		return r, func(w io.Writer) { printGeneralLedger(w, r) }, nil

	case "exceptions":
		p, err := period(args)
		if err != nil {
			return nil, nil, err
		}
		r, err := svc.GetExceptionReport(ctx, p)
		if err != nil {
			return nil, nil, err
		}
		return r, func(w io.Writer) { printExceptions(w, r) }, nil

	case "aging":
		r, err := svc.GetAgingReport(ctx)
		if err != nil {
			return nil, nil, err
		}
		return r, func(w io.Writer) { printAging(w, r) }, nil

	case "parties", "party-performance":
		p, err := period(args)
		if err != nil {
			return nil, nil, err
		}
		r, err := svc.GetPartyPerformance(ctx, p)
		if err != nil {
			return nil, nil, err
		}
		return r, func(w io.Writer) { printPartyPerformance(w, r) }, nil

	case "alerts":
		r, err := svc.GetAlerts(ctx)
		if err != nil {
			return nil, nil, err
		}
		return r, func(w io.Writer) { printAlerts(w, r) }, nil

	case "products":
		r, err := svc.ListProducts(ctx)
		if err != nil {
			return nil, nil, err
		}
		return r, func(w io.Writer) { printProducts(w, r) }, nil

	case "cogs":
		if len(args) < 3 {
			return nil, nil, fmt.Errorf("%w: cogs PRODUCT_ID QTY", ErrUsage)
		}
		productID, err1 := strconv.Atoi(args[1])
		qty, err2 := strconv.Atoi(args[2])
		if err1 != nil || err2 != nil {
			return nil, nil, fmt.Errorf("%w: cogs PRODUCT_ID QTY expects integers", ErrUsage)
		}
		r, err := svc.PreviewCogs(ctx, app.PreviewCogsRequest{ProductID: productID, Quantity: qty})
		if err != nil {
			return nil, nil, err
		}
		return r, func(w io.Writer) { printCogs(w, r) }, nil

	case "verify":
		p, err := period(args)
		if err != nil {
			return nil, nil, err
		}
		r, err := svc.VerifyBooks(ctx, p)
		if err != nil {
			return nil, nil, err
		}
		return r, func(w io.Writer) { printVerify(w, r) }, nil

	case "ask":
		if len(args) < 2 {
			return nil, nil, fmt.Errorf("%w: ask \"QUESTION\"", ErrUsage)
		}
		r, err := svc.AskInsights(ctx, app.InsightsRequest{Question: strings.Join(args[1:], " ")})
		if err != nil {
			return nil, nil, err
		}
		return r, func(w io.Writer) { printInsights(w, r) }, nil

	default:
		return nil, nil, fmt.Errorf("%w: unknown command %q\n%s", ErrUsage, args[0], usage)
	}
}

func period(args []string) (app.PeriodRequest, error) {
	if len(args) < 3 {
		return app.PeriodRequest{}, fmt.Errorf("%w: %s YEAR MONTH", ErrUsage, args[0])
	}
	year, err := strconv.Atoi(args[1])
	if err != nil {
		return app.PeriodRequest{}, fmt.Errorf("%w: year %q is not a number", ErrUsage, args[1])
	}
	month, err := strconv.Atoi(args[2])
	if err != nil {
		return app.PeriodRequest{}, fmt.Errorf("%w: month %q is not a number", ErrUsage, args[2])
	}
	return app.PeriodRequest{Year: year, Month: month}, nil
}
