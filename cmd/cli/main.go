// Command ycf is a CLI client for the YCF billing portal.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ycf/billing-portal/internal/config"
	"github.com/ycf/billing-portal/internal/crypto"
	"github.com/ycf/billing-portal/internal/errs"
	"github.com/ycf/billing-portal/internal/export"
	"github.com/ycf/billing-portal/internal/metrics"
	"github.com/ycf/billing-portal/internal/service"
)

func usage() {
	fmt.Fprintf(os.Stderr, `ycf CLI
Usage:
  ycf [-api URL] [-timeout 10s] [-v] <cmd> [args]

Commands:
  version
  status
  signup       -u <username> -p <password>
  login        -u <username> -p <password>       (saves token)
  logout
  pets         [-filter all|paid|partially|unpaid]
  pet          -id <id>
  pet-add      -name <n> -owner <o> [pet flags]
  pet-edit     -id <id> [pet flags]
  pet-rm       -id <id>
  invoice      -id <id> [-o file]
  stats
  expenses     [-page N] [-limit N] [-from YYYY-MM-DD] [-to YYYY-MM-DD]
  expense-add  -category <c> -amount <n> [-date YYYY-MM-DD] [-payment Cash|Online] [-desc text] [-ref id]
  expense-stats [-from YYYY-MM-DD] [-to YYYY-MM-DD]
  export       [-from YYYY-MM-DD] [-to YYYY-MM-DD] [-o file]
  drawer       open|close|status
`)
	os.Exit(2)
}

var (
	version   = "dev"
	buildDate = "unknown"
)

func newLogger(verbose bool, level string) *zap.Logger {
	lvl := zapcore.WarnLevel
	if err := lvl.Set(level); err != nil {
		lvl = zapcore.WarnLevel
	}
	if verbose {
		lvl = zapcore.DebugLevel
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	log, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return log
}

// main parses global flags, wires the portal and runs one command.
func main() {
	apiURL := flag.String("api", "", "billing API base URL (overrides config)")
	timeout := flag.Duration("timeout", 0, "request timeout (overrides config)")
	verbose := flag.Bool("v", false, "debug logging on stderr")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}
	cmd := flag.Arg(0)
	if cmd == "version" {
		fmt.Printf("ycf %s (%s)\n", version, buildDate)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fail(err)
	}
	if *apiURL != "" {
		cfg.API.BaseURL = *apiURL
	}
	if *timeout > 0 {
		cfg.API.Timeout = *timeout
	}

	log := newLogger(*verbose, cfg.Log.Level)
	defer func() { _ = log.Sync() }()

	p, err := service.NewPortal(cfg, log)
	if err != nil {
		fail(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := p.Auth.Restore(ctx); err != nil {
		log.Warn("restore session", zap.Error(err))
	}
	if err := run(ctx, p, os.Stdout, cmd, flag.Args()[1:]); err != nil {
		if errors.Is(err, errUsage) {
			usage()
		}
		fail(err)
	}
}

var errUsage = errors.New("usage")

// run executes cmd against p and writes results to out.
func run(ctx context.Context, p *service.Portal, out io.Writer, cmd string, args []string) error {
	switch cmd {

	case "status":
		st := p.Auth.State()
		open, err := p.Local.DrawerOpen()
		if err != nil {
			return err
		}
		res := map[string]any{
			"phase":         st.Phase.String(),
			"authenticated": st.Authenticated,
			"api":           p.API.BaseURL(),
			"drawerOpen":    open,
		}
		if st.Token != "" {
			if exp, ok, err := crypto.ExpiresAt(st.Token); err == nil && ok {
				res["expiresAt"] = exp.UTC().Format(time.RFC3339)
			}
		}
		return printJSON(out, res)

	case "signup", "login":
		fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
		u := fs.String("u", "", "username")
		pw := fs.String("p", "", "password")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if *u == "" || *pw == "" {
			return errors.New("need -u and -p")
		}
		if cmd == "signup" {
			if err := p.Auth.Signup(ctx, *u, *pw); err != nil {
				return err
			}
			fmt.Fprintln(out, "registered; now run ycf login")
			return nil
		}
		if err := p.Auth.Login(ctx, *u, *pw); err != nil {
			if msg := p.Auth.State().Error; msg != "" {
				return fmt.Errorf("%s (%w)", msg, err)
			}
			return err
		}
		fmt.Fprintln(out, "ok")
		return nil

	case "logout":
		if err := p.Auth.Logout(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "ok")
		return nil

	case "pets":
		fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
		filter := fs.String("filter", metrics.FilterAll, "all|paid|partially|unpaid")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if !validFilter(*filter) {
			return fmt.Errorf("unknown filter %q", *filter)
		}
		if err := p.Pets.Refresh(ctx); err != nil {
			return err
		}
		return printJSON(out, petRows(p.Pets.List(*filter)))

	case "pet":
		id, err := parseID(cmd, args)
		if err != nil {
			return err
		}
		pet, err := p.Pets.Get(ctx, id)
		if err != nil {
			return err
		}
		return printJSON(out, pet)

	case "pet-add":
		pf, err := parsePetFlags(cmd, args)
		if err != nil {
			return err
		}
		pet, err := pf.build(nil)
		if err != nil {
			return err
		}
		created, err := p.Pets.Create(ctx, pet)
		if err != nil {
			return err
		}
		return printJSON(out, created)

	case "pet-edit":
		pf, err := parsePetFlags(cmd, args)
		if err != nil {
			return err
		}
		if pf.id == "" {
			return errors.New("need -id")
		}
		cur, err := p.Pets.Get(ctx, pf.id)
		if err != nil {
			return err
		}
		pet, err := pf.build(&cur)
		if err != nil {
			return err
		}
		updated, err := p.Pets.Update(ctx, pet)
		if err != nil {
			return err
		}
		return printJSON(out, updated)

	case "pet-rm":
		id, err := parseID(cmd, args)
		if err != nil {
			return err
		}
		if err := p.Pets.Delete(ctx, id); err != nil {
			return err
		}
		fmt.Fprintln(out, "deleted", id)
		return nil

	case "invoice":
		fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
		id := fs.String("id", "", "pet id")
		dst := fs.String("o", "", "output file (default pet_<id>_invoice.pdf, '-'=stdout)")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if *id == "" {
			return errors.New("need -id")
		}
		pdf, err := p.Pets.Invoice(ctx, *id)
		if err != nil {
			return err
		}
		if *dst == "" {
			*dst = service.InvoiceFileName(*id)
		}
		return writeOut(out, *dst, pdf)

	case "stats":
		if err := p.Pets.Refresh(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, renderPetSummary(p.Pets.Summary()))
		return nil

	case "expenses":
		fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
		page := fs.Int("page", 1, "page number")
		limit := fs.Int("limit", 0, "page size (default from config)")
		rf := addRangeFlags(fs)
		if err := fs.Parse(args); err != nil {
			return err
		}
		from, to, err := rf.parse()
		if err != nil {
			return err
		}
		if err := p.Expenses.Refresh(ctx, *page, *limit); err != nil {
			return err
		}
		pg, lim, total := p.Expenses.Page()
		return printJSON(out, map[string]any{
			"page":  pg,
			"limit": lim,
			"total": total,
			"data":  p.Expenses.Filtered(from, to),
		})

	case "expense-add":
		e, err := parseExpenseFlags(cmd, args)
		if err != nil {
			return err
		}
		created, err := p.Expenses.Create(ctx, e)
		if err != nil {
			return err
		}
		return printJSON(out, created)

	case "expense-stats":
		fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
		rf := addRangeFlags(fs)
		if err := fs.Parse(args); err != nil {
			return err
		}
		from, to, err := rf.parse()
		if err != nil {
			return err
		}
		if err := p.Expenses.RefreshAll(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, renderExpenseSummary(p.Expenses.Summary(from, to)))
		return nil

	case "export":
		fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
		rf := addRangeFlags(fs)
		dst := fs.String("o", "", "output file (default Expenses-<from>_to_<to>.xlsx)")
		if err := fs.Parse(args); err != nil {
			return err
		}
		from, to, err := rf.parse()
		if err != nil {
			return err
		}
		if err := p.Expenses.RefreshAll(ctx); err != nil {
			return err
		}
		if *dst == "" {
			*dst = export.FileName(from, to)
		}
		f, err := os.Create(*dst)
		if err != nil {
			return err
		}
		if err := p.Expenses.Export(f, from, to); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintln(out, *dst)
		return nil

	case "drawer":
		if len(args) != 1 {
			return errors.New("need open|close|status")
		}
		switch args[0] {
		case "open", "close":
			if err := p.Local.SetDrawerOpen(args[0] == "open"); err != nil {
				return err
			}
		case "status":
		default:
			return fmt.Errorf("unknown drawer action %q", args[0])
		}
		open, err := p.Local.DrawerOpen()
		if err != nil {
			return err
		}
		return printJSON(out, map[string]bool{"drawerOpen": open})

	default:
		return errUsage
	}
}

// ---- helpers ----

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeOut writes b to path, or to out when path is "-".
func writeOut(out io.Writer, path string, b []byte) error {
	if path == "-" {
		_, err := out.Write(b)
		return err
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return err
	}
	fmt.Fprintln(out, path)
	return nil
}

func fail(err error) {
	switch {
	case errors.Is(err, errs.ErrNotAuthenticated), errors.Is(err, errs.ErrUnauthorized):
		fmt.Fprintln(os.Stderr, "error:", err, "(run ycf login)")
	case errors.Is(err, errs.ErrMalformedToken):
		fmt.Fprintln(os.Stderr, "error:", err, "(run ycf logout)")
	case errors.Is(err, errs.ErrRateLimited):
		fmt.Fprintln(os.Stderr, "error:", err, "(wait and retry)")
	default:
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	os.Exit(1)
}
