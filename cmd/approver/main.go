package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"scanner-approval/internal/cli"
	"scanner-approval/internal/eod"
	"scanner-approval/internal/logger"
	"scanner-approval/internal/session"
	"scanner-approval/internal/types"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err := newRootCmd().ExecuteContext(ctx)

	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	_ = logger.Shutdown(shutdownCtx)

	if err != nil {
		os.Exit(1)
	}
}

// newRootCmd creates the root command. Without a subcommand it runs the
// interactive approval workflow.
func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "approver",
		Short: "Review scanner picks and place bracketing limit orders",
		Long: `approver loads the day's scanner results, lets you choose BUY, SELL or BOTH
per symbol, prices limit orders around the day's open and places them on Kite
once you confirm the batch.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initializeSystem(); err != nil {
				return err
			}
			path, _ := cmd.Flags().GetString("config")
			cfg, err := loadConfig(cmd.Context(), path)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.sessions = initializeSessionStore(cfg)
			compressOldLogs(cmd.Context())
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			listen, _ := cmd.Flags().GetString("listen")
			return a.runApproval(cmd.Context(), listen)
		},
	}

	rootCmd.AddCommand(newRunCmd(a))
	rootCmd.AddCommand(newLoginCmd(a))
	rootCmd.AddCommand(newLogoutCmd(a))
	rootCmd.AddCommand(newOrdersCmd(a))
	rootCmd.AddCommand(newCancelCmd(a))
	rootCmd.AddCommand(newSummaryCmd())

	rootCmd.PersistentFlags().String("config", "config.yaml", "Configuration file path")
	rootCmd.PersistentFlags().String("listen", "", "Capture the login redirect on this address, e.g. 127.0.0.1:5000")

	return rootCmd
}

func newRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the interactive approval workflow (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			listen, _ := cmd.Flags().GetString("listen")
			return a.runApproval(cmd.Context(), listen)
		},
	}
}

func newLoginCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Log in to Kite and cache the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			listen, _ := cmd.Flags().GetString("listen")
			_, err := a.login(cmd.Context(), listen)
			return err
		},
	}
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Invalidate the Kite session and remove the cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a.sessions.Restore(ctx)
			err := a.sessions.Logout(ctx)
			if errors.Is(err, session.ErrNotLoggedIn) {
				fmt.Println("No active session.")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Println("Logged out.")
			return nil
		},
	}
}

func newOrdersCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "orders",
		Short: "Show today's order book with last traded prices",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sess, err := a.requireSession(ctx)
			if err != nil {
				return err
			}
			brk := initializeBroker(ctx, a.cfg, sess)

			orders, err := brk.ListOrders(ctx)
			if err != nil {
				return err
			}
			ltp := brk.LastPrices(ctx, distinctSymbols(orders))
			fmt.Println(cli.RenderOrderBook(orders, ltp))
			return nil
		},
	}
}

func newCancelCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel",
		Short: "Cancel working orders after confirmation",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sess, err := a.requireSession(ctx)
			if err != nil {
				return err
			}
			brk := initializeBroker(ctx, a.cfg, sess)

			orders, err := brk.ListOrders(ctx)
			if err != nil {
				return err
			}
			var working []types.OrderRecord
			for _, o := range orders {
				if o.Cancellable() {
					working = append(working, o)
				}
			}
			if len(working) == 0 {
				fmt.Println("No cancellable orders.")
				return nil
			}

			picked, err := cli.PromptCancel(working)
			if err != nil || len(picked) == 0 {
				return err
			}
			ok, err := cli.Confirm(fmt.Sprintf("Cancel %d orders?", len(picked)))
			if err != nil || !ok {
				return err
			}

			failed := 0
			for _, o := range picked {
				if err := brk.CancelOrder(ctx, o); err != nil {
					fmt.Printf("✗ %s %s: %v\n", o.OrderID, o.Symbol, err)
					failed++
					continue
				}
				fmt.Printf("✓ %s %s cancelled\n", o.OrderID, o.Symbol)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d cancellations failed", failed, len(picked))
			}
			return nil
		},
	}
}

func newSummaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Write the day's placement summary CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			dateStr, _ := cmd.Flags().GetString("date")
			day := time.Now()
			if dateStr != "" {
				t, err := time.Parse("2006-01-02", dateStr)
				if err != nil {
					return fmt.Errorf("invalid --date %q, use YYYY-MM-DD", dateStr)
				}
				day = t
			}
			p, err := eod.SummarizeDay(day)
			if err != nil {
				return err
			}
			if p == "" {
				fmt.Println("No placements logged for", day.Format("2006-01-02"))
				return nil
			}
			fmt.Println("Day summary written:", p)
			return nil
		},
	}
	cmd.Flags().String("date", "", "Day to summarize in YYYY-MM-DD format (today if not provided)")
	return cmd
}

// runApproval restores or creates a session, then runs the workflow until
// the operator quits.
func (a *app) runApproval(ctx context.Context, listen string) error {
	a.metrics = startMetricsServer(ctx, a.cfg.MetricsAddr)
	defer a.close()

	sess, ok := a.sessions.Restore(ctx)
	if !ok {
		fmt.Println(cli.RenderSession(nil))
		var err error
		if sess, err = a.login(ctx, listen); err != nil {
			return err
		}
	} else {
		fmt.Println(cli.RenderSession(sess))
	}

	brk := initializeBroker(ctx, a.cfg, sess)
	machine := initializeWorkflow(initializeScanner(ctx, a.cfg), brk, os.Stdout)

	err := cli.NewInteractiveSession(machine, defaultParams(a.cfg), os.Stdout).Run(ctx)
	summarizeIfDue(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// login runs the redirect login and caches the new session.
func (a *app) login(ctx context.Context, listen string) (*types.Session, error) {
	apiKey, apiSecret, err := cli.PromptCredentials()
	if err != nil {
		return nil, err
	}

	fmt.Println("Open this URL in your browser and log in:")
	fmt.Println(a.sessions.LoginURL(apiKey))

	var token string
	if listen != "" {
		rl, err := cli.ListenForRedirect(listen)
		if err != nil {
			return nil, err
		}
		fmt.Printf("Waiting for the login redirect on http://%s ...\n", rl.Addr())
		if token, err = rl.Wait(ctx); err != nil {
			return nil, err
		}
	} else if token, err = cli.PromptRequestToken(); err != nil {
		return nil, err
	}

	sess, err := a.sessions.CreateFromExchange(ctx, token, apiKey, apiSecret)
	if err != nil {
		fmt.Println("✗", err)
		return nil, err
	}
	fmt.Println(cli.RenderSession(sess))
	return sess, nil
}

// requireSession restores the cached session for non-interactive commands.
func (a *app) requireSession(ctx context.Context) (*types.Session, error) {
	sess, ok := a.sessions.Restore(ctx)
	if !ok {
		return nil, fmt.Errorf("%w: run `approver login` first", session.ErrNotLoggedIn)
	}
	return sess, nil
}

func distinctSymbols(orders []types.OrderRecord) []string {
	seen := map[string]bool{}
	var out []string
	for _, o := range orders {
		if !seen[o.Symbol] {
			seen[o.Symbol] = true
			out = append(out, o.Symbol)
		}
	}
	sort.Strings(out)
	return out
}
