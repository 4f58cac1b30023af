package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/angelmondragon/repairshop-backend/internal/cron"
	"github.com/angelmondragon/repairshop-backend/internal/invoices"
	"github.com/angelmondragon/repairshop-backend/internal/receipts"
	"github.com/angelmondragon/repairshop-backend/internal/staff"
	"github.com/angelmondragon/repairshop-backend/internal/stock"
	"github.com/angelmondragon/repairshop-backend/pkg/outbox"
	"github.com/angelmondragon/repairshop-backend/pkg/printer"
)

const passwordEnv = "REPAIRSHOP_BOOTSTRAP_PASSWORD"

func newStaffCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "staff",
		Short: "Manage staff logins",
	}

	var input staff.CreateInput
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a staff login (the first owner is bootstrapped this way)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if input.Password == "" {
				input.Password = os.Getenv(passwordEnv)
			}
			if input.Password == "" {
				return fmt.Errorf("--password or %s is required", passwordEnv)
			}
			svc, err := staffService(cmd, rt)
			if err != nil {
				return err
			}
			user, err := svc.Create(cmd.Context(), input)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s) %s\n", user.Email, user.Role, user.ID)
			return nil
		},
	}
	create.Flags().StringVar(&input.Email, "email", "", "login e-mail")
	create.Flags().StringVar(&input.Name, "name", "", "display name")
	create.Flags().StringVar(&input.Role, "role", "owner", "owner|technician|cashier")
	create.Flags().StringVar(&input.Password, "password", "", "initial password (prefer "+passwordEnv+")")
	_ = create.MarkFlagRequired("email")
	_ = create.MarkFlagRequired("name")

	list := &cobra.Command{
		Use:   "list",
		Short: "List staff logins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := staffService(cmd, rt)
			if err != nil {
				return err
			}
			users, err := svc.List(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tEMAIL\tNAME\tROLE\tACTIVE")
			for _, u := range users {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\n", u.ID, u.Email, u.Name, u.Role, u.IsActive)
			}
			return tw.Flush()
		},
	}

	cmd.AddCommand(create, list)
	return cmd
}

func staffService(cmd *cobra.Command, rt *runtime) (staff.Service, error) {
	cfg, _, err := rt.config()
	if err != nil {
		return nil, err
	}
	conn, err := rt.database(cmd.Context())
	if err != nil {
		return nil, err
	}
	return staff.NewService(staff.NewRepository(conn.DB()), cfg.Password, nil)
}

func newInvoiceCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invoice",
		Short: "Inspect the invoice counter",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "peek",
		Short: "Print the next invoice number without consuming it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := rt.config()
			if err != nil {
				return err
			}
			conn, err := rt.database(cmd.Context())
			if err != nil {
				return err
			}
			allocator, err := invoices.NewAllocator(conn.DB(), cfg.Invoice)
			if err != nil {
				return err
			}
			next, err := allocator.Peek(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), next)
			return nil
		},
	})
	return cmd
}

func newPrinterCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "printer",
		Short: "Talk to the receipt printer",
	}
	var addr string
	test := &cobra.Command{
		Use:   "test",
		Short: "Print a test page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logg, err := rt.config()
			if err != nil {
				return err
			}
			pcfg := cfg.Printer
			if addr != "" {
				pcfg.Addr = addr
			}
			client := printer.New(pcfg, logg)
			if !client.Configured() {
				return fmt.Errorf("no printer address; set REPAIRSHOP_PRINTER_ADDR or --addr")
			}
			page := receipts.NewFormatter(pcfg.Columns, nil).TestPage(cfg.App.ShopName, time.Now())
			if err := client.Print(cmd.Context(), page); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "test page sent to", pcfg.Addr)
			return nil
		},
	}
	test.Flags().StringVar(&addr, "addr", "", "host[:port] override")
	cmd.AddCommand(test)
	return cmd
}

func newCronCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cron",
		Short: "Run scheduled jobs by hand",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "run <job>",
		Short: "Run one job now, bypassing the scheduler lock",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logg, err := rt.config()
			if err != nil {
				return err
			}
			conn, err := rt.database(cmd.Context())
			if err != nil {
				return err
			}
			outboxRepo := outbox.NewRepository(conn.DB())
			registry, err := cron.StandardJobs(cron.JobsParams{
				Logger:        logg,
				DB:            conn,
				Products:      stock.NewRepository(conn.DB()),
				Outbox:        outbox.NewService(outboxRepo, logg),
				OutboxRepo:    outboxRepo,
				DeadLetters:   outbox.NewDLQRepository(conn.DB()),
				RetentionDays: cfg.Outbox.RetentionDays,
				DLQDays:       cfg.Outbox.DLQRetentionDays,
			})
			if err != nil {
				return err
			}
			job, ok := registry.Lookup(args[0])
			if !ok {
				names := make([]string, 0)
				for _, j := range registry.Jobs() {
					names = append(names, j.Name())
				}
				return fmt.Errorf("unknown job %q (have: %s)", args[0], strings.Join(names, ", "))
			}
			started := time.Now()
			if err := job.Run(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s finished in %s\n", job.Name(), time.Since(started).Round(time.Millisecond))
			return nil
		},
	})
	return cmd
}

func newOutboxCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "outbox",
		Short: "Inspect and requeue dead-lettered events",
	}

	var limit int
	list := &cobra.Command{
		Use:   "dlq",
		Short: "List events the publisher gave up on",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := rt.database(cmd.Context())
			if err != nil {
				return err
			}
			rows, err := outbox.NewDLQRepository(conn.DB()).List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "EVENT\tTYPE\tREASON\tATTEMPTS\tFAILED AT\tERROR")
			for _, row := range rows {
				msg := ""
				if row.ErrorMessage != nil {
					msg = *row.ErrorMessage
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n", row.EventID, row.EventType, row.ErrorReason,
					row.AttemptCount, row.FailedAt.UTC().Format(time.RFC3339), msg)
			}
			return tw.Flush()
		},
	}
	list.Flags().IntVar(&limit, "limit", 50, "rows to show")

	requeue := &cobra.Command{
		Use:   "requeue <event-id>",
		Short: "Give a dead-lettered event a fresh attempt budget",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eventID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("event id: %w", err)
			}
			conn, err := rt.database(cmd.Context())
			if err != nil {
				return err
			}
			if err := outbox.NewDLQRepository(conn.DB()).Requeue(cmd.Context(), eventID); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "requeued", eventID)
			return nil
		},
	}

	cmd.AddCommand(list, requeue)
	return cmd
}
