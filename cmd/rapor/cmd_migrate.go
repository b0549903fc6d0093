package main

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/raporhub/rapor-hub/internal/infrastructure/persistence/memory"
	"github.com/raporhub/rapor-hub/internal/infrastructure/persistence/postgres"
	"github.com/raporhub/rapor-hub/pkg/logger"
	"github.com/raporhub/rapor-hub/pkg/timeutil"
)

var seedMigrate bool

func newMigrateCmd() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema",
	}
	migrateCmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply pending migrations",
			RunE:  runMigrateUp,
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the latest migration",
			RunE:  runMigrateDown,
		},
		&cobra.Command{
			Use:   "status",
			Short: "List migrations and whether they are applied",
			RunE:  runMigrateStatus,
		},
	)
	return migrateCmd
}

func newSeedCmd() *cobra.Command {
	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Import the demo school dataset into PostgreSQL",
		RunE:  runSeed,
	}
	seedCmd.Flags().BoolVar(&seedMigrate, "migrate", false, "apply pending migrations first")
	return seedCmd
}

// withMigrator открывает подключение к PostgreSQL для команд схемы.
func withMigrator(cmd *cobra.Command, fn func(a *app, m *postgres.Migrator) error) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	conn, err := a.connectPostgres(cmd.Context())
	if err != nil {
		return err
	}
	return fn(a, postgres.NewMigrator(conn))
}

func runMigrateUp(cmd *cobra.Command, _ []string) error {
	return withMigrator(cmd, func(a *app, m *postgres.Migrator) error {
		n, err := m.Migrate(cmd.Context())
		if err != nil {
			return err
		}
		a.log.Info("migrations applied", logger.Int("count", n))
		fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", n)
		return nil
	})
}

func runMigrateDown(cmd *cobra.Command, _ []string) error {
	return withMigrator(cmd, func(a *app, m *postgres.Migrator) error {
		v, err := m.Rollback(cmd.Context())
		if err != nil {
			return err
		}
		if v == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "nothing to roll back")
			return nil
		}
		a.log.Info("migration rolled back", logger.Int("version", v))
		fmt.Fprintf(cmd.OutOrStdout(), "rolled back migration %d\n", v)
		return nil
	})
}

func runMigrateStatus(cmd *cobra.Command, _ []string) error {
	return withMigrator(cmd, func(_ *app, m *postgres.Migrator) error {
		list, err := m.Status(cmd.Context())
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "VERSION\tNAME\tAPPLIED")
		for _, mig := range list {
			applied := "-"
			if mig.IsApplied {
				applied = timeutil.FormatDateTimeStr(mig.AppliedAt)
			}
			fmt.Fprintf(w, "%03d\t%s\t%s\n", mig.Version, mig.Name, applied)
		}
		return w.Flush()
	})
}

// runSeed загружает демонстрационную школу: два класса, два семестра,
// оценки, посещаемость и внеклассные данные.
func runSeed(cmd *cobra.Command, _ []string) error {
	return withMigrator(cmd, func(a *app, m *postgres.Migrator) error {
		ctx := cmd.Context()
		if seedMigrate {
			if _, err := m.Migrate(ctx); err != nil {
				return err
			}
		}

		res, err := postgres.NewRecordStore(a.conn).Import(ctx, memory.NewDemoStore().Dataset())
		if err != nil {
			return fmt.Errorf("seed demo dataset: %w", err)
		}
		a.log.Info("demo dataset imported", logger.Int("rows", res.Total()))

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		tables := make([]string, 0, len(res.Tables))
		for table := range res.Tables {
			tables = append(tables, table)
		}
		sort.Strings(tables)
		for _, table := range tables {
			fmt.Fprintf(w, "%s\t%d\n", table, res.Tables[table])
		}
		fmt.Fprintf(w, "total\t%d\n", res.Total())
		return w.Flush()
	})
}
