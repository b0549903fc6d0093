// Package main - точка входа Rapor Hub.
//
// Одна команда rapor объединяет HTTP-сервер (serve), миграции схемы
// (migrate), загрузку демонстрационных данных (seed), генерацию табеля в
// файл (report) и проверку браузера для PDF (renderer check).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"

	envFiles []string

	rootCmd = &cobra.Command{
		Use:           "rapor",
		Short:         "Academic aggregation and report card engine",
		Long:          "Rapor Hub computes subject averages, attendance, rankings and trends\nfrom school records and assembles printable report cards.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}
)

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", []string{".env"}, "dotenv files loaded before configuration")

	rootCmd.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newSeedCmd(),
		newReportCmd(),
		newRendererCmd(),
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "rapor: %v\n", err)
		os.Exit(1)
	}
}
