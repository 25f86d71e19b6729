package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/field-ticket-service/internal/service"
)

func newExportCommand() *cobra.Command {
	var (
		params service.ListParams
		out    string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the ticket list to an xlsx workbook",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := newRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.close()

			tickets := service.NewTicketService(rt.deps(), rt.cfg.Listing)
			tmp, err := os.CreateTemp(".", ".tickets-export-*.xlsx")
			if err != nil {
				return err
			}
			defer os.Remove(tmp.Name())

			name, err := tickets.Export(cmd.Context(), tmp, params)
			if closeErr := tmp.Close(); err == nil {
				err = closeErr
			}
			if err != nil {
				return err
			}
			if out == "" {
				out = name
			}
			if err := os.Rename(tmp.Name(), out); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			rt.logger.Info("export written", zap.String("path", out))
			return nil
		},
	}

	cmd.Flags().StringVar(&params.Search, "search", "", "substring matched against number, case id, company and problem")
	cmd.Flags().StringVar(&params.Status, "status", "", "exact ticket status")
	cmd.Flags().StringVar(&params.Filter, "filter", "", "open, closed or all")
	cmd.Flags().StringVarP(&out, "output", "o", "", "output path (defaults to tickets-YYYY-MM-DD.xlsx)")
	return cmd
}
