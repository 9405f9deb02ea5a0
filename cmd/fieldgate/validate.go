package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rpattn/fieldgate/internal/definitions"
)

func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate BUNDLE.yaml",
		Short: "Validate workflow definitions against the schemas of a YAML bundle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfig(); err != nil {
				return err
			}

			bundle, err := definitions.LoadFile(args[0])
			if err != nil {
				return err
			}

			failed := 0
			out := cmd.OutOrStdout()
			for _, result := range bundle.Validate(context.Background()) {
				if result.Err != nil {
					failed++
					fmt.Fprintf(out, "FAIL %s: %v\n", result.Workflow, result.Err)
					continue
				}
				fmt.Fprintf(out, "ok   %s\n", result.Workflow)
			}

			log.WithFields(log.Fields{"workflows": len(bundle.Workflows), "failed": failed}).Debug("validated bundle")
			if failed > 0 {
				return errors.Errorf("%d of %d workflow definitions are invalid", failed, len(bundle.Workflows))
			}
			return nil
		},
	}
}
