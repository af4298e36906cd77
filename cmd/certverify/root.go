package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"certverify/internal/certificate"
	"certverify/internal/platform/config"
	"certverify/internal/platform/logger"
	"certverify/internal/textsource"
	"certverify/internal/verification"
)

// verifier is the part of the verification service the CLI drives.
type verifier interface {
	Verify(ctx context.Context, doc certificate.Document, claims certificate.Claims) (*certificate.Result, error)
}

// app carries global flag values and the service factory. Tests replace
// newVerifier to avoid the external OCR tools.
type app struct {
	cfgFile      string
	outputFormat string
	logLevel     string

	env         config.Config
	stderr      io.Writer
	newVerifier func(a *app) (verifier, error)
}

func newApp() *app {
	return &app{
		env:         config.FromEnv(),
		stderr:      os.Stderr,
		newVerifier: localVerifier,
	}
}

func (a *app) logger() *slog.Logger {
	return logger.NewWithWriter(a.stderr, a.logLevel, "text")
}

// localVerifier runs the full pipeline in process against the local
// pdftotext, pdftoppm and tesseract binaries.
func localVerifier(a *app) (verifier, error) {
	log := a.logger()
	policyFile := a.cfgFile
	if policyFile == "" {
		policyFile = a.env.PolicyFile
	}
	policies, err := config.NewPolicyManager(policyFile, log)
	if err != nil {
		return nil, err
	}
	source := textsource.New(textsource.NewExecRunner(log), textsource.FromPlatform(a.env.OCR), textsource.WithLogger(log))
	return verification.NewService(source, policies, verification.WithLogger(log)), nil
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "certverify",
		Short: "Verify Arabic academic certificates against submitted data",
		Long: `certverify extracts the fields of a scanned or digital Arabic certificate
(name, university, major, GPA, national id, degree), compares them with the
values an applicant submitted and reports MATCH, PARTIAL_MATCH or MISMATCH
with a confidence score and a diagnostic trace.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch a.outputFormat {
			case outputJSON, outputYAML:
				return nil
			default:
				return fmt.Errorf("unknown output format %q: use json or yaml", a.outputFormat)
			}
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "policy file (default: $CERTVERIFY_POLICY_FILE)")
	root.PersistentFlags().StringVarP(&a.outputFormat, "output", "o", outputJSON, "output format: json or yaml")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "log level: debug, info, warn or error")

	root.AddCommand(newVerifyCmd(a), newBatchCmd(a), newTokenCmd(a))
	return root
}
