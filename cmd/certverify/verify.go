package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"certverify/internal/certificate"
	"certverify/internal/verification/handler"
	dErrors "certverify/pkg/domain-errors"
)

func newVerifyCmd(a *app) *cobra.Command {
	var file string
	submitted := map[certificate.FieldKind]*string{}

	cmd := &cobra.Command{
		Use:   "verify --file CERT [--full-name NAME] [--gpa 3.2] ...",
		Short: "Verify one certificate file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := documentFor(file)
			if err != nil {
				return err
			}
			claims := certificate.Claims{}
			for kind, v := range submitted {
				if *v != "" {
					claims[kind] = *v
				}
			}

			svc, err := a.newVerifier(a)
			if err != nil {
				return err
			}
			result, err := svc.Verify(cmd.Context(), doc, claims)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), a.outputFormat, handler.FromResult(uuid.NewString(), result))
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "certificate file (.pdf, .png, .jpg, .jpeg, .webp, .bmp, .tif, .tiff)")
	_ = cmd.MarkFlagRequired("file")
	for _, kind := range certificate.AllFields {
		submitted[kind] = cmd.Flags().String(flagName(kind), "", fmt.Sprintf("submitted %s", kind))
	}
	// "name" mirrors the legacy form field.
	cmd.Flags().StringVar(submitted[certificate.FieldFullName], "name", "", "alias of --full-name")
	return cmd
}

func flagName(kind certificate.FieldKind) string {
	switch kind {
	case certificate.FieldFullName:
		return "full-name"
	case certificate.FieldNationalID:
		return "national-id"
	}
	return kind.String()
}

// documentFor validates a local file and describes it for the pipeline.
func documentFor(path string) (certificate.Document, error) {
	format, err := certificate.FormatFromFilename(path)
	if err != nil {
		return certificate.Document{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return certificate.Document{}, dErrors.Wrap(err, dErrors.CodeBadRequest, "cannot read certificate file")
	}
	if info.IsDir() || info.Size() == 0 {
		return certificate.Document{}, dErrors.New(dErrors.CodeBadRequest, "empty file")
	}
	return certificate.Document{Path: path, Filename: filepath.Base(path), Format: format}, nil
}
