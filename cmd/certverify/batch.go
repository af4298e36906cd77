package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"certverify/internal/verification/handler"
)

// Manifest lists the certificates of a batch run. Relative file paths are
// resolved against the manifest's directory.
type Manifest struct {
	Entries []ManifestEntry `yaml:"entries"`
}

// ManifestEntry is one certificate and the values submitted for it.
type ManifestEntry struct {
	ID        string            `yaml:"id"`
	File      string            `yaml:"file"`
	Submitted map[string]string `yaml:"submitted"`
}

// BatchReport is printed once every entry has been processed.
type BatchReport struct {
	BatchID string        `json:"batch_id" yaml:"batch_id"`
	Results []BatchResult `json:"results" yaml:"results"`
}

// BatchResult holds either the verification response or the error that
// prevented a run.
type BatchResult struct {
	ID     string                  `json:"id" yaml:"id"`
	File   string                  `json:"file" yaml:"file"`
	Result *handler.VerifyResponse `json:"result,omitempty" yaml:"result,omitempty"`
	Error  string                  `json:"error,omitempty" yaml:"error,omitempty"`
}

func loadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if len(m.Entries) == 0 {
		return nil, fmt.Errorf("manifest %s has no entries", path)
	}
	base := filepath.Dir(path)
	for i := range m.Entries {
		e := &m.Entries[i]
		if e.File == "" {
			return nil, fmt.Errorf("manifest entry %d has no file", i)
		}
		if !filepath.IsAbs(e.File) {
			e.File = filepath.Join(base, e.File)
		}
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
	}
	return &m, nil
}

func newBatchCmd(a *app) *cobra.Command {
	var manifestPath string
	var concurrency int

	cmd := &cobra.Command{
		Use:   "batch --manifest FILE",
		Short: "Verify every certificate listed in a YAML manifest",
		Long: `Runs one independent verification per manifest entry:

  entries:
    - id: applicant-17
      file: scans/applicant-17.pdf
      submitted:
        full_name: أحمد محمد علي
        gpa: "3.2"

A failing entry is reported in its result and does not stop the batch.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadManifest(manifestPath)
			if err != nil {
				return err
			}
			svc, err := a.newVerifier(a)
			if err != nil {
				return err
			}
			log := a.logger()
			report := BatchReport{BatchID: uuid.NewString(), Results: make([]BatchResult, len(m.Entries))}

			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(max(concurrency, 1))
			for i, entry := range m.Entries {
				g.Go(func() error {
					res := BatchResult{ID: entry.ID, File: entry.File}
					resp, err := verifyEntry(ctx, svc, entry)
					if err != nil {
						if ctx.Err() != nil {
							return ctx.Err()
						}
						log.Warn("batch entry failed", "batch_id", report.BatchID, "id", entry.ID, "error", err)
						res.Error = err.Error()
					} else {
						res.Result = resp
					}
					report.Results[i] = res
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), a.outputFormat, report)
		},
	}

	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "", "YAML manifest of certificates")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", 2, "certificates verified at once")
	_ = cmd.MarkFlagRequired("manifest")
	return cmd
}

func verifyEntry(ctx context.Context, svc verifier, entry ManifestEntry) (*handler.VerifyResponse, error) {
	doc, err := documentFor(entry.File)
	if err != nil {
		return nil, err
	}
	claims, err := handler.ClaimsFromMap(entry.Submitted)
	if err != nil {
		return nil, err
	}
	result, err := svc.Verify(ctx, doc, claims)
	if err != nil {
		return nil, err
	}
	return handler.FromResult(entry.ID, result), nil
}
