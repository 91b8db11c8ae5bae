package main

import (
	"context"
	"fmt"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/siegeai/javro/avro"
	"github.com/siegeai/javro/javro"
	"github.com/siegeai/javro/openapi"
	"github.com/siegeai/javro/registry"
	"github.com/siegeai/javro/resolve"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

type convertFlags struct {
	namespace          string
	name               string
	allowMultipleTypes bool
	registryURL        string
	subject            string
	outDir             string
	validate           bool
	component          string
	diff               bool
	jobs               int
	strict             bool
}

func newConvertCommand() *cobra.Command {
	f := convertFlags{}
	cmd := &cobra.Command{
		Use:   "convert [flags] SCHEMA...",
		Short: "Convert JSON Schema files to Avro",
		Long: `Convert JSON Schema files (JSON or YAML, local paths or http urls) to Avro.

With a registry url the field order of the latest published version of each subject
is kept and the result is checked for compatibility with it.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd.Context(), cmd.OutOrStdout(), f, args)
		},
	}

	flags := cmd.Flags()
	f.addFlags(flags)
	flags.StringVarP(&f.outDir, "out-dir", "o", "", "write <name>.avsc files here instead of printing results")
	flags.BoolVar(&f.diff, "diff", false, "include a JSON patch against the previous version")
	flags.IntVarP(&f.jobs, "jobs", "j", 4, "files converted in parallel")
	flags.BoolVar(&f.strict, "strict", false, "fail when a result is incompatible with its previous version")
	return cmd
}

// addFlags registers the flags shared by convert and register.
func (f *convertFlags) addFlags(flags *pflag.FlagSet) {
	flags.StringVar(&f.namespace, "namespace", getEnv("JAVRO_NAMESPACE", ""), "namespace of the generated records")
	flags.StringVar(&f.name, "name", "", "record name (default: the schema title, then the file name)")
	flags.BoolVar(&f.allowMultipleTypes, "allow-multiple-types", false, "map every entry of a type list into a union instead of only the last one")
	flags.StringVar(&f.registryURL, "registry-url", getEnv("JAVRO_REGISTRY_URL", ""), "schema registry to reorder against and check compatibility with")
	flags.StringVar(&f.subject, "subject", "", "registry subject (default: <file name>-value)")
	flags.BoolVar(&f.validate, "validate", false, "check schemas against their meta-schema first")
	flags.StringVar(&f.component, "openapi", "", "read OpenAPI 3 documents and convert this component schema")
}

func runConvert(ctx context.Context, out io.Writer, f convertFlags, files []string) error {
	var client *registry.Client
	if f.registryURL != "" {
		c, err := registry.NewClient(f.registryURL)
		if err != nil {
			return err
		}
		client = c
	}

	if f.outDir != "" {
		if err := os.MkdirAll(f.outDir, 0o755); err != nil {
			return err
		}
	}

	results := make([]*javro.Result, len(files))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(max(f.jobs, 1))
	for i, file := range files {
		i, file := i, file
		eg.Go(func() error {
			res, err := convertFile(ctx, f, client, file)
			if err != nil {
				return errors.Wrap(err, file)
			}
			results[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	var incompatible []string
	for i, res := range results {
		if res.Compatibility == javro.Incompatible {
			incompatible = append(incompatible, files[i])
		}
		if err := writeResult(out, f, res); err != nil {
			return err
		}
	}

	if len(incompatible) > 0 {
		slog.Warn("incompatible with the previous version", "files", incompatible)
		if f.strict {
			return fmt.Errorf("%d schema(s) incompatible with the previous version", len(incompatible))
		}
	}
	return nil
}

func convertFile(ctx context.Context, f convertFlags, client *registry.Client, file string) (*javro.Result, error) {
	logger := slog.Default().With("file", file)

	opts := javro.Options{
		SchemaFile:         file,
		Namespace:          f.namespace,
		Name:               f.name,
		AllowMultipleTypes: f.allowMultipleTypes,
		Logger:             logger,
	}

	if f.component != "" {
		opts.Resolver = &openapi.ComponentResolver{Component: f.component, Logger: logger}
		if opts.Name == "" {
			opts.Name = f.component
		}
	} else {
		r := resolve.NewResolver(nil)
		r.Validate = f.validate
		r.Logger = logger
		opts.Resolver = r
	}

	if client != nil {
		subject := f.subject
		if subject == "" {
			subject = defaultSubject(file)
		}
		opts.AvroFetcher = registry.NewAvroFetcher(client, subject)
	}

	res, err := javro.Run(ctx, opts)
	if err != nil {
		return nil, err
	}
	logger.Info("converted", "name", res.Avro.FullName(), "compatible", res.Compatibility.String())
	return res, nil
}

func defaultSubject(file string) string {
	base := filepath.Base(file)
	return strings.TrimSuffix(base, filepath.Ext(base)) + "-value"
}

func writeResult(out io.Writer, f convertFlags, res *javro.Result) error {
	if !f.diff {
		res.Diff = nil
	}

	if f.outDir == "" {
		bs, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(bs))
		return err
	}

	bs, err := avro.MarshalIndent(res.Avro, "", "  ")
	if err != nil {
		return err
	}
	name := filepath.Join(f.outDir, res.Avro.Name+".avsc")
	if err := os.WriteFile(name, append(bs, '\n'), 0o644); err != nil {
		return err
	}
	if !f.diff || len(res.Diff) == 0 {
		return nil
	}
	patch, err := json.Marshal(res.Diff)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "%s\n%s\n", name, patch)
	return err
}
