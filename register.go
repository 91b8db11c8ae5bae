package main

import (
	"context"
	"fmt"
	"github.com/pkg/errors"
	"github.com/siegeai/javro/avro"
	"github.com/siegeai/javro/javro"
	"github.com/siegeai/javro/registry"
	"github.com/spf13/cobra"
	"io"
	"log/slog"
)

func newRegisterCommand() *cobra.Command {
	f := convertFlags{}
	force := false
	cmd := &cobra.Command{
		Use:   "register [flags] SCHEMA",
		Short: "Convert a JSON Schema file and register the result as the next version of a subject",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegister(cmd.Context(), cmd.OutOrStdout(), f, force, args[0])
		},
	}

	flags := cmd.Flags()
	f.addFlags(flags)
	flags.BoolVar(&force, "force", false, "register even when the local compatibility check fails")
	return cmd
}

func runRegister(ctx context.Context, out io.Writer, f convertFlags, force bool, file string) error {
	if f.registryURL == "" {
		return errors.New("register needs --registry-url or JAVRO_REGISTRY_URL")
	}
	client, err := registry.NewClient(f.registryURL)
	if err != nil {
		return err
	}
	if f.subject == "" {
		f.subject = defaultSubject(file)
	}

	res, err := convertFile(ctx, f, client, file)
	if err != nil {
		return errors.Wrap(err, file)
	}
	if res.Compatibility == javro.Incompatible && !force {
		return errors.Errorf("%s is incompatible with the latest version of %s", file, f.subject)
	}
	if len(res.Removed) > 0 {
		slog.Warn("registering without fields of the previous version", "subject", f.subject, "removed", res.Removed)
	}

	bs, err := avro.Marshal(res.Avro)
	if err != nil {
		return err
	}
	id, err := client.Register(ctx, f.subject, string(bs))
	if err != nil {
		return errors.Wrapf(err, "registering %s", f.subject)
	}

	slog.Info("registered", "subject", f.subject, "id", id)
	_, err = fmt.Fprintf(out, "%s %d\n", f.subject, id)
	return err
}
