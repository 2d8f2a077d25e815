// Copyright 2021 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/clrscan/clrmeta"
)

func newRootCmd() *cobra.Command {
	var lenient bool
	var pe32Only bool

	root := &cobra.Command{
		Use:     "clrdump",
		Short:   "Dump CLI metadata from a managed PE image",
		Version: "0.1.0",
	}
	root.PersistentFlags().BoolVar(&lenient, "lenient", false,
		"accept optional-header fields strict mode would reject")
	root.PersistentFlags().BoolVar(&pe32Only, "pe32-only", false,
		"reject PE32+ images")

	open := func(path string) (*clrmeta.Reader, error) {
		r, err := clrmeta.Open(path, &clrmeta.Options{
			Strict:   !lenient,
			PE32Only: pe32Only,
		})
		if err != nil {
			return nil, err
		}
		if err := r.Parse(); err != nil {
			r.Close()
			return nil, err
		}
		return r, nil
	}

	root.AddCommand(newIdentityCmd(open))
	root.AddCommand(newRefsCmd(open))
	root.AddCommand(newTypesCmd(open))
	root.AddCommand(newCertCmd(open))
	return root
}

type opener func(path string) (*clrmeta.Reader, error)

func newIdentityCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "identity <image>",
		Short: "Print the image's own assembly identity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := open(args[0])
			if err != nil {
				return err
			}
			defer r.Close()

			id, err := r.Identity()
			if err != nil {
				return err
			}
			fmt.Printf("%s, Version=%s, Culture=%s, PublicKeyLength=%d\n",
				id.Name, id.Version, orNeutral(id.Culture), len(id.PublicKey))
			for _, a := range r.Anomalies {
				fmt.Printf("anomaly: %s\n", a)
			}
			return nil
		},
	}
}

func newRefsCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "refs <image>",
		Short: "List referenced assemblies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := open(args[0])
			if err != nil {
				return err
			}
			defer r.Close()

			refs, err := r.References()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tVERSION\tCULTURE")
			for _, ref := range refs {
				fmt.Fprintf(w, "%s\t%s\t%s\n", ref.Name, ref.Version, orNeutral(ref.Culture))
			}
			return w.Flush()
		},
	}
}

func newTypesCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "types <image>",
		Short: "List defined types with their owned field/method ranges",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := open(args[0])
			if err != nil {
				return err
			}
			defer r.Close()

			types, err := r.Types()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RID\tNAME\tFIELDS\tMETHODS")
			for _, t := range types {
				full := t.Name
				if t.Namespace != "" {
					full = t.Namespace + "." + t.Name
				}
				fmt.Fprintf(w, "%d\t%s\t%d\t%d\n",
					t.RID, full, t.FieldEnd-t.FieldStart, t.MethodEnd-t.MethodStart)
			}
			return w.Flush()
		},
	}
}

func newCertCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "cert <image>",
		Short: "Print the Authenticode signer, if the image is signed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := open(args[0])
			if err != nil {
				return err
			}
			defer r.Close()

			cert, err := r.Certificate()
			if err != nil {
				return err
			}
			if cert == nil {
				fmt.Println("not signed")
				return nil
			}
			fmt.Printf("subject: %s\nissuer:  %s\nserial:  %s\n",
				cert.Info.Subject, cert.Info.Issuer, cert.Info.SerialNumber)
			return nil
		},
	}
}

func orNeutral(s string) string {
	if s == "" {
		return "neutral"
	}
	return s
}
