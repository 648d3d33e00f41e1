package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/naveenspark/folio/internal/session"
	"github.com/naveenspark/folio/pkg/domain"
)

func newLoginCmd(configPath *string) *cobra.Command {
	var email string
	var customer bool
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openStack(*configPath)
			if err != nil {
				return err
			}
			defer s.Close()

			in := bufio.NewReader(cmd.InOrStdin())
			if email == "" {
				if email, err = prompt(cmd, in, "Email: "); err != nil {
					return err
				}
			}
			password, err := readPassword(cmd, in)
			if err != nil {
				return err
			}
			userType := domain.UserTypeStaff
			if customer {
				userType = domain.UserTypeClient
			}

			mgr := s.manager()
			if err := mgr.Login(contextOf(cmd), email, password, userType); err != nil {
				if st := mgr.State(); st.Err != "" {
					return errors.New(st.Err)
				}
				return err
			}
			printIdentity(cmd.OutOrStdout(), mgr.State().Identity)
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().BoolVar(&customer, "customer", false, "sign in with a customer account")
	return cmd
}

func newLogoutCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openStack(*configPath)
			if err != nil {
				return err
			}
			defer s.Close()

			mgr := s.manager()
			ctx := contextOf(cmd)
			if err := mgr.Boot(ctx); err != nil {
				return err
			}
			if mgr.State().Status != session.Authenticated {
				fmt.Fprintln(cmd.OutOrStdout(), "not logged in")
				return nil
			}
			mgr.Logout(ctx)
			fmt.Fprintln(cmd.OutOrStdout(), "logged out")
			return nil
		},
	}
}

func newWhoamiCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openStack(*configPath)
			if err != nil {
				return err
			}
			defer s.Close()

			mgr := s.manager()
			if err := mgr.Boot(contextOf(cmd)); err != nil {
				return err
			}
			st := mgr.State()
			if st.Status != session.Authenticated {
				fmt.Fprintln(cmd.OutOrStdout(), "not logged in (run: folio login)")
				return nil
			}
			printIdentity(cmd.OutOrStdout(), st.Identity)
			return nil
		},
	}
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func prompt(cmd *cobra.Command, in *bufio.Reader, label string) (string, error) {
	fmt.Fprint(cmd.OutOrStdout(), label)
	line, err := in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// readPassword masks input on a terminal and reads a plain line otherwise.
func readPassword(cmd *cobra.Command, in *bufio.Reader) (string, error) {
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.OutOrStdout(), "Password: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.OutOrStdout())
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}
	return prompt(cmd, in, "Password: ")
}

func printIdentity(w io.Writer, id domain.Identity) {
	if id == nil {
		return
	}
	kind := "customer"
	detail := ""
	switch v := id.(type) {
	case domain.StaffIdentity:
		kind = "staff"
		detail = v.Role
	case domain.CustomerIdentity:
		detail = v.ClientCode
	}
	fmt.Fprintf(w, "%s%s%s  %s\n", ansiBold, id.Name(), ansiReset, id.Email())
	fmt.Fprintf(w, "%s%s · %s%s\n", ansiSlate, kind, detail, ansiReset)
}
