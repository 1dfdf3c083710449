package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/nyashahama/counselling-portal-backend/internal/auth"
	"github.com/nyashahama/counselling-portal-backend/internal/db"
	"github.com/nyashahama/counselling-portal-backend/internal/store"
)

var readPasswordFunc = term.ReadPassword // mockable

const (
	minPasswordLen = 8
	maxPasswordLen = 72 // bcrypt ignores anything longer
)

var errPasswordLength = fmt.Errorf("password must be between %d and %d characters", minPasswordLen, maxPasswordLen)

// ─── add-counsellor ───────────────────────────────────────────────────────────

type accountCreator interface {
	CreateAccount(ctx context.Context, p store.CreateAccountParams) (db.User, db.Profile, error)
}

func newAddCounsellorCommand(open dbOpener) *cobra.Command {
	var addr, name string

	cmd := &cobra.Command{
		Use:   "add-counsellor",
		Short: "Create a counsellor account",
		Long:  "Create a counsellor account. The password is prompted for, or read from stdin when it is not a terminal.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pwd, err := promptPassword(cmd)
			if err != nil {
				return err
			}
			pool, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			st := store.New(pool, db.New(pool))
			user, err := addCounsellor(cmd.Context(), st, addr, name, pwd)
			if err != nil {
				return err
			}
			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "counsellor %s created (%s)\n", user.Email, user.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "email", "", "login email")
	cmd.Flags().StringVar(&name, "name", "", "full name shown to students")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func addCounsellor(ctx context.Context, st accountCreator, addr, name, pwd string) (db.User, error) {
	if strings.TrimSpace(name) == "" {
		return db.User{}, errors.New("name must not be blank")
	}
	if !strings.Contains(addr, "@") {
		return db.User{}, fmt.Errorf("%q is not an email address", addr)
	}
	hash, err := hashPassword(pwd)
	if err != nil {
		return db.User{}, err
	}

	user, _, err := st.CreateAccount(ctx, store.CreateAccountParams{
		Email:        addr,
		PasswordHash: hash,
		Role:         db.UserRoleCounsellor,
		FullName:     name,
	})
	if errors.Is(err, store.ErrEmailTaken) {
		return db.User{}, fmt.Errorf("%s is already registered", addr)
	}
	if err != nil {
		return db.User{}, err
	}
	return user, nil
}

// ─── reset-password ───────────────────────────────────────────────────────────

type passwordUpdater interface {
	GetUserByEmail(ctx context.Context, email string) (db.User, error)
	UpdateUserPassword(ctx context.Context, arg db.UpdateUserPasswordParams) (db.User, error)
}

func newResetPasswordCommand(open dbOpener) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Set a new password for any account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pwd, err := promptPassword(cmd)
			if err != nil {
				return err
			}
			pool, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			user, err := resetPassword(cmd.Context(), db.New(pool), addr, pwd)
			if err != nil {
				return err
			}
			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "password reset for %s\n", user.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "email", "", "account email")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func resetPassword(ctx context.Context, q passwordUpdater, addr, pwd string) (db.User, error) {
	hash, err := hashPassword(pwd)
	if err != nil {
		return db.User{}, err
	}
	user, err := q.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(addr)))
	if err != nil {
		return db.User{}, fmt.Errorf("find %s: %w", addr, err)
	}
	return q.UpdateUserPassword(ctx, db.UpdateUserPasswordParams{ID: user.ID, PasswordHash: hash})
}

// ─── HELPERS ──────────────────────────────────────────────────────────────────

func hashPassword(pwd string) (string, error) {
	if len(pwd) < minPasswordLen || len(pwd) > maxPasswordLen {
		return "", errPasswordLength
	}
	return auth.HashPassword(pwd)
}

// promptPassword reads a password without echo from a terminal, or a single
// line from any other input.
func promptPassword(cmd *cobra.Command) (string, error) {
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), "Enter password: ")
		pwd, err := readPasswordFunc(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", err
		}
		return string(pwd), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
