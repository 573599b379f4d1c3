package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"golang.org/x/term"

	"github.com/mateusdiasyt/oquefazeremfoz-sub002/internal/domain"
	"github.com/mateusdiasyt/oquefazeremfoz-sub002/internal/service"
)

var (
	errUsage            = errors.New("usage")
	errPasswordMismatch = errors.New("passwords do not match")
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

type userLookup interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

type accountOps interface {
	Register(ctx context.Context, in service.RegisterInput) (*domain.User, error)
	LogoutEverywhere(ctx context.Context, userID string) (int64, error)
	SweepExpiredSessions(ctx context.Context) (int64, error)
}

type roleGranter interface {
	Grant(ctx context.Context, userID string, role domain.RoleName) error
}

type cli struct {
	users   userLookup
	auth    accountOps
	roles   roleGranter
	out     io.Writer
	stdinFd int
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `usage: authctl <command> [flags]

commands:
  create-user      -email EMAIL [-name NAME] [-role ROLE]   prompts for the password
  grant-role       -email EMAIL -role ROLE
  revoke-sessions  -email EMAIL
  sweep-sessions
`)
}

func (c *cli) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		printUsage(c.out)
		return errUsage
	}
	switch args[0] {
	case "create-user":
		return c.createUser(ctx, args[1:])
	case "grant-role":
		return c.grantRole(ctx, args[1:])
	case "revoke-sessions":
		return c.revokeSessions(ctx, args[1:])
	case "sweep-sessions":
		return c.sweepSessions(ctx)
	default:
		printUsage(c.out)
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}
}

func (c *cli) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.out)
	return fs
}

func (c *cli) createUser(ctx context.Context, args []string) error {
	fs := c.flags("create-user")
	email := fs.String("email", "", "account email")
	name := fs.String("name", "", "display name")
	roleFlag := fs.String("role", "", "extra role (COMPANY or ADMIN)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if *email == "" {
		return fmt.Errorf("%w: -email is required", errUsage)
	}

	var role domain.RoleName
	if *roleFlag != "" {
		parsed, err := domain.ParseRoleName(*roleFlag)
		if err != nil {
			return err
		}
		role = parsed
	}

	password, err := c.promptPassword()
	if err != nil {
		return err
	}

	user, err := c.auth.Register(ctx, service.RegisterInput{
		Name:     *name,
		Email:    *email,
		Password: password,
		Company:  role == domain.RoleCompany,
	})
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	if role == domain.RoleAdmin {
		if err := c.roles.Grant(ctx, user.ID, role); err != nil {
			return fmt.Errorf("grant %s: %w", role, err)
		}
	}

	fmt.Fprintf(c.out, "created user %s (%s)\n", user.ID, user.Email)
	return nil
}

func (c *cli) grantRole(ctx context.Context, args []string) error {
	fs := c.flags("grant-role")
	email := fs.String("email", "", "account email")
	roleFlag := fs.String("role", "", "role to grant")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if *email == "" || *roleFlag == "" {
		return fmt.Errorf("%w: -email and -role are required", errUsage)
	}
	role, err := domain.ParseRoleName(*roleFlag)
	if err != nil {
		return err
	}

	user, err := c.lookup(ctx, *email)
	if err != nil {
		return err
	}
	if err := c.roles.Grant(ctx, user.ID, role); err != nil {
		return fmt.Errorf("grant %s: %w", role, err)
	}
	fmt.Fprintf(c.out, "granted %s to %s\n", role, user.Email)
	return nil
}

func (c *cli) revokeSessions(ctx context.Context, args []string) error {
	fs := c.flags("revoke-sessions")
	email := fs.String("email", "", "account email")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if *email == "" {
		return fmt.Errorf("%w: -email is required", errUsage)
	}

	user, err := c.lookup(ctx, *email)
	if err != nil {
		return err
	}
	n, err := c.auth.LogoutEverywhere(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	fmt.Fprintf(c.out, "revoked %d session(s) for %s\n", n, user.Email)
	return nil
}

func (c *cli) sweepSessions(ctx context.Context) error {
	n, err := c.auth.SweepExpiredSessions(ctx)
	if err != nil {
		return fmt.Errorf("sweep sessions: %w", err)
	}
	fmt.Fprintf(c.out, "deleted %d expired session(s)\n", n)
	return nil
}

func (c *cli) lookup(ctx context.Context, email string) (*domain.User, error) {
	user, err := c.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("no user with email %q", email)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return user, nil
}

// promptPassword reads the password twice without echo.
func (c *cli) promptPassword() (string, error) {
	fmt.Fprint(c.out, "Password: ")
	first, err := readPassword(c.stdinFd)
	fmt.Fprintln(c.out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	fmt.Fprint(c.out, "Confirm password: ")
	second, err := readPassword(c.stdinFd)
	fmt.Fprintln(c.out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if !bytes.Equal(first, second) {
		return "", errPasswordMismatch
	}
	return string(first), nil
}
