// Command useradd provisions a romvault account. There is no HTTP
// registration endpoint; accounts are created by an operator.
//
//	useradd -d postgres://... -u alice
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/caarlos0/env/v10"
	"github.com/dmitrijs2005/romvault/internal/common"
	"github.com/dmitrijs2005/romvault/internal/server/auth"
	"github.com/dmitrijs2005/romvault/internal/server/config"
	"github.com/dmitrijs2005/romvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/romvault/internal/server/services"
	"golang.org/x/term"
)

var (
	openDB         = repomanager.Open
	newRepoManager = repomanager.NewPostgresRepositoryManager
)

type envConfig struct {
	DatabaseDSN string `env:"DATABASE_DSN"`
}

// passwordReader reads one line without echo.
type passwordReader func() ([]byte, error)

func terminalPassword() ([]byte, error) {
	return term.ReadPassword(int(os.Stdin.Fd()))
}

func defaultDSN() string {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	ec := envConfig{}
	if err := env.ParseWithOptions(&ec, env.Options{Prefix: "ROMVAULT_"}); err == nil && ec.DatabaseDSN != "" {
		return ec.DatabaseDSN
	}
	return cfg.DatabaseDSN
}

func readNewPassword(out io.Writer, read passwordReader) ([]byte, error) {
	fmt.Fprint(out, "Password: ")
	first, err := read()
	fmt.Fprintln(out)
	if err != nil {
		return nil, err
	}

	fmt.Fprint(out, "Repeat password: ")
	second, err := read()
	fmt.Fprintln(out)
	defer common.WipeByteArray(second)
	if err != nil {
		common.WipeByteArray(first)
		return nil, err
	}

	if len(first) == 0 || !bytes.Equal(first, second) {
		common.WipeByteArray(first)
		return nil, errors.New("passwords are empty or do not match")
	}
	return first, nil
}

func run(ctx context.Context, args []string, out io.Writer, read passwordReader) error {
	fs := flag.NewFlagSet("useradd", flag.ContinueOnError)
	fs.SetOutput(out)
	dsn := fs.String("d", defaultDSN(), "database DSN")
	userName := fs.String("u", "", "username")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *userName == "" {
		return errors.New("username is required (-u)")
	}

	password, err := readNewPassword(out, read)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	db, err := openDB(ctx, *dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	rm := newRepoManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return err
	}

	svc := services.NewUserService(db, rm, auth.NewHasher())
	u, err := svc.CreateUser(ctx, *userName, string(password))
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return fmt.Errorf("user %q already exists", *userName)
		}
		return err
	}

	fmt.Fprintf(out, "created user %q (id %d)\n", u.UserName, u.ID)
	return nil
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, terminalPassword); err != nil {
		log.Fatalf("useradd: %v", err)
	}
}
