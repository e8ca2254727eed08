package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
	inmemdb "github.com/trezcool/darasa/storage/database/inmem"
)

var usrRepo user.Repository

func setup(t *testing.T) *commandLine {
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open(): %v", err)
	}
	usrRepo = inmemdb.NewUserRepository(db)

	// start CLI
	return &commandLine{
		usrRepo: usrRepo,
		conf: &core.Config{
			DefaultLimits: core.LimitsConfig{Classes: 5, Evaluators: 5, Evaluations: 100},
		},
	}
}

func createUser(t *testing.T, name, email, pwd string) user.User {
	now := time.Now().UTC()
	usr := user.User{Name: name, Email: email, IsActive: true, CreatedAt: now, UpdatedAt: now}
	if err := usr.SetPassword(pwd); err != nil {
		t.Fatalf("SetPassword(): %v", err)
	}
	usr, err := usrRepo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser(): %v", err)
	}
	return usr
}

type cliTest struct {
	name    string
	args    []string // without program name
	wantErr error
	extra   interface{}
}

func Test_commandLine_addOwner(t *testing.T) {
	cli := setup(t)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"addowner"}, wantErr: errHelp},
		{name: "name but no email", args: []string{"addowner", "-name", "Mwalimu"}, wantErr: errHelp},
		{name: "no password", args: []string{"addowner", "-name", "Mwalimu", "-email", "mwalimu@test.cd"}, wantErr: errHelp},
		{name: "create", args: []string{"addowner", "-name", "Mwalimu", "-email", "mwalimu@test.cd"}, extra: extra{pwd: "s3cret"}},
		{name: "update existing", args: []string{"addowner", "-name", "Mwalimu K", "-email", "mwalimu@test.cd", "-admin"}, extra: extra{pwd: "s3cret2"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err == nil {
				usr, err := usrRepo.GetUser(context.Background(), user.GetFilter{Email: "mwalimu@test.cd"})
				if err != nil {
					t.Fatalf("GetUser(): %v", err)
				}
				if !usr.IsActive {
					t.Error("owner should be active")
				}
				if usr.Limits.Classes != 5 {
					t.Errorf("Limits.Classes = %d; want 5", usr.Limits.Classes)
				}
			} else if err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	usr, err := usrRepo.GetUser(context.Background(), user.GetFilter{Email: "mwalimu@test.cd"})
	if err != nil {
		t.Fatalf("GetUser(): %v", err)
	}
	if !usr.IsAdmin {
		t.Error("the update run should have granted admin rights")
	}
	if usr.Name != "Mwalimu K" {
		t.Errorf("Name = %q; want %q", usr.Name, "Mwalimu K")
	}
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)

	usr := createUser(t, "Mwalimu", "mwalimu@test.cd", "oldpass")

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "-email", "mwalimu@test.cd"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-email", "ghost@test.cd"}, extra: extra{pwd: "lol"}, wantErr: user.ErrNotFound},
		{name: "reset", args: []string{"resetpassword", "-email", "mwalimu@test.cd"}, extra: extra{pwd: "newpass"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err == nil {
				refreshed, err := usrRepo.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
				if err != nil {
					t.Fatalf("GetUser(): %v", err)
				}
				if bytes.Equal(refreshed.PasswordHash, usr.PasswordHash) {
					t.Error("failed to update new password")
				}
			} else if err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
