package main

import (
	"context"
	"time"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

// addOwner updates or creates an owner account, active right away.
func (cli *commandLine) addOwner(name, email, pwd string, isAdmin bool) error {
	ctx := context.Background()
	name = core.CleanString(name)
	email = core.CleanString(email, true /* lower */)

	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Email: email})
	if err != nil {
		if err != user.ErrNotFound {
			return err
		}
		now := time.Now().UTC()
		usr = user.User{
			Name:  name,
			Email: email,
			Limits: user.Limits{
				Classes:     cli.conf.DefaultLimits.Classes,
				Evaluators:  cli.conf.DefaultLimits.Evaluators,
				Evaluations: cli.conf.DefaultLimits.Evaluations,
			},
			CreatedAt: now,
			UpdatedAt: now,
		}
		usr.IsAdmin = isAdmin
		usr.IsActive = true
		if err = usr.SetPassword(pwd); err != nil {
			return err
		}
		_, err = cli.usrRepo.CreateUser(ctx, usr)
		return err
	}

	usr.Name = name
	usr.IsAdmin = isAdmin
	usr.IsActive = true
	usr.UpdatedAt = time.Now().UTC()
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}
	_, err = cli.usrRepo.UpdateUser(ctx, usr)
	return err
}
