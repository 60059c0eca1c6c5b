package main

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/user"
)

// addUser updates or creates a user.User, bypassing the password policy.
func (cli *commandLine) addUser(uname, email, pwd string, isAdmin bool) error {
	ctx := context.Background()
	_, err := cli.upsertUser(ctx, uname, uname, email, pwd, isAdmin, nil)
	return err
}

func (cli *commandLine) upsertUser(ctx context.Context, name, uname, email, pwd string, isAdmin bool, roles []string) (user.User, error) {
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{UsernameOrEmail: []string{uname, email}})
	exists := err == nil
	if err != nil {
		if !errors.Is(err, user.ErrNotFound) {
			return user.User{}, err
		}
		usr = user.User{Name: name, Username: uname, Email: email}
	}
	switch {
	case isAdmin:
		usr.Roles = user.AllRoles
	case roles != nil:
		usr.Roles = roles
	}
	usr.IsActive = true
	now := time.Now().UTC()
	if !exists {
		usr.CreatedAt = now
	}
	usr.UpdatedAt = now
	if err := usr.SetPassword(pwd); err != nil {
		return user.User{}, err
	}

	if exists {
		return cli.usrRepo.UpdateUser(ctx, usr)
	}
	return cli.usrRepo.CreateUser(ctx, usr)
}
