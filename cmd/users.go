package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/multitune/internal/models"
	"github.com/urfave/cli/v3"
)

// UsersCreate adds a local user.
func (r *Runner) UsersCreate(ctx context.Context, cmd *cli.Command) error {
	a, err := r.open()
	if err != nil {
		return err
	}
	defer a.Close()

	user := &models.User{
		Username: cmd.String("username"),
		Email:    models.StringPtr(cmd.String("email")),
	}
	if err := a.users.Create(ctx, user); err != nil {
		return err
	}

	r.logger.Info("created user", "id", user.ID, "username", user.Username)
	return r.writePlain("✓ Created user %s (id %d)\n", user.Username, user.ID)
}

// UsersList prints local users with the services each has linked.
func (r *Runner) UsersList(ctx context.Context, cmd *cli.Command) error {
	a, err := r.open()
	if err != nil {
		return err
	}
	defer a.Close()

	users, err := a.users.List(ctx)
	if err != nil {
		return err
	}

	type userView struct {
		*models.User
		Linked []models.Service `json:"linked"`
	}

	views := make([]userView, 0, len(users))
	for _, u := range users {
		linked, err := a.creds.LinkedServices(ctx, u.ID)
		if err != nil {
			return err
		}
		views = append(views, userView{User: u, Linked: linked})
	}

	if cmd.Bool("json") {
		return r.writeJSON(views, cmd.Bool("pretty"))
	}

	if len(views) == 0 {
		return r.writePlain("No users yet. Run 'multitune link <service>' or 'multitune users create'.\n")
	}

	r.writePlain("Found %d users:\n\n", len(views))
	for _, v := range views {
		r.writePlain("%d. %s\n", v.ID, v.Username)
		if v.Email != nil {
			r.writePlain("   Email: %s\n", *v.Email)
		}
		if len(v.Linked) > 0 {
			r.writePlain("   Linked: %v\n", v.Linked)
		}
	}
	return nil
}

// Token issues a session token for the API.
func (r *Runner) Token(ctx context.Context, cmd *cli.Command) error {
	userID, err := userFrom(cmd)
	if err != nil {
		return err
	}

	a, err := r.open()
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.users.Get(ctx, userID); err != nil {
		return err
	}

	token, err := a.tokens.Issue(userID)
	if err != nil {
		return fmt.Errorf("failed to issue token: %w", err)
	}
	return r.writePlain("%s\n", token)
}
