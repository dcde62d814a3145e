package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mkrupp/taskmanager/internal/client"
	"github.com/mkrupp/taskmanager/internal/domain"
)

var errNothingToUpdate = errors.New("nothing to update, pass --title, --description or --completed")

// deps are the collaborators replaced in tests.
type deps struct {
	sessions   client.SessionStore
	httpClient *http.Client
	now        func() time.Time
}

// app is the state shared by all commands of one invocation.
type app struct {
	deps

	apiURL string
	output string
	client *client.Client
}

func newRootCmd(cfg Config, d deps) *cobra.Command {
	if d.now == nil {
		d.now = time.Now
	}

	a := &app{deps: d}

	root := &cobra.Command{
		Use:           "taskctl",
		Short:         "Manage your tasks from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			sessions := a.sessions
			if sessions == nil {
				fileSessions, err := client.NewFileSessionStore()
				if err != nil {
					return fmt.Errorf("open session store: %w", err)
				}

				sessions = fileSessions
			}

			a.client = client.New(client.Config{BaseURL: a.apiURL}, sessions, a.httpClient)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.apiURL, "api", cfg.Client.BaseURL, "API base URL")

	root.AddCommand(
		newRegisterCmd(a),
		newLoginCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newPasswdCmd(a),
		newListCmd(a),
		newAddCmd(a),
		newEditCmd(a),
		newSetCompletedCmd(a, "done", "Mark a task as completed", true),
		newSetCompletedCmd(a, "undo", "Mark a task as not completed", false),
		newToggleCmd(a),
		newRmCmd(a),
		newHealthCmd(a),
	)

	return root
}

// readSecret returns value, or the next line of in if value is empty.
func readSecret(in *bufio.Reader, out io.Writer, prompt, value string) (string, error) {
	if value != "" {
		return value, nil
	}

	fmt.Fprint(out, prompt+": ")

	line, err := in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read %s: %w", prompt, err)
	}

	fmt.Fprintln(out)

	return strings.TrimRight(line, "\r\n"), nil
}

func newRegisterCmd(a *app) *cobra.Command {
	var reg domain.Registration

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := readSecret(bufio.NewReader(cmd.InOrStdin()), cmd.ErrOrStderr(), "Password", reg.Password)
			if err != nil {
				return err
			}

			reg.Password = password

			session, err := a.client.Register(cmd.Context(), reg)
			if err != nil {
				return fmt.Errorf("register: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Registered and logged in as %s\n", session.User.Username)

			return nil
		},
	}

	cmd.Flags().StringVarP(&reg.Username, "username", "u", "", "username (3-30 characters)")
	cmd.Flags().StringVarP(&reg.Email, "email", "e", "", "email address")
	cmd.Flags().StringVarP(&reg.Password, "password", "p", "", "password (read from stdin if omitted)")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func newLoginCmd(a *app) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "login <username-or-email>",
		Short: "Log in with a username or email address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := readSecret(bufio.NewReader(cmd.InOrStdin()), cmd.ErrOrStderr(), "Password", password)
			if err != nil {
				return err
			}

			session, err := a.client.Login(cmd.Context(), args[0], secret)
			if err != nil {
				return fmt.Errorf("login: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", session.User.Username)

			return nil
		},
	}

	cmd.Flags().StringVarP(&password, "password", "p", "", "password (read from stdin if omitted)")

	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.client.Logout(cmd.Context()); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")

			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			profile, err := a.client.Me(cmd.Context())
			if err != nil {
				return fmt.Errorf("whoami: %w", err)
			}

			return renderProfile(cmd.OutOrStdout(), *profile)
		},
	}
}

func newPasswdCmd(a *app) *cobra.Command {
	var flags domain.PasswordChange

	cmd := &cobra.Command{
		Use:   "passwd",
		Short: "Change your password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in := bufio.NewReader(cmd.InOrStdin())

			current, err := readSecret(in, cmd.ErrOrStderr(), "Current password", flags.CurrentPassword)
			if err != nil {
				return err
			}

			next, err := readSecret(in, cmd.ErrOrStderr(), "New password", flags.NewPassword)
			if err != nil {
				return err
			}

			change := domain.PasswordChange{CurrentPassword: current, NewPassword: next}
			if err := a.client.ChangePassword(cmd.Context(), change); err != nil {
				return fmt.Errorf("passwd: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Password updated")

			return nil
		},
	}

	cmd.Flags().StringVar(&flags.CurrentPassword, "current", "", "current password (read from stdin if omitted)")
	cmd.Flags().StringVar(&flags.NewPassword, "new", "", "new password (read from stdin if omitted)")

	return cmd
}

func newListCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List your tasks, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tasks, err := a.client.ListTasks(cmd.Context())
			if err != nil {
				return fmt.Errorf("list: %w", err)
			}

			return renderTasks(cmd.OutOrStdout(), tasks, a.output, a.now())
		},
	}

	cmd.Flags().StringVarP(&a.output, "output", "o", formatTable, "output format: table, json or yaml")

	return cmd
}

func newAddCmd(a *app) *cobra.Command {
	var in domain.TaskInput

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Title = strings.Join(args, " ")

			created, err := a.client.CreateTask(cmd.Context(), in)
			if err != nil {
				return fmt.Errorf("add: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Added %s %q\n", created.ID, created.Title)

			return nil
		},
	}

	cmd.Flags().StringVarP(&in.Description, "description", "d", "", "task description")

	return cmd
}

func newEditCmd(a *app) *cobra.Command {
	var (
		title       string
		description string
		completed   bool
	)

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change the title, description or completion of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch domain.TaskPatch

			if cmd.Flags().Changed("title") {
				patch.Title = &title
			}

			if cmd.Flags().Changed("description") {
				patch.Description = &description
			}

			if cmd.Flags().Changed("completed") {
				patch.Completed = &completed
			}

			if patch == (domain.TaskPatch{}) {
				return errNothingToUpdate
			}

			updated, err := a.client.UpdateTask(cmd.Context(), args[0], patch)
			if err != nil {
				return fmt.Errorf("edit: %w", err)
			}

			return renderTask(cmd.OutOrStdout(), *updated, a.now())
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "new title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "new description, empty to clear")
	cmd.Flags().BoolVar(&completed, "completed", false, "completion state")

	return cmd
}

func newSetCompletedCmd(a *app, use, short string, completed bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			updated, err := a.client.UpdateTask(cmd.Context(), args[0], domain.TaskPatch{Completed: &completed})
			if err != nil {
				return fmt.Errorf("%s: %w", use, err)
			}

			return renderTask(cmd.OutOrStdout(), *updated, a.now())
		},
	}
}

func newToggleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <id>",
		Short: "Flip the completion of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			updated, err := a.client.ToggleTask(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("toggle: %w", err)
			}

			return renderTask(cmd.OutOrStdout(), *updated, a.now())
		},
	}
}

func newRmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client.DeleteTask(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("rm: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])

			return nil
		},
	}
}

func newHealthCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the API is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			status, err := a.client.Health(cmd.Context())
			if err != nil {
				return fmt.Errorf("health: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", status.Service, status.Status)

			return nil
		},
	}
}
