package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"readsy_backend/pkg/authclient"

	"github.com/spf13/cobra"
)

type LoginOptions struct {
	Email    string
	Password string
}

func NewCmdLogin(f *Factory, streams IOStreams) *cobra.Command {
	o := &LoginOptions{}
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store tokens locally",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(streams); err != nil {
				return err
			}
			if err := o.Validate(); err != nil {
				return err
			}
			if _, err := f.Client().Login(cmd.Context(), o.Email, o.Password); err != nil {
				return err
			}
			fmt.Fprintf(streams.Out, "logged in as %s\n", o.Email)
			return nil
		},
	}
	cmd.Flags().StringVarP(&o.Email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&o.Password, "password", "p", "", "password, read from stdin when empty")
	return cmd
}

// Complete 未提供密码时从标准输入读取一行
func (o *LoginOptions) Complete(streams IOStreams) error {
	if o.Password != "" {
		return nil
	}
	fmt.Fprint(streams.ErrOut, "password: ")
	line, err := bufio.NewReader(streams.In).ReadString('\n')
	if err != nil && line == "" {
		return fmt.Errorf("read password: %w", err)
	}
	o.Password = strings.TrimRight(line, "\r\n")
	return nil
}

func (o *LoginOptions) Validate() error {
	if o.Email == "" {
		return errors.New("--email is required")
	}
	if o.Password == "" {
		return errors.New("password is required")
	}
	return nil
}

func NewCmdLogout(f *Factory, streams IOStreams) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the session and remove local tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := f.Client().Logout(cmd.Context()); err != nil {
				// 本地令牌已清除，仅提示
				fmt.Fprintln(streams.ErrOut, "warning:", err)
			}
			fmt.Fprintln(streams.Out, "logged out")
			return nil
		},
	}
}

func isSessionExpired(err error) bool {
	return errors.Is(err, authclient.ErrSessionExpired)
}
