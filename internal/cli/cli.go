// Package cli 实现 readsyctl 命令行，所有请求都经过 authclient
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"readsy_backend/pkg/authclient"

	"github.com/kelseyhightower/envconfig"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// Config 通过环境变量配置，READSY_API_URL / READSY_TOKEN_FILE
type Config struct {
	APIURL    string `envconfig:"API_URL" default:"http://localhost:8080"`
	TokenFile string `envconfig:"TOKEN_FILE"`
}

func LoadConfig() (Config, error) {
	var c Config
	if err := envconfig.Process("readsy", &c); err != nil {
		return c, err
	}
	if c.TokenFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return c, err
		}
		c.TokenFile = filepath.Join(home, ".readsy", "tokens.json")
	}
	return c, nil
}

// IOStreams 命令的输入输出
type IOStreams struct {
	In     io.Reader
	Out    io.Writer
	ErrOut io.Writer
}

// Factory 延迟创建客户端，--api-url 参数优先于环境变量
type Factory struct {
	Config Config
	ErrOut io.Writer
	client *authclient.Client
}

func (f *Factory) Client() *authclient.Client {
	if f.client != nil {
		return f.client
	}
	store := authclient.NewFileStore(f.Config.TokenFile)
	session := authclient.NewSession(store, authclient.NewHTTPRefresher(f.Config.APIURL),
		authclient.WithAuthFailureHook(f.authFailed),
	)
	f.client = authclient.NewClient(f.Config.APIURL, session)
	return f.client
}

// authFailed 刷新失败时本地令牌已被清除
func (f *Factory) authFailed(err error) {
	if f.ErrOut == nil {
		return
	}
	fmt.Fprintf(f.ErrOut, "token refresh failed, removed saved login from %s: %v\n", f.Config.TokenFile, err)
}

func NewDefaultReadsyCtlCommand() *cobra.Command {
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid environment:", err)
		os.Exit(1)
	}
	return NewReadsyCtlCommand(cfg, IOStreams{In: os.Stdin, Out: os.Stdout, ErrOut: os.Stderr})
}

func NewReadsyCtlCommand(cfg Config, streams IOStreams) *cobra.Command {
	f := &Factory{Config: cfg, ErrOut: streams.ErrOut}

	cmds := &cobra.Command{
		Use:           "readsyctl",
		Short:         "readsyctl talks to the Readsy API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmds.SetIn(streams.In)
	cmds.SetOut(streams.Out)
	cmds.SetErr(streams.ErrOut)

	flags := cmds.PersistentFlags()
	flags.StringVar(&f.Config.APIURL, "api-url", cfg.APIURL, "Readsy API base URL")
	flags.StringVar(&f.Config.TokenFile, "token-file", cfg.TokenFile, "file that stores the login tokens")

	cmds.AddCommand(
		NewCmdLogin(f, streams),
		NewCmdLogout(f, streams),
		NewCmdMe(f, streams),
		NewCmdProgress(f, streams),
		NewCmdCheckin(f, streams),
		NewCmdLeaderboard(f, streams),
		NewCmdShop(f, streams),
	)
	return cmds
}

// Execute 会话过期时提示重新登录
func Execute(cmd *cobra.Command) int {
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		if isSessionExpired(err) {
			fmt.Fprintln(cmd.ErrOrStderr(), "session expired, run `readsyctl login` again")
		} else {
			fmt.Fprintln(cmd.ErrOrStderr(), "error:", err)
		}
		return 1
	}
	return 0
}

func newTable(out io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(out)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetBorder(false)
	return table
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
