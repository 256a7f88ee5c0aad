package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	_ "github.com/brendan.keane/apibridge/internal/apps"
	"github.com/brendan.keane/apibridge/internal/cli"
	"github.com/brendan.keane/apibridge/internal/config"
	"github.com/brendan.keane/apibridge/internal/errors"
	"github.com/brendan.keane/apibridge/internal/logger"
	"github.com/brendan.keane/apibridge/pkg/registry"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := newRootCmd(registry.Default, os.Stdin, os.Stdout)
	if err := rootCmd.Execute(); err != nil {
		if _, ok := errors.As(err); ok {
			errors.PresentError(err)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func newRootCmd(reg *registry.Registry, in io.Reader, out io.Writer) *cobra.Command {
	appLogger := zerolog.Nop()

	rootCmd := &cobra.Command{
		Use:   "apibridge",
		Short: "Run HTTP applications behind a serverless gateway",
		Long: `apibridge adapts gateway invocation events to net/http applications.
It serves registered applications inside the function runtime, invokes them
locally for testing, calls deployed functions and exposes both over MCP.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFromFlags(cmd.Flags())
			if err != nil {
				return err
			}
			appLogger = logger.InitLogger(&logger.Config{
				Level:      cfg.Logger.Level,
				Format:     cfg.Logger.Format,
				WithCaller: cfg.Logger.WithCaller,
				Output:     os.Stderr,
			})
			log.Logger = appLogger
			cmd.SetContext(config.WithConfig(cmd.Context(), cfg))
			return nil
		},
	}
	rootCmd.SetIn(in)
	rootCmd.SetOut(out)
	cli.AddConfigFlags(rootCmd.PersistentFlags())
	rootCmd.RegisterFlagCompletionFunc("app", appCompletion(reg))
	rootCmd.RegisterFlagCompletionFunc("event-format", fixedCompletion(config.EventFormatVercel, config.EventFormatAPIGateway))
	rootCmd.RegisterFlagCompletionFunc("log-format", fixedCompletion("pretty", "json"))

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the configured application inside the Lambda runtime",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.NewServeHandler(appLogger, reg).Execute(cmd, args)
		},
	}

	invokeCmd := &cobra.Command{
		Use:   "invoke [path]",
		Short: "Run one request through the configured application locally",
		Long: `Run one request through the configured application, the same way the
deployed function would. The request is built from the path and the curl-like
flags, or read from a recorded payload with --payload.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.NewInvokeHandler(appLogger, reg, cmd.InOrStdin(), cmd.OutOrStdout()).Execute(cmd, args)
		},
	}
	cli.AddRequestFlags(invokeCmd.Flags())
	invokeCmd.Flags().String("payload", "", "Read the invocation or gateway event from a file ('-' for stdin)")
	invokeCmd.RegisterFlagCompletionFunc("request", methodCompletion)

	appsCmd := &cobra.Command{
		Use:   "apps",
		Short: "List registered applications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.NewAppsHandler(appLogger, reg, cmd.OutOrStdout()).Execute(cmd, args)
		},
	}
	appsCmd.Flags().BoolP("quiet", "q", false, "Print references only")

	remoteCmd := &cobra.Command{
		Use:   "remote [path]",
		Short: "Send one request to a deployed function",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.NewRemoteHandler(appLogger, cli.DefaultClientFactory, cmd.InOrStdin(), cmd.OutOrStdout()).Execute(cmd, args)
		},
	}
	cli.AddRequestFlags(remoteCmd.Flags())
	remoteCmd.RegisterFlagCompletionFunc("request", methodCompletion)

	mcpCmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start an MCP server over stdio",
		Long: `Start a Model Context Protocol server on stdin/stdout. Clients can list the
registered applications, invoke them in-process and, when --function is set,
invoke the deployed function.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.NewMCPHandler(appLogger, reg, cli.DefaultClientFactory).Execute(cmd, args)
		},
	}
	cli.AddMCPFlags(mcpCmd.Flags())
	mcpCmd.RegisterFlagCompletionFunc("allow-methods", methodCompletion)

	rootCmd.AddCommand(serveCmd, invokeCmd, appsCmd, remoteCmd, mcpCmd, generateCompletionCmd())
	return rootCmd
}

func methodCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return fixedCompletion(config.ValidMethods...)(cmd, args, toComplete)
}

func fixedCompletion(values ...string) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		var matches []string
		for _, v := range values {
			if strings.HasPrefix(v, strings.ToUpper(toComplete)) || strings.HasPrefix(v, toComplete) {
				matches = append(matches, v)
			}
		}
		return matches, cobra.ShellCompDirectiveNoFileComp
	}
}

func appCompletion(reg *registry.Registry) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		var matches []string
		for _, ref := range reg.Refs() {
			if strings.HasPrefix(ref, toComplete) {
				matches = append(matches, ref)
			}
		}
		return matches, cobra.ShellCompDirectiveNoFileComp
	}
}

func generateCompletionCmd() *cobra.Command {
	completionCmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate completion script",
		Long: `To load completions:

Bash:

  # Load for current session:
  $ source <(apibridge completion bash)

  # Load for all sessions (add to ~/.bashrc):
  $ echo 'source <(apibridge completion bash)' >> ~/.bashrc

Zsh:

  $ source <(apibridge completion zsh)

Fish:

  $ apibridge completion fish > ~/.config/fish/completions/apibridge.fish

PowerShell:

  PS> apibridge completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			default:
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
		},
	}

	return completionCmd
}
