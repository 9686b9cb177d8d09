package main

import (
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/aigencia/apiclient/client"
	"github.com/aigencia/apiclient/internal/config"
	"github.com/aigencia/apiclient/internal/logger"
)

func main() {
	_ = godotenv.Load()

	cmd := NewRootCmd()
	if err := cmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

// cli carries flag values and the lazily built client.
type cli struct {
	apiURL    string
	env       string
	store     string
	storePath string
	logLevel  string
	debug     bool

	cfg *config.Config
}

// NewRootCmd constructs the root CLI command; exposed for unit testing.
func NewRootCmd() *cobra.Command {
	a := &cli{}

	rootCmd := &cobra.Command{
		Use:           "aigenciactl",
		Short:         "Call the Aigencia API with managed authentication",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.ErrOrStderr())
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&a.apiURL, "api", "", "API base URL (default $AIGENCIA_API_URL)")
	pf.StringVar(&a.env, "env", "", "Client preset: development, production, test, debug, custom (default $AIGENCIA_ENV)")
	pf.StringVar(&a.store, "store", "", "Token store: memory, file or sqlite (default $AIGENCIA_TOKEN_STORE)")
	pf.StringVar(&a.storePath, "store-path", "", "Token store location (default ~/.aigencia/tokens.*)")
	pf.StringVar(&a.logLevel, "log-level", "", "Log level (default $AIGENCIA_LOG_LEVEL)")
	pf.BoolVarP(&a.debug, "debug", "d", false, "Dump HTTP traffic to stderr")

	rootCmd.AddCommand(a.newVerbCmd("get", "GET", false))
	rootCmd.AddCommand(a.newVerbCmd("post", "POST", true))
	rootCmd.AddCommand(a.newVerbCmd("put", "PUT", true))
	rootCmd.AddCommand(a.newVerbCmd("patch", "PATCH", true))
	rootCmd.AddCommand(a.newVerbCmd("delete", "DELETE", false))
	rootCmd.AddCommand(a.newLoginCmd())
	rootCmd.AddCommand(a.newLogoutCmd())
	rootCmd.AddCommand(a.newMeCmd())
	rootCmd.AddCommand(a.newTokenCmd())

	return rootCmd
}

// setup loads configuration, lets flags override it and configures logging.
func (a *cli) setup(stderr io.Writer) error {
	cfg, err := config.New()
	if err != nil {
		return err
	}
	if a.apiURL != "" {
		cfg.APIURL = a.apiURL
	}
	if a.env != "" {
		cfg.Env = a.env
	}
	if a.store != "" && a.store != cfg.TokenStore {
		cfg.TokenStore = a.store
		cfg.TokenStorePath = ""
	}
	if a.storePath != "" {
		cfg.TokenStorePath = a.storePath
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if err := cfg.ResolveDefaults(); err != nil {
		return err
	}
	a.cfg = cfg

	level := logger.ParseLevel(cfg.LogLevel)
	if a.debug {
		level = zerolog.DebugLevel
	}
	log.Logger = logger.Console(stderr, level)
	zerolog.SetGlobalLevel(level)
	return nil
}

// client builds an API client from the resolved configuration. Callers must
// Close it.
func (a *cli) client(stderr io.Writer) (*client.Client, error) {
	return client.NewFromConfig(a.cfg,
		client.WithLogger(log.Logger),
		client.WithDebugLogging(a.debug),
		client.WithNavigator(&cliNavigator{out: stderr}),
	)
}

// cliNavigator turns the login redirect into a hint on stderr.
type cliNavigator struct{ out io.Writer }

func (n *cliNavigator) Location() string { return "" }

func (n *cliNavigator) Redirect(string) {
	fmt.Fprintln(n.out, "Session expired or missing. Run `aigenciactl login` to authenticate.")
}
