package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/alealexpro100/jviewer-starter/internal/bmc"
	"github.com/alealexpro100/jviewer-starter/internal/config"
)

// exitError carries a specific exit code out of run.
type exitError struct {
	Code    int
	Message string
}

func (e *exitError) Error() string {
	return e.Message
}

// options are the parsed command line.
type options struct {
	user             string
	password         string
	java             string
	configPath       string
	extractor        string
	allowMissingCSRF bool
	print            bool
	resolve          bool
	output           string
	logLevel         string
	logFormat        string
	help             bool
	positional       []string
}

// shell holds the process boundary so run can be driven from tests.
type shell struct {
	stdout       io.Writer
	stderr       io.Writer
	getenv       func(string) string
	readPassword func(prompt string) (string, error)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sh := &shell{
		stdout:       os.Stdout,
		stderr:       os.Stderr,
		getenv:       os.Getenv,
		readPassword: promptPassword,
	}
	if err := sh.run(ctx, os.Args[1:]); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if errors.Is(err, bmc.ErrUnsupportedPlatform) {
			os.Exit(3)
		}
		os.Exit(1)
	}
}

func newFlagSet(opts *options) *pflag.FlagSet {
	fs := pflag.NewFlagSet("jviewer-starter", pflag.ContinueOnError)
	fs.StringVarP(&opts.user, "user", "u", "", "BMC username")
	fs.StringVarP(&opts.password, "password", "p", "", "BMC password (default $JVIEWER_PASSWORD, else prompted)")
	fs.StringVar(&opts.java, "java", "", "java binary used to start the viewer")
	fs.StringVar(&opts.configPath, "config", "", "config file (default <user config dir>/jviewer-starter/config.yaml)")
	fs.StringVar(&opts.extractor, "extractor", "", "how to read the login response: 'pattern' or 'script'")
	fs.BoolVar(&opts.allowMissingCSRF, "allow-missing-csrf", false, "accept logins without a CSRF token (older firmware)")
	fs.BoolVar(&opts.print, "print", false, "print the viewer command line instead of starting it")
	fs.BoolVar(&opts.resolve, "resolve", false, "resolve the server name to an address before connecting")
	fs.StringVarP(&opts.output, "output", "o", "-", "where the jnlp command writes the descriptor")
	fs.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	fs.StringVar(&opts.logFormat, "log-format", "", "log format: auto, text, json")
	fs.BoolVarP(&opts.help, "help", "h", false, "show this help")
	return fs
}

func parseArgs(args []string) (*options, *pflag.FlagSet, error) {
	opts := &options{}
	fs := newFlagSet(opts)
	fs.SetOutput(io.Discard)
	if err := fs.Parse(args); err != nil {
		return nil, fs, &exitError{Code: 2, Message: fmt.Sprintf("%v\n\nRun 'jviewer-starter --help' for usage.", err)}
	}
	opts.positional = fs.Args()
	return opts, fs, nil
}

func printUsage(w io.Writer, fs *pflag.FlagSet) {
	fmt.Fprintf(w, `Usage: %s [flags] <server> [command]
Connect to an AMI BMC remote console or control host power.

Commands:
  console      log in, fetch the viewer jars and start the viewer (default)
  jnlp         log in and write the launch descriptor
%s
Flags:
%s`, filepath.Base(os.Args[0]), actionHelp(), fs.FlagUsages())
}

func (sh *shell) run(ctx context.Context, args []string) error {
	opts, fs, err := parseArgs(args)
	if err != nil {
		return err
	}
	if opts.help {
		printUsage(sh.stdout, fs)
		return nil
	}

	path, explicit := opts.configPath, opts.configPath != ""
	if !explicit {
		if path, err = config.DefaultPath(); err != nil {
			path = ""
		}
	}
	cfg, err := config.Load(path, explicit, sh.getenv)
	if err != nil {
		return err
	}
	if err := applyFlags(&cfg, opts); err != nil {
		return &exitError{Code: 2, Message: err.Error()}
	}
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, sh.stderr)

	server, command, err := target(cfg, opts.positional)
	if err != nil {
		printUsage(sh.stderr, fs)
		return &exitError{Code: 2, Message: err.Error()}
	}
	if opts.resolve {
		if server, err = resolveServer(ctx, server); err != nil {
			return err
		}
	}

	password := opts.password
	if password == "" {
		password = sh.getenv("JVIEWER_PASSWORD")
	}
	if password == "" {
		if password, err = sh.readPassword(fmt.Sprintf("Password for %s@%s: ", cfg.User, server)); err != nil {
			return fmt.Errorf("read password: %w", err)
		}
	}

	sessionOpts := []bmc.Option{bmc.WithLogger(logger)}
	if opts.print {
		sessionOpts = append(sessionOpts, bmc.WithStarter(printStarter{w: sh.stdout}))
	}
	session, err := bmc.NewSession(server, sessionConfig(cfg), sessionOpts...)
	if err != nil {
		return err
	}

	logger.Info("connecting", "server", server, "user", cfg.User, "command", command)
	if err := session.Establish(ctx, cfg.User, password); err != nil {
		return err
	}

	switch command {
	case "console":
		if err := session.EnsureAssetsCached(ctx); err != nil {
			return err
		}
		return session.LaunchViewer(ctx)
	case "jnlp":
		descriptor, err := session.FetchDescriptor(ctx)
		if err != nil {
			return err
		}
		return writeDescriptor(sh.stdout, opts.output, descriptor)
	}
	action := powerActions[command]
	return session.DoAction(ctx, action.power, action.bios)
}

func applyFlags(cfg *config.Config, opts *options) error {
	if opts.user != "" {
		cfg.User = opts.user
	}
	if opts.java != "" {
		cfg.Java = opts.java
	}
	if opts.extractor != "" {
		cfg.Extractor = strings.ToLower(opts.extractor)
	}
	if opts.allowMissingCSRF {
		cfg.AllowMissingCSRF = true
	}
	if opts.logLevel != "" {
		cfg.LogLevel = strings.ToLower(opts.logLevel)
	}
	if opts.logFormat != "" {
		cfg.LogFormat = strings.ToLower(opts.logFormat)
	}
	return cfg.Validate()
}

// target picks the server and command from the positional arguments,
// falling back to the configured server.
func target(cfg config.Config, positional []string) (server, command string, err error) {
	server = cfg.Server
	if len(positional) > 0 && !(server != "" && isCommand(positional[0])) {
		server, positional = positional[0], positional[1:]
	}
	if server == "" {
		return "", "", fmt.Errorf("server required")
	}
	command = "console"
	if len(positional) > 0 {
		command = positional[0]
	}
	if len(positional) > 1 {
		return "", "", fmt.Errorf("unexpected argument %q", positional[1])
	}
	if !isCommand(command) {
		return "", "", fmt.Errorf("unknown command %q", command)
	}
	return server, command, nil
}

func isCommand(name string) bool {
	if name == "console" || name == "jnlp" {
		return true
	}
	_, ok := powerActions[name]
	return ok
}

func sessionConfig(cfg config.Config) bmc.Config {
	c := bmc.DefaultConfig()
	c.JavaBinary = cfg.Java
	c.Extractor = cfg.Extractor
	c.RequireCSRF = !cfg.AllowMissingCSRF
	c.DataRoot = cfg.DataRoot
	return c
}

// resolveServer replaces a host name with its first address, keeping any
// port. The viewer connects to the address named in the descriptor.
func resolveServer(ctx context.Context, server string) (string, error) {
	host, port, err := net.SplitHostPort(server)
	if err != nil {
		host, port = server, ""
	}
	addresses, err := net.DefaultResolver.LookupHost(ctx, host)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", host, err)
	}
	if port == "" {
		if strings.Contains(addresses[0], ":") {
			return "[" + addresses[0] + "]", nil
		}
		return addresses[0], nil
	}
	return net.JoinHostPort(addresses[0], port), nil
}

// writeDescriptor writes the jnlp to stdout for "-", else to path.
func writeDescriptor(stdout io.Writer, path, descriptor string) error {
	if path == "" || path == "-" {
		_, err := io.WriteString(stdout, descriptor)
		return err
	}
	if err := os.WriteFile(path, []byte(descriptor), 0o600); err != nil {
		return fmt.Errorf("write descriptor: %w", err)
	}
	return nil
}

// printStarter writes the command line instead of running it.
type printStarter struct {
	w io.Writer
}

func (p printStarter) Start(name string, args []string) error {
	_, err := fmt.Fprintln(p.w, strings.Join(append([]string{name}, args...), " "))
	return err
}

// promptPassword reads a password from the terminal without echo.
func promptPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("no password given and stdin is not a terminal")
	}
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(password), nil
}
