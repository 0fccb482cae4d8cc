// Copyright IBM Corp. 2014, 2025
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/updater-keygen/updater-keygen/config"
	"github.com/updater-keygen/updater-keygen/logging"
	"github.com/updater-keygen/updater-keygen/manager"
	"github.com/updater-keygen/updater-keygen/version"
)

// Exit codes are int values that represent an exit code for a particular error.
// Sub-systems may check this unique error to determine the cause of an error
// without parsing the output or help text.
//
// Errors start at 10
const (
	ExitCodeOK int = 0

	ExitCodeError = 10 + iota
	ExitCodeParseFlagsError
	ExitCodeConfigError
	ExitCodeBackendError
	ExitCodeWriteError
)

// dotEnvFile is read from the working directory, if present, before the
// environment is consulted.
const dotEnvFile = ".env"

// CLI is the main entry point.
type CLI struct {
	// outSteam and errStream are the standard out and standard error streams to
	// write messages from the CLI.
	outStream, errStream io.Writer
}

// NewCLI creates a new command line interface with the given streams.
func NewCLI(out, err io.Writer) *CLI {
	return &CLI{
		outStream: out,
		errStream: err,
	}
}

// Run accepts a slice of arguments and returns an int representing the exit
// status from the command.
func (cli *CLI) Run(args []string) int {
	dotEnvErr := loadDotEnv(dotEnvFile)
	cli.initLogger()

	// Parse the flags
	cliConfig, paths, dry, isVersion, err := cli.ParseFlags(args[1:])
	if err != nil {
		if err == flag.ErrHelp {
			fmt.Fprintf(cli.errStream, usage, version.Name)
			return ExitCodeOK
		}
		fmt.Fprintf(cli.errStream, usage, version.Name)
		return cli.handleError(err, ExitCodeParseFlagsError)
	}

	// Load configuration paths, with CLI taking precedence
	config, err := loadConfigs(paths, cliConfig)
	if err != nil {
		return cli.handleError(err, ExitCodeConfigError)
	}

	if err := cli.setup(config); err != nil {
		return cli.handleError(err, ExitCodeConfigError)
	}

	if dotEnvErr != nil {
		log.Printf("[WARN] (cli) ignoring %s: %s", dotEnvFile, dotEnvErr)
	}

	log.Printf("[INFO] %s", version.HumanVersion)

	// If the version was requested, return an "error" containing the version
	// information. This might sound weird, but most *nix applications actually
	// print their version on stderr anyway.
	if isVersion {
		log.Printf("[DEBUG] (cli) version flag was given, exiting now")
		fmt.Fprintf(cli.errStream, "%s\n", version.HumanVersion)
		return ExitCodeOK
	}

	log.Printf("[DEBUG] (cli) final config: %#v", config)

	runner, err := manager.NewRunner(config, dry)
	if err != nil {
		return cli.handleError(NewErrConfig(err), ExitCodeConfigError)
	}
	runner.SetOutStream(cli.outStream)

	if _, err := runner.Run(); err != nil {
		return cli.handleError(err, exitStatus(err))
	}

	return ExitCodeOK
}

// ParseFlags is a helper function for parsing command line flags using Go's
// Flag library. This is extracted into a helper to keep the main function
// small, but it also makes writing tests for parsing command line arguments
// much easier and cleaner.
func (cli *CLI) ParseFlags(args []string) (*config.Config, []string, bool, bool, error) {
	var dry, isVersion bool

	// Parse the flags and options
	c := config.DefaultConfig()
	configPaths := make([]string, 0, 6)

	flags := flag.NewFlagSet(version.Name, flag.ContinueOnError)
	flags.SetOutput(io.Discard)
	flags.Usage = func() {}

	flags.Var((funcVar)(func(s string) error {
		configPaths = append(configPaths, s)
		return nil
	}), "config", "")

	flags.Var((funcVar)(func(s string) error {
		c.OutputDir = config.String(s)
		return nil
	}), "dir", "")

	flags.Var((funcBoolVar)(func(b bool) error {
		c.CreateDestDirs = config.Bool(b)
		return nil
	}), "create-dest-dirs", "")

	flags.Var((funcBoolVar)(func(b bool) error {
		c.Backup = config.Bool(b)
		return nil
	}), "backup", "")

	flags.BoolVar(&dry, "dry", false, "")

	flags.Var((funcVar)(func(s string) error {
		c.LogLevel = config.String(s)
		return nil
	}), "log-level", "")

	flags.Var((funcBoolVar)(func(b bool) error {
		c.Syslog.Enabled = config.Bool(b)
		return nil
	}), "syslog", "")

	flags.Var((funcVar)(func(s string) error {
		c.Syslog.Facility = config.String(s)
		return nil
	}), "syslog-facility", "")

	flags.Var((funcVar)(func(s string) error {
		c.Syslog.Name = config.String(s)
		return nil
	}), "syslog-name", "")

	flags.BoolVar(&isVersion, "v", false, "")
	flags.BoolVar(&isVersion, "version", false, "")

	// If there was a parser error, stop
	if err := flags.Parse(args); err != nil {
		return nil, nil, false, false, err
	}

	// Error if extra arguments are present
	args = flags.Args()
	if len(args) > 0 {
		return nil, nil, false, false, fmt.Errorf("cli: extra args: %q", args)
	}

	return c, configPaths, dry, isVersion, nil
}

// setup points the logger at the error stream using the final config.
func (cli *CLI) setup(conf *config.Config) error {
	if err := logging.Setup(&logging.Config{
		Level:          config.StringVal(conf.LogLevel),
		Syslog:         config.BoolVal(conf.Syslog.Enabled),
		SyslogFacility: config.StringVal(conf.Syslog.Facility),
		SyslogName:     config.StringVal(conf.Syslog.Name),
		Writer:         cli.errStream,
	}); err != nil {
		return NewErrConfig(err)
	}
	return nil
}

// handleError logs the given error and returns the given exit status.
func (cli *CLI) handleError(err error, status int) int {
	log.Printf("[ERR] (cli) %s", err)
	return status
}

// initLogger points the logger at the error stream using the level from the
// environment, falling back to WARN, so errors raised before the config is
// loaded are still reported.
func (cli *CLI) initLogger() {
	level := strings.ToUpper(strings.TrimSpace(os.Getenv(config.EnvLogLevel)))
	if level == "" {
		level = config.DefaultLogLevel
	}

	if err := logging.Setup(&logging.Config{
		Level:  level,
		Writer: cli.errStream,
	}); err != nil {
		logging.Setup(&logging.Config{
			Level:  config.DefaultLogLevel,
			Writer: cli.errStream,
		})
	}
}

// loadConfigs loads the configuration from the list of paths. The optional
// configuration is the list of overrides to apply at the very end, taking
// precedence over any configurations that were loaded from the paths. If any
// errors occur when reading or parsing those sub-configs, it is returned.
func loadConfigs(paths []string, o *config.Config) (*config.Config, error) {
	finalC := config.DefaultConfig()

	for _, path := range paths {
		c, err := config.FromPath(path)
		if err != nil {
			return nil, NewErrConfig(err)
		}

		finalC = finalC.Merge(c)
	}

	finalC = finalC.Merge(o)
	finalC.Finalize()
	return finalC, nil
}

// loadDotEnv exports the variables in path that are not already set. A
// missing file is not an error.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

const usage = `Usage: %s [options]

  Generates a 2048-bit RSA key pair for signing application updates. The
  private key is written as PKCS#8 PEM to updater_private.pem and the public
  key as SubjectPublicKeyInfo PEM to updater_public.pem, both overwritten if
  present. The public key is printed so it can be copied into the updater
  configuration.

Options:

  -backup
      Keep a .bak copy of key files that get overwritten

  -config=<path>
      Sets the path to a configuration file or folder on disk. This can be
      specified multiple times to load multiple files or folders. If multiple
      values are given, they are merged left-to-right, and CLI arguments take
      the top-most precedence.

  -create-dest-dirs
      Create the output directory if it does not exist

  -dir=<path>
      Directory to write the key files to (default ".")

  -dry
      Print what would be written to stdout instead of writing any files

  -log-level=<level>
      Set the logging level - values are "trace", "debug", "info", "warn",
      and "err"

  -syslog
      Also send log output to syslog. The syslog facility defaults to LOCAL0
      and can be changed using a configuration file

  -syslog-facility=<facility>
      Set the facility where syslog should log - supplying a facility enables
      syslog

  -syslog-name=<name>
      Set the name of the application which will appear in syslog

  -v, -version
      Print the version and exit
`
