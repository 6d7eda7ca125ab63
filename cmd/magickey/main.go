package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/magicaleks/magickey/internal/adapter/handoff"
	"github.com/magicaleks/magickey/internal/config"
	"github.com/magicaleks/magickey/internal/domain"
	activationclient "github.com/magicaleks/magickey/internal/infra/activation"
	"github.com/magicaleks/magickey/internal/infra/ipinfo"
	"github.com/magicaleks/magickey/internal/infra/sealer"
	"github.com/magicaleks/magickey/internal/infra/system"
	"github.com/magicaleks/magickey/internal/usecase/activation"
)

// Process exit codes.
const (
	exitOK         = 0
	exitConfig     = 1
	exitEncryption = 2
	exitActivation = 3
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) > 0 && args[0] == "keygen" {
		return keygen(args[1:], stdout, stderr)
	}

	flags := pflag.NewFlagSet("magickey", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	configPath := flags.StringP("config", "c", "", "path to YAML config file")
	printConfig := flags.Bool("print-config", false, "print the effective configuration and exit")
	showVersion := flags.Bool("version", false, "print version and exit")
	debug := flags.Bool("debug", false, "enable debug logging")
	if err := flags.Parse(args); err != nil {
		return exitConfig
	}

	if *showVersion {
		fmt.Fprintf(stdout, "magickey %s (built %s)\n", config.Version, config.BuildTime)
		return exitOK
	}

	var overrides []config.Override
	if *debug {
		overrides = append(overrides, config.WithDebug())
	}

	cfg, err := config.Load(*configPath, overrides...)
	if err != nil {
		fmt.Fprintf(stderr, "configuration error: %v\n", err)
		return exitConfig
	}

	if *printConfig {
		if err := cfg.Dump(stdout); err != nil {
			fmt.Fprintf(stderr, "print config: %v\n", err)
			return exitConfig
		}
		return exitOK
	}

	logger, closeLog, err := config.NewLogger(cfg, cfg.AppName)
	if err != nil {
		fmt.Fprintf(stderr, "logger error: %v\n", err)
		return exitConfig
	}
	defer closeLog()

	logger.Info("starting magickey",
		"version", config.Version,
		"build_time", config.BuildTime,
		"debug", cfg.Debug.Enabled,
	)

	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM,
	)
	defer cancel()

	key, err := sealer.LoadPublicKey(cfg)
	if err != nil {
		logger.Error("failed to load activation key", "err", err)
		return exitEncryption
	}

	probe := system.NewProbe(ipinfo.NewClient(cfg, logger), logger)
	svc := activation.NewService(cfg,
		probe,
		sealer.New(key),
		activationclient.NewClient(cfg, logger),
		handoff.NewWriter(stdout),
		logger,
	)

	if _, err := svc.Run(ctx); err != nil {
		logger.Error("activation run failed", "err", err)
		return exitCode(err)
	}
	return exitOK
}

func exitCode(err error) int {
	var encErr domain.ErrEncrypt
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &encErr):
		return exitEncryption
	default:
		return exitActivation
	}
}

func keygen(args []string, stdout, stderr io.Writer) int {
	flags := pflag.NewFlagSet("keygen", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	out := flags.StringP("out", "o", ".", "directory to write private.pem and public.pem to")
	bits := flags.Int("bits", 2048, "RSA modulus size")
	if err := flags.Parse(args); err != nil {
		return exitConfig
	}

	privPath, pubPath, err := sealer.WriteKeyPair(*out, *bits)
	if err != nil {
		fmt.Fprintf(stderr, "keygen: %v\n", err)
		return exitConfig
	}
	fmt.Fprintf(stdout, "private key: %s\npublic key: %s\n", privPath, pubPath)
	return exitOK
}
