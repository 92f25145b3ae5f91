package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/router-for-me/StudyGateway/internal/app"
	"github.com/router-for-me/StudyGateway/internal/config"

	log "github.com/sirupsen/logrus"
)

const usage = `usage: gateway [serve] [-config path] [-env path]
       gateway init [-config path] [-dsn dsn] [-port port] [-force]
       gateway set-tier [-config path] <username> <tier>`

// main runs the CLI entrypoint and exits on unrecoverable command errors.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if errRun := run(ctx, os.Args[1:]); errRun != nil {
		if errors.Is(errRun, flag.ErrHelp) {
			return
		}
		log.WithError(errRun).Error("command failed")
		os.Exit(1)
	}
}

// run dispatches to the serve, init or set-tier subcommand.
func run(ctx context.Context, args []string) error {
	command := "serve"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		command, args = args[0], args[1:]
	}

	switch command {
	case "serve":
		return runServe(ctx, args)
	case "init":
		return runInit(args)
	case "set-tier":
		return runSetTier(ctx, args)
	case "help":
		fmt.Println(usage)
		return nil
	default:
		return fmt.Errorf("unknown command %q\n%s", command, usage)
	}
}

func runServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "config file path (or env CONFIG_PATH)")
	envPath := fs.String("env", ".env", "dotenv file loaded before reading the environment")
	if errParse := fs.Parse(args); errParse != nil {
		return errParse
	}

	cfg, err := loadConfig(*cfgPath, *envPath)
	if err != nil {
		return err
	}
	if errValidate := validatePort(cfg.Port); errValidate != nil {
		return errValidate
	}
	return app.RunServer(ctx, cfg)
}

func runInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "config file path (or env CONFIG_PATH)")
	dsn := fs.String("dsn", "", "database DSN written to the config (default SQLite file)")
	port := fs.Int("port", 10000, "server port written to the config")
	force := fs.Bool("force", false, "overwrite an existing config file")
	if errParse := fs.Parse(args); errParse != nil {
		return errParse
	}
	if errValidate := validatePort(*port); errValidate != nil {
		return errValidate
	}

	appCfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}
	if strings.TrimSpace(*cfgPath) != "" {
		appCfg.ConfigPath = config.ResolveConfigPath(*cfgPath)
	}
	return app.InitConfig(appCfg.ConfigPath, strings.TrimSpace(*dsn), *port, *force)
}

func runSetTier(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("set-tier", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "config file path (or env CONFIG_PATH)")
	envPath := fs.String("env", ".env", "dotenv file loaded before reading the environment")
	if errParse := fs.Parse(args); errParse != nil {
		return errParse
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("set-tier needs <username> <tier>\n%s", usage)
	}
	tier, errTier := strconv.Atoi(fs.Arg(1))
	if errTier != nil || tier < 0 {
		return fmt.Errorf("invalid tier %q", fs.Arg(1))
	}

	cfg, err := loadConfig(*cfgPath, *envPath)
	if err != nil {
		return err
	}
	return app.SetTier(ctx, cfg, fs.Arg(0), tier)
}

func loadConfig(cfgPath, envPath string) (config.AppConfig, error) {
	app.LoadEnvFile(envPath)

	appCfg, err := config.LoadFromEnv()
	if err != nil {
		return config.AppConfig{}, err
	}
	if strings.TrimSpace(cfgPath) != "" {
		appCfg.ConfigPath = config.ResolveConfigPath(cfgPath)
	}
	if !app.ConfigExists(appCfg.ConfigPath) {
		log.Infof("%s not found, using defaults and environment", appCfg.ConfigPath)
	}
	return config.Load(appCfg.ConfigPath)
}

func validatePort(port int) error {
	if port <= 0 || port > 65535 {
		return fmt.Errorf("invalid port: %d", port)
	}
	return nil
}
