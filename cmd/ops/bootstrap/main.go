// Package main implements the bootstrap CLI for a WellWatch environment.
//
// It verifies the operator's AWS identity, then walks the secret inventory
// and writes each value to SSM Parameter Store under
// /{env}/wellwatch/{category}/{key}. Parameters that already exist are
// skipped unless --overwrite is given. With --export-env it also writes the
// matching *_SSM_PARAM pointers to a dotenv file for the deployment.
//
// Usage:
//
//	go run ./cmd/ops/bootstrap --env=dev
//	go run ./cmd/ops/bootstrap --env=prod --profile=wellwatch-prod --export-env
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

var validEnvironments = map[string]bool{
	"dev":     true,
	"staging": true,
	"prod":    true,
}

// Session is the verified AWS session the bootstrap runs under.
type Session struct {
	Environment string
	Region      string
	AccountID   string
	CallerARN   string
	AWSConfig   aws.Config
}

func main() {
	envFlag := flag.String("env", "", "Target environment (dev/staging/prod) [required]")
	profileFlag := flag.String("profile", "", "AWS CLI profile (default: uses default credential chain)")
	regionFlag := flag.String("region", "us-east-1", "AWS region")
	overwriteFlag := flag.Bool("overwrite", false, "Replace parameters that already exist")
	skipVerifyFlag := flag.Bool("skip-verify", false, "Do not test the database connection before storing it")
	exportEnvFlag := flag.Bool("export-env", false, "Write *_SSM_PARAM pointers to a dotenv file")
	exportEnvPath := flag.String("export-env-path", ".env.deploy", "Path for the exported dotenv file")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "WellWatch Bootstrap Tool\n\n")
		fmt.Fprintf(os.Stderr, "Populates the SSM parameters a WellWatch deployment resolves at startup.\n")
		fmt.Fprintf(os.Stderr, "Values are read from same-named environment variables or prompted for.\n\n")
		fmt.Fprintf(os.Stderr, "Usage:\n")
		fmt.Fprintf(os.Stderr, "  bootstrap --env=dev [--profile=NAME] [--region=REGION] [--export-env]\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *envFlag == "" {
		fmt.Fprintf(os.Stderr, "error: --env is required\n\n")
		flag.Usage()
		os.Exit(1)
	}
	if !validEnvironments[*envFlag] {
		fmt.Fprintf(os.Stderr, "error: invalid environment %q (must be dev, staging, or prod)\n", *envFlag)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sess, err := initializeSession(ctx, *envFlag, *profileFlag, *regionFlag)
	if err != nil {
		logger.Error("initialization failed", "error", err)
		os.Exit(1)
	}

	stdin := bufio.NewScanner(os.Stdin)
	if sess.Environment == "prod" && !confirmProduction(sess, stdin) {
		fmt.Fprintln(os.Stderr, "Aborted. No changes were made.")
		return
	}

	logger.Info("bootstrap session",
		"env", sess.Environment,
		"account", sess.AccountID,
		"caller", sess.CallerARN,
		"region", sess.Region,
	)

	ssmMgr := NewSSMManager(sess.AWSConfig, sess.Environment, logger)
	runner := &Runner{
		SSM:       ssmMgr,
		Inventory: BuildInventory(),
		Lookup:    os.LookupEnv,
		Stdin:     stdin,
		Stderr:    os.Stderr,
		Overwrite: *overwriteFlag,
	}
	if !*skipVerifyFlag {
		runner.Connector = PgxConnector{}
	}

	if err := runner.Run(ctx); err != nil {
		logger.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}

	if *exportEnvFlag {
		if err := os.WriteFile(*exportEnvPath, []byte(ExportPointers(ssmMgr, runner.Inventory)), 0o600); err != nil {
			logger.Error("failed to export pointers", "path", *exportEnvPath, "error", err)
			os.Exit(1)
		}
		logger.Info("SSM pointers exported", "path", *exportEnvPath)
	}
}

// initializeSession loads the AWS config and confirms the caller identity.
func initializeSession(ctx context.Context, env, profile, region string) (*Session, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	if profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	identityCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	identity, err := sts.NewFromConfig(cfg).GetCallerIdentity(identityCtx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return nil, fmt.Errorf("verifying AWS identity (STS GetCallerIdentity): %w\n"+
			"  Profile: %q, Region: %q", err, profile, region)
	}

	return &Session{
		Environment: env,
		Region:      cfg.Region,
		AccountID:   aws.ToString(identity.Account),
		CallerARN:   aws.ToString(identity.Arn),
		AWSConfig:   cfg,
	}, nil
}

// confirmProduction requires the operator to type "yes".
func confirmProduction(sess *Session, in *bufio.Scanner) bool {
	fmt.Fprintf(os.Stderr, "\nYou are about to write PRODUCTION parameters in account %s (%s).\n", sess.AccountID, sess.Region)
	fmt.Fprint(os.Stderr, "Type 'yes' to continue: ")
	if !in.Scan() {
		return false
	}
	return strings.TrimSpace(in.Text()) == "yes"
}
