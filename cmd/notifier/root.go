package main

import (
	"context"

	"costwatch/internal/billing"
	"costwatch/internal/config"
	"costwatch/internal/email"
	"costwatch/internal/infra/log"
	"costwatch/internal/notifier"
	"costwatch/internal/store"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "notifier",
		Short:         "Daily AWS cost report notifier",
		Long:          "Queries AWS Cost Explorer for yesterday's spend and emails a summary via SES, with DynamoDB-backed deduplication.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.AddCommand(runCmd())
	cmd.AddCommand(serveCmd())
	return cmd
}

// deps bundles everything a job invocation needs.
type deps struct {
	cfg    config.Config
	log    zerolog.Logger
	job    *notifier.Job
	source *billing.Source
}

func buildDeps(ctx context.Context) (*deps, error) {
	cfg := config.Load()
	logger := log.NewLogger(cfg)

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}

	dynamoClient := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Notifier.DynamoEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Notifier.DynamoEndpoint)
		}
	})
	ceClient := costexplorer.NewFromConfig(awsCfg, func(o *costexplorer.Options) {
		o.Region = cfg.Notifier.CostExplorerRegion
	})
	sesClient := sesv2.NewFromConfig(awsCfg, func(o *sesv2.Options) {
		o.Region = cfg.Notifier.SESRegion
	})

	tracker := store.NewTracker(dynamoClient, cfg.Notifier.TrackingTable, logger)
	source := billing.NewSource(ceClient, logger)
	sender := email.NewSESSender(sesClient, cfg.Notifier.SenderEmail, cfg.Notifier.AdminEmail)

	job := notifier.New(tracker, source, sender,
		cfg.Notifier.RetryMaxAttempts, cfg.RetryBackoffBase(), logger)

	return &deps{cfg: cfg, log: logger, job: job, source: source}, nil
}
