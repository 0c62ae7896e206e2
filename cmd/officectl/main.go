package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"

	"github.com/wolfman30/office-portal/cmd/mainconfig"
	"github.com/wolfman30/office-portal/internal/cli"
	appconfig "github.com/wolfman30/office-portal/internal/config"
	"github.com/wolfman30/office-portal/internal/csvexport"
	"github.com/wolfman30/office-portal/internal/session"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	root := cli.NewRootCmd(cli.Options{
		Config: cfg,
		Err:    os.Stderr,
		S3: func(ctx context.Context) (csvexport.S3API, error) {
			awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
			if err != nil {
				return nil, err
			}
			return mainconfig.NewS3Client(awsCfg, cfg), nil
		},
		Dynamo: func(ctx context.Context) (session.DynamoAPI, error) {
			awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
			if err != nil {
				return nil, err
			}
			return mainconfig.NewDynamoClient(awsCfg), nil
		},
	})
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
