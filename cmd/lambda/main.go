// Package main is the entry point for the pipeline Lambda function.
package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"lingua-flow-go/internal/app"
	"lingua-flow-go/internal/config"
	"lingua-flow-go/internal/logger"
)

func main() {
	bootLog := logger.New()
	cfg, err := config.Load()
	if err != nil {
		bootLog.WithError(err).Fatal("invalid configuration")
	}
	log := logger.NewWith(cfg.Environment, cfg.LogLevel, os.Stdout)

	a, err := app.Build(context.Background(), cfg, log.Entry)
	if err != nil {
		log.WithError(err).Fatal("failed to build pipeline")
	}

	h := newHandler(a.Composer, cfg.MaxUploadBytes, log.WithField("component", "lambda"))
	lambda.Start(h.Handle)
}
