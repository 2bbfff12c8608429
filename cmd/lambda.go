package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/spf13/cobra"

	"byom-relay/internal/dependency"
)

var lambdaCmd = &cobra.Command{
	Use:   "lambda",
	Short: "Run the relay behind API Gateway on AWS Lambda",
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		c, err := dependency.New(context.Background(), cfg)
		if err != nil {
			return err
		}
		defer c.Close()

		lambda.Start(c.Handler().Handle)
		return nil
	},
}
