// Command dashboard rebuilds the pipeline dashboard. Inside Lambda it serves
// scheduled invocations; anywhere else it runs once and exits.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/siqueiraa/pipemetrics/pkg/app"
	"github.com/siqueiraa/pipemetrics/pkg/config"
	"github.com/siqueiraa/pipemetrics/pkg/dashboard"
)

func main() {
	log.Println("[Dashboard] Starting...")

	if err := run(context.Background()); err != nil {
		log.Fatalf("[Dashboard] %v", err)
	}
}

// run leaves exiting to main so the deferred Close always runs.
func run(ctx context.Context) error {
	cfg := config.Load(os.Getenv("PIPEMETRICS_CONFIG"))
	env, err := app.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer env.Close()

	gen := env.Generator()
	if inLambda() {
		lambda.Start(handler(gen))
		return nil
	}
	return handler(gen)(ctx)
}

func inLambda() bool {
	return os.Getenv("AWS_LAMBDA_RUNTIME_API") != ""
}

func handler(gen *dashboard.Generator) func(context.Context) error {
	return func(ctx context.Context) error {
		_, err := gen.Generate(ctx)
		return err
	}
}
