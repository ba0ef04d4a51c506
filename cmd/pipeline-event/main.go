// Command pipeline-event is the Lambda function EventBridge invokes for each
// CodePipeline state change.
package main

import (
	"context"
	"encoding/json"
	"log"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/siqueiraa/pipemetrics/pkg/app"
	"github.com/siqueiraa/pipemetrics/pkg/config"
	"github.com/siqueiraa/pipemetrics/pkg/event"
	"github.com/siqueiraa/pipemetrics/pkg/translator"
)

func main() {
	log.Println("[PipelineEvent] Starting...")

	cfg := config.Load(os.Getenv("PIPEMETRICS_CONFIG"))
	env, err := app.Open(context.Background(), cfg)
	if err != nil {
		log.Fatalf("[PipelineEvent] Failed to initialize: %v", err)
	}
	defer env.Close()

	lambda.Start(handler(env.Translator()))
}

// handler decodes one EventBridge payload and translates it. Errors are
// returned to the runtime, whose retry policy decides on redelivery.
func handler(tr *translator.Translator) func(context.Context, json.RawMessage) error {
	return func(ctx context.Context, raw json.RawMessage) error {
		e, err := event.Parse(raw)
		if err != nil {
			return err
		}

		data, err := tr.Handle(ctx, &e)
		if err != nil {
			log.Printf("[PipelineEvent] Failed to handle %s for %s: %v", e.DetailType, e.Resource(), err)
			return err
		}
		log.Printf("[PipelineEvent] %s %s %s -> %d datum(s)", e.DetailType, e.Resource(), e.Detail.State, len(data))
		return nil
	}
}
