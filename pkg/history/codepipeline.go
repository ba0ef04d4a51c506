package history

import (
	"context"
	"fmt"
	"iter"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/codepipeline"
	"github.com/aws/aws-sdk-go-v2/service/codepipeline/types"
)

// CodePipeline is the Source backed by ListPipelineExecutions.
type CodePipeline struct {
	client codepipeline.ListPipelineExecutionsAPIClient
}

func NewCodePipeline(client codepipeline.ListPipelineExecutionsAPIClient) *CodePipeline {
	return &CodePipeline{client: client}
}

func (c *CodePipeline) Executions(ctx context.Context, pipeline string) iter.Seq2[Summary, error] {
	return func(yield func(Summary, error) bool) {
		pager := codepipeline.NewListPipelineExecutionsPaginator(c.client, &codepipeline.ListPipelineExecutionsInput{
			PipelineName: aws.String(pipeline),
		})
		for pager.HasMorePages() {
			page, err := pager.NextPage(ctx)
			if err != nil {
				yield(Summary{}, fmt.Errorf("list executions of %s: %w", pipeline, err))
				return
			}
			for _, e := range page.PipelineExecutionSummaries {
				if !yield(fromExecutionSummary(e), nil) {
					return
				}
			}
		}
	}
}

func fromExecutionSummary(e types.PipelineExecutionSummary) Summary {
	return Summary{
		ExecutionID:    aws.ToString(e.PipelineExecutionId),
		Status:         Status(e.Status),
		StartTime:      aws.ToTime(e.StartTime),
		LastUpdateTime: aws.ToTime(e.LastUpdateTime),
	}
}
