package summary

import (
	"context"
	"runtime"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/earthref/KDD/internal/kdd/contribution"
	"github.com/earthref/KDD/internal/kdd/datamodel"
	"github.com/earthref/KDD/internal/kdd/vocab"
)

const tracerName = "github.com/earthref/KDD/internal/kdd/summary"

// pass is the state threaded through the stages of one run. Each run owns
// its pass; nothing in it is shared with other runs.
type pass struct {
	mode         Mode
	model        *datamodel.Model
	vocabularies *vocab.Set
	resolver     ReferenceResolver
	yield        func(context.Context) error

	contribution contribution.Contribution
	doc          *Document
	report       *Report
}

// stage is one step of the pipeline.
type stage struct {
	name string
	run  func(context.Context, *pass) (*pass, error)
}

func stagesFor(mode Mode) []stage {
	if mode == ModeCounts {
		return []stage{
			{"summarize_tables", summarizeTables},
			{"enrich_reference", enrichReference},
			{"adopt_children", adoptChildren},
			{"aggregate_all", aggregateAll},
			{"consolidate", consolidate},
		}
	}
	return []stage{
		{"summarize_tables", summarizeTables},
		{"enrich_reference", enrichReference},
		{"adopt_children", adoptChildren},
		{"inherit_parents", inheritParents},
		{"aggregate_all", aggregateAll},
		{"consolidate", consolidate},
	}
}

// runStages runs stages strictly in order, each in its own span, handing the
// pass returned by one stage to the next.
func runStages(ctx context.Context, p *pass, stages []stage) (*pass, error) {
	tracer := otel.Tracer(tracerName)
	for _, s := range stages {
		stageCtx, span := tracer.Start(ctx, "summary."+s.name, trace.WithAttributes(
			attribute.String("kdd.summary.stage", s.name),
			attribute.String("kdd.summary.mode", p.mode.String()),
		))
		next, err := s.run(stageCtx, p)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.End()
			return next, err
		}
		span.SetAttributes(
			attribute.Int("kdd.summary.tables", len(next.doc.tables)),
			attribute.Int("kdd.summary.groups", len(next.doc.keys)),
		)
		span.End()
		p = next
	}
	return p, nil
}

// cooperativeYield lets other goroutines run between tables and stops when
// the caller has given up.
func cooperativeYield(ctx context.Context) error {
	runtime.Gosched()
	return ctx.Err()
}
