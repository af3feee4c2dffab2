// Package pipeline runs topics one after another and merges their decks.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/monitoring-deck/internal/artifact"
	"github.com/jonathan/monitoring-deck/internal/config"
	"github.com/jonathan/monitoring-deck/internal/db"
	"github.com/jonathan/monitoring-deck/internal/merge"
	"github.com/jonathan/monitoring-deck/internal/observability"
	"github.com/jonathan/monitoring-deck/internal/rendering"
	"github.com/jonathan/monitoring-deck/internal/skeleton"
	"github.com/jonathan/monitoring-deck/internal/tabular"
	"github.com/jonathan/monitoring-deck/internal/thresholds"
	"github.com/jonathan/monitoring-deck/internal/types"
)

// Progress steps.
const (
	StepThresholds = "thresholds"
	StepBuildTopic = "build_topic"
	StepPublish    = "publish"
	StepMerge      = "merge"
)

// ProgressEvent represents a progress update during pipeline execution
type ProgressEvent struct {
	Step    string        `json:"step"`
	Topic   types.TopicID `json:"topic,omitempty"`
	Message string        `json:"message"`
	Content any           `json:"content,omitempty"`
}

// ProgressCallback is called when pipeline progress occurs
type ProgressCallback func(event ProgressEvent)

// Recorder persists topic runs and merged decks. *db.DB satisfies it.
type Recorder interface {
	SaveTopicArtifact(ctx context.Context, a *db.TopicArtifact) error
	SaveMergedDeck(ctx context.Context, d *db.MergedDeck) (int64, error)
}

// Engine holds what every topic run and merge of a session shares.
type Engine struct {
	Thresholds thresholds.Store
	Style      skeleton.Resolved
	Logger     *zap.Logger
	OnProgress ProgressCallback

	// Optional sinks. SessionID keys both.
	SessionID uuid.UUID
	Store     artifact.Store
	Recorder  Recorder
}

// Topic is the input of one topic run.
type Topic struct {
	ID           types.TopicID
	Title        string
	TableTitle   string
	ChartTitle   string
	MetricType   string
	Table        types.Table
	Chart        []byte
	Target       types.ClassificationTarget
	DataComment  string
	GraphComment string
}

// TopicFailure is a topic whose deck could not be built.
type TopicFailure struct {
	Topic types.TopicID
	Err   error
}

// MergeOptions selects the restyle table of a merge.
type MergeOptions struct {
	// Restyle is used when set. Otherwise RestyleMode picks the default
	// table or one derived from the merged decks.
	Restyle            merge.RestyleTable
	RestyleMode        string
	PreserveBackground bool
}

// MergeResult is a merged deck and what went into it.
type MergeResult struct {
	Deck     []byte
	Report   merge.Report
	Revision int
	Missing  []types.TopicID
}

// RunResult is the outcome of Run.
type RunResult struct {
	Records []artifact.Record
	Failed  []TopicFailure
	Merge   *MergeResult
}

func (e *Engine) logger() *zap.Logger {
	return observability.OrNop(e.Logger)
}

// emitProgress calls the progress callback if configured
func (e *Engine) emitProgress(step string, topic types.TopicID, message string, content any) {
	if e.OnProgress != nil {
		e.OnProgress(ProgressEvent{Step: step, Topic: topic, Message: message, Content: content})
	}
}

// RunTopic classifies the topic's target cell and builds its deck. Missing
// thresholds leave the topic unclassified; a malformed chart fails the topic.
func (e *Engine) RunTopic(ctx context.Context, t Topic) (artifact.Record, error) {
	log := e.logger().With(zap.String("topic", string(t.ID)))

	var cfg *types.ThresholdConfig
	if t.MetricType != "" {
		resolved, source, err := thresholds.Resolve(ctx, e.Thresholds, t.MetricType)
		switch {
		case errors.Is(err, thresholds.ErrConfigMissing):
			log.Warn("no thresholds, topic stays unclassified", zap.String("metric_type", t.MetricType))
		case err != nil:
			return artifact.Record{}, fmt.Errorf("topic %s: %w", t.ID, err)
		default:
			cfg = resolved
			if verr := cfg.Validate(); verr != nil {
				log.Warn("misconfigured thresholds", zap.String("metric_type", t.MetricType), zap.Error(verr))
			}
			e.emitProgress(StepThresholds, t.ID, fmt.Sprintf("using %s thresholds for %s", source, t.MetricType), cfg)
		}
	}

	data, built, err := rendering.Build(rendering.TopicInput{
		Topic:        t.ID,
		Title:        t.Title,
		TableTitle:   t.TableTitle,
		ChartTitle:   t.ChartTitle,
		MetricType:   t.MetricType,
		Table:        t.Table,
		ChartImage:   t.Chart,
		Target:       t.Target,
		Thresholds:   cfg,
		DataComment:  t.DataComment,
		GraphComment: t.GraphComment,
		Style:        e.Style,
	})
	if err != nil {
		return artifact.Record{}, err
	}

	rec := artifact.Record{
		Artifact: types.TopicArtifact{
			Topic:        t.ID,
			Title:        t.Title,
			MetricType:   t.MetricType,
			Table:        t.Table,
			ChartImage:   t.Chart,
			Thresholds:   cfg,
			Target:       t.Target,
			Band:         built.Band,
			DataComment:  t.DataComment,
			GraphComment: t.GraphComment,
		},
		Deck:       data,
		Slides:     built.Deck.Len(),
		Classified: built.Classified,
	}
	log.Info("built topic deck", zap.String("band", string(built.Band)), zap.Int("slides", rec.Slides))
	e.emitProgress(StepBuildTopic, t.ID, fmt.Sprintf("built %d slides, band %s", rec.Slides, built.Band), built.Band)
	return rec, nil
}

// Publish stores rec in the collector and writes it to the configured sinks.
// Sink failures are logged and do not fail the topic.
func (e *Engine) Publish(ctx context.Context, c *artifact.Collector, rec artifact.Record) int {
	rev := c.Publish(rec)
	topic := rec.Artifact.Topic

	if e.Store != nil {
		path := "topics/" + string(topic) + ".pptx"
		if err := e.Store.Put(ctx, e.SessionID.String(), path, rec.Deck); err != nil {
			e.logger().Warn("failed to store topic deck", zap.String("path", path), zap.Error(err))
		}
	}
	if e.Recorder != nil {
		err := e.Recorder.SaveTopicArtifact(ctx, &db.TopicArtifact{
			SessionID: e.SessionID,
			Topic:     topic,
			Revision:  rev,
			Band:      rec.Artifact.Band,
			Slides:    rec.Slides,
			Artifact:  rec.Artifact,
			Deck:      rec.Deck,
		})
		if err != nil {
			e.logger().Warn("failed to record topic artifact", zap.String("topic", string(topic)), zap.Error(err))
		}
	}
	e.emitProgress(StepPublish, topic, fmt.Sprintf("published revision %d", rev), nil)
	return rev
}

// Merge merges the collector's decks in the given topic order. It returns a
// *artifact.NotReadyError when none of the topics has been published.
func (e *Engine) Merge(ctx context.Context, c *artifact.Collector, order []types.TopicID, opts MergeOptions) (*MergeResult, error) {
	revision := c.Revision()
	records, missing, err := c.Ordered(order)
	if err != nil {
		return nil, err
	}

	inputs := make([]merge.Input, len(records))
	counts := make([]int, len(records))
	for i, r := range records {
		inputs[i] = merge.Input{Name: string(r.Artifact.Topic), Data: r.Deck}
		counts[i] = r.Slides
	}

	table := opts.Restyle
	if table == nil {
		if opts.RestyleMode == config.RestyleModeTopic {
			table = merge.TopicRestyleTable(counts)
		} else {
			table = merge.DefaultRestyleTable()
		}
	}

	m := merge.NewMerger(e.Style, e.logger())
	m.Restyle = table
	m.PreserveBackground = opts.PreserveBackground
	data, report, err := m.MergeBytes(inputs)
	if err != nil {
		return nil, err
	}

	if e.Store != nil {
		if err := e.Store.Put(ctx, e.SessionID.String(), "merged.pptx", data); err != nil {
			e.logger().Warn("failed to store merged deck", zap.Error(err))
		}
	}
	if e.Recorder != nil {
		_, err := e.Recorder.SaveMergedDeck(ctx, &db.MergedDeck{
			SessionID: e.SessionID,
			Revision:  revision,
			Slides:    report.Slides,
			Missing:   missing,
			Deck:      data,
		})
		if err != nil {
			e.logger().Warn("failed to record merged deck", zap.Error(err))
		}
	}

	e.emitProgress(StepMerge, "", fmt.Sprintf("merged %d decks into %d slides", len(records), report.Slides), report)
	return &MergeResult{Deck: data, Report: report, Revision: revision, Missing: missing}, nil
}

// Run executes every topic in order, publishing each result to c, then
// merges what was published. A failing topic is recorded and skipped; the
// run only fails when nothing could be merged.
func (e *Engine) Run(ctx context.Context, c *artifact.Collector, topics []Topic, opts MergeOptions) (*RunResult, error) {
	result := &RunResult{}
	order := make([]types.TopicID, len(topics))

	for i, t := range topics {
		order[i] = t.ID
		if err := ctx.Err(); err != nil {
			return result, err
		}

		rec, err := e.RunTopic(ctx, t)
		if err != nil {
			e.logger().Error("topic failed", zap.String("topic", string(t.ID)), zap.Error(err))
			result.Failed = append(result.Failed, TopicFailure{Topic: t.ID, Err: err})
			continue
		}
		e.Publish(ctx, c, rec)
		result.Records = append(result.Records, rec)
	}

	merged, err := e.Merge(ctx, c, order, opts)
	if err != nil {
		return result, err
	}
	result.Merge = merged
	return result, nil
}

// LoadTopic reads the table and chart files named by spec.
func LoadTopic(spec config.TopicSpec) (Topic, error) {
	table, err := tabular.LoadTable(spec.Table)
	if err != nil {
		return Topic{}, fmt.Errorf("topic %s: %w", spec.ID, err)
	}
	chart, err := os.ReadFile(spec.Chart)
	if err != nil {
		return Topic{}, fmt.Errorf("topic %s: failed to read chart: %w", spec.ID, err)
	}
	return Topic{
		ID:           types.TopicID(spec.ID),
		Title:        spec.Title,
		TableTitle:   spec.TableTitle,
		ChartTitle:   spec.ChartTitle,
		MetricType:   spec.MetricType,
		Table:        *table,
		Chart:        chart,
		Target:       spec.Target(),
		DataComment:  spec.DataComment,
		GraphComment: spec.GraphComment,
	}, nil
}
