package build

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/sitepress/internal/logfields"
	"git.home.luguber.info/inful/sitepress/internal/metrics"
	"git.home.luguber.info/inful/sitepress/internal/site"
)

// StageName identifies a build stage.
type StageName string

// Canonical stage names, in execution order.
const (
	StageSetup    StageName = "setup"
	StageRead     StageName = "read"
	StageGenerate StageName = "generate"
	StageConvert  StageName = "convert"
	StageRender   StageName = "render"
	StageCleanup  StageName = "cleanup"
	StageWrite    StageName = "write"
)

// Stage is a discrete unit of work in the site build.
type Stage func(ctx context.Context, bs *buildState) error

type stageDef struct {
	name StageName
	fn   Stage
}

// buildState carries the site under construction across stages.
type buildState struct {
	site   *site.Site
	report *Report
	// outputs maps every file the build produces, relative to the
	// destination directory, to its producer's URL.
	outputs map[string]string
	// orphans are destination files no longer produced by the build.
	orphans []string
}

func (b *Builder) stages() []stageDef {
	return []stageDef{
		{StageSetup, b.stageSetup},
		{StageRead, b.stageRead},
		{StageGenerate, b.stageGenerate},
		{StageConvert, b.stageConvert},
		{StageRender, b.stageRender},
		{StageCleanup, b.stageCleanup},
		{StageWrite, b.stageWrite},
	}
}

// runStages executes stages in order, recording timing and stopping on the
// first error.
func runStages(ctx context.Context, bs *buildState, stages []stageDef, recorder metrics.Recorder) error {
	for _, st := range stages {
		if err := ctx.Err(); err != nil {
			se := newCanceledStageError(st.name, err)
			bs.report.recordStage(st.name, 0, se)
			recorder.IncStageResult(string(st.name), metrics.ResultCanceled)
			return se
		}

		t0 := time.Now()
		err := st.fn(ctx, bs)
		dur := time.Since(t0)
		recorder.ObserveStageDuration(string(st.name), dur)

		if err == nil {
			bs.report.recordStage(st.name, dur, nil)
			recorder.IncStageResult(string(st.name), metrics.ResultSuccess)
			slog.Debug("Stage complete",
				logfields.BuildID(bs.report.ID),
				logfields.Stage(string(st.name)),
				logfields.DurationMS(float64(dur.Microseconds())/1000))
			continue
		}

		var se *StageError
		switch {
		case errors.As(err, &se):
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			se = newCanceledStageError(st.name, err)
		default:
			se = newFatalStageError(st.name, err)
		}
		bs.report.recordStage(st.name, dur, se)
		if se.Kind == StageErrorCanceled {
			recorder.IncStageResult(string(st.name), metrics.ResultCanceled)
		} else {
			recorder.IncStageResult(string(st.name), metrics.ResultFatal)
		}
		return se
	}
	return nil
}
