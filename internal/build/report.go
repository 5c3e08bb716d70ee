package build

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// ReportFile is the name of the persisted report inside the work directory.
const ReportFile = "build-report.json"

// StageCount aggregates outcomes for a stage.
type StageCount struct {
	Success  int `json:"success"`
	Fatal    int `json:"fatal"`
	Canceled int `json:"canceled"`
}

// Report captures what one Build call did.
type Report struct {
	ID             string
	Start          time.Time
	End            time.Time
	Status         Status
	SkipReason     string
	Pages          int
	Posts          int
	Generated      int
	Statics        int
	Written        int
	Copied         int
	Removed        int
	CacheHits      int64
	CacheMisses    int64
	StageDurations map[StageName]time.Duration
	StageCounts    map[StageName]StageCount
	Errors         []error
}

func newReport() *Report {
	return &Report{
		ID:             uuid.NewString(),
		Start:          time.Now(),
		StageDurations: make(map[StageName]time.Duration),
		StageCounts:    make(map[StageName]StageCount),
	}
}

func (r *Report) finish(status Status) {
	r.End = time.Now()
	r.Status = status
}

// Duration returns the wall time of the build.
func (r *Report) Duration() time.Duration { return r.End.Sub(r.Start) }

// Summary returns a human-readable single-line summary.
func (r *Report) Summary() string {
	return fmt.Sprintf("pages=%d posts=%d generated=%d statics=%d written=%d copied=%d removed=%d duration=%s status=%s",
		r.Pages, r.Posts, r.Generated, r.Statics, r.Written, r.Copied, r.Removed,
		r.Duration().Truncate(time.Millisecond), r.Status)
}

func (r *Report) recordStage(stage StageName, d time.Duration, se *StageError) {
	r.StageDurations[stage] = d
	sc := r.StageCounts[stage]
	switch {
	case se == nil:
		sc.Success++
	case se.Kind == StageErrorCanceled:
		sc.Canceled++
		r.Errors = append(r.Errors, se)
	default:
		sc.Fatal++
		r.Errors = append(r.Errors, se)
	}
	r.StageCounts[stage] = sc
}

// Persist writes the report to dir/build-report.json through a temporary
// file and rename.
func (r *Report) Persist(fsys afero.Fs, dir string) error {
	if err := fsys.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("ensure report dir: %w", err)
	}
	jb, err := json.MarshalIndent(r.serializable(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report json: %w", err)
	}
	path := filepath.Join(dir, ReportFile)
	tmp := path + ".tmp"
	if err := afero.WriteFile(fsys, tmp, jb, 0o644); err != nil {
		return fmt.Errorf("write temp report json: %w", err)
	}
	if err := fsys.Rename(tmp, path); err != nil {
		return fmt.Errorf("atomic rename json: %w", err)
	}
	return nil
}

// ReportJSON is the persisted form of a Report.
type ReportJSON struct {
	ID             string                `json:"id"`
	Start          time.Time             `json:"start"`
	End            time.Time             `json:"end"`
	Status         Status                `json:"status"`
	SkipReason     string                `json:"skip_reason,omitempty"`
	Pages          int                   `json:"pages"`
	Posts          int                   `json:"posts"`
	Generated      int                   `json:"generated"`
	Statics        int                   `json:"statics"`
	Written        int                   `json:"written"`
	Copied         int                   `json:"copied"`
	Removed        int                   `json:"removed"`
	CacheHits      int64                 `json:"cache_hits"`
	CacheMisses    int64                 `json:"cache_misses"`
	StageDurations map[string]int64      `json:"stage_durations_ms"`
	StageCounts    map[string]StageCount `json:"stage_counts"`
	Errors         []string              `json:"errors"`
}

func (r *Report) serializable() *ReportJSON {
	out := &ReportJSON{
		ID:             r.ID,
		Start:          r.Start,
		End:            r.End,
		Status:         r.Status,
		SkipReason:     r.SkipReason,
		Pages:          r.Pages,
		Posts:          r.Posts,
		Generated:      r.Generated,
		Statics:        r.Statics,
		Written:        r.Written,
		Copied:         r.Copied,
		Removed:        r.Removed,
		CacheHits:      r.CacheHits,
		CacheMisses:    r.CacheMisses,
		StageDurations: make(map[string]int64, len(r.StageDurations)),
		StageCounts:    make(map[string]StageCount, len(r.StageCounts)),
		Errors:         make([]string, len(r.Errors)),
	}
	for k, v := range r.StageDurations {
		out.StageDurations[string(k)] = v.Milliseconds()
	}
	for k, v := range r.StageCounts {
		out.StageCounts[string(k)] = v
	}
	for i, e := range r.Errors {
		out.Errors[i] = e.Error()
	}
	return out
}
