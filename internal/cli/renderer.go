package cli

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/walt0white1/prospectflow-sub000/internal/progress"
	"github.com/walt0white1/prospectflow-sub000/internal/prospect"
)

// Renderer prints search events as human-readable lines. When the output is
// interactive, enrichment progress is drawn as a bar.
type Renderer struct {
	mu          sync.Mutex
	w           io.Writer
	interactive bool
	bar         *progressbar.ProgressBar
	center      *prospect.GeoPoint
	final       error
}

// NewRenderer returns a Renderer writing to w.
func NewRenderer(w io.Writer, interactive bool) *Renderer {
	return &Renderer{w: w, interactive: interactive}
}

// Emit implements progress.Emitter.
func (r *Renderer) Emit(evt progress.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch evt.Stage {
	case progress.StageStatus:
		r.finishBar()
		r.line(FormatStep(evt.Message))
	case progress.StageGeocode:
		r.center = &prospect.GeoPoint{Lat: evt.Lat, Lng: evt.Lng, CanonicalName: evt.City, DisplayName: evt.DisplayName}
		r.line(FormatSuccess(fmt.Sprintf("%s (%.4f, %.4f)", evt.DisplayName, evt.Lat, evt.Lng)))
	case progress.StageOverpass:
		r.line(FormatSuccess(fmt.Sprintf("%d businesses found", evt.Count)))
	case progress.StageScored:
		r.line(FormatSuccess(fmt.Sprintf("%d candidates scored", len(evt.Candidates))))
	case progress.StageEnrich:
		r.enrich(evt)
	case progress.StageDone:
		r.finishBar()
		r.line("")
		if err := RenderCandidates(r.w, evt.Candidates, r.center); err != nil {
			r.final = err
		}
		r.line(SubtleStyle.Render(fmt.Sprintf("Done in %s", evt.Dur.Round(time.Millisecond))))
	case progress.StageError:
		r.finishBar()
		r.line(FormatError(evt.Message))
		r.final = fmt.Errorf("search failed: %s", evt.Message)
	}
}

// Err returns the terminal error of the rendered run, if any.
func (r *Renderer) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.final
}

func (r *Renderer) enrich(evt progress.Event) {
	if !r.interactive {
		r.line(FormatStep(fmt.Sprintf("[%d/%d] %s", evt.Index+1, evt.Total, evt.Name)))
		return
	}
	if r.bar == nil {
		r.bar = progressbar.NewOptions(evt.Total,
			progressbar.OptionSetWriter(r.w),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetDescription("Enriching"),
			progressbar.OptionClearOnFinish(),
		)
	}
	r.bar.Describe(evt.Name)
	_ = r.bar.Set(evt.Index + 1)
}

func (r *Renderer) finishBar() {
	if r.bar == nil {
		return
	}
	_ = r.bar.Finish()
	r.bar = nil
	r.line("")
}

func (r *Renderer) line(s string) {
	fmt.Fprintln(r.w, s)
}
