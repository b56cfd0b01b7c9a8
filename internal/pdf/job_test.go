package pdf

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"layout-translator/internal/guard"
)

func newTestJob(doc *fakeDoc, tr *fakeSegments, lc Lifecycle) *Job {
	acq := NewAcquirer(doc, nil, AcquireOptions{})
	r := NewRenderer(tr, RenderOptions{MinFont: 6})
	return NewJob(doc, acq, r, lc)
}

func TestJobRun(t *testing.T) {
	doc := newFakeDoc(3)
	doc.blocks[1] = nativePage()
	doc.blocks[3] = nativePage()
	tr := &fakeSegments{stats: guard.DispatchStats{Accepted: 4, Reverted: 1, Substituted: 2}}
	lc := &fakeLifecycle{}
	job := newTestJob(doc, tr, lc)

	var pages []int
	job.SetProgressCallback(func(page, total int) {
		assert.Equal(t, 3, total)
		pages = append(pages, page)
	})

	c, err := job.Run(context.Background(), "out.pdf")
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3}, pages)
	assert.Equal(t, []string{"out.pdf"}, doc.saved)
	assert.Equal(t, 1, lc.acquires)
	assert.Equal(t, 1, lc.ends)

	assert.Equal(t, 3, c.Pages)
	assert.Equal(t, 6, c.Regions)
	assert.Equal(t, 2, c.Footers)
	assert.Equal(t, 4, c.Accepted)
	assert.Equal(t, 1, c.Reverted)
	assert.Equal(t, 2, c.Substituted)
	assert.Zero(t, c.PageFailures)

	// the empty page is still written, untouched
	require.Len(t, doc.writers, 3)
	assert.Equal(t, []string{"finish"}, doc.writers[1].ops)

	st := job.Status()
	assert.Equal(t, PhaseComplete, st.Phase)
	assert.Equal(t, 100, st.Progress)
	assert.Equal(t, c, st.Counters)
	assert.True(t, st.IsValidStatus())
}

func TestJobLoadFailure(t *testing.T) {
	doc := newFakeDoc(1)
	doc.blocks[1] = nativePage()
	lc := &fakeLifecycle{acquireErr: errors.New("connection refused")}
	job := newTestJob(doc, &fakeSegments{}, lc)

	_, err := job.Run(context.Background(), "out.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")

	assert.Empty(t, doc.saved)
	assert.Empty(t, doc.writers)
	assert.Equal(t, 1, lc.ends)
	st := job.Status()
	assert.Equal(t, PhaseError, st.Phase)
	assert.NotEmpty(t, st.Error)
}

func TestJobCancelled(t *testing.T) {
	doc := newFakeDoc(2)
	lc := &fakeLifecycle{}
	job := newTestJob(doc, &fakeSegments{}, lc)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := job.Run(ctx, "out.pdf")

	var perr *PDFError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ErrCancelled, perr.Code)
	assert.Equal(t, 1, perr.Page)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, doc.saved)
	assert.Equal(t, 1, lc.ends)
}

func TestJobPageFailureIsNotFatal(t *testing.T) {
	doc := newFakeDoc(2)
	doc.blocks[1] = nativePage()
	doc.blocks[2] = nativePage()
	doc.pageErr[1] = NewPDFErrorWithPage(ErrOpenFailed, "cannot import page", 1, nil)
	job := newTestJob(doc, &fakeSegments{}, nil)

	c, err := job.Run(context.Background(), "out.pdf")
	require.NoError(t, err)
	assert.Equal(t, 2, c.Pages)
	assert.Equal(t, 1, c.PageFailures)
	assert.Equal(t, 3, c.Regions)
	assert.Equal(t, []string{"out.pdf"}, doc.saved)
}

func TestJobSaveFailure(t *testing.T) {
	doc := newFakeDoc(1)
	doc.saveErr = NewPDFError(ErrSaveFailed, "cannot write PDF", errors.New("disk full"))
	lc := &fakeLifecycle{}
	job := newTestJob(doc, &fakeSegments{}, lc)

	_, err := job.Run(context.Background(), "out.pdf")
	var perr *PDFError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ErrSaveFailed, perr.Code)
	assert.True(t, perr.Fatal())
	assert.Equal(t, PhaseError, job.Status().Phase)
	assert.Equal(t, 1, lc.ends)
}

func TestPDFError(t *testing.T) {
	cause := errors.New("boom")
	err := NewPDFErrorWithPage(ErrInsertion, "cannot draw text", 3, cause)
	assert.Equal(t, "page 3: cannot draw text: boom", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.False(t, err.Fatal())

	err = NewPDFErrorWithDetails(ErrInvalidInput, "document has no pages", "a.pdf", nil)
	assert.Equal(t, "document has no pages: a.pdf", err.Error())
	assert.True(t, err.Fatal())
}

func TestJobStatusValidity(t *testing.T) {
	assert.True(t, IsValidPhase(PhaseRendering))
	assert.False(t, IsValidPhase(JobPhase("compiling")))

	st := JobStatus{Phase: PhaseTranslating, Progress: 50, Page: 1, TotalPages: 2}
	assert.True(t, st.IsValidStatus())
	st.Progress = 120
	assert.False(t, st.IsValidStatus())
}
