package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsCollector/internal/domain"
)

type recordingNotifier struct {
	messages []string
}

func (n *recordingNotifier) PublishRunSummary(_ context.Context, summary string) error {
	n.messages = append(n.messages, summary)
	return nil
}

type manualDriver struct {
	job func(time.Time)
}

func (d *manualDriver) Start(_ context.Context, job func(time.Time)) error {
	d.job = job
	return nil
}

func (d *manualDriver) Stop(context.Context) error { return nil }

func TestSchedulerRunsAndRecords(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil, 1, nil)
	ctx := context.Background()
	notifier := &recordingNotifier{}
	driver := &manualDriver{}

	s := NewScheduler(driver, f.pipeline, f.repo, notifier, nil)
	require.NoError(t, s.Start(ctx))
	require.NotNil(t, driver.job)

	driver.job(testNow)

	last, ok, err := f.repo.GetSetting(ctx, settingLastCronRun)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2025-06-10T08:00:00Z", last)

	require.Len(t, notifier.messages, 1)
	assert.Contains(t, notifier.messages[0], "2/3 sources succeeded, 5 new articles")
	assert.Contains(t, notifier.messages[0], "- B: failed (HTTP 500)")
	require.NoError(t, s.Stop(ctx))
}

func TestSchedulerHonorsDisabledSetting(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil, 1, nil)
	ctx := context.Background()
	require.NoError(t, f.repo.SetSetting(ctx, settingScheduleEnabled, "false"))

	notifier := &recordingNotifier{}
	ran, err := NewScheduler(nil, f.pipeline, f.repo, notifier, nil).RunScheduled(ctx, testNow)
	require.NoError(t, err)
	assert.False(t, ran)
	assert.Empty(t, notifier.messages)

	_, ok, err := f.repo.GetSetting(ctx, settingLastCronRun)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFormatSummary(t *testing.T) {
	t.Parallel()

	got := FormatSummary(domain.RunResult{
		SourcesAttempted: 2,
		SourcesSucceeded: 1,
		ArticlesInserted: 4,
		PerSource: []domain.SourceResult{
			{SourceID: "a", Status: domain.RunSuccess, Count: 4},
			{SourceID: "b", SourceName: "B", Status: domain.RunFailed, Error: "HTTP 503"},
		},
	})
	assert.Equal(t, "Collection finished: 1/2 sources succeeded, 4 new articles\n- a: 4\n- B: failed (HTTP 503)", got)
}
