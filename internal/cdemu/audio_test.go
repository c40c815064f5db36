package cdemu

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(disc *DiscImage) (*AudioEngine, *sync.Mutex) {
	var mu sync.Mutex
	e := NewAudioEngine(NullSink{}, nil, &mu, nil)

	return e, &mu
}

func TestAudioEngine_StartPauseResumeStop(t *testing.T) {
	disc := newTestDisc(4, 8)
	e, _ := newTestEngine(disc)

	require.Equal(t, AudioNoStatus, e.Status())

	require.NoError(t, e.Start(4, 11, disc))
	assert.Equal(t, AudioPlaying, e.Status())

	require.NoError(t, e.Pause())
	assert.Equal(t, AudioPaused, e.Status())

	require.NoError(t, e.Resume())
	assert.Equal(t, AudioPlaying, e.Status())

	e.Stop()
	assert.Equal(t, AudioNoStatus, e.Status())
}

func TestAudioEngine_PauseFromNoStatusFails(t *testing.T) {
	disc := newTestDisc(4, 8)
	e, _ := newTestEngine(disc)

	assert.ErrorIs(t, e.Pause(), errInvalidState)
}

func TestAudioEngine_ResumeFromPlayingFails(t *testing.T) {
	disc := newTestDisc(4, 8)
	e, _ := newTestEngine(disc)

	require.NoError(t, e.Start(4, 11, disc))
	assert.ErrorIs(t, e.Resume(), errInvalidState)

	e.Stop()
}

func TestAudioEngine_CompletesAtEndBoundary(t *testing.T) {
	disc := newTestDisc(4, 1) // One audio sector: LBA 4.
	e, _ := newTestEngine(disc)

	require.NoError(t, e.Start(4, 4, disc))

	require.Eventually(t, func() bool {
		return e.Status() == AudioCompleted
	}, time.Second, time.Millisecond)
}

func TestAudioEngine_DoubleStartFails(t *testing.T) {
	disc := newTestDisc(4, 8)
	e, _ := newTestEngine(disc)

	require.NoError(t, e.Start(4, 11, disc))
	assert.ErrorIs(t, e.Start(4, 11, disc), errInvalidState)

	e.Stop()
}
