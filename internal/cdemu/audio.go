package cdemu

/*------------------------------------------------------------------
 *
 * Purpose: Audio playback state machine (§4.5). A dedicated worker
 *		goroutine per device plays disc audio sectors through an
 *		AudioSink at (approximately) 1x rate, with PLAY/PAUSE/
 *		RESUME/STOP semantics and proper state transitions.
 *
 *------------------------------------------------------------------*/

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// AudioStatus is the audio sub-state of §3.
type AudioStatus int

const (
	AudioNoStatus AudioStatus = iota
	AudioPlaying
	AudioPaused
	AudioCompleted
	AudioError
)

// ascq is the progress-reporting ASCQ REQUEST SENSE returns while
// audio is anything but NO_STATUS (§4.3 REQUEST SENSE).
func (s AudioStatus) ascq() byte {
	switch s {
	case AudioPlaying:
		return 0x11
	case AudioPaused:
		return 0x12
	case AudioCompleted:
		return 0x13
	case AudioError:
		return 0x15
	default:
		return 0x00
	}
}

// errInvalidState is returned by AudioEngine methods called from a
// state that forbids the transition (§4.5).
var errInvalidState = newSense(SenseKeyIllegalRequest, 0x00, 0x00)

// audioSectorPeriod is the audio sector rate: one CD sector is 1/75s of
// 1x audio (§GLOSSARY MSF). The null sink sleeps this long per sector
// to preserve timing, per the Open Question in spec.md §9.
const audioSectorPeriod = time.Second / 75

const audioFrameBytes = 2352

// AudioSink is the abstract playback backend (§4.5, §1 non-goals: the
// real sink is out of scope). Open/Write/Close mirror an ALSA/portaudio
// style blocking write API.
type AudioSink interface {
	Open(sampleRate int, channels int) error
	Write(frame []byte) error
	Close() error
}

// NullSink discards audio and paces itself with audioSectorPeriod,
// the canonical "null driver" semantics fixed by spec.md §9's Open
// Question.
type NullSink struct{}

func (NullSink) Open(int, int) error { return nil }
func (NullSink) Write([]byte) error  { time.Sleep(audioSectorPeriod); return nil }
func (NullSink) Close() error        { return nil }

// AudioEngine drives one device's audio playback worker. It shares the
// owning Device's mutex: every sector fetch, cursor publish and advance
// happens under that single lock, per §4.5 step 2 ("Acquire device
// mutex; fetch sector ...; release mutex").
type AudioEngine struct {
	deviceMu *sync.Mutex

	mu       sync.Mutex // Guards only the fields below (state machine bookkeeping).
	status   AudioStatus
	curLBA   int32
	endLBA   int32
	disc     *DiscImage
	sink     AudioSink
	sinkOpen bool
	logger   *log.Logger

	stopCh chan struct{}
	doneCh chan struct{}

	publishCur func(lba int32)
}

// NewAudioEngine constructs an engine around a sink and a cursor
// publisher; sink may be nil, meaning NullSink. deviceMu must be the
// owning Device's command-execution mutex.
func NewAudioEngine(sink AudioSink, logger *log.Logger, deviceMu *sync.Mutex, publishCur func(int32)) *AudioEngine {
	if sink == nil {
		sink = NullSink{}
	}

	return &AudioEngine{sink: sink, logger: logger, deviceMu: deviceMu, publishCur: publishCur, status: AudioNoStatus}
}

func (e *AudioEngine) Status() AudioStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.status
}

// Start begins playback of [startLBA, endLBA], end sector included.
// Only valid from NO_STATUS, COMPLETED or ERROR (§4.5 state machine
// allows re-entering PLAYING from any terminal or idle state). Start
// does not wait for the worker, so it may be called with the device
// mutex held (PLAY AUDIO's dispatch does); the worker it spawns
// acquires that mutex itself for each sector.
func (e *AudioEngine) Start(startLBA, endLBA int32, disc *DiscImage) error {
	e.mu.Lock()

	if e.status == AudioPlaying || e.status == AudioPaused {
		e.mu.Unlock()

		return errInvalidState
	}

	e.disc = disc
	e.curLBA = startLBA
	e.endLBA = endLBA
	e.status = AudioPlaying
	e.stopCh = make(chan struct{})
	e.doneCh = make(chan struct{})

	e.mu.Unlock()

	if !e.sinkOpen {
		if err := e.sink.Open(44100, 2); err != nil {
			e.mu.Lock()
			e.status = AudioError
			e.mu.Unlock()

			return errInvalidState
		}

		e.sinkOpen = true
	}

	go e.run()

	return nil
}

func (e *AudioEngine) run() {
	defer close(e.doneCh)

	for {
		e.mu.Lock()
		if e.status != AudioPlaying {
			e.mu.Unlock()

			return
		}

		stop := e.stopCh
		e.mu.Unlock()

		e.deviceMu.Lock()
		cur, end, disc := e.curLBA, e.endLBA, e.disc
		var sector *Sector
		var ok bool

		if cur > end {
			e.deviceMu.Unlock()
			e.mu.Lock()
			e.status = AudioCompleted
			e.mu.Unlock()

			return
		}

		sector, ok = disc.GetSector(cur)
		if ok && sector.Type == SectorAudio {
			if e.publishCur != nil {
				e.publishCur(cur)
			}

			e.curLBA = cur + 1
		}

		e.deviceMu.Unlock()

		if !ok {
			e.fail("no sector at %d", cur)

			return
		}

		if sector.Type != SectorAudio {
			e.fail("non-audio sector at %d", cur)

			return
		}

		frame := sector.RawData
		if len(frame) == 0 {
			frame = make([]byte, audioFrameBytes)
		}

		if err := e.sink.Write(frame); err != nil {
			e.fail("sink write error: %v", err)

			return
		}

		select {
		case <-stop:
			return
		default:
		}
	}
}

func (e *AudioEngine) fail(format string, args ...any) {
	if e.logger != nil {
		e.logger.Errorf(format, args...)
	}

	e.mu.Lock()
	e.status = AudioError
	e.mu.Unlock()
}

// Pause transitions PLAYING -> PAUSED. Must not be called with the
// device mutex held.
func (e *AudioEngine) Pause() error {
	e.mu.Lock()

	if e.status != AudioPlaying {
		e.mu.Unlock()

		return errInvalidState
	}

	e.status = AudioPaused
	stop := e.stopCh
	done := e.doneCh
	e.mu.Unlock()

	close(stop)
	<-done

	return nil
}

// Resume transitions PAUSED -> PLAYING.
func (e *AudioEngine) Resume() error {
	e.mu.Lock()

	if e.status != AudioPaused {
		e.mu.Unlock()

		return errInvalidState
	}

	e.status = AudioPlaying
	e.stopCh = make(chan struct{})
	e.doneCh = make(chan struct{})
	e.mu.Unlock()

	go e.run()

	return nil
}

// Stop unconditionally ends playback and joins the worker, used both by
// the explicit STOP path and by any disturbs_audio command (§4.3). Must
// not be called with the device mutex held.
func (e *AudioEngine) Stop() {
	e.mu.Lock()
	status := e.status
	stop := e.stopCh
	done := e.doneCh
	e.status = AudioNoStatus
	e.mu.Unlock()

	if status == AudioPlaying {
		close(stop)
		<-done
	}

	e.mu.Lock()
	e.disc = nil
	e.mu.Unlock()
}
