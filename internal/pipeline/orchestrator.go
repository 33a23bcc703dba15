package pipeline

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/keytrace/keytrace/internal/cache"
	apperrors "github.com/keytrace/keytrace/internal/errors"
	"github.com/keytrace/keytrace/pkg/file"
	"github.com/keytrace/keytrace/pkg/log"
)

// Progress steps emitted over one run, in order.
const (
	stepDownloading  = "Downloading..."
	stepLoadingAudio = "Download complete. Loading the audio for transcription..."
	stepInitModel    = "Initializing transcription model..."
	stepTranscribing = "Transcribing audio to MIDI..."
)

// Fetcher resolves a source URL to a local audio artifact and display title.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (audioPath, title string, err error)
}

// Decoder loads an audio artifact into mono samples at the model's rate.
type Decoder interface {
	Decode(ctx context.Context, audioPath string) ([]float32, error)
}

// Engine converts decoded samples into a MIDI file at midiPath.
type Engine interface {
	Transcribe(ctx context.Context, samples []float32, midiPath string) error
}

// Orchestrator drives one pipeline run per subscribed request:
// fetch -> cache check -> decode -> transcribe -> cache commit, emitting an
// ordered event stream along the way. Blocking stages for the same derived
// path are coalesced across concurrent runs, so two requests for the same
// video share one download and one transcription instead of racing on the
// same files.
type Orchestrator struct {
	fetcher Fetcher
	decoder Decoder
	engine  Engine
	store   *cache.Store

	flights singleflight.Group
}

func New(fetcher Fetcher, decoder Decoder, engine Engine, store *cache.Store) *Orchestrator {
	return &Orchestrator{
		fetcher: fetcher,
		decoder: decoder,
		engine:  engine,
		store:   store,
	}
}

type fetchResult struct {
	audioPath string
	title     string
}

// Run executes the pipeline for one URL and returns its progress channel.
// The channel is closed after exactly one terminal event: complete on
// success, error on failure. If ctx is cancelled, delivery stops; an
// in-flight blocking stage still runs to completion on a detached context so
// that concurrent runs coalesced onto it are not abandoned and the cache
// still gets populated.
func (o *Orchestrator) Run(ctx context.Context, url string) <-chan Event {
	events := make(chan Event)

	go func() {
		defer close(events)

		runID := uuid.NewString()
		emit := func(ev Event) bool {
			select {
			case <-ctx.Done():
				log.Warn("run %s: client gone, dropping remaining events", runID)
				return false
			case events <- ev:
				return true
			}
		}
		fail := func(err error) {
			log.Error("run %s: %v", runID, err)
			emit(NewErrorEvent(apperrors.Kind(err), err.Error()))
		}

		log.Info("run %s: starting pipeline for %s", runID, url)
		if !emit(NewProgressEvent(stepDownloading, 0)) {
			return
		}

		fetched, err := o.fetch(ctx, url)
		if err != nil {
			fail(err)
			return
		}
		// A cache hit and a fresh transfer report identically here; the
		// client cannot tell them apart.
		if !emit(NewProgressEvent(stepLoadingAudio, 30)) {
			return
		}

		midiPath := file.MIDIPath(fetched.audioPath)
		if o.store.Exists(midiPath) {
			log.Info("run %s: MIDI artifact %s already exists, skipping transcription", runID, midiPath)
			emit(NewCompleteEvent(fetched.title, midiPath))
			return
		}

		samples, err := o.decode(ctx, fetched.audioPath)
		if err != nil {
			fail(err)
			return
		}

		if !emit(NewProgressEvent(stepInitModel, 40)) {
			return
		}
		if !emit(NewProgressEvent(stepTranscribing, 50)) {
			return
		}

		if err := o.transcribe(ctx, samples, midiPath); err != nil {
			fail(err)
			return
		}

		log.Info("run %s: complete, MIDI at %s", runID, midiPath)
		emit(NewCompleteEvent(fetched.title, midiPath))
	}()

	return events
}

// fetch coalesces concurrent transfers of the same URL. The derived audio
// path is a pure function of the video id, so one flight's result is valid
// for every waiter.
func (o *Orchestrator) fetch(ctx context.Context, url string) (fetchResult, error) {
	v, err, _ := o.flights.Do("fetch:"+url, func() (interface{}, error) {
		audioPath, title, err := o.fetcher.Fetch(context.WithoutCancel(ctx), url)
		if err != nil {
			return fetchResult{}, err
		}
		return fetchResult{audioPath: audioPath, title: title}, nil
	})
	if err != nil {
		return fetchResult{}, err
	}
	return v.(fetchResult), nil
}

func (o *Orchestrator) decode(ctx context.Context, audioPath string) ([]float32, error) {
	v, err, _ := o.flights.Do("decode:"+audioPath, func() (interface{}, error) {
		return o.decoder.Decode(context.WithoutCancel(ctx), audioPath)
	})
	if err != nil {
		return nil, err
	}
	return v.([]float32), nil
}

// transcribe coalesces concurrent transcriptions of the same derived MIDI
// path. A waiter that joins after the leader finished re-checks the cache
// instead of invoking the model again.
func (o *Orchestrator) transcribe(ctx context.Context, samples []float32, midiPath string) error {
	_, err, _ := o.flights.Do("midi:"+midiPath, func() (interface{}, error) {
		if o.store.Exists(midiPath) {
			return nil, nil
		}
		return nil, o.engine.Transcribe(context.WithoutCancel(ctx), samples, midiPath)
	})
	return err
}
