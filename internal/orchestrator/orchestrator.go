// Package orchestrator drives the full detection pipeline: scan, probe,
// (thumbnail parallel with metadata insert), sequential hash extraction,
// duplicate detection, and group persistence. It owns the single
// cancellation signal and the event broadcast surface collaborators
// subscribe to.
//
// Grounded on the teacher's worker-pool channel/progress plumbing
// (internal/jobs/worker.go's progressCh-plus-draining-goroutine shape),
// generalized from transcode-job progress into the five pipeline events
// the spec names, and on internal/jobs/errors.go's sentinel + %w wrapping
// idiom for the error kinds of spec §7. Spec §9's own redesign note calls
// for replacing back-referencing worker objects with exactly this
// message-passing topology.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gwlsn/vdupes/internal/decoder"
	"github.com/gwlsn/vdupes/internal/duplicate"
	"github.com/gwlsn/vdupes/internal/logger"
	"github.com/gwlsn/vdupes/internal/model"
	"github.com/gwlsn/vdupes/internal/phash"
	"github.com/gwlsn/vdupes/internal/prober"
	"github.com/gwlsn/vdupes/internal/scanner"
	"github.com/gwlsn/vdupes/internal/settings"
	"github.com/gwlsn/vdupes/internal/store"
	"github.com/gwlsn/vdupes/internal/thumbnail"
	"github.com/gwlsn/vdupes/internal/util"
)

// Error kinds from spec §7. FileSkipped has no sentinel: it is a logged
// warning plus omission, never a returned error.
var (
	ErrInputInvalid      = errors.New("orchestrator: invalid input")
	ErrPersistenceFailed = errors.New("orchestrator: persistence failed")
	ErrFatal             = errors.New("orchestrator: fatal error")
	ErrCancelled         = errors.New("orchestrator: cancelled")
)

// EventKind names one of the six events in the external interface.
type EventKind string

const (
	EventScanProgress      EventKind = "scan_progress"
	EventMetadataProgress  EventKind = "metadata_progress"
	EventHashProgress      EventKind = "hash_progress"
	EventDuplicatesUpdated EventKind = "duplicates_updated"
	EventError             EventKind = "error"
	EventDatabaseOpened    EventKind = "database_opened"
)

// Event is the payload broadcast to every subscriber. Only the fields
// relevant to Kind are populated.
type Event struct {
	Kind EventKind

	Found int // scan_progress

	Done, Total int // metadata_progress / hash_progress

	Groups []*model.DuplicateGroup // duplicates_updated

	Err error // error

	DBPath string // database_opened
}

// maxConcurrentMetadata bounds the fan-out of probe+thumbnail work across
// videos during the metadata phase.
const maxConcurrentMetadata = 4

// Orchestrator wires the scanner, prober, decoder, hasher (internal/phash),
// duplicate engine (internal/duplicate), thumbnail generator, and store
// into one detection run.
type Orchestrator struct {
	Store      *store.Store
	Scanner    *scanner.Scanner
	Prober     *prober.Prober
	Thumbnails thumbnail.Generator
	FFmpegPath string

	mu          sync.Mutex
	subscribers map[chan Event]struct{}
}

// New wires an Orchestrator around an already-open store.
func New(st *store.Store, ffmpegPath, ffprobePath string, thumbs thumbnail.Generator) *Orchestrator {
	return &Orchestrator{
		Store:       st,
		Scanner:     scanner.New(),
		Prober:      prober.New(ffprobePath),
		Thumbnails:  thumbs,
		FFmpegPath:  ffmpegPath,
		subscribers: make(map[chan Event]struct{}),
	}
}

// Subscribe registers a new listener for pipeline events. The returned
// function unsubscribes and closes the channel.
func (o *Orchestrator) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 32)
	o.mu.Lock()
	o.subscribers[ch] = struct{}{}
	o.mu.Unlock()

	unsubscribe := func() {
		o.mu.Lock()
		if _, ok := o.subscribers[ch]; ok {
			delete(o.subscribers, ch)
			close(ch)
		}
		o.mu.Unlock()
	}
	return ch, unsubscribe
}

// broadcast delivers e to every current subscriber without blocking: a
// slow or absent reader never stalls the pipeline.
func (o *Orchestrator) broadcast(e Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for ch := range o.subscribers {
		select {
		case ch <- e:
		default:
		}
	}
}

// metadataResult is posted by a worker goroutine back to the single
// db-owning goroutine, which performs the actual insert.
type metadataResult struct {
	info  model.VideoInfo
	video *model.Video
	err   error
}

// Run executes one full detection pass: scan, probe+thumbnail, hash,
// detect, persist. It returns ErrCancelled if ctx is cancelled before
// completion, or a wrapped ErrPersistenceFailed/ErrFatal if the duplicate
// engine or a store operation fails outright. Per-file failures never
// escape as errors — they are logged and the file is omitted.
func (o *Orchestrator) Run(ctx context.Context, cfg *settings.Settings) error {
	infos, err := o.Scanner.Scan(ctx, cfg, func(found int) {
		o.broadcast(Event{Kind: EventScanProgress, Found: found})
	})
	if err != nil {
		if ctx.Err() != nil {
			o.broadcast(Event{Kind: EventError, Err: ErrCancelled})
			return ErrCancelled
		}
		return fmt.Errorf("%w: scan failed: %v", ErrFatal, err)
	}

	videos, err := o.runMetadataPhase(ctx, infos)
	if err != nil {
		return err
	}
	if ctx.Err() != nil {
		o.broadcast(Event{Kind: EventError, Err: ErrCancelled})
		return ErrCancelled
	}

	if err := o.runHashPhase(ctx, videos, cfg); err != nil {
		return err
	}
	if ctx.Err() != nil {
		o.broadcast(Event{Kind: EventError, Err: ErrCancelled})
		return ErrCancelled
	}

	return o.runDetectionPhase(cfg)
}

// runMetadataPhase probes and thumbnails each scanned file concurrently
// (bounded fan-out), then inserts each result sequentially on the calling
// goroutine — the store's sole writer. Probe/thumbnail failures are
// logged and that file is skipped; the run continues.
func (o *Orchestrator) runMetadataPhase(ctx context.Context, infos []model.VideoInfo) ([]*model.Video, error) {
	total := len(infos)
	results := make(chan metadataResult, maxConcurrentMetadata)
	sem := make(chan struct{}, maxConcurrentMetadata)
	var wg sync.WaitGroup

	go func() {
		for _, info := range infos {
			if ctx.Err() != nil {
				break
			}
			wg.Add(1)
			sem <- struct{}{}
			go func(info model.VideoInfo) {
				defer wg.Done()
				defer func() { <-sem }()
				results <- o.probeOne(ctx, info)
			}(info)
		}
		wg.Wait()
		close(results)
	}()

	var videos []*model.Video
	done := 0
	for res := range results {
		done++
		if res.err != nil {
			logger.Warn("skipping file after probe failure", "path", res.info.Path, "error", res.err)
			o.broadcast(Event{Kind: EventMetadataProgress, Done: done, Total: total})
			continue
		}

		if err := o.Store.UpsertVideo(res.video); err != nil {
			return nil, fmt.Errorf("%w: insert video %s: %v", ErrPersistenceFailed, res.video.Path, err)
		}
		videos = append(videos, res.video)
		logger.Debug("indexed video", "path", res.video.Path, "size", util.FormatBytes(res.video.Size))
		o.broadcast(Event{Kind: EventMetadataProgress, Done: done, Total: total})
	}

	return videos, nil
}

func (o *Orchestrator) probeOne(ctx context.Context, info model.VideoInfo) metadataResult {
	probed, err := o.Prober.Probe(ctx, info.Path)
	if err != nil {
		return metadataResult{info: info, err: err}
	}

	v := &model.Video{
		Path:         info.Path,
		Device:       info.Device,
		Inode:        info.Inode,
		Nlinks:       info.Nlinks,
		Size:         info.Size,
		ModifiedAt:   info.ModifiedAt,
		DurationS:    probed.Duration,
		Bitrate:      probed.Bitrate,
		VideoCodec:   probed.VideoCodec,
		AudioCodec:   probed.AudioCodec,
		Width:        probed.Width,
		Height:       probed.Height,
		AvgFrameRate: probed.AvgFrameRate,
		SampleRate:   probed.SampleRate,
	}

	if o.Thumbnails != nil {
		paths, err := o.Thumbnails.Generate(ctx, info.Path, probed.Duration, 1)
		if err != nil {
			logger.Warn("thumbnail generation failed", "path", info.Path, "error", err)
		} else {
			v.ThumbnailPaths = paths
		}
	}

	return metadataResult{info: info, video: v}
}

// runHashPhase decodes and hashes one video at a time, bounding peak
// memory (spec §5: "one-video-at-a-time as the outer loop for decoding").
// A video whose decode/hash fails is logged and skipped — it contributes
// no hash row and never participates in a duplicate group.
func (o *Orchestrator) runHashPhase(ctx context.Context, videos []*model.Video, cfg *settings.Settings) error {
	sampler := decoder.NewSampler(o.FFmpegPath, cfg.Method)
	total := len(videos)

	for i, v := range videos {
		if ctx.Err() != nil {
			return nil
		}

		probed := &prober.Result{
			Duration:        v.DurationS,
			DurationUnknown: v.DurationS <= 0,
			Width:           v.Width,
			Height:          v.Height,
		}
		tiles, err := sampler.Sample(ctx, v.Path, probed, cfg)
		if err != nil {
			logger.Warn("skipping video after decode/hash failure", "path", v.Path, "error", err)
			o.broadcast(Event{Kind: EventHashProgress, Done: i + 1, Total: total})
			continue
		}

		hashes := hashTiles(tiles, v.Path)
		if len(hashes) == 0 {
			o.broadcast(Event{Kind: EventHashProgress, Done: i + 1, Total: total})
			continue
		}

		if err := o.Store.SaveHashes(v.ID, hashes); err != nil {
			return fmt.Errorf("%w: save hashes for %s: %v", ErrPersistenceFailed, v.Path, err)
		}
		blobSize := util.FormatBytes(int64(len(hashes) * 8))
		logger.Debug("saved hashes", "path", v.Path, "count", len(hashes), "blob_size", blobSize)
		o.broadcast(Event{Kind: EventHashProgress, Done: i + 1, Total: total})
	}

	return nil
}

// hashTiles reduces each decoded tile to its 64-bit hash, skipping tiles
// that produce the all-zero sentinel and logging their rejection; it never
// fails the whole video over a single discarded sample.
func hashTiles(tiles []*phash.Tile, path string) []uint64 {
	hashes := make([]uint64, 0, len(tiles))
	for i, tile := range tiles {
		h, err := phash.Hash(tile)
		if err != nil {
			logger.Debug("rejecting sentinel hash", "path", path, "frame", i, "error", err)
			continue
		}
		hashes = append(hashes, h)
	}
	return hashes
}

// runDetectionPhase reads every video and hash group back from the store
// (a consistent snapshot taken after hashing completes, per spec §5),
// runs the duplicate engine, and atomically replaces the persisted
// duplicate groups.
func (o *Orchestrator) runDetectionPhase(cfg *settings.Settings) error {
	groups, err := o.Store.AllHashGroups()
	if err != nil {
		return fmt.Errorf("%w: load hash groups: %v", ErrPersistenceFailed, err)
	}

	dupGroups := duplicate.Detect(groups, cfg)

	if err := o.Store.ReplaceDuplicateGroups(dupGroups); err != nil {
		return fmt.Errorf("%w: store duplicate groups: %v", ErrPersistenceFailed, err)
	}

	o.broadcast(Event{Kind: EventDuplicatesUpdated, Groups: dupGroups})
	return nil
}
