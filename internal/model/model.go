// Package model holds the data types shared across the duplicate-detection
// pipeline: the scanner's output skeleton, the persisted Video record, hash
// groups, and duplicate groups.
package model

import "time"

// VideoInfo is the scanner's output: identity fields populated, stream
// metadata still empty. The prober fills the rest in to produce a Video.
type VideoInfo struct {
	Path       string
	Device     uint64
	Inode      uint64
	Nlinks     uint64
	Size       int64
	ModifiedAt time.Time
}

// Video is the fully-populated persisted record: identity, filesystem
// stats, and stream metadata from the prober.
type Video struct {
	ID int64 // 0 until inserted; >0 after successful insert

	Path string

	Device uint64
	Inode  uint64
	Nlinks uint64

	Size       int64
	DurationS  float64 // 0 means "duration unknown"
	Bitrate    int64
	CreatedAt  time.Time
	ModifiedAt time.Time

	VideoCodec   string
	AudioCodec   string
	Width        int
	Height       int
	AvgFrameRate float64
	SampleRate   int

	ThumbnailPaths []string
}

// DurationUnknown reports whether the prober could not determine a
// duration, which disables percentage-based seeking for this video.
func (v *Video) DurationUnknown() bool {
	return v.DurationS <= 0
}

// HashGroup is the ordered sequence of 64-bit pHashes sampled from one
// video, in sampling order.
type HashGroup struct {
	VideoID int64
	Hashes  []uint64
}

// DuplicateGroup is a set of 2+ video IDs transitively connected by
// near-neighbor hash matches.
type DuplicateGroup struct {
	ID        int64
	VideoIDs  []int64
	CreatedAt time.Time
}
