// Package settings defines the tuning parameters consumed by the duplicate
// detection engine: scan filters, sampling method, and matching thresholds.
// Exactly one Settings record exists per store, persisted as a single JSON
// object.
package settings

import (
	"encoding/json"
	"math"
	"regexp"
	"strings"
)

// Method selects the frame sampling strategy.
type Method string

const (
	Fast Method = "fast"
	Slow Method = "slow"
)

// Directory is one scan root.
type Directory struct {
	Path      string `json:"path"`
	Recursive bool   `json:"recursive"`
}

// Settings is the full tuning-parameter record. Raw pattern strings are
// persisted; compiled regexes are derived on load via Compile and never
// serialized.
type Settings struct {
	Extensions []string `json:"extensions"`

	IncludeDirPatterns  []string `json:"include_dir_patterns"`
	ExcludeDirPatterns  []string `json:"exclude_dir_patterns"`
	IncludeFilePatterns []string `json:"include_file_patterns"`
	ExcludeFilePatterns []string `json:"exclude_file_patterns"`
	UseGlob             bool     `json:"use_glob"`
	CaseInsensitive     bool     `json:"case_insensitive"`

	MinBytes *int64 `json:"min_bytes"`
	MaxBytes *int64 `json:"max_bytes"`

	Directories []Directory `json:"directories"`

	ThumbnailsPerVideo int `json:"thumbnails_per_video"`

	SkipPercent float64 `json:"skip_percent"`
	MaxFrames   int     `json:"max_frames"`

	HammingThreshold         int     `json:"hamming_threshold"`
	UsePercentThreshold      bool    `json:"use_percent_threshold"`
	MatchingThresholdPercent float64 `json:"matching_threshold_percent"`
	MatchingThresholdNumber int     `json:"matching_threshold_number"`

	Method            Method `json:"method"`
	UseKeyframesOnly  bool   `json:"use_keyframes_only"`

	// Compiled holds the compiled regexes for the four pattern lists above.
	// Populated by Compile; never marshaled.
	Compiled CompiledPatterns `json:"-"`
}

// CompiledPatterns holds the regexes derived from Settings' raw pattern
// strings. Read-only once built; safe for concurrent use by many goroutines.
type CompiledPatterns struct {
	IncludeDir  []*regexp.Regexp
	ExcludeDir  []*regexp.Regexp
	IncludeFile []*regexp.Regexp
	ExcludeFile []*regexp.Regexp
}

// Numeric bounds enforced by Clamp.
const (
	MinThumbnailsPerVideo = 1
	MaxThumbnailsPerVideo = 4

	MinSkipPercent = 0.0
	MaxSkipPercent = 40.0

	MinHammingThreshold = 0
	MaxHammingThreshold = 64

	MinMatchingThresholdPercent = 1.0
	MaxMatchingThresholdPercent = 100.0

	MinMatchingThresholdNumber = 1
	MaxMatchingThresholdNumber = 10000
)

// Default returns the settings defaults named in the external interface
// contract: common video extensions, a conservative Hamming threshold, and
// an absolute (not percent) matching threshold of 5 hits.
func Default() *Settings {
	s := &Settings{
		Extensions:               []string{".mp4", ".mkv", ".webm"},
		ThumbnailsPerVideo:        4,
		SkipPercent:               10,
		MaxFrames:                 20,
		HammingThreshold:          4,
		UsePercentThreshold:       false,
		MatchingThresholdPercent:  50.0,
		MatchingThresholdNumber:   5,
		Method:                    Slow,
	}
	s.Compile()
	return s
}

// Clamp forces every bounded numeric field into its valid range and fills
// in defaults for empty/zero fields that have no valid zero value. It never
// fails — callers always end up with usable settings.
func (s *Settings) Clamp() {
	if len(s.Extensions) == 0 {
		s.Extensions = []string{".mp4", ".mkv", ".webm"}
	}
	s.ThumbnailsPerVideo = clampInt(s.ThumbnailsPerVideo, MinThumbnailsPerVideo, MaxThumbnailsPerVideo)
	s.SkipPercent = clampFloat(s.SkipPercent, MinSkipPercent, MaxSkipPercent)
	if s.MaxFrames < 1 {
		s.MaxFrames = 1
	}
	s.HammingThreshold = clampInt(s.HammingThreshold, MinHammingThreshold, MaxHammingThreshold)
	s.MatchingThresholdPercent = clampFloat(s.MatchingThresholdPercent, MinMatchingThresholdPercent, MaxMatchingThresholdPercent)
	s.MatchingThresholdNumber = clampInt(s.MatchingThresholdNumber, MinMatchingThresholdNumber, MaxMatchingThresholdNumber)
	if s.Method != Fast && s.Method != Slow {
		s.Method = Slow
	}
}

func clampInt(n, min, max int) int {
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}

func clampFloat(n, min, max float64) float64 {
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}

// Compile clamps the settings, then compiles every raw pattern list into
// s.Compiled. Invalid regexes (only possible when use_glob is false and the
// user supplied raw regex text) are skipped with no pattern emitted — they
// never abort compilation of the rest.
func (s *Settings) Compile() {
	s.Clamp()
	s.Compiled = CompiledPatterns{
		IncludeDir:  s.compileList(s.IncludeDirPatterns),
		ExcludeDir:  s.compileList(s.ExcludeDirPatterns),
		IncludeFile: s.compileList(s.IncludeFilePatterns),
		ExcludeFile: s.compileList(s.ExcludeFilePatterns),
	}
}

func (s *Settings) compileList(patterns []string) []*regexp.Regexp {
	var out []*regexp.Regexp
	for _, p := range patterns {
		expr := p
		if s.UseGlob {
			expr = GlobToRegex(p)
		}
		if s.CaseInsensitive {
			expr = "(?i)" + expr
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			continue
		}
		out = append(out, re)
	}
	return out
}

// GlobToRegex translates a shell-glob pattern into an anchored regex
// fragment per the mapping: `*` -> `.*`, `?` -> `.`, the characters
// `. \ + ( ) { } ^ $ | [ ]` are backslash-escaped, everything else is
// literal.
func GlobToRegex(glob string) string {
	var b strings.Builder
	b.WriteByte('^')
	for _, r := range glob {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		case '.', '\\', '+', '(', ')', '{', '}', '^', '$', '|', '[', ']':
			b.WriteByte('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('$')
	return b.String()
}

// FromJSON decodes a settings blob, applying Default()'s values for any
// field absent from the JSON and clamping everything afterward. Unknown
// keys in data are ignored by encoding/json's default behavior.
func FromJSON(data []byte) *Settings {
	s := Default()
	if len(data) == 0 {
		return s
	}
	// Decode into a fresh struct so zero-valued-but-present JSON fields
	// (e.g. an explicit 0) are distinguished from genuinely absent ones,
	// then merge onto the defaults field by field.
	var parsed Settings
	if err := json.Unmarshal(data, &parsed); err != nil {
		s.Compile()
		return s
	}
	merge(s, &parsed, data)
	s.Compile()
	return s
}

// merge overlays fields present in raw JSON onto dst, leaving dst's
// defaults in place for keys absent from raw.
func merge(dst, parsed *Settings, raw []byte) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil {
		return
	}
	if _, ok := keys["extensions"]; ok {
		dst.Extensions = parsed.Extensions
	}
	if _, ok := keys["include_dir_patterns"]; ok {
		dst.IncludeDirPatterns = parsed.IncludeDirPatterns
	}
	if _, ok := keys["exclude_dir_patterns"]; ok {
		dst.ExcludeDirPatterns = parsed.ExcludeDirPatterns
	}
	if _, ok := keys["include_file_patterns"]; ok {
		dst.IncludeFilePatterns = parsed.IncludeFilePatterns
	}
	if _, ok := keys["exclude_file_patterns"]; ok {
		dst.ExcludeFilePatterns = parsed.ExcludeFilePatterns
	}
	if _, ok := keys["use_glob"]; ok {
		dst.UseGlob = parsed.UseGlob
	}
	if _, ok := keys["case_insensitive"]; ok {
		dst.CaseInsensitive = parsed.CaseInsensitive
	}
	if _, ok := keys["min_bytes"]; ok {
		dst.MinBytes = parsed.MinBytes
	}
	if _, ok := keys["max_bytes"]; ok {
		dst.MaxBytes = parsed.MaxBytes
	}
	if _, ok := keys["directories"]; ok {
		dst.Directories = parsed.Directories
	}
	if _, ok := keys["thumbnails_per_video"]; ok {
		dst.ThumbnailsPerVideo = parsed.ThumbnailsPerVideo
	}
	if _, ok := keys["skip_percent"]; ok {
		dst.SkipPercent = parsed.SkipPercent
	}
	if _, ok := keys["max_frames"]; ok {
		dst.MaxFrames = parsed.MaxFrames
	}
	if _, ok := keys["hamming_threshold"]; ok {
		dst.HammingThreshold = parsed.HammingThreshold
	}
	if _, ok := keys["use_percent_threshold"]; ok {
		dst.UsePercentThreshold = parsed.UsePercentThreshold
	}
	if _, ok := keys["matching_threshold_percent"]; ok {
		dst.MatchingThresholdPercent = parsed.MatchingThresholdPercent
	}
	if _, ok := keys["matching_threshold_number"]; ok {
		dst.MatchingThresholdNumber = parsed.MatchingThresholdNumber
	}
	if _, ok := keys["method"]; ok && parsed.Method != "" {
		dst.Method = parsed.Method
	}
	if _, ok := keys["use_keyframes_only"]; ok {
		dst.UseKeyframesOnly = parsed.UseKeyframesOnly
	}
}

// ToJSON serializes the settings (excluding compiled regexes) to a JSON
// blob suitable for app_settings.json_blob.
func (s *Settings) ToJSON() ([]byte, error) {
	return json.Marshal(s)
}

// Threshold returns the effective match-count threshold τ for a query video
// with hashCount sampled hashes, per spec: ceil(percent/100 * hashCount) if
// UsePercentThreshold, else the flat MatchingThresholdNumber. Always ≥ 1.
func (s *Settings) Threshold(hashCount int) int {
	var t int
	if s.UsePercentThreshold {
		t = int(math.Ceil(s.MatchingThresholdPercent / 100 * float64(hashCount)))
	} else {
		t = s.MatchingThresholdNumber
	}
	if t < 1 {
		t = 1
	}
	return t
}
