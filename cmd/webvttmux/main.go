// Command webvttmux demonstrates the library end-to-end: it reads WebVTT
// cue text from one or more input files and emits a minimal elementary
// stream (raw Annex-B/AVCC H.26x NAL units or a raw AV1 low-overhead OBU
// stream) carrying a WebVTT-in-video header message followed by one
// payload message per chunk of cue text.
//
// It never reads or muxes a real video container — ISOBMFF/MPEG-TS
// muxing and bitstream parsing are out of this module's scope (see
// SPEC_FULL.md §1) — so the NAL/OBU stream it writes contains only the
// WebVTT metadata units, not video data.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zsiec/webvttmux/annexb"
	"github.com/zsiec/webvttmux/av1"
	"github.com/zsiec/webvttmux/avcc"
	"github.com/zsiec/webvttmux/h264"
	"github.com/zsiec/webvttmux/h265"
	"github.com/zsiec/webvttmux/nalwriter"
	"github.com/zsiec/webvttmux/webvtt"
)

type config struct {
	codec         string
	framing       string
	lengthSize    int
	outPath       string
	trackID       int
	language      string
	label         string
	kind          string
	maxLatency    time.Duration
	sendFreqHz    int
	chunkBytes    int
	inputs        []string
}

func parseFlags(args []string) (config, error) {
	fs := flag.NewFlagSet("webvttmux", flag.ContinueOnError)
	var c config
	fs.StringVar(&c.codec, "codec", "", "target codec: av1, h264, h265 (required)")
	fs.StringVar(&c.framing, "framing", "", "container framing: annexb, avcc, obu (required)")
	fs.IntVar(&c.lengthSize, "length-size", 4, "AVCC length field width in bytes: 1, 2, or 4")
	fs.StringVar(&c.outPath, "out", "", "output path (file for one input, directory for several)")
	fs.IntVar(&c.trackID, "track-id", 0, "header track id")
	fs.StringVar(&c.language, "language", "en", "header track language tag")
	fs.StringVar(&c.label, "label", "", "header track label")
	fs.StringVar(&c.kind, "kind", "subtitles", "header track kind: subtitles, captions, descriptions, chapters, metadata")
	fs.DurationVar(&c.maxLatency, "max-latency", 0, "max_latency_to_video header field")
	fs.IntVar(&c.sendFreqHz, "send-frequency", 1, "send_frequency_hz header field")
	fs.IntVar(&c.chunkBytes, "chunk-bytes", 1024, "payload chunk budget in bytes")
	if err := fs.Parse(args); err != nil {
		return config{}, err
	}
	c.inputs = fs.Args()

	if c.codec == "" || c.framing == "" {
		return config{}, fmt.Errorf("-codec and -framing are required")
	}
	if c.framing == "obu" && c.codec != "av1" {
		return config{}, fmt.Errorf("-framing=obu is only valid with -codec=av1")
	}
	if len(c.inputs) == 0 {
		return config{}, fmt.Errorf("at least one input file is required")
	}
	if len(c.inputs) > 1 && c.outPath == "" {
		return config{}, fmt.Errorf("-out must name a directory when more than one input is given")
	}
	return c, nil
}

func trackKind(s string) (webvtt.TrackKind, error) {
	switch strings.ToLower(s) {
	case "subtitles":
		return webvtt.KindSubtitles, nil
	case "captions":
		return webvtt.KindCaptions, nil
	case "descriptions":
		return webvtt.KindDescriptions, nil
	case "chapters":
		return webvtt.KindChapters, nil
	case "metadata":
		return webvtt.KindMetadata, nil
	default:
		return 0, fmt.Errorf("unknown track kind %q", s)
	}
}

func outputPathFor(c config, input string) string {
	if len(c.inputs) == 1 {
		return c.outPath
	}
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join(c.outPath, base+".bin")
}

// processFile builds the header+payload sequence for one input file's cue
// text and writes the resulting elementary stream to its own output file.
// It owns its sink exclusively from start to finish; no state is shared
// with any other concurrently running call.
func processFile(c config, input string) error {
	text, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("read %s: %w", input, err)
	}

	kind, err := trackKind(c.kind)
	if err != nil {
		return err
	}
	header := webvtt.HeaderParams{
		MaxLatencyToVideo: c.maxLatency,
		SendFrequencyHz:   uint8(c.sendFreqHz),
		SubtitleTracks: []webvtt.Track{
			{ID: uint8(c.trackID), Language: c.language, Kind: kind, Label: c.label},
		},
	}
	overhead, err := webvtt.MeasurePayloadBody(webvtt.PayloadParams{})
	if err != nil {
		return fmt.Errorf("measure payload overhead: %w", err)
	}
	textBudget := c.chunkBytes - overhead
	if textBudget <= 0 {
		return fmt.Errorf("-chunk-bytes %d too small: payload framing alone needs %d bytes", c.chunkBytes, overhead)
	}
	chunks, err := webvtt.ChunkText(1, string(text), textBudget)
	if err != nil {
		return fmt.Errorf("chunk %s: %w", input, err)
	}
	// track_index indexes into the header's track list, which always has
	// exactly one entry (list index 0) regardless of the caller-chosen
	// track id.
	for i := range chunks {
		chunks[i].TrackIndex = 0
	}

	out, err := os.Create(outputPathFor(c, input))
	if err != nil {
		return fmt.Errorf("create output for %s: %w", input, err)
	}
	defer out.Close()

	switch c.codec {
	case "av1":
		return writeAV1(out, header, chunks)
	case "h264":
		return writeH26x(out, c, header, chunks, func() (nalwriter.HeaderEncoder, error) {
			return h264.New(h264.NALTypeSEI, 0)
		})
	case "h265":
		return writeH26x(out, c, header, chunks, func() (nalwriter.HeaderEncoder, error) {
			return h265.New(h265.NALTypeSEIPrefix, 0, 0)
		})
	default:
		return fmt.Errorf("unknown codec %q", c.codec)
	}
}

func writeAV1(out *os.File, header webvtt.HeaderParams, chunks []webvtt.PayloadParams) error {
	w := av1.New(out)
	if err := w.WriteWebvttHeader(header); err != nil {
		return fmt.Errorf("write av1 header obu: %w", err)
	}
	for _, p := range chunks {
		if err := w.WriteWebvttPayload(p); err != nil {
			return fmt.Errorf("write av1 payload obu: %w", err)
		}
	}
	return nil
}

// h26xPipeline is the common shape of annexb.Writer and avcc.Writer that
// writeH26x drives; annexbAdapter and avccAdapter wrap them to satisfy it.
type h26xPipeline interface {
	StartWriteNalUnit() (nalUnitWriter, error)
}

type nalUnitWriter interface {
	WriteNalHeader(nalwriter.HeaderEncoder) (rbspWriter, error)
}

type rbspWriter interface {
	WriteWebvttHeader(webvtt.HeaderParams) error
	WriteWebvttPayload(webvtt.PayloadParams) error
	FinishRbsp() (h26xPipeline, error)
}

func writeH26x(out *os.File, c config, header webvtt.HeaderParams, chunks []webvtt.PayloadParams, newHeader func() (nalwriter.HeaderEncoder, error)) error {
	var pipeline h26xPipeline
	switch c.framing {
	case "annexb":
		pipeline = annexbAdapter{annexb.New(out)}
	case "avcc":
		w, err := avcc.New(c.lengthSize, out)
		if err != nil {
			return fmt.Errorf("configure avcc: %w", err)
		}
		pipeline = avccAdapter{w}
	default:
		return fmt.Errorf("unknown framing %q for %s", c.framing, c.codec)
	}

	if err := writeOneNal(pipeline, newHeader, func(rw rbspWriter) error {
		return rw.WriteWebvttHeader(header)
	}); err != nil {
		return fmt.Errorf("write header nal: %w", err)
	}
	for _, p := range chunks {
		p := p
		if err := writeOneNal(pipeline, newHeader, func(rw rbspWriter) error {
			return rw.WriteWebvttPayload(p)
		}); err != nil {
			return fmt.Errorf("write payload nal: %w", err)
		}
	}
	return nil
}

func writeOneNal(pipeline h26xPipeline, newHeader func() (nalwriter.HeaderEncoder, error), body func(rbspWriter) error) error {
	nu, err := pipeline.StartWriteNalUnit()
	if err != nil {
		return err
	}
	hdr, err := newHeader()
	if err != nil {
		return err
	}
	rw, err := nu.WriteNalHeader(hdr)
	if err != nil {
		return err
	}
	if err := body(rw); err != nil {
		return err
	}
	_, err = rw.FinishRbsp()
	return err
}

// Adapters below narrow annexb/avcc's concrete return types to the
// interfaces writeH26x drives, so one code path serves both framings.

type annexbAdapter struct{ w *annexb.Writer }

func (a annexbAdapter) StartWriteNalUnit() (nalUnitWriter, error) {
	nu, err := a.w.StartWriteNalUnit()
	if err != nil {
		return nil, err
	}
	return annexbNalAdapter{nu}, nil
}

type annexbNalAdapter struct{ nu *annexb.NalUnitWriter }

func (a annexbNalAdapter) WriteNalHeader(h nalwriter.HeaderEncoder) (rbspWriter, error) {
	rw, err := a.nu.WriteNalHeader(h)
	if err != nil {
		return nil, err
	}
	return annexbRbspAdapter{rw}, nil
}

type annexbRbspAdapter struct{ rw *annexb.RbspWriter }

func (a annexbRbspAdapter) WriteWebvttHeader(p webvtt.HeaderParams) error  { return a.rw.WriteWebvttHeader(p) }
func (a annexbRbspAdapter) WriteWebvttPayload(p webvtt.PayloadParams) error { return a.rw.WriteWebvttPayload(p) }
func (a annexbRbspAdapter) FinishRbsp() (h26xPipeline, error) {
	w, err := a.rw.FinishRbsp()
	if err != nil {
		return nil, err
	}
	return annexbAdapter{w}, nil
}

type avccAdapter struct{ w *avcc.Writer }

func (a avccAdapter) StartWriteNalUnit() (nalUnitWriter, error) {
	nu, err := a.w.StartWriteNalUnit()
	if err != nil {
		return nil, err
	}
	return avccNalAdapter{nu}, nil
}

type avccNalAdapter struct{ nu *avcc.NalUnitWriter }

func (a avccNalAdapter) WriteNalHeader(h nalwriter.HeaderEncoder) (rbspWriter, error) {
	rw, err := a.nu.WriteNalHeader(h)
	if err != nil {
		return nil, err
	}
	return avccRbspAdapter{rw}, nil
}

type avccRbspAdapter struct{ rw *avcc.RbspWriter }

func (a avccRbspAdapter) WriteWebvttHeader(p webvtt.HeaderParams) error  { return a.rw.WriteWebvttHeader(p) }
func (a avccRbspAdapter) WriteWebvttPayload(p webvtt.PayloadParams) error { return a.rw.WriteWebvttPayload(p) }
func (a avccRbspAdapter) FinishRbsp() (h26xPipeline, error) {
	w, err := a.rw.FinishRbsp()
	if err != nil {
		return nil, err
	}
	return avccAdapter{w}, nil
}

func run(ctx context.Context, args []string) error {
	c, err := parseFlags(args)
	if err != nil {
		return err
	}
	if len(c.inputs) > 1 {
		if err := os.MkdirAll(c.outPath, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	g, _ := errgroup.WithContext(ctx)
	for _, input := range c.inputs {
		input := input
		g.Go(func() error {
			if err := processFile(c, input); err != nil {
				return fmt.Errorf("%s: %w", input, err)
			}
			slog.Info("wrote webvtt elementary stream", "input", input, "codec", c.codec, "framing", c.framing)
			return nil
		})
	}
	return g.Wait()
}

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))

	if err := run(context.Background(), os.Args[1:]); err != nil {
		slog.Error("webvttmux failed", "error", err)
		os.Exit(1)
	}
}
