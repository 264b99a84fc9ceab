// Command loudnorm measures the integrated loudness of WAV files and can
// write a gain-normalized copy of a file.
//
// Usage:
//
//	loudnorm [flags] file.wav [file2.wav ...]
//
// For every input it prints the measured loudness, the per-channel sample
// peak, and the gain that would bring the file to the target loudness.
// With -o, the first (and only) input is run through the normalizer and
// written back out.
//
// Examples:
//
//	loudnorm track.wav
//	loudnorm -target -16 track.wav
//	loudnorm -stride 4 -mono album/*.wav
//	loudnorm -o normalized.wav track.wav
package main

import (
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/cwbudde/wav"
	"github.com/go-audio/audio"

	"github.com/cwbudde/algo-loudnorm/dynamics"
	"github.com/cwbudde/algo-loudnorm/loudness"
)

type fileReport struct {
	path     string
	m        loudness.Measurement
	peak     float64
	gain     float64
	rate     int
	channels int
	samples  []float64
}

func main() {
	target := flag.Float64("target", loudness.DefaultTargetLUFS, "target loudness in LUFS")
	stride := flag.Int("stride", 1, "analyze every n-th frame only (cheap approximate scan)")
	mono := flag.Bool("mono", false, "downmix to mono before analysis (cheap approximate scan)")
	chunk := flag.Int("chunk", 8192, "frames per processing chunk")
	output := flag.String("o", "", "write a normalized copy of the input to this path (single input only)")
	quiet := flag.Bool("quiet", false, "print loudness values only")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: loudnorm [flags] file.wav [file2.wav ...]\n\n")
		fmt.Fprintf(os.Stderr, "Measures integrated loudness of WAV files and suggests or applies\n")
		fmt.Fprintf(os.Stderr, "the gain needed to reach the target loudness.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  loudnorm track.wav\n")
		fmt.Fprintf(os.Stderr, "  loudnorm -target -16 track.wav\n")
		fmt.Fprintf(os.Stderr, "  loudnorm -stride 4 -mono album/*.wav\n")
		fmt.Fprintf(os.Stderr, "  loudnorm -o normalized.wav track.wav\n")
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if *chunk < 1 {
		fmt.Fprintf(os.Stderr, "error: -chunk must be at least 1\n")
		os.Exit(2)
	}

	if *output != "" && flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "error: -o requires exactly one input file\n")
		os.Exit(2)
	}

	var reports []*fileReport

	failed := false
	for _, path := range flag.Args() {
		r, err := analyzeFile(path, *target, *stride, *mono, *chunk)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %s: %v\n", path, err)
			failed = true

			continue
		}

		reports = append(reports, r)
	}

	if *quiet {
		for _, r := range reports {
			if r.m.Valid {
				fmt.Printf("%.2f\n", r.m.LUFS)
			} else {
				fmt.Println("n/a")
			}
		}
	} else {
		printReports(reports)
	}

	if *output != "" && len(reports) == 1 {
		r := reports[0]

		if err := writeNormalized(*output, r, *chunk); err != nil {
			fmt.Fprintf(os.Stderr, "error: %s: %v\n", *output, err)
			os.Exit(1)
		}

		if !*quiet {
			fmt.Printf("wrote %s (gain %.3fx)\n", *output, r.gain)
		}
	}

	if failed {
		os.Exit(1)
	}
}

func analyzeFile(path string, target float64, stride int, mono bool, chunkFrames int) (*fileReport, error) {
	samples, rate, channels, err := readWAV(path)
	if err != nil {
		return nil, err
	}

	a, err := loudness.NewAnalyzer(
		loudness.WithSampleRate(float64(rate)),
		loudness.WithChannels(channels),
		loudness.WithStride(stride),
		loudness.WithDownmixMono(mono),
	)
	if err != nil {
		return nil, err
	}

	step := chunkFrames * channels
	for start := 0; start < len(samples); start += step {
		end := min(start+step, len(samples))
		a.Analyze(samples[start:end])
	}

	m := a.Finalize()

	peak := 0.0
	for _, p := range a.Peaks() {
		peak = max(peak, p)
	}

	return &fileReport{
		path:     path,
		m:        m,
		peak:     peak,
		gain:     loudness.Gain(m.LUFS, target),
		rate:     rate,
		channels: channels,
		samples:  samples,
	}, nil
}

func printReports(reports []*fileReport) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "File\tLoudness\tPeak\tGain\n")
	fmt.Fprintf(tw, "----\t--------\t----\t----\n")

	for _, r := range reports {
		loud := "n/a"
		if r.m.Valid {
			loud = fmt.Sprintf("%.2f LUFS", r.m.LUFS)
		}

		fmt.Fprintf(tw, "%s\t%s\t%.3f\t%.3fx\n", r.path, loud, r.peak, r.gain)
	}

	if err := tw.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to flush output: %v\n", err)
	}
}

func writeNormalized(path string, r *fileReport, chunkFrames int) error {
	n, err := dynamics.NewNormalizer(float64(r.rate), r.channels)
	if err != nil {
		return err
	}

	// Offline rendering: apply the full gain from the first sample.
	if err := n.SetRampTime(0); err != nil {
		return err
	}

	if err := n.SetTargetGain(r.gain); err != nil {
		return err
	}

	out := append([]float64(nil), r.samples...)

	step := chunkFrames * r.channels
	for start := 0; start < len(out); start += step {
		end := min(start+step, len(out))
		n.ProcessInPlace(out[start:end])
	}

	return writeWAV(path, out, r.rate, r.channels)
}

func readWAV(path string) ([]float64, int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, 0, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, 0, 0, fmt.Errorf("invalid wav file: %s", path)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, 0, err
	}

	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, 0, 0, fmt.Errorf("invalid wav buffer: %s", path)
	}

	if buf.Format.SampleRate <= 0 {
		return nil, 0, 0, fmt.Errorf("invalid wav sample rate: %d", buf.Format.SampleRate)
	}

	samples := make([]float64, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = float64(v)
	}

	return samples, buf.Format.SampleRate, buf.Format.NumChannels, nil
}

func writeWAV(path string, samples []float64, sampleRate, channels int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)
	defer enc.Close()

	data := make([]float32, len(samples))
	for i, v := range samples {
		data[i] = float32(v)
	}

	buf := &audio.Float32Buffer{
		Format: &audio.Format{
			SampleRate:  sampleRate,
			NumChannels: channels,
		},
		Data:           data,
		SourceBitDepth: 16,
	}

	return enc.Write(buf)
}
