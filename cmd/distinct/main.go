// Command distinct estimates the number of distinct lines on stdin.
//
// By default it buffers the input and runs over the slice:
//
//	distinct -eps 0.1 -delta 0.01 < values.txt
//
// With a declared stream length it runs single-pass in bounded memory; the
// declared length may overshoot the real one, at a small cost in sample
// capacity:
//
//	distinct -n 1000000 -eps 0.1 -delta 0.01 < values.txt
//
// The calibrate mode simulates runs over a synthetic stream instead of
// reading stdin, reporting the empirically delivered accuracy:
//
//	distinct -calibrate -n 100000 -distinct 100000 -trials 20
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/yourusername/cardinality-auditor/internal/guardrail"
	"github.com/yourusername/cardinality-auditor/pkg/calibrate"
	"github.com/yourusername/cardinality-auditor/pkg/distinct"
)

func main() {
	eps := flag.Float64("eps", 0.1, "relative error bound")
	delta := flag.Float64("delta", 0.01, "failure probability")
	seed := flag.Uint64("seed", 0, "random seed; 0 draws one from entropy")
	declared := flag.Int("n", 0, "declared stream length; enables single-pass streaming")
	verbose := flag.Bool("v", false, "log run diagnostics to stderr")
	showStats := flag.Bool("stats", false, "print run statistics to stderr")

	doCalibrate := flag.Bool("calibrate", false, "run a calibration experiment instead of reading stdin")
	trials := flag.Int("trials", 20, "calibration trials")
	card := flag.Int("distinct", 0, "calibration distinct count (defaults to -n)")
	flag.Parse()

	log.SetFlags(0)
	log.SetPrefix("distinct: ")

	if err := guardrail.ValidateAccuracy(*eps, *delta); err != nil {
		log.Fatal(err)
	}

	if *doCalibrate {
		runCalibration(*trials, *declared, *card, *eps, *delta, *seed)
		return
	}

	var st distinct.Stats
	opts := []distinct.Option{distinct.WithStats(&st)}
	if *seed != 0 {
		opts = append(opts, distinct.WithSource(distinct.NewGen(*seed)))
	}
	if *verbose {
		opts = append(opts, distinct.WithLogger(slog.New(slog.NewTextHandler(os.Stderr, nil))))
	}

	var (
		estimate int
		err      error
	)
	if *declared > 0 {
		estimate, err = streamStdin(*declared, *eps, *delta, opts)
	} else {
		estimate, err = sliceStdin(*eps, *delta, opts)
	}
	if err != nil {
		log.Fatal(err)
	}

	if *showStats {
		fmt.Fprintf(os.Stderr, "distinct: m=%d thresh=%d sample=%d p=%g halvings=%d degenerate=%v\n",
			st.StreamLen, st.Threshold, st.SampleSize, st.FinalP, st.Halvings, st.Degenerate)
	}
	if st.Degenerate {
		log.Print("run aborted as degenerate; loosen eps or delta")
	}

	fmt.Println(estimate)
}

// sliceStdin buffers all lines and estimates over the slice.
func sliceStdin(eps, delta float64, opts []distinct.Option) (int, error) {
	lines, err := readLines()
	if err != nil {
		return 0, err
	}

	return distinct.Estimate(lines, eps, delta, opts...), nil
}

// streamStdin feeds lines through a run sized to the declared length
// without holding them.
func streamStdin(declared int, eps, delta float64, opts []distinct.Option) (int, error) {
	est := distinct.NewEstimator[string](declared, eps, delta, opts...)

	scanner := newScanner()

	read := 0
	for scanner.Scan() {
		est.Observe(scanner.Text())
		read++
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("reading stdin: %w", err)
	}

	if read > declared {
		log.Printf("read %d lines but -n declared %d; accuracy bounds no longer hold", read, declared)
	}

	return est.Result(), nil
}

func runCalibration(trials, streamLen, card int, eps, delta float64, seed uint64) {
	if card == 0 {
		card = streamLen
	}
	if seed == 0 {
		seed = distinct.EntropySeed()
		log.Printf("calibrating with base seed %d; pass -seed to repeat this experiment", seed)
	}

	s, err := calibrate.Run(calibrate.Config{
		Trials:    trials,
		StreamLen: streamLen,
		Distinct:  card,
		Epsilon:   eps,
		Delta:     delta,
		Seed:      seed,
	})
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(s)
}

func readLines() ([]string, error) {
	scanner := newScanner()

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading stdin: %w", err)
	}

	return lines, nil
}

func newScanner() *bufio.Scanner {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return scanner
}
