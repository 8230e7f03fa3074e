//go:build pcap
// +build pcap

// Package main provides an offline decoder for captured simulator
// streams. It replays a PCAP of the UDP frame packets, reassembles
// frames, and summarizes point counts and classification codes.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"

	"github.com/banshee-data/scansim/internal/sim/network"
)

// Config holds configuration for the PCAP decode run.
type Config struct {
	PCAPFile  string
	OutputDir string
	UDPPort   int
	ExportCSV bool
	Verbose   bool
}

// DecodeResult summarizes one decoded capture.
type DecodeResult struct {
	TotalPackets  int
	BadPackets    int
	TotalFrames   int
	TotalPoints   int
	MissPoints    int
	CodeCounts    [9]int // indexed by classification code
	Frames        []FrameSummary
	FirstSeq      uint64
	LastSeq       uint64
	DroppedFrames int
}

// FrameSummary is one reassembled frame's headline numbers.
type FrameSummary struct {
	Seq      uint64
	Channels int
	Points   int
	Misses   int
}

func main() {
	config := parseFlags()

	if config.PCAPFile == "" {
		fmt.Fprintln(os.Stderr, "Error: PCAP file is required")
		flag.Usage()
		os.Exit(1)
	}
	if _, err := os.Stat(config.PCAPFile); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Error: PCAP file not found: %s\n", config.PCAPFile)
		os.Exit(1)
	}

	result, err := decodePCAP(config)
	if err != nil {
		log.Fatalf("Decode failed: %v", err)
	}

	printSummary(result)

	if config.ExportCSV && len(result.Frames) > 0 {
		if config.OutputDir != "" {
			if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
				log.Fatalf("Failed to create output directory: %v", err)
			}
		}
		baseName := strings.TrimSuffix(filepath.Base(config.PCAPFile), filepath.Ext(config.PCAPFile))
		csvPath := filepath.Join(config.OutputDir, baseName+"_frames.csv")
		if err := exportFramesCSV(csvPath, result.Frames); err != nil {
			log.Fatalf("Export failed: %v", err)
		}
		fmt.Printf("CSV frames: %s\n", csvPath)
	}
}

func parseFlags() Config {
	config := Config{}

	flag.StringVar(&config.PCAPFile, "pcap", "", "Path to PCAP file (required)")
	flag.StringVar(&config.OutputDir, "output", ".", "Output directory for results")
	flag.IntVar(&config.UDPPort, "port", 2371, "UDP port carrying the simulator stream")
	flag.BoolVar(&config.ExportCSV, "csv", true, "Export per-frame summaries to CSV")
	flag.BoolVar(&config.Verbose, "v", false, "Verbose output")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Offline decoder for captured simulator frame streams.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExample:\n")
		fmt.Fprintf(os.Stderr, "  %s -pcap capture.pcap -output ./results\n", os.Args[0])
	}

	flag.Parse()
	return config
}

func decodePCAP(config Config) (*DecodeResult, error) {
	handle, err := pcap.OpenOffline(config.PCAPFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open PCAP: %w", err)
	}
	defer handle.Close()

	filterStr := fmt.Sprintf("udp port %d", config.UDPPort)
	if err := handle.SetBPFFilter(filterStr); err != nil {
		return nil, fmt.Errorf("failed to set BPF filter: %w", err)
	}

	result := &DecodeResult{}
	assembler := network.NewFrameAssembler()
	var lastSeq uint64
	haveSeq := false

	packetSource := gopacket.NewPacketSource(handle, handle.LinkType())
	for packet := range packetSource.Packets() {
		udpLayer := packet.Layer(layers.LayerTypeUDP)
		if udpLayer == nil {
			continue
		}
		payload := udpLayer.(*layers.UDP).Payload
		if len(payload) == 0 {
			continue
		}
		result.TotalPackets++

		header, _, err := network.ParsePacket(payload)
		if err != nil {
			result.BadPackets++
			if config.Verbose {
				log.Printf("Bad packet: %v", err)
			}
			continue
		}

		points, counts, done, err := assembler.Add(payload)
		if err != nil {
			result.BadPackets++
			if config.Verbose {
				log.Printf("Reassembly error: %v", err)
			}
			continue
		}
		if !done {
			continue
		}

		if !haveSeq {
			result.FirstSeq = header.FrameSeq
			haveSeq = true
		} else if header.FrameSeq > lastSeq+1 {
			result.DroppedFrames += int(header.FrameSeq - lastSeq - 1)
		}
		lastSeq = header.FrameSeq
		result.LastSeq = header.FrameSeq

		summary := FrameSummary{
			Seq:      header.FrameSeq,
			Channels: len(counts),
			Points:   len(points),
		}
		for _, p := range points {
			if p.Miss() {
				summary.Misses++
			}
			if p.ObjectIdx < uint32(len(result.CodeCounts)) {
				result.CodeCounts[p.ObjectIdx]++
			}
		}

		result.TotalFrames++
		result.TotalPoints += summary.Points
		result.MissPoints += summary.Misses
		result.Frames = append(result.Frames, summary)

		if config.Verbose && result.TotalFrames%100 == 0 {
			log.Printf("Frame %d: %d points, %d misses", header.FrameSeq, summary.Points, summary.Misses)
		}
	}

	return result, nil
}

var codeLabels = [9]string{
	"normal", "no-component", "no-face-index", "uv-lookup-failed",
	"no-material", "no-material-instance", "no-parameters",
	"vector-only", "scalar-not-alpha",
}

func printSummary(result *DecodeResult) {
	fmt.Println("\n========== Stream Decode Summary ==========")
	fmt.Printf("Packets: %d (%d bad)\n", result.TotalPackets, result.BadPackets)
	fmt.Printf("Frames: %d (seq %d..%d, %d dropped)\n",
		result.TotalFrames, result.FirstSeq, result.LastSeq, result.DroppedFrames)
	if result.TotalPoints > 0 {
		fmt.Printf("Points: %d total, %d misses (%.1f%%)\n",
			result.TotalPoints, result.MissPoints,
			100*float64(result.MissPoints)/float64(result.TotalPoints))
		fmt.Println("\nPoints by classification code:")
		for code, count := range result.CodeCounts {
			if count == 0 {
				continue
			}
			fmt.Printf("  %d (%s): %d\n", code, codeLabels[code], count)
		}
	}
	fmt.Println("===========================================")
}

func exportFramesCSV(path string, frames []FrameSummary) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"seq", "channels", "points", "misses"}); err != nil {
		return err
	}
	for _, fr := range frames {
		row := []string{
			strconv.FormatUint(fr.Seq, 10),
			strconv.Itoa(fr.Channels),
			strconv.Itoa(fr.Points),
			strconv.Itoa(fr.Misses),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}
