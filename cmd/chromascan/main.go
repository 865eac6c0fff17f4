// chromascan finds where known reference clips occur inside a long
// recording by cross-correlating Chromaprint fingerprints.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"chromascan/pkg/chromascan"
	"chromascan/pkg/chromascan/audio"
	"chromascan/pkg/chromascan/fingerprint"
	"chromascan/pkg/chromascan/storage"
	"chromascan/pkg/logger"
	"chromascan/pkg/utils"
)

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func defaultDBPath() string {
	return getEnvOrDefault("CHROMASCAN_DB_PATH", storage.DefaultDBFile)
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "scan":
		handleScan(args)
	case "fingerprint":
		handleFingerprint(args)
	case "fetch":
		handleFetch(args)
	case "history":
		handleHistory(args)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func handleScan(args []string) {
	log := logger.GetLogger()

	cmd := flag.NewFlagSet("scan", flag.ExitOnError)
	sourceFile := cmd.String("sf", "input.mp4", "file to search through for reference clips")
	refsDir := cmd.String("fp", "fingerprints", "directory of reference .fpcalc files")
	window := cmd.Int("window", 500, "window length in seconds")
	windowStep := cmd.Int("window-step", 10, "window stride in seconds")
	span := cmd.Int("span", 150, "maximum frame offset swept per comparison")
	step := cmd.Int("step", 10, "frame offset stride of the sweep")
	threshold := cmd.Float64("threshold", 0.60, "minimum similarity counted as a high correlation")
	workers := cmd.Int("workers", 0, "parallel workers (0 = number of CPUs)")
	dbPath := cmd.String("db", defaultDBPath(), "scan history database (env: CHROMASCAN_DB_PATH)")
	noHistory := cmd.Bool("no-history", false, "do not record this scan in the history database")
	cmd.Parse(args)

	opts := []chromascan.Option{
		chromascan.WithWindow(*window),
		chromascan.WithWindowStep(*windowStep),
		chromascan.WithSearchSpan(*span),
		chromascan.WithSearchStep(*step),
		chromascan.WithThreshold(*threshold),
	}
	if *workers > 0 {
		opts = append(opts, chromascan.WithWorkers(*workers))
	}
	if !*noHistory {
		catalog, err := storage.Open(*dbPath)
		if err != nil {
			log.Fatalf("Failed to open history database %s: %v", *dbPath, err)
		}
		opts = append(opts, chromascan.WithCatalog(catalog))
	}

	svc, err := chromascan.NewService(opts...)
	if err != nil {
		log.Fatalf("Failed to create scanner: %v", err)
	}
	defer svc.Close()

	results, err := svc.Scan(context.Background(), *sourceFile, *refsDir)
	if err != nil {
		log.Fatalf("Scan failed: %v", err)
	}

	if len(results) == 0 {
		fmt.Println("No matches found.")
		return
	}
	fmt.Println(makeSonglist(results))
}

func handleFingerprint(args []string) {
	log := logger.GetLogger()

	cmd := flag.NewFlagSet("fingerprint", flag.ExitOnError)
	output := cmd.String("o", "", "output path (default: <input>"+fingerprint.FileSuffix+")")
	cmd.Parse(args)

	if cmd.NArg() < 1 {
		fmt.Println("Usage: chromascan fingerprint <audio_file> [-o out" + fingerprint.FileSuffix + "]")
		os.Exit(1)
	}
	audioPath := cmd.Arg(0)

	outPath := *output
	if outPath == "" {
		outPath = audioPath + fingerprint.FileSuffix
	}

	svc, err := chromascan.NewService()
	if err != nil {
		log.Fatalf("Failed to create scanner: %v", err)
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	duration, err := audio.Duration(ctx, audioPath)
	if err != nil {
		log.Fatalf("Failed to probe %s: %v", audioPath, err)
	}
	fp, err := svc.Fingerprint(ctx, audioPath, 0, 0)
	if err != nil {
		log.Fatalf("Failed to fingerprint %s: %v", audioPath, err)
	}
	if err := fingerprint.WriteFile(outPath, fp, duration); err != nil {
		log.Fatalf("Failed to write %s: %v", outPath, err)
	}

	fmt.Printf("Wrote %d frames to %s\n", len(fp), outPath)
}

// sanitizeTitle turns a clip title into a safe file name.
func sanitizeTitle(title string) string {
	mapper := func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}
	return strings.Map(mapper, strings.TrimSpace(title))
}

func handleFetch(args []string) {
	log := logger.GetLogger()

	cmd := flag.NewFlagSet("fetch", flag.ExitOnError)
	url := cmd.String("url", "", "YouTube URL of the reference clip (required)")
	refsDir := cmd.String("fp", "fingerprints", "directory of reference .fpcalc files")
	title := cmd.String("title", "", "override the clip title from YouTube metadata")
	tempDir := cmd.String("temp", getEnvOrDefault("CHROMASCAN_TEMP_DIR", os.TempDir()), "directory for downloaded audio")
	cmd.Parse(args)

	if *url == "" {
		fmt.Println("Usage: chromascan fetch --url <youtube-url> [-fp dir] [--title name]")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	log.Infof("Downloading reference audio from %s", *url)
	audioPath, meta, err := audio.DownloadYouTubeAudio(ctx, *url, *tempDir)
	if err != nil {
		log.Fatalf("Download failed: %v", err)
	}
	defer utils.DeleteFile(audioPath)

	clipTitle := *title
	if clipTitle == "" {
		clipTitle = meta.Title
	}

	svc, err := chromascan.NewService()
	if err != nil {
		log.Fatalf("Failed to create scanner: %v", err)
	}
	defer svc.Close()

	fp, err := svc.Fingerprint(ctx, audioPath, 0, 0)
	if err != nil {
		log.Fatalf("Failed to fingerprint %s: %v", audioPath, err)
	}

	outPath := filepath.Join(*refsDir, sanitizeTitle(clipTitle)+fingerprint.FileSuffix)
	if err := os.MkdirAll(*refsDir, 0755); err != nil {
		log.Fatalf("Failed to create %s: %v", *refsDir, err)
	}
	if err := fingerprint.WriteFile(outPath, fp, int(meta.Duration)); err != nil {
		log.Fatalf("Failed to write %s: %v", outPath, err)
	}

	fmt.Printf("Added reference %q (%d frames) to %s\n", clipTitle, len(fp), outPath)
}

func handleHistory(args []string) {
	log := logger.GetLogger()

	cmd := flag.NewFlagSet("history", flag.ExitOnError)
	dbPath := cmd.String("db", defaultDBPath(), "scan history database (env: CHROMASCAN_DB_PATH)")
	showMatches := cmd.Bool("matches", false, "also list each scan's matches")
	deleteID := cmd.String("rm", "", "delete the scan with this ID and exit")
	cmd.Parse(args)

	catalog, err := storage.Open(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open history database %s: %v", *dbPath, err)
	}
	defer catalog.Close()

	if *deleteID != "" {
		if err := catalog.DeleteScan(*deleteID); err != nil {
			log.Fatalf("Failed to delete scan %s: %v", *deleteID, err)
		}
		fmt.Printf("Deleted scan %s\n", *deleteID)
		return
	}

	scans, err := catalog.ListScans()
	if err != nil {
		log.Fatalf("Failed to list scans: %v", err)
	}
	if len(scans) == 0 {
		fmt.Println("No scans recorded yet.")
		return
	}

	for _, scan := range scans {
		fmt.Printf("%s  %s  %s  (%ds, %d matches)\n",
			scan.ID, scan.CreatedAt.Format("2006-01-02 15:04:05"), scan.SourcePath, scan.DurationSec, scan.MatchCount)
		if !*showMatches {
			continue
		}
		matches, err := catalog.MatchesForScan(scan.ID)
		if err != nil {
			log.Warnf("Failed to load matches for %s: %v", scan.ID, err)
			continue
		}
		for _, m := range matches {
			fmt.Printf("    %s - %s (%.1f%%)\n", formatTimestamp(m.OffsetSec), m.Title, m.Confidence)
		}
	}
}

func printUsage() {
	fmt.Println("chromascan - locate known reference clips inside a long recording")
	fmt.Println("\nUsage:")
	fmt.Println("  chromascan scan -sf <media_file> -fp <fingerprints_dir> [options]")
	fmt.Println("  chromascan fingerprint <audio_file> [-o out" + fingerprint.FileSuffix + "]")
	fmt.Println("  chromascan fetch --url <youtube-url> [-fp dir] [--title name]")
	fmt.Println("  chromascan history [--matches] [--rm <scan-id>]")
	fmt.Println("\nScan options:")
	fmt.Println("  -window <s>       window length in seconds (default 500)")
	fmt.Println("  -window-step <s>  window stride in seconds (default 10)")
	fmt.Println("  -span <frames>    maximum frame offset swept (default 150)")
	fmt.Println("  -step <frames>    sweep stride in frames (default 10)")
	fmt.Println("  -threshold <f>    match threshold 0-1 (default 0.60)")
	fmt.Println("  -workers <n>      parallel workers (default: number of CPUs)")
	fmt.Println("  -no-history       skip recording the scan in the history database")
	fmt.Println("\nEnvironment:")
	fmt.Println("  CHROMASCAN_DB_PATH   history database path (default: " + storage.DefaultDBFile + ")")
	fmt.Println("  LOG_LEVEL            DEBUG, INFO, WARN or FATAL")
}
