// Command pairexport converts a saved session document to the sectioned
// CSV form, one session at a time.
package main

import (
	"flag"
	"fmt"
	"os"

	"vacancy-tracker/internal/session"
	"vacancy-tracker/internal/version"

	"github.com/charmbracelet/log"
)

func main() {
	docPath := flag.String("sessions", "", "Path to session document JSON")
	sessionID := flag.String("id", "", "Session id to export (omit to list sessions)")
	outPath := flag.String("out", "", "CSV output path")
	flag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
	})

	if *docPath == "" {
		fmt.Println("Usage: pairexport -sessions <doc.json> [-id <sessionId> -out <file.csv>]")
		os.Exit(1)
	}

	doc, err := session.LoadDocument(*docPath)
	if err != nil {
		logger.Fatal("failed to load session document", "err", err)
	}

	if *sessionID == "" {
		fmt.Printf("pairexport v%s — %d session(s) in %s\n", version.Version, len(doc.Sessions), *docPath)
		fmt.Printf("%-24s %10s %10s %s\n", "ID", "Pairings", "Fates", "Modified")
		for _, s := range doc.Sessions {
			fmt.Printf("%-24s %10d %10d %s\n",
				s.SessionID, len(s.Pairings), len(s.Fates), s.Modified.Format("2006-01-02 15:04"))
		}
		return
	}

	if *outPath == "" {
		logger.Fatal("-out is required when exporting a session")
	}

	sess, ok := doc.SessionByID(*sessionID)
	if !ok {
		logger.Fatal("session not found", "id", *sessionID)
	}
	if err := sess.ExportCSVFile(*outPath); err != nil {
		logger.Fatal("failed to write CSV", "err", err)
	}
	logger.Info("CSV written", "path", *outPath,
		"confirmed_pairings", len(sess.ConfirmedPairings()), "fates", len(sess.Fates))
}
