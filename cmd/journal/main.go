package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"logpilot/domain"
	"logpilot/repositories"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/dustin/go-humanize"
	"github.com/mama165/sdk-go/database"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
)

func main() {
	dbPath := flag.String("db", database.DefaultPath, "Path to badger DB")
	session := flag.String("session", "", "Only show this session")
	limit := flag.Int("limit", 200, "Maximum number of entries")
	flag.Parse()

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	repository := repositories.NewJournalRepository(db, logs.GetLoggerFromLevel(slog.LevelWarn))
	var entries []repositories.JournalEntry
	if *session != "" {
		entries, err = repository.List(domain.SessionID(*session), *limit)
	} else {
		entries, err = repository.ListAll(*limit)
	}
	if err != nil {
		log.Fatal(err)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"At", "Session", "Upload", "Name", "Size", "Kind", "Reason"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	for _, entry := range entries {
		table.Append([]string{
			entry.At.Local().Format("2006-01-02 15:04:05"),
			short(string(entry.Session)),
			short(string(entry.UploadID)),
			entry.Name,
			humanize.IBytes(uint64(max(entry.Size, 0))),
			string(entry.Kind),
			entry.Reason,
		})
	}
	table.Render()
	fmt.Printf("\n%d entries\n", len(entries))
}

// short keeps the first 8 characters of an id for readability
func short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true)

	db, err := badger.Open(opts)
	if err != nil {
		if strings.Contains(err.Error(), "Log truncate required") {
			return nil, fmt.Errorf("journal needs recovery, stop the server and open it once in write mode: %w", err)
		}
		return nil, err
	}
	return db, nil
}
