package main

import (
	"flag"
	"fmt"
	"log"
	"messenger/infrastructure/storage"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/mama165/sdk-go/database"
	"github.com/olekukonko/tablewriter"
)

func main() {
	dbPath := flag.String("db", database.DefaultPath, "Path to badger DB")
	// Empty prefix dumps the whole keyspace, index keys included
	prefix := flag.String("prefix", "dm:", "Prefix to scan")
	skipIndexes := flag.Bool("skip-indexes", true, "Hide peer/ugroup/friend:user index keys")
	flag.Parse()

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Type", "Timestamp", "Entity ID", "Namespace", "Detail"})
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

	count := 0
	err = storage.Inspect(db, *prefix, func(row database.InspectRow) {
		if *skipIndexes && row.Type == "INDEX" {
			return
		}
		count++
		table.Append([]string{
			row.Key,
			colorType(row.Type),
			row.Timestamp,
			row.EntityID,
			row.Namespace,
			row.Detail,
		})
	})
	if err != nil {
		log.Fatal(err)
	}

	table.Render()
	color.Gray.Printf("\n%d entries under %q\n", count, *prefix)
}

func colorType(t string) string {
	switch t {
	case "DM", "GROUP_MSG":
		return color.Cyan.Sprint(t)
	case "GROUP", "MEMBER":
		return color.Green.Sprint(t)
	case "FRIEND", "PENDING":
		return color.Yellow.Sprint(t)
	case "CORRUPT":
		return color.Red.Sprint(t)
	}
	return t
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true)

	db, err := badger.Open(opts)
	if err != nil {
		// A crashed server leaves a vlog that read-only mode refuses to truncate
		if strings.Contains(err.Error(), "Log truncate required") {
			color.Warn.Println("Truncating value log before reading")

			repairOpts := badger.DefaultOptions(path).
				WithLogger(nil).WithBypassLockGuard(true)

			db, err = badger.Open(repairOpts)
			if err != nil {
				return nil, fmt.Errorf("repair failed: %w", err)
			}
			_ = db.Close()
			return badger.Open(opts)
		}
		return nil, err
	}
	return db, nil
}
