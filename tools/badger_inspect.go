package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/database"
	"github.com/olekukonko/tablewriter"

	"pairchat/domain"
)

func main() {
	dbPath := flag.String("db", database.DefaultPath, "Path to badger DB")
	// Par défaut on cherche "msg:" pour éviter de percuter les index msgid:
	prefix := flag.String("prefix", "msg:", "Prefix to scan")
	flag.Parse()

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Type", "Timestamp", "Entity ID", "From -> To", "Detail", "Reactions"})
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

	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(*prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()
			rawKey := string(item.Key())

			// Sécurité : on ignore explicitement les index secondaires
			if strings.HasPrefix(rawKey, "msgid:") || strings.HasPrefix(rawKey, "user:email:") {
				continue
			}

			err := item.Value(func(v []byte) error {
				row, ok := describe(rawKey, v)
				if !ok {
					// Au lieu de stopper tout le script, on log l'erreur et on continue
					fmt.Printf("Error decoding key %s\n", rawKey)
					return nil
				}
				table.Append(row)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		log.Fatal(err)
	}

	table.Render()
}

// describe turns one raw entry into a table row based on its key prefix.
func describe(rawKey string, value []byte) ([]string, bool) {
	switch {
	case strings.HasPrefix(rawKey, "msg:"):
		var msg domain.Message
		if err := json.Unmarshal(value, &msg); err != nil {
			return nil, false
		}

		reactions := ""
		for _, r := range msg.Reactions {
			reactions += fmt.Sprintf("%s:%s ", shorten(r.UserID), r.Emoji)
		}

		detail := msg.Content
		if len(detail) > 40 {
			detail = detail[:40] + "..."
		}

		return []string{
			rawKey,
			"MESSAGE",
			msg.CreatedAt.Format("15:04:05"),
			shorten(msg.ID.String()),
			fmt.Sprintf("%s -> %s", shorten(msg.SenderID), shorten(msg.RecipientID)),
			detail,
			reactions,
		}, true

	case strings.HasPrefix(rawKey, "user:id:"):
		var user domain.User
		if err := json.Unmarshal(value, &user); err != nil {
			return nil, false
		}
		return []string{
			rawKey,
			"USER",
			user.CreatedAt.Format("15:04:05"),
			shorten(user.ID),
			"",
			fmt.Sprintf("%s <%s>", user.Username, user.Email),
			"",
		}, true

	default:
		return []string{rawKey, "RAW", "", "", "", fmt.Sprintf("%d bytes", len(value)), ""}, true
	}
}

// shorten affiche les 8 premiers caractères d'un ID pour la lisibilité.
func shorten(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true).
		WithValueLogFileSize(10 * 1024 * 1024)

	db, err := badger.Open(opts)
	if err != nil {
		// Si corruption détectée, essaie un open en write pour truncate
		if strings.Contains(err.Error(), "Log truncate required") {
			fmt.Println("⚠️  Database requires truncate, reopening in write mode")

			repairOpts := badger.DefaultOptions(path).
				WithLogger(nil).WithBypassLockGuard(true)

			db, err = badger.Open(repairOpts)
			if err != nil {
				return nil, fmt.Errorf("repair failed: %w", err)
			}

			// Ferme et réouvre en read-only
			db.Close()
			return badger.Open(opts)
		}
		return nil, err
	}
	return db, nil
}
