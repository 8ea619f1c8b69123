// Package migrations embeds the SQL schema files applied by cmd/migrate.
package migrations

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

//go:embed *.sql
var files embed.FS

// Files returns the embedded migration files for direction ("up" or "down") in apply order.
// Down migrations are returned newest first.
func Files(direction string) ([]string, error) {
	if direction != "up" && direction != "down" {
		return nil, fmt.Errorf("invalid migration direction %q, expected up or down", direction)
	}

	names, err := fs.Glob(files, "*."+direction+".sql")
	if err != nil {
		return nil, err
	}

	sort.Strings(names)
	if direction == "down" {
		sort.Sort(sort.Reverse(sort.StringSlice(names)))
	}
	return names, nil
}

// Read returns the contents of one embedded migration file
func Read(name string) (string, error) {
	data, err := files.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("failed to read migration %s: %w", name, err)
	}
	return strings.TrimSpace(string(data)), nil
}
