// Package schemas holds the JSON Schemas for the documents the monitoring deck reads from disk.
package schemas

import "embed"

// Schema file names.
const (
	Thresholds = "thresholds.schema.json"
	Style      = "style.schema.json"
	Restyle    = "restyle.schema.json"
	Table      = "table.schema.json"
	Config     = "config.schema.json"
)

//go:embed *.schema.json
var files embed.FS

// Read returns the content of the named schema file.
func Read(name string) (string, error) {
	data, err := files.ReadFile(name)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Names lists every embedded schema.
func Names() []string {
	return []string{Thresholds, Style, Restyle, Table, Config}
}
