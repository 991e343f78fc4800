package files

import (
	"os"
	"regexp"
)

// PayloadTypeText is the only content kind produced by Materialize.
const PayloadTypeText = "text"

// Payload is the wire representation of one file in a listing page.
type Payload struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Content string `json:"content"`
}

// interTagSpace matches ASCII whitespace plus \v, U+FEFF and every Unicode
// space or separator.
var interTagSpace = regexp.MustCompile(`>[\s\v\p{Z}\x{FEFF}]+<`)

// Normalize collapses whitespace between a closing '>' and the next '<'.
//
// The rewrite is applied to any content, markup or not.
func Normalize(content string) string {
	return interTagSpace.ReplaceAllString(content, "><")
}

// Materialize reads and normalizes the file behind every record.
//
// Records are read from their stored Path, so a resumed session returns the
// files that were frozen even if the directory has changed since. A file
// that can no longer be read fails the whole page with ErrFileUnreadable.
func Materialize(records []Record) ([]Payload, error) {
	out := make([]Payload, 0, len(records))
	for _, r := range records {
		data, err := os.ReadFile(r.Path)
		if err != nil {
			return nil, NewError(ErrFileUnreadable, "cannot read file", r.Path, err)
		}
		out = append(out, Payload{
			Name:    r.Name,
			Type:    PayloadTypeText,
			Content: Normalize(string(data)),
		})
	}
	return out, nil
}
