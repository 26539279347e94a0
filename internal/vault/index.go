package vault

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// masterIndexFile is the human-readable table of contents at the vault
// root. It is convenience output, not engine state: the graph never reads
// it, and a failed update is logged rather than surfaced.
const masterIndexFile = "_index.md"

var updatedLineRe = regexp.MustCompile(`(?m)^updated: .*$`)

func (s *Service) masterIndexSeed() string {
	var b strings.Builder
	b.WriteString("---\n")
	b.WriteString("title: Index\n")
	b.WriteString("updated: " + s.now().Format(dateLayout) + "\n")
	b.WriteString("---\n")
	b.WriteString("\n# Index\n\n")
	b.WriteString("| Path | Category | Title | Date |\n")
	b.WriteString("| --- | --- | --- | --- |\n")
	return b.String()
}

// ensureMasterIndex writes the empty index table unless one already exists.
func (s *Service) ensureMasterIndex() error {
	if _, err := s.store.Read(masterIndexFile); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return s.store.Write(masterIndexFile, []byte(s.masterIndexSeed()))
}

// upsertIndexRow replaces the row for id in the master index table, or
// appends one, and bumps the updated stamp.
func (s *Service) upsertIndexRow(id, category, title, date string) error {
	data, err := s.store.Read(masterIndexFile)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		data = []byte(s.masterIndexSeed())
	}

	row := fmt.Sprintf("| %s | %s | %s | %s |", id, category, title, date)
	content := replaceIndexRow(string(data), id, row)
	content = updatedLineRe.ReplaceAllString(content, "updated: "+s.now().Format(dateLayout))

	return s.store.Write(masterIndexFile, []byte(content))
}

// removeIndexRow drops the row for id, if present.
func (s *Service) removeIndexRow(id string) error {
	data, err := s.store.Read(masterIndexFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	content := replaceIndexRow(string(data), id, "")
	content = updatedLineRe.ReplaceAllString(content, "updated: "+s.now().Format(dateLayout))
	return s.store.Write(masterIndexFile, []byte(content))
}

// replaceIndexRow swaps the table row keyed by id for replacement, removing
// it when replacement is empty, or appends when the key is absent.
func replaceIndexRow(content, id, replacement string) string {
	prefix := "| " + id + " |"
	lines := strings.Split(content, "\n")
	out := lines[:0]
	found := false
	for _, line := range lines {
		if strings.HasPrefix(line, prefix) {
			found = true
			if replacement == "" {
				continue
			}
			out = append(out, replacement)
			continue
		}
		out = append(out, line)
	}
	joined := strings.Join(out, "\n")
	if !found && replacement != "" {
		joined = strings.TrimRight(joined, "\n") + "\n" + replacement + "\n"
	}
	return joined
}
