package groupdb

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadGroupsCSV parses a talkgroup policy file with columns
// tg,mode,name,alg (no header row). Malformed lines are skipped.
func LoadGroupsCSV(path string) ([]GroupEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("groupdb: open groups csv: %w", err)
	}
	defer f.Close()
	return parseGroupsCSV(f)
}

func parseGroupsCSV(r io.Reader) ([]GroupEntry, error) {
	reader := csv.NewReader(bufio.NewReader(r))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	now := time.Now()
	var entries []GroupEntry
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		if len(record) < 2 {
			continue
		}
		tg, err := strconv.ParseUint(strings.TrimSpace(record[0]), 10, 32)
		if err != nil {
			continue
		}
		e := GroupEntry{TG: uint32(tg), Mode: strings.ToUpper(strings.TrimSpace(record[1])), UpdatedAt: now}
		if len(record) >= 3 {
			e.DisplayName = strings.TrimSpace(record[2])
		}
		if len(record) >= 4 {
			if alg, err := strconv.Atoi(strings.TrimSpace(record[3])); err == nil {
				e.LastAlgID = alg
			}
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// LoadLCNCSV parses a channel map file with columns lcn,freq_hz (no
// header row). Malformed lines are skipped.
func LoadLCNCSV(path string) ([]LCNEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("groupdb: open lcn csv: %w", err)
	}
	defer f.Close()
	return parseLCNCSV(f)
}

func parseLCNCSV(r io.Reader) ([]LCNEntry, error) {
	reader := csv.NewReader(bufio.NewReader(r))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var entries []LCNEntry
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		if len(record) < 2 {
			continue
		}
		lcn, err := strconv.ParseUint(strings.TrimSpace(record[0]), 10, 32)
		if err != nil {
			continue
		}
		freq, err := strconv.ParseUint(strings.TrimSpace(record[1]), 10, 32)
		if err != nil {
			continue
		}
		entries = append(entries, LCNEntry{LCN: uint32(lcn), Freq: uint32(freq)})
	}
	return entries, nil
}
