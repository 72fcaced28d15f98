package tiktokenloader

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"fmt"
	"io/fs"
	"path"
	"strconv"
	"strings"
)

// O200kBaseDictFile is the BPE rank file used by the GPT-5 family tokenizers.
const O200kBaseDictFile = "o200k_base.tiktoken"

// DirLoader serves tiktoken BPE rank files from a directory instead of the
// network. Only the base name of the requested URL is used.
type DirLoader struct {
	fsys fs.FS
}

// NewDirLoader returns a loader reading rank files from fsys.
func NewDirLoader(fsys fs.FS) *DirLoader {
	return &DirLoader{fsys: fsys}
}

// LoadTiktokenBpe implements tiktoken.BpeLoader.
func (l *DirLoader) LoadTiktokenBpe(tiktokenBpeFile string) (map[string]int, error) {
	baseFileName := path.Base(tiktokenBpeFile)
	data, err := fs.ReadFile(l.fsys, baseFileName)
	if err != nil {
		return nil, fmt.Errorf("reading tiktoken bpe file %s: %w", baseFileName, err)
	}
	return ParseRanks(data)
}

// ParseRanks parses the "<base64 token> <rank>" line format.
func ParseRanks(data []byte) (map[string]int, error) {
	bpeRanks := make(map[string]int)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		parts := strings.Split(line, " ")
		if len(parts) != 2 {
			return nil, fmt.Errorf("line %d: expected token and rank", lineNo)
		}
		token, err := base64.StdEncoding.DecodeString(parts[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		rank, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		bpeRanks[string(token)] = rank
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(bpeRanks) == 0 {
		return nil, fmt.Errorf("no bpe ranks found")
	}
	return bpeRanks, nil
}
