package annotation

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
)

var (
	// IgnoreRegexp finds the coverlens ignore pattern.
	// Three kind ignore pattern are supported:
	//   //+coverlens:ignore:file
	//   //+coverlens:ignore:block
	//   //+coverlens:ignore:{number}
	//
	// - `//+coverlens:ignore:file`
	//   drops the whole file, no coverage is shown for it.
	//
	// - `//+coverlens:ignore:block`
	//   drops a code block: the non-blank lines following the annotation until
	//   a blank line. When the annotation trails code, that line belongs to
	//   the block too.
	//       if err != nil { //+coverlens:ignore:block  -|
	//           return nil, err                          | -> code block
	//       }                                           -|
	//
	// - `//+coverlens:ignore:{number}`
	//   drops the given number of lines following the annotation.
	IgnoreRegexp = regexp.MustCompile(`//\+coverlens:ignore:(file|block|[0-9]+)\b`)
)

// IgnoreType indicates the type of the ignore profile.
type IgnoreType string

const (
	// FileIgnore means the whole file is ignored.
	FileIgnore IgnoreType = "file"
	// BlockIgnore means only the lines in Lines are ignored.
	BlockIgnore IgnoreType = "block"
)

// IgnoreProfile is the ignore annotations of a single file.
type IgnoreProfile struct {
	Type     IgnoreType
	Filename string
	// Lines holds the ignored line numbers of a BlockIgnore profile.
	Lines        map[int]bool
	IgnoreBlocks []*IgnoreBlock
}

// IgnoreBlock is the range of lines covered by one annotation.
type IgnoreBlock struct {
	Annotation string   // concrete ignore pattern
	Contents   []string // ignored contents
	Lines      []int    // line numbers of the ignored contents
}

// Ignored reports whether the line is dropped by the profile.
func (p *IgnoreProfile) Ignored(line int) bool {
	if p == nil {
		return false
	}
	return p.Type == FileIgnore || p.Lines[line]
}

// ParseIgnoreProfile reads the ignore annotations of the named file.
func ParseIgnoreProfile(fileName string) (*IgnoreProfile, error) {
	pf, err := os.Open(fileName)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", fileName, err)
	}
	defer pf.Close()

	profile, err := ParseIgnoreProfileFromReader(pf)
	if err != nil {
		return nil, fmt.Errorf("parse ignore annotations of %s: %w", fileName, err)
	}
	profile.Filename = fileName
	return profile, nil
}

// ParseIgnoreProfileFromReader parses ignore annotations from rd.
func ParseIgnoreProfileFromReader(rd io.Reader) (*IgnoreProfile, error) {
	s := bufio.NewScanner(rd)
	lineNo := 0

	profile := &IgnoreProfile{
		Lines: make(map[int]bool),
		Type:  BlockIgnore,
	}

	for s.Scan() {
		lineNo++
		line := s.Text()
		loc := IgnoreRegexp.FindStringSubmatchIndex(line)
		if loc == nil {
			continue
		}

		// match[1] is "file", "block" or a number
		kind := line[loc[2]:loc[3]]
		switch kind {
		case "file":
			profile.Type = FileIgnore
			return profile, nil
		case "block":
			trailing := strings.TrimSpace(line[:loc[0]]) != ""
			lineNo += ignoreOnBlock(s, profile, lineNo, line, trailing)
		default:
			total, err := strconv.Atoi(kind)
			if err != nil {
				continue
			}
			lineNo += ignoreOnNumber(s, profile, lineNo, total, line)
		}
	}
	if err := s.Err(); err != nil {
		return nil, err
	}

	return profile, nil
}

// ignoreOnBlock ignores lines until a blank line and returns how many lines
// it consumed from the scanner.
func ignoreOnBlock(scanner *bufio.Scanner, profile *IgnoreProfile, annotationLine int, patternText string, trailing bool) int {
	block := &IgnoreBlock{Annotation: patternText}
	if trailing {
		block.Lines = append(block.Lines, annotationLine)
		block.Contents = append(block.Contents, patternText)
		profile.Lines[annotationLine] = true
	}

	skipLines := 0
	current := annotationLine
	for scanner.Scan() {
		skipLines++
		content := scanner.Text()
		if strings.TrimSpace(content) == "" {
			break
		}

		current++
		block.Lines = append(block.Lines, current)
		block.Contents = append(block.Contents, content)
		profile.Lines[current] = true
	}

	if len(block.Lines) != 0 {
		profile.IgnoreBlocks = append(profile.IgnoreBlocks, block)
	}
	return skipLines
}

// ignoreOnNumber ignores the cnt lines following the annotation.
func ignoreOnNumber(scanner *bufio.Scanner, profile *IgnoreProfile, annotationLine, cnt int, patternText string) int {
	if cnt <= 0 {
		return 0
	}

	block := &IgnoreBlock{Annotation: patternText}
	skipLines := 0
	current := annotationLine
	for ; cnt > 0 && scanner.Scan(); cnt-- {
		current++
		skipLines++
		block.Lines = append(block.Lines, current)
		block.Contents = append(block.Contents, scanner.Text())
		profile.Lines[current] = true
	}

	if skipLines != 0 {
		profile.IgnoreBlocks = append(profile.IgnoreBlocks, block)
	}
	return skipLines
}
