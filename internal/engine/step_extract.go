package engine

import (
	"bufio"
	"fmt"
	"os"
	"regexp"

	"github.com/alexisbeaulieu97/batchflow/internal/domain/scenario"
)

func (r *run) executeExtract(kind scenario.ExtractVar, scope *stepScope) error {
	path, err := r.vars.ExpandRequired(kind.FilePath, "extract.file_path")
	if err != nil {
		return err
	}

	line, err := readLine(path, kind.LineNumber)
	if err != nil {
		return err
	}

	re, err := regexp.Compile(kind.Pattern)
	if err != nil {
		return fmt.Errorf("compile pattern %q: %w", kind.Pattern, err)
	}
	match := re.FindStringSubmatchIndex(line)
	if match == nil {
		return fmt.Errorf("pattern %q does not match line %d of %s", kind.Pattern, kind.LineNumber, path)
	}
	group := kind.CaptureGroup
	if group < 0 || 2*group+1 >= len(match) || match[2*group] < 0 {
		return fmt.Errorf("capture group %d not found in match of %q", group, kind.Pattern)
	}

	value := line[match[2*group]:match[2*group+1]]
	r.vars.Set(kind.VarName, value)
	scope.logf("%s = %s", kind.VarName, value)
	return nil
}

// readLine returns line n (1-indexed) of path without its line terminator.
func readLine(path string, n int) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for current := 1; scanner.Scan(); current++ {
		if current == n {
			return scanner.Text(), nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return "", fmt.Errorf("%s has no line %d", path, n)
}
