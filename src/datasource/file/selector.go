package file

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// ErrNoInputFiles 没有选中任何文件
var ErrNoInputFiles = errors.New("nenhum arquivo de entrada")

// 清洗结果可识别的扩展名,同名文件按此顺序只取一个
var cleanedExts = []string{".csv", ".ndjson", ".jsonl", ".json"}

// FilesForYear 选出 VRA_YYYY*、VRAYYYY*、VRA-YYYY* 且年份后紧跟月份(1..12)的文件
func FilesForYear(dataDir string, year int) ([]string, error) {
	entries, err := readDir(dataDir)
	if err != nil {
		return nil, err
	}

	re := regexp.MustCompile(fmt.Sprintf(`^VRA[_-]?%d[_-]?(\d{1,2})`, year))
	seen := make(map[string]bool)
	var found []string
	for _, e := range entries {
		if !e.Type().IsRegular() || seen[e.Name()] {
			continue
		}
		m := re.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		if mo, _ := strconv.Atoi(m[1]); mo < 1 || mo > 12 {
			continue
		}
		seen[e.Name()] = true
		found = append(found, filepath.Join(dataDir, e.Name()))
	}
	sort.Strings(found)
	return found, nil
}

// FilesAll 目录下所有 VRA* 普通文件
func FilesAll(dataDir string) ([]string, error) {
	entries, err := readDir(dataDir)
	if err != nil {
		return nil, err
	}

	var found []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasPrefix(e.Name(), "VRA") {
			found = append(found, filepath.Join(dataDir, e.Name()))
		}
	}
	sort.Strings(found)
	return found, nil
}

// CleanedFiles path为文件时直接返回,为目录时列出该层的清洗结果(csv/json/ndjson,可带.gz),
// 不进入子目录;同名的多种格式(例如 voos.csv 和 voos.json)只取一个
func CleanedFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("entrada %s: %w", path, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := readDir(path)
	if err != nil {
		return nil, err
	}
	var found []string
	for _, e := range entries {
		if e.Type().IsRegular() && IsCleanedName(e.Name()) {
			found = append(found, filepath.Join(path, e.Name()))
		}
	}
	found = dedupeFormats(found)
	if len(found) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoInputFiles)
	}
	sort.Strings(found)
	return found, nil
}

// IsCleanedName 是否为可读取的清洗结果文件名
func IsCleanedName(name string) bool {
	name = strings.TrimSuffix(strings.ToLower(name), ".gz")
	for _, ext := range cleanedExts {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// dedupeFormats 同一stem保留优先级最高的格式
func dedupeFormats(paths []string) []string {
	best := make(map[string]string)
	for _, p := range paths {
		stem, rank := cleanedStem(p)
		if cur, ok := best[stem]; !ok || rank < rankOf(cur) {
			best[stem] = p
		}
	}
	out := make([]string, 0, len(best))
	for _, p := range best {
		out = append(out, p)
	}
	return out
}

func cleanedStem(path string) (string, int) {
	name := strings.TrimSuffix(strings.ToLower(path), ".gz")
	for i, ext := range cleanedExts {
		if strings.HasSuffix(name, ext) {
			return strings.TrimSuffix(name, ext), i
		}
	}
	return name, len(cleanedExts)
}

func rankOf(path string) int {
	_, rank := cleanedStem(path)
	return rank
}

func readDir(dir string) ([]os.DirEntry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("diretório %s: %w", dir, err)
	}
	return entries, nil
}
