package github

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// ReadTokenFile reads one token per line, skipping blanks and # comments.
func ReadTokenFile(path string) ([]string, error) {
	return readListFile(path, "token", nil)
}

// ReadProxyFile reads one proxy per line. Bare host:port entries get an http:// scheme.
func ReadProxyFile(path string) ([]string, error) {
	return readListFile(path, "proxy", func(line string) string {
		if !strings.Contains(line, "://") {
			return "http://" + line
		}
		return line
	})
}

func readListFile(path, kind string, normalize func(string) string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s file: %v", kind, err)
	}
	defer f.Close()

	var entries []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if normalize != nil {
			line = normalize(line)
		}
		entries = append(entries, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading %s file: %v", kind, err)
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("%s file is empty: %s", kind, path)
	}

	return entries, nil
}
