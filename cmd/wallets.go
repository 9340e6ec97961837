package cmd

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// readWallets loads an ordered address list from a JSON array or a file with one address
// per line (commas also separate). Blank lines and lines starting with # are skipped.
func readWallets(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read wallet list: %w", err)
	}
	return parseWallets(raw)
}

func parseWallets(raw []byte) ([]string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var wallets []string
		if err := json.Unmarshal(trimmed, &wallets); err != nil {
			return nil, fmt.Errorf("failed to decode wallet list: %w", err)
		}
		return wallets, nil
	}

	var wallets []string
	scanner := bufio.NewScanner(bytes.NewReader(trimmed))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		for _, field := range strings.Split(line, ",") {
			if field = strings.TrimSpace(field); field != "" {
				wallets = append(wallets, field)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(wallets) == 0 {
		return nil, fmt.Errorf("wallet list is empty")
	}
	return wallets, nil
}
