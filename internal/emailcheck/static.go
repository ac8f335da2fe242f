package emailcheck

import (
	"bufio"
	_ "embed"
	"strings"
	"sync"
)

//go:embed domains.txt
var domainsRaw string

var (
	staticOnce    sync.Once
	staticDomains map[string]struct{}
)

// staticSet lazily parses the embedded domain list.
func staticSet() map[string]struct{} {
	staticOnce.Do(func() {
		staticDomains = make(map[string]struct{})
		scanner := bufio.NewScanner(strings.NewReader(domainsRaw))
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			staticDomains[strings.ToLower(line)] = struct{}{}
		}
	})
	return staticDomains
}

// inStaticList reports whether the domain is on the embedded blocklist.
func inStaticList(domain string) bool {
	_, ok := staticSet()[strings.ToLower(domain)]
	return ok
}
