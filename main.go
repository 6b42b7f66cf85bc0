// Command gibberlink-gateway runs the protocol gateway's CLI: serve
// starts the HTTP/WebSocket API, audit search queries the journal, and
// version prints build metadata.
package main

import (
	"fmt"
	"os"

	"github.com/tphakala/gibberlink-gateway/cmd"
	"github.com/tphakala/gibberlink-gateway/internal/buildinfo"
)

// version/buildDate are set via -ldflags "-X main.version=... -X main.buildDate=...";
// they default to "dev"/"unknown" for local builds.
var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	runtime := buildinfo.NewContext(version, buildDate, systemID())

	if err := cmd.RootCommand(runtime).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// systemID gives each running instance a stable-for-the-process identifier
// for correlating log lines and audit entries across restarts, without
// depending on a persisted machine ID file.
func systemID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "unknown-host"
	}
	return host
}
