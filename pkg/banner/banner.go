package banner

import (
	"fmt"

	"relaychat/pkg/config"
)

const banner = `
██████╗ ███████╗██╗      █████╗ ██╗   ██╗ ██████╗██╗  ██╗ █████╗ ████████╗
██╔══██╗██╔════╝██║     ██╔══██╗╚██╗ ██╔╝██╔════╝██║  ██║██╔══██╗╚══██╔══╝
██████╔╝█████╗  ██║     ███████║ ╚████╔╝ ██║     ███████║███████║   ██║
██╔══██╗██╔══╝  ██║     ██╔══██║  ╚██╔╝  ██║     ██╔══██║██╔══██║   ██║
██║  ██║███████╗███████╗██║  ██║   ██║   ╚██████╗██║  ██║██║  ██║   ██║
╚═╝  ╚═╝╚══════╝╚══════╝╚═╝  ╚═╝   ╚═╝    ╚═════╝╚═╝  ╚═╝╚═╝  ╚═╝   ╚═╝
`

// Print shows startup info: effective config, endpoints and quick
// production checks.
func Print(cfg *config.Config, source, version string) {
	fmt.Print(banner)
	fmt.Println("== Config =====================================================")
	fmt.Printf("Listen:   %s\n", cfg.Addr())
	fmt.Printf("DB Path:  %s\n", cfg.Server.DBPath)
	if version != "" {
		fmt.Printf("Version:  %s\n", version)
	}
	fmt.Printf("Config:   %s\n", source)

	fmt.Println("\n== Endpoints ==================================================")
	fmt.Println("POST /signup  - Create an account (JSON: username, password)")
	fmt.Println("POST /login   - Verify credentials (JSON: username, password)")
	fmt.Println("GET  /ws      - WebSocket relay (events: message, typing, getMessages, deleteMessage, clearChat)")
	fmt.Println("GET  /healthz - Liveness probe")
	fmt.Println("GET  /metrics - Prometheus metrics")
	fmt.Println("GET  /docs/   - API docs")

	fmt.Println("\n== Production? ================================================")
	if len(cfg.Security.CORS.AllowedOrigins) > 0 {
		fmt.Printf("- CORS origins: %d configured\n", len(cfg.Security.CORS.AllowedOrigins))
	} else {
		fmt.Println("- CORS origins: none (all origins allowed)")
	}
	if cfg.Server.TLS.CertFile != "" && cfg.Server.TLS.KeyFile != "" {
		fmt.Println("- TLS: configured")
	} else {
		fmt.Println("- TLS: unconfigured")
	}
	if cfg.Audit.Enabled {
		fmt.Printf("- Mirror audit: enabled (cron=%s)\n", cfg.Audit.Cron)
	} else {
		fmt.Println("- Mirror audit: disabled")
	}

	fmt.Println("\n== Logs: ======================================================")
}
