package common

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/banner"
)

// PrintBanner displays the application startup banner and logs the same
// information in structured form.
func PrintBanner(cfg *Config, logger arbor.ILogger) {
	version := GetVersion()
	serviceURL := fmt.Sprintf("http://%s:%d", cfg.Server.Host, cfg.Server.Port)

	b := banner.New().
		SetStyle(banner.StyleDouble).
		SetBorderColor(banner.ColorRed).
		SetTextColor(banner.ColorWhite).
		SetBold(true).
		SetWidth(78)

	fmt.Println()
	b.PrintTopLine()
	b.PrintCenteredText("THREATWATCH")
	b.PrintCenteredText("Threat Intelligence Orchestration Engine")
	b.PrintSeparatorLine()
	b.PrintKeyValue("Version", version, 15)
	b.PrintKeyValue("Environment", cfg.Environment, 15)
	b.PrintKeyValue("Service URL", serviceURL, 15)
	b.PrintKeyValue("Tor Required", fmt.Sprintf("%v", cfg.Tor.Required), 15)
	b.PrintBottomLine()
	fmt.Println()

	logger.Info().
		Str("version", version).
		Str("environment", cfg.Environment).
		Str("service_url", serviceURL).
		Msg("threatwatch starting")
}
