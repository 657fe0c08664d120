package main

import (
	"runtime/debug"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/gigurra/aegis/cmd/countdown"
	"github.com/gigurra/aegis/cmd/music"
	"github.com/gigurra/aegis/cmd/onboarding"
	"github.com/gigurra/aegis/cmd/register"
	"github.com/gigurra/aegis/cmd/team"
	"github.com/spf13/cobra"
)

func main() {
	boa.CmdT[boa.NoParams]{
		Use:     "aegis",
		Short:   "Companion CLI for the AEGIS Model UN conference",
		Version: appVersion(),
		SubCmds: []*cobra.Command{
			music.Cmd(),
			team.Cmd(),
			countdown.Cmd(),
			register.Cmd(),
			onboarding.Cmd(),
		},
	}.Run()
}

func appVersion() string {
	bi, hasBuilInfo := debug.ReadBuildInfo()
	if !hasBuilInfo {
		return "unknown-(no build info)"
	}

	versionString := bi.Main.Version
	if versionString == "" {
		versionString = "unknown-(no version)"
	}

	return versionString
}
