package main

import "github.com/norrisp90/geneticai/cmd"

var (
	Version   = "alpha"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	cmd.SetVersionInfo(Version, BuildTime, GitCommit)
	cmd.Execute()
}
