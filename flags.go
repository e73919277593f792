package svgdeck

import (
	"github.com/flanksource/commons/logger"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

type AllFlags struct {
	logger.Flags `yaml:",inline"`
	ConfigFile   string `yaml:"config,omitempty"`
}

var Flags AllFlags = AllFlags{
	Flags: logger.Flags{
		Level:        "info",
		LevelCount:   0,
		JsonLogs:     false,
		ReportCaller: false,
		LogToStderr:  true,
	},
}

// BindAllFlags adds logging and configuration flags to a pflag set (for Cobra)
func BindAllFlags(flags *pflag.FlagSet) AllFlags {
	flags.CountVarP(&Flags.Flags.LevelCount, "loglevel", "v", "Increase logging level")
	flags.StringVar(&Flags.Flags.Level, "log-level", "info", "Set the default log level")
	flags.BoolVar(&Flags.Flags.JsonLogs, "json-logs", false, "Print logs in json format to stderr")

	flags.BoolVar(&Flags.Flags.ReportCaller, "report-caller", false, "Report log caller info")
	// stdout carries tool output and MCP responses
	flags.BoolVar(&Flags.Flags.LogToStderr, "log-to-stderr", true, "Log to stderr instead of stdout")

	flags.StringVar(&Flags.ConfigFile, "config", "", "Path to the configuration file (default ~/.config/svgdeck/config.yaml)")
	return Flags
}

func (a AllFlags) String() string {
	s, _ := yaml.Marshal(a)
	return string(s)
}

// UseFlags configures logging and loads the configuration file.
func (a AllFlags) UseFlags() (Config, error) {
	logger.Configure(a.Flags)
	logger.Debugf("Using flags: %s", a)
	return LoadConfig(a.ConfigFile)
}
