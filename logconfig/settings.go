package logconfig

import (
	myLogger "github.com/sirupsen/logrus"
)

// This output format is used in tests (has terminal).
func ConfigDebugLogger() {
	myLogger.SetReportCaller(true)
	myLogger.SetLevel(myLogger.DebugLevel)
	myLogger.SetFormatter(&myLogger.TextFormatter{
		ForceColors:            true,
		DisableTimestamp:       true,
		DisableLevelTruncation: true,
		PadLevelText:           true,
	})
}

func ConfigInfoLogger() {
	myLogger.SetReportCaller(false)
	myLogger.SetLevel(myLogger.InfoLevel)
	myLogger.SetFormatter(&myLogger.TextFormatter{
		ForceColors:            true,
		DisableTimestamp:       true,
		DisableLevelTruncation: true,
		PadLevelText:           true,
	})
}

// This output format is used in production.
func ConfigProductionLogger() {
	myLogger.SetReportCaller(false)
	myLogger.SetLevel(myLogger.InfoLevel)
	myLogger.SetFormatter(&myLogger.JSONFormatter{})
}

// ConfigLogger picks a setup by level name. "debug" gives the debug
// setup; any other level gets the production format at that level.
func ConfigLogger(level string) error {
	if level == "" {
		ConfigInfoLogger()
		return nil
	}
	lvl, err := myLogger.ParseLevel(level)
	if err != nil {
		return err
	}
	if lvl >= myLogger.DebugLevel {
		ConfigDebugLogger()
		myLogger.SetLevel(lvl)
		return nil
	}
	ConfigProductionLogger()
	myLogger.SetLevel(lvl)
	return nil
}
