package engine

import (
	"os"

	"github.com/op/go-logging"
)

// log is shared by every file in this package, the way kryptco-kr's
// root package shares a single package-level *logging.Logger.
var log = logging.MustGetLogger("engine")

var stderrFormat = logging.MustStringFormatter(
	`%{color}protoengine ▶ %{level:.4s} %{message}%{color:reset}`,
)

// SetupLogging installs a stderr backend at the given default level,
// overridable with the PROTOENGINE_LOG_LEVEL environment variable.
// Adapted from kryptco-kr's logging.go SetupLogging.
func SetupLogging(defaultLevel logging.Level) *logging.Logger {
	backend := logging.NewLogBackend(os.Stderr, "", 0)
	logging.SetFormatter(stderrFormat)
	leveled := logging.AddModuleLevel(backend)

	switch os.Getenv("PROTOENGINE_LOG_LEVEL") {
	case "CRITICAL":
		leveled.SetLevel(logging.CRITICAL, "")
	case "ERROR":
		leveled.SetLevel(logging.ERROR, "")
	case "WARNING":
		leveled.SetLevel(logging.WARNING, "")
	case "NOTICE":
		leveled.SetLevel(logging.NOTICE, "")
	case "INFO":
		leveled.SetLevel(logging.INFO, "")
	case "DEBUG":
		leveled.SetLevel(logging.DEBUG, "")
	default:
		leveled.SetLevel(defaultLevel, "")
	}

	logging.SetBackend(leveled)
	return log
}
