package global

import (
	"io"
	"os"

	"github.com/carusyte/stockchart/conf"
	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

var (
	Log = logrus.New()
	//RunID identifies the current process in log entries
	RunID = uuid.NewV4().String()

	logFile *os.File
)

func init() {
	Log.SetOutput(os.Stdout)
	Log.SetFormatter(&prefixed.TextFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
		FullTimestamp:   true,
		ForceFormatting: true,
	})
	if e := Setup(); e != nil {
		Log.Warnf("failed to setup logger: %+v", e)
	}
}

//Setup applies log level and log file settings from conf.Args.
//It can be called again after configuration is reloaded.
func Setup() error {
	SetLevel(conf.Args.LogLevel)
	if logFile != nil {
		logFile.Close()
		logFile = nil
		Log.SetOutput(os.Stdout)
	}
	if conf.Args.LogFile == "" {
		return nil
	}
	f, e := os.OpenFile(conf.Args.LogFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0666)
	if e != nil {
		return errors.Wrapf(e, "failed to open log file %s", conf.Args.LogFile)
	}
	logFile = f
	Log.SetOutput(io.MultiWriter(os.Stdout, f))
	return nil
}

//SetLevel sets logging level by name, unknown names are ignored.
func SetLevel(level string) {
	switch level {
	case "debug":
		Log.SetLevel(logrus.DebugLevel)
	case "info":
		Log.SetLevel(logrus.InfoLevel)
	case "warning", "warn":
		Log.SetLevel(logrus.WarnLevel)
	case "error":
		Log.SetLevel(logrus.ErrorLevel)
	case "fatal":
		Log.SetLevel(logrus.FatalLevel)
	case "panic":
		Log.SetLevel(logrus.PanicLevel)
	}
}
