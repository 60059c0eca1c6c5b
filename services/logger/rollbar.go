package logsvc

import (
	"io"
	"os"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/trezcool/chuo/core"
)

// personer is any value identifying the user a log entry is about (e.g. user.User).
type personer interface {
	LogPerson() core.LogPerson
}

// RollbarLogger reports to Rollbar and writes every entry locally through logrus.
type RollbarLogger struct {
	std *logrus.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	rollbar.SetEnabled(conf.RollbarToken != "" && !conf.TestMode)
	return &RollbarLogger{std: NewLogrus(conf)}
}

// NewLogrus returns the local logger: JSON lines in a rotating file when Log.File is set, text on stdout otherwise.
func NewLogrus(conf *core.Config) *logrus.Logger {
	std := logrus.New()
	var out io.Writer = os.Stdout
	if conf.Log.File != "" {
		out = &lumberjack.Logger{
			Filename:   conf.Log.File,
			MaxSize:    conf.Log.MaxSizeMB,
			MaxBackups: conf.Log.MaxBackups,
			Compress:   true,
		}
		std.SetFormatter(&logrus.JSONFormatter{})
	}
	std.SetOutput(out)

	lvl, err := logrus.ParseLevel(conf.Log.Level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	if conf.Debug {
		lvl = logrus.DebugLevel
	}
	std.SetLevel(lvl)
	return std
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// Std exposes the local logger, e.g. for gorm's logger or echo's request log.
func (l RollbarLogger) Std() *logrus.Logger {
	return l.std
}

// expected fmt: msg | error, map[string]interface{}, personer
func (l RollbarLogger) prepare(msg string, args []interface{}) ([]interface{}, logrus.Fields) {
	var usrSet bool
	fields := logrus.Fields{}
	newArgs := make([]interface{}, 0, len(args)+1)
	newArgs = append(newArgs, msg)
	for _, arg := range args {
		switch a := arg.(type) {
		case personer:
			if !usrSet { // only set one User
				p := a.LogPerson()
				rollbar.SetPerson(p.ID, p.Username, p.Email)
				fields["user_id"] = p.ID
				usrSet = true
			}
			continue
		case error:
			fields[logrus.ErrorKey] = a
		case map[string]interface{}:
			for k, v := range a {
				fields[k] = v
			}
		}
		newArgs = append(newArgs, arg)
	}
	if !usrSet {
		rollbar.ClearPerson()
	}
	return newArgs, fields
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	rArgs, fields := l.prepare(msg, args)
	rollbar.Debug(rArgs...)
	l.std.WithFields(fields).Debug(msg)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	rArgs, fields := l.prepare(msg, args)
	rollbar.Info(rArgs...)
	l.std.WithFields(fields).Info(msg)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	rArgs, fields := l.prepare(msg, args)
	rollbar.Warning(rArgs...)
	l.std.WithFields(fields).Warn(msg)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	rArgs, fields := l.prepare(msg, args)
	rollbar.Error(rArgs...)
	l.std.WithFields(fields).Error(msg)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	rArgs, fields := l.prepare(msg, args)
	rollbar.Critical(rArgs...)
	rollbar.Wait()
	l.std.WithFields(fields).Fatal(msg)
}
