package log

import (
	"context"
	"fmt"

	"github.com/ahoy-jon/SQLContainer-sub000/errors"
	"github.com/sirupsen/logrus"
)

type DXLogLevel int

const (
	DXLogLevelFatal DXLogLevel = iota // Wrong configuration, the application cannot continue
	DXLogLevelError                   // Programming error or failed statement; the caller keeps running
	DXLogLevelWarn                    // Degraded behaviour, e.g. a feature the backend cannot apply
	DXLogLevelInfo
	DXLogLevelDebug
	DXLogLevelTrace
)

var DXLogLevelAsString = map[DXLogLevel]string{
	DXLogLevelTrace: "TRACE",
	DXLogLevelDebug: "DEBUG",
	DXLogLevelInfo:  "INFO",
	DXLogLevelWarn:  "WARN",
	DXLogLevelError: "ERROR",
	DXLogLevelFatal: "FATAL",
}

type DXLogFormat int

const (
	DXLogFormatText DXLogFormat = iota
	DXLogFormatJSON
)

type DXLog struct {
	Context context.Context
	Prefix  string
	Fields  logrus.Fields
}

var Format DXLogFormat

// Logger is the logrus instance every DXLog writes to.
var Logger = logrus.New()

func NewLog(parentLog *DXLog, ctx context.Context, prefix string) DXLog {
	fields := logrus.Fields{}
	if parentLog != nil {
		if parentLog.Prefix != "" {
			prefix = parentLog.Prefix + " | " + prefix
		}
		for k, v := range parentLog.Fields {
			fields[k] = v
		}
		if ctx == nil {
			ctx = parentLog.Context
		}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return DXLog{Context: ctx, Prefix: prefix, Fields: fields}
}

// WithField returns a child log carrying an extra structured field.
func (l *DXLog) WithField(key string, value any) DXLog {
	child := NewLog(l, l.Context, "")
	child.Prefix = l.Prefix
	child.Fields[key] = value
	return child
}

func (l *DXLog) entry() *logrus.Entry {
	e := Logger.WithFields(logrus.Fields{"prefix": l.Prefix})
	if len(l.Fields) > 0 {
		e = e.WithFields(l.Fields)
	}
	if l.Context != nil {
		e = e.WithContext(l.Context)
	}
	return e
}

func (l *DXLog) LogText(severity DXLogLevel, err error, text string) {
	a := l.entry()
	if err != nil {
		a = a.WithError(err)
	}
	switch severity {
	case DXLogLevelTrace:
		a.Trace(text)
	case DXLogLevelDebug:
		a.Debug(text)
	case DXLogLevelInfo:
		a.Info(text)
	case DXLogLevelWarn:
		a.Warn(text)
	case DXLogLevelError:
		a.Error(text)
	case DXLogLevelFatal:
		a.Fatalf("Terminating... %s", text)
	default:
		a.Print(text)
	}
}

func (l *DXLog) Trace(text string) {
	l.LogText(DXLogLevelTrace, nil, text)
}

func (l *DXLog) Tracef(text string, v ...any) {
	l.Trace(fmt.Sprintf(text, v...))
}

func (l *DXLog) Debug(text string) {
	l.LogText(DXLogLevelDebug, nil, text)
}

func (l *DXLog) Debugf(text string, v ...any) {
	l.Debug(fmt.Sprintf(text, v...))
}

func (l *DXLog) Info(text string) {
	l.LogText(DXLogLevelInfo, nil, text)
}

func (l *DXLog) Infof(text string, v ...any) {
	l.Info(fmt.Sprintf(text, v...))
}

func (l *DXLog) Warn(text string) {
	l.LogText(DXLogLevelWarn, nil, text)
}

func (l *DXLog) Warnf(text string, v ...any) {
	l.Warn(fmt.Sprintf(text, v...))
}

func (l *DXLog) WarnAndCreateErrorf(text string, v ...any) (err error) {
	err = errors.Errorf(text, v...)
	l.LogText(DXLogLevelWarn, nil, err.Error())
	return err
}

func (l *DXLog) Error(err error, text string) {
	l.LogText(DXLogLevelError, err, text)
}

func (l *DXLog) Errorf(err error, text string, v ...any) {
	l.Error(err, fmt.Sprintf(text, v...))
}

func (l *DXLog) ErrorAndCreateErrorf(text string, v ...any) (err error) {
	err = errors.Errorf(text, v...)
	l.LogText(DXLogLevelError, nil, err.Error())
	return err
}

func (l *DXLog) Fatalf(text string, v ...any) {
	l.LogText(DXLogLevelFatal, nil, fmt.Sprintf(text, v...))
}

var Log DXLog

func SetFormatJSON() {
	Logger.SetFormatter(&logrus.JSONFormatter{})
	Format = DXLogFormatJSON
}

func SetFormatText() {
	Logger.SetFormatter(&logrus.TextFormatter{})
	Format = DXLogFormatText
}

// SetLevel accepts logrus level names ("debug", "warn", ...).
func SetLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return errors.Wrapf(err, "INVALID_LOG_LEVEL:%s", level)
	}
	Logger.SetLevel(lvl)
	return nil
}

func init() {
	Logger.SetLevel(logrus.InfoLevel)
	SetFormatJSON()
	Log = NewLog(nil, context.Background(), "")
}
