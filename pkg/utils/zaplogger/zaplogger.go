// Package zaplogger contains the application wide structured logger
package zaplogger

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"
)

const timeLayout = "2006-01-02T15:04:05.999-0700"

var log *zap.Logger
var zapConfig zap.Config

// Fields type, used to pass to `WithFields`.
type Fields map[string]interface{}

// AppLogModel is one log line persisted to the database
type AppLogModel struct {
	ID        uint      `gorm:"primaryKey"`
	Timestamp time.Time `gorm:"index"`
	Level     string    `gorm:"index"`
	Caller    string
	Message   string
	Fields    string // JSON object of the extra fields
}

// TableName specifies the table name for AppLogModel
func (AppLogModel) TableName() string {
	return "_app_logs"
}

// DbWriter implements zapcore.WriteSyncer and stores JSON encoded entries via gorm
type DbWriter struct {
	db *gorm.DB
}

func (w *DbWriter) Write(p []byte) (n int, err error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(p, &raw); err != nil {
		return 0, err
	}

	record := AppLogModel{}
	extra := make(map[string]json.RawMessage)
	for k, v := range raw {
		switch k {
		case "level":
			_ = json.Unmarshal(v, &record.Level)
		case "caller":
			_ = json.Unmarshal(v, &record.Caller)
		case "message":
			_ = json.Unmarshal(v, &record.Message)
		case "timestamp":
			var ts string
			if err := json.Unmarshal(v, &ts); err != nil {
				return 0, err
			}
			record.Timestamp, err = time.Parse(timeLayout, ts)
			if err != nil {
				return 0, err
			}
		default:
			extra[k] = v
		}
	}

	fieldsJSON, err := json.Marshal(extra)
	if err != nil {
		return 0, err
	}
	record.Fields = string(fieldsJSON)

	if err := w.db.Create(&record).Error; err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *DbWriter) Sync() error {
	return nil
}

func customTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format(timeLayout))
}

func init() {
	zapConfig = zap.Config{
		Encoding:         "console",
		Level:            zap.NewAtomicLevelAt(zap.InfoLevel),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
		EncoderConfig: zapcore.EncoderConfig{
			MessageKey:   "message",
			LevelKey:     "level",
			TimeKey:      "timestamp",
			CallerKey:    "caller",
			EncodeLevel:  zapcore.CapitalLevelEncoder,
			EncodeTime:   customTimeEncoder,
			EncodeCaller: zapcore.ShortCallerEncoder,
		},
	}

	var err error
	log, err = zapConfig.Build(zap.AddCallerSkip(1))
	if err != nil {
		panic(err)
	}
}

// InitLogger tees the console logger into the `_app_logs` table
func InitLogger(db *gorm.DB) error {
	if err := db.AutoMigrate(&AppLogModel{}); err != nil {
		return fmt.Errorf("failed to auto migrate: %v", err)
	}

	dbWriter := &DbWriter{db: db}

	consoleEncoder := zapcore.NewConsoleEncoder(zapConfig.EncoderConfig)
	dbEncoder := zapcore.NewJSONEncoder(zapConfig.EncoderConfig)

	core := zapcore.NewTee(
		zapcore.NewCore(consoleEncoder, zapcore.AddSync(os.Stdout), zapConfig.Level),
		zapcore.NewCore(dbEncoder, zapcore.AddSync(dbWriter), zapConfig.Level),
	)

	log = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	return nil
}

// ParseLevel maps a config string onto a zap level, defaulting to info
func ParseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// SetLogLevel sets the logging level
func SetLogLevel(level string) {
	zapConfig.Level.SetLevel(ParseLevel(level))
}

// Info logs an info message
func Info(msg string, fields ...Fields) {
	log.Info(msg, mergeFields(fields)...)
}

// Debug logs a debug message
func Debug(msg string, fields ...Fields) {
	log.Debug(msg, mergeFields(fields)...)
}

// Warn logs a warning message
func Warn(msg string, fields ...Fields) {
	log.Warn(msg, mergeFields(fields)...)
}

// Error logs an error message
func Error(msg string, fields ...Fields) {
	log.Error(msg, mergeFields(fields)...)
}

// Fatal logs a fatal message and exits the program
func Fatal(msg string, fields ...Fields) {
	log.Fatal(msg, mergeFields(fields)...)
}

// WithFields adds fields to the logger
func WithFields(fields Fields) *zap.Logger {
	return log.With(getZapFields(fields)...)
}

func mergeFields(fields []Fields) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	return getZapFields(fields[0])
}

// getZapFields converts our Fields type to zap.Field slice
func getZapFields(fields Fields) []zap.Field {
	zapFields := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		zapFields = append(zapFields, zap.Any(k, v))
	}
	return zapFields
}

// Sync flushes any buffered log entries
func Sync() error {
	return log.Sync()
}
