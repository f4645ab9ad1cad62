package logger

import (
	"github.com/sirupsen/logrus"
)

// Log общий логгер приложения. До Init пишет текстом на уровне info.
var Log = logrus.New()

// Init инициализирует структурированный логгер.
func Init(level string) {
	Log = logrus.New()

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Log.SetLevel(lvl)

	// JSON для production, text для development
	Log.SetFormatter(&logrus.JSONFormatter{})
}

// SetTextFormatter устанавливает текстовый формат логов (для development).
func SetTextFormatter() {
	Log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
}

// Dispute возвращает запись с полями спора.
func Dispute(disputeID int64, code string) *logrus.Entry {
	return Log.WithFields(logrus.Fields{
		"dispute_id": disputeID,
		"code":       code,
	})
}
