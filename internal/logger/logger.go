package logger

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Log: общий логгер процесса. До Init пишет текстом на уровне info.
var Log = logrus.New()

// Init настраивает уровень и формат. В production логи пишутся в JSON.
func Init(level string, production bool) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Log.SetLevel(lvl)

	if production {
		Log.SetFormatter(&logrus.JSONFormatter{})
		return
	}
	Log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}

// Silence отключает вывод, используется в тестах.
func Silence() {
	Log.SetOutput(io.Discard)
}
