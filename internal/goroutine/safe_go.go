// Package goroutine запускает фоновые задачи так, чтобы panic не ронял процесс.
package goroutine

import (
	"runtime/debug"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/deals-backend/internal/logger"
)

// SafeGo запускает fn в отдельной горутине с перехватом panic.
func SafeGo(name string, fn func()) {
	go func() {
		defer Recover(name)
		fn()
	}()
}

// Recover логирует panic вместе со стеком. Вызывать только через defer.
func Recover(name string) {
	if r := recover(); r != nil {
		logger.Log.WithFields(logrus.Fields{
			"goroutine": name,
			"panic":     r,
			"stack":     string(debug.Stack()),
		}).Error("panic в горутине перехвачен")
	}
}
