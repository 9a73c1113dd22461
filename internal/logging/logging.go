package logging

import (
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Setup настраивает глобальный logrus: уровень и вывод. При file != "" пишем
// в файл с ротацией и дублируем в stderr.
func Setup(level, file string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return err
	}
	log.SetLevel(lvl)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetOutput(Writer(file))
	return nil
}

// Writer: куда пишет лог.
func Writer(file string) io.Writer {
	if file == "" {
		return os.Stderr
	}
	return io.MultiWriter(os.Stderr, &lumberjack.Logger{
		Filename:   file,
		MaxSize:    50, // MB
		MaxBackups: 5,
		MaxAge:     28, // дней
		Compress:   true,
	})
}
