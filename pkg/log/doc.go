// Package log provides structured, leveled logging for kcvlog components.
//
// Components receive a Logger and tag themselves with a component field:
//
//	logger := log.NewLogger(log.WithLevel(log.InfoLevel))
//	l := logger.WithComponent("msglog")
//	l.Info("log opened", log.Str("name", name))
//
// Formatters render entries as text or JSON; outputs deliver the rendered
// bytes. The zero configuration logs text to stderr at info level.
package log
