// Package sms define la salida de mensajes de texto. En producción se
// enchufa un gateway real; el default de desarrollo sólo loguea.
package sms

import (
	"context"

	"github.com/dropDatabas3/mercadito/internal/observability/logger"
	"github.com/dropDatabas3/mercadito/internal/util"
)

// Sender envía un SMS al número dado (formato E.164).
type Sender interface {
	Send(ctx context.Context, to, body string) error
}

// LogSender descarta los mensajes y los deja en el log.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, to, body string) error {
	logger.From(ctx).Info("sms (log only)",
		logger.Component("LogSender"),
		logger.String("to", util.MaskPhone(to)),
		logger.Int("len", len(body)),
	)
	return nil
}
