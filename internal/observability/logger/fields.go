package logger

import (
	"time"

	"go.uber.org/zap"
)

// Campos estándar HTTP.

func RequestID(v string) zap.Field { return zap.String("request_id", v) }
func Method(v string) zap.Field    { return zap.String("method", v) }
func Path(v string) zap.Field      { return zap.String("path", v) }

// Route es el patrón normalizado de la ruta (no la URL concreta), para que
// los logs sean estables a través de URLs parametrizadas.
func Route(v string) zap.Field { return zap.String("route", v) }

func Status(v int) zap.Field              { return zap.Int("status", v) }
func Duration(v time.Duration) zap.Field  { return zap.Duration("duration", v) }
func Bytes(v int) zap.Field               { return zap.Int("bytes", v) }
func ClientIP(v string) zap.Field         { return zap.String("client_ip", v) }

// Campos estándar de negocio.

func UserID(v string) zap.Field      { return zap.String("user_id", v) }
func AccountID(v string) zap.Field   { return zap.String("account_id", v) }
func SessionID(v string) zap.Field   { return zap.String("session_id", v) }
func WorkspaceID(v string) zap.Field { return zap.String("workspace_id", v) }
func OtpType(v string) zap.Field     { return zap.String("otp_type", v) }
func Provider(v string) zap.Field    { return zap.String("provider", v) }
func Code(v string) zap.Field        { return zap.String("code", v) }

// Campos de sistema.

func Component(v string) zap.Field  { return zap.String("component", v) }
func Err(err error) zap.Field       { return zap.Error(err) }
func String(k, v string) zap.Field  { return zap.String(k, v) }
func Int(k string, v int) zap.Field { return zap.Int(k, v) }
func Bool(k string, v bool) zap.Field { return zap.Bool(k, v) }
func Any(k string, v any) zap.Field { return zap.Any(k, v) }
