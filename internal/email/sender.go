// Package email implementa la salida de correo transaccional.
package email

// Sender envía un mail transaccional. Se prefiere multipart/alternative
// cuando ambos cuerpos están presentes.
type Sender interface {
	Send(to, subject, htmlBody, textBody string) error
}
