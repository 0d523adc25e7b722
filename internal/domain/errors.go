package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrInvalidInput      = errors.New("entrada inválida")
	ErrDuplicate         = errors.New("recurso duplicado")
	ErrUnauthorized      = errors.New("no autorizado")
	ErrForbidden         = errors.New("acceso denegado")
	ErrConflict          = errors.New("conflicto con el estado actual")
	ErrASNClosed         = errors.New("el ASN está cerrado; se requiere reabrirlo")
	ErrInvalidTransition = errors.New("transición de estado no permitida")
	ErrAlreadyApplied    = errors.New("el movimiento ya fue aplicado")
)

// ValidationError identifica la línea y el campo que hicieron fallar una validación.
// Envuelve ErrInvalidInput para que errors.Is siga funcionando en los handlers.
type ValidationError struct {
	LineID string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.LineID == "" {
		return fmt.Sprintf("validación: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("validación: línea %s, campo %s: %s", e.LineID, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }
